// Package sqlite implements service.Backend on a local SQLite database.
//
// It is a self-contained stand-in for the hosted backend: accounts with
// bcrypt password hashes, opaque session tokens, and per-user task
// collections whose live queries are driven by an in-process change hub.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"todosync/internal/service"
)

//go:embed schema.sql
var schemaSQL string

// Backend implements service.Backend using SQLite.
type Backend struct {
	db   *sql.DB
	hub  *hub
	cost int
	now  func() time.Time
}

// Open creates or opens a SQLite database at the given path.
// The database is configured with WAL mode, a 5-second busy timeout and
// foreign key enforcement. Safe to call on an existing database.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Backend{
		db:   db,
		hub:  newHub(),
		cost: bcrypt.DefaultCost,
		now:  time.Now,
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close stops all live queries and closes the database.
func (b *Backend) Close() error {
	b.hub.closeAll()
	return b.db.Close()
}

// SignUp implements service.Identity.
func (b *Backend) SignUp(ctx context.Context, email, password string) (service.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return service.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := service.User{ID: uuid.NewString(), Email: email}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, hash, b.now().UnixMilli())
	if isUniqueViolation(err) {
		return service.Session{}, service.ErrEmailExists
	}
	if err != nil {
		return service.Session{}, fmt.Errorf("create user: %w", err)
	}

	return b.newSession(ctx, user)
}

// SignIn implements service.Identity.
func (b *Backend) SignIn(ctx context.Context, email, password string) (service.Session, error) {
	var (
		user service.User
		hash []byte
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Session{}, service.ErrInvalidCredentials
	}
	if err != nil {
		return service.Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return service.Session{}, service.ErrInvalidCredentials
	}

	return b.newSession(ctx, user)
}

// Lookup implements service.Identity.
func (b *Backend) Lookup(ctx context.Context, sess service.Session) (service.User, error) {
	var user service.User
	err := b.db.QueryRowContext(ctx,
		`SELECT u.id, u.email FROM sessions s JOIN users u ON u.id = s.user_id WHERE s.token = ?`,
		sess.IDToken,
	).Scan(&user.ID, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return service.User{}, service.ErrSessionExpired
	}
	if err != nil {
		return service.User{}, fmt.Errorf("lookup session: %w", err)
	}
	return user, nil
}

// SignOut implements service.Identity. The session token is revoked.
func (b *Backend) SignOut(ctx context.Context, sess service.Session) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, sess.IDToken)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Tasks implements service.Backend. The session must be live; the returned
// service only accepts the session user's ID.
func (b *Backend) Tasks(ctx context.Context, sess service.Session) (service.TaskService, error) {
	user, err := b.Lookup(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &taskService{backend: b, owner: user.ID}, nil
}

func (b *Backend) newSession(ctx context.Context, user service.User) (service.Session, error) {
	token := uuid.NewString()
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, user.ID, b.now().UnixMilli())
	if err != nil {
		return service.Session{}, fmt.Errorf("create session: %w", err)
	}
	return service.Session{User: user, IDToken: token}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
