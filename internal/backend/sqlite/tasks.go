package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"todosync/internal/service"
)

// errPermissionDenied mirrors the hosted backend's per-user access rule.
var errPermissionDenied = errors.New("permission denied")

// taskService is bound to the user whose session opened it.
type taskService struct {
	backend *Backend
	owner   string
}

func (s *taskService) authorize(userID string) error {
	if userID != s.owner {
		return errPermissionDenied
	}
	return nil
}

// Watch implements service.TaskService.
func (s *taskService) Watch(ctx context.Context, userID string) (service.Subscription, error) {
	if err := s.authorize(userID); err != nil {
		return nil, err
	}
	sub := newSubscription(ctx, s.backend, userID)
	s.backend.hub.add(sub)
	return sub, nil
}

// Create implements service.TaskService.
func (s *taskService) Create(ctx context.Context, task service.Task) (string, error) {
	if err := s.authorize(task.UserID); err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err := s.backend.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, completed, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, task.UserID, task.Title, task.Description, task.Completed, task.Timestamp)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}

	s.backend.hub.notify(task.UserID)
	return id, nil
}

// Merge implements service.TaskService.
func (s *taskService) Merge(ctx context.Context, task service.Task) error {
	if err := s.authorize(task.UserID); err != nil {
		return err
	}

	res, err := s.backend.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, completed = ?, timestamp = ?
		 WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.Completed, task.Timestamp, task.ID, task.UserID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return s.changed(res, task.UserID)
}

// SetCompleted implements service.TaskService.
func (s *taskService) SetCompleted(ctx context.Context, userID, taskID string, completed bool) error {
	if err := s.authorize(userID); err != nil {
		return err
	}

	res, err := s.backend.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ? WHERE id = ? AND user_id = ?`,
		completed, taskID, userID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return s.changed(res, userID)
}

// Delete implements service.TaskService.
func (s *taskService) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.authorize(userID); err != nil {
		return err
	}

	res, err := s.backend.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return s.changed(res, userID)
}

// changed notifies watchers if res touched a row, else reports ErrNotFound.
func (s *taskService) changed(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return service.ErrNotFound
	}
	s.backend.hub.notify(userID)
	return nil
}

// queryTasks runs the ordered live query for userID.
func (b *Backend) queryTasks(ctx context.Context, userID string) ([]service.Task, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, completed, timestamp
		 FROM tasks WHERE user_id = ?
		 ORDER BY timestamp DESC, seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		var t service.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.Timestamp); err != nil {
			return nil, &service.DecodeError{DocID: t.ID, Err: err}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}
