// Package exitcode defines the process exit codes of todosync.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates bad arguments or a task number that does not
	// exist.
	UserError = 1

	// AuthError indicates a missing session, rejected credentials or an
	// incomplete config.toml.
	AuthError = 2

	// BackendError indicates the identity service or task database failed.
	BackendError = 3
)
