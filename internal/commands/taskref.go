package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"todosync/internal/exitcode"
	"todosync/internal/service"
	"todosync/internal/taskstore"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a 1-based task number as printed by `todosync list`.
// Exactly one positional argument is accepted.
func ParseTaskRef(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("unexpected argument: %s", args[1])
	}

	ref := args[0]
	if !isAllDigits(ref) {
		return 0, fmt.Errorf("invalid task reference: %s", ref)
	}
	num, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("invalid task reference: %s", ref)
	}
	return num, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// errOutOfRange is returned by findTaskByNumber for numbers past the list.
var errOutOfRange = errors.New("task number out of range")

// findTaskByNumber subscribes the store, waits for the first snapshot and
// returns the task at the 1-based position num.
func findTaskByNumber(ctx context.Context, store *taskstore.Store, num int) (service.Task, error) {
	if err := syncTasks(ctx, store); err != nil {
		return service.Task{}, err
	}

	tasks := store.Tasks()
	if num < 1 || num > len(tasks) {
		return service.Task{}, errOutOfRange
	}
	return tasks[num-1], nil
}

// syncTasks subscribes for the signed-in user and waits for the first snapshot.
func syncTasks(ctx context.Context, store *taskstore.Store) error {
	if err := store.Refresh(ctx); err != nil {
		return err
	}
	return store.Wait(ctx)
}

// resolveTask parses the task reference in args and looks the task up,
// reporting failures on errOut. The exit code is exitcode.Success on success.
func resolveTask(ctx context.Context, store *taskstore.Store, args []string, errOut io.Writer) (service.Task, int) {
	num, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	task, err := findTaskByNumber(ctx, store, num)
	if err != nil {
		if errors.Is(err, errOutOfRange) {
			fmt.Fprintf(errOut, "error: task number out of range: %d\n", num)
			return service.Task{}, exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return service.Task{}, exitcode.BackendError
	}
	return task, exitcode.Success
}
