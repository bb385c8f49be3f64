// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"todosync/internal/service"
)

const (
	// SnapshotSeparator is printed between consecutive snapshots in watch mode.
	SnapshotSeparator = "------------"

	// EmptyList is printed when a snapshot has no tasks.
	EmptyList = "no tasks found"
)

// Styler decorates titles when writing to a terminal.
type Styler struct {
	enabled bool
	done    lipgloss.Style
}

// NewStyler returns a Styler that is active only when w is a terminal.
func NewStyler(w io.Writer) Styler {
	f, ok := w.(*os.File)
	return Styler{
		enabled: ok && term.IsTerminal(int(f.Fd())),
		done:    lipgloss.NewStyle().Strikethrough(true).Faint(true),
	}
}

// Plain returns a Styler that never decorates.
func Plain() Styler {
	return Styler{}
}

func (s Styler) title(task service.Task) string {
	title := normalizeTitle(task.Title)
	if s.enabled && task.Completed {
		return s.done.Render(title)
	}
	return title
}

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {TITLE}\n", with "[ ]" for open tasks, followed by
// "          {DESCRIPTION}\n" when the description is not blank.
func FormatTask(w io.Writer, num int, task service.Task, st Styler) {
	mark := "[ ]"
	if task.Completed {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, mark, st.title(task))

	if desc := normalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "          %s\n", desc)
	}
}

// FormatTasks formats a whole snapshot, or EmptyList when there are no
// tasks and quiet is false.
func FormatTasks(w io.Writer, tasks []service.Task, st Styler, quiet bool) {
	if len(tasks) == 0 {
		if !quiet {
			fmt.Fprintln(w, EmptyList)
		}
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task, st)
	}
}

// FormatUser formats the signed-in user for whoami.
func FormatUser(w io.Writer, user service.User) {
	if user.Email == "" {
		fmt.Fprintln(w, user.ID)
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", user.Email, user.ID)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

// normalizeText replaces newlines with spaces and returns "" for blank text.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
