package git

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for git operations.
var (
	// ErrNotRepository indicates the path is not a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrGitNotFound indicates the git executable could not be found.
	ErrGitNotFound = errors.New("git executable not found")

	// ErrPermissionDenied indicates git could not read the repository or path.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDetachedHead indicates HEAD points at a commit rather than a branch.
	ErrDetachedHead = errors.New("detached HEAD state")

	// ErrInvalidHead indicates HEAD could not be parsed.
	ErrInvalidHead = errors.New("invalid HEAD")
)

// CommandError reports a git command that ran but failed for a reason the
// client does not treat as a normal outcome.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: exit %d: %s",
		strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

// PathError ties a sentinel to the path it concerns.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *PathError) Unwrap() error {
	return e.Err
}
