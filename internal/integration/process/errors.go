package process

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the process package.
var (
	// ErrProcessNotStarted is returned when an operation requires a running process.
	ErrProcessNotStarted = errors.New("process not started")

	// ErrProcessAlreadyStarted is returned when starting a process twice.
	ErrProcessAlreadyStarted = errors.New("process already started")

	// ErrProcessNotFound is returned when a process ID is not tracked.
	ErrProcessNotFound = errors.New("process not found")

	// ErrSupervisorShutdown is returned when the supervisor is shutting down.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")

	// ErrLaunchFailed is the sentinel wrapped by every LaunchError.
	ErrLaunchFailed = errors.New("launch failed")

	// ErrExecutableNotFound indicates the executable could not be resolved.
	ErrExecutableNotFound = errors.New("executable not found")
)

// LaunchError reports that a command could not be started at all.
// It is distinct from a command that ran and exited non-zero.
type LaunchError struct {
	Executable string
	Args       []string
	Err        error
}

func (e *LaunchError) Error() string {
	var b strings.Builder
	b.WriteString("launch ")
	b.WriteString(e.Executable)
	if len(e.Args) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(e.Args, " "))
	}
	return fmt.Sprintf("%s: %v", b.String(), e.Err)
}

// Unwrap returns the underlying cause.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrLaunchFailed for any LaunchError.
func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunchFailed
}
