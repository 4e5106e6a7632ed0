package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Result is the outcome of a command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands through a Supervisor and waits for their output.
type Runner struct {
	sup      *Supervisor
	resolver *Resolver
	env      []string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecutable pins an executable name to an absolute path.
func WithExecutable(name, path string) RunnerOption {
	return func(r *Runner) {
		r.resolver.Override(name, path)
	}
}

// WithEnv adds KEY=value pairs to the environment of every command. They
// override inherited variables of the same name.
func WithEnv(kv ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// WithResolver replaces the executable resolver.
func WithResolver(res *Resolver) RunnerOption {
	return func(r *Runner) {
		if res != nil {
			r.resolver = res
		}
	}
}

// NewRunner creates a Runner. A nil supervisor gets a private one.
func NewRunner(sup *Supervisor, opts ...RunnerOption) *Runner {
	if sup == nil {
		sup = NewSupervisor()
	}
	r := &Runner{
		sup:      sup,
		resolver: NewResolver(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supervisor returns the supervisor the runner launches through.
func (r *Runner) Supervisor() *Supervisor {
	return r.sup
}

// Run starts executable with args in dir and blocks until it has exited and
// both output streams are drained.
//
// A command that could not be launched returns a *LaunchError. A command
// that ran returns its Result with a nil error whatever its exit status.
// Cancelling ctx kills the child and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, executable string, args []string, dir string) (Result, error) {
	path, err := r.resolver.Resolve(executable)
	if err != nil {
		return Result{}, &LaunchError{Executable: executable, Args: args, Err: err}
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	proc, err := r.sup.Start(executable, cmd)
	if err != nil {
		return Result{}, &LaunchError{Executable: executable, Args: args, Err: err}
	}

	select {
	case <-proc.Done():
	case <-ctx.Done():
		_ = proc.Kill()
		<-proc.Done()
		return Result{}, fmt.Errorf("run %s: %w", executable, ctx.Err())
	}

	return Result{
		Stdout:   proc.Stdout(),
		Stderr:   proc.Stderr(),
		ExitCode: proc.ExitCode(),
		Duration: proc.Runtime(),
	}, nil
}
