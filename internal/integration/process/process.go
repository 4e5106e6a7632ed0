package process

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State represents the state of a process.
type State int

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is currently running.
	StateRunning
	// StateExited indicates the process has exited normally or with an error.
	StateExited
	// StateKilled indicates the process was killed by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// waitDelay bounds how long Wait keeps copying output after the child has
// exited. Descendants that inherited the output pipes would otherwise hold
// Wait open for as long as they live.
const waitDelay = time.Second

// Process is one supervised command invocation with captured output.
//
// Stdout and stderr are collected into memory. Once Done is closed the
// captured output is complete, unless a descendant kept the pipes open past
// waitDelay. The child runs in its own process group, and signals go to the
// whole group.
type Process struct {
	// ID is the unique identifier for this invocation.
	ID string

	// Name is the executable name as requested by the caller.
	Name string

	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Started is the time the process was started.
	Started time.Time

	stdout bytes.Buffer
	stderr bytes.Buffer

	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32
	ended    atomic.Int64

	waitOnce sync.Once
}

// NewProcess wraps cmd and attaches the output buffers.
//
// The command should not be started before calling NewProcess.
// Use Supervisor.Start to start it with tracking.
func NewProcess(id, name string, cmd *exec.Cmd) *Process {
	p := &Process{
		ID:   id,
		Name: name,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = waitDelay
	}
	setProcessGroup(cmd)
	p.state.Store(int32(StateCreated))
	p.exitCode.Store(-1)
	return p
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns the process exit code, or -1 if it has not exited.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// Done returns a channel that is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// IsRunning returns true if the process is currently running.
func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// HasExited returns true if the process has exited (normally or killed).
func (p *Process) HasExited() bool {
	state := p.State()
	return state == StateExited || state == StateKilled
}

// PID returns the process ID, or -1 if not started.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Stdout returns the captured standard output. It is only complete after Done.
func (p *Process) Stdout() string {
	select {
	case <-p.done:
		return p.stdout.String()
	default:
		return ""
	}
}

// Stderr returns the captured standard error. It is only complete after Done.
func (p *Process) Stderr() string {
	select {
	case <-p.done:
		return p.stderr.String()
	default:
		return ""
	}
}

// Signal sends a signal to the process group.
func (p *Process) Signal(sig os.Signal) error {
	if !p.IsRunning() || p.Cmd.Process == nil {
		return fmt.Errorf("process not running: %w", ErrProcessNotStarted)
	}
	return signalGroup(p.Cmd.Process, sig)
}

// Kill sends SIGKILL to the process.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Terminate sends SIGTERM to the process.
func (p *Process) Terminate() error {
	return p.Signal(syscall.SIGTERM)
}

// Runtime returns how long the process ran, or has been running so far.
func (p *Process) Runtime() time.Duration {
	if p.Started.IsZero() {
		return 0
	}
	if end := p.ended.Load(); end != 0 {
		return time.Unix(0, end).Sub(p.Started)
	}
	return time.Since(p.Started)
}

// start launches the command. Called by the Supervisor.
func (p *Process) start() error {
	if p.State() != StateCreated {
		return ErrProcessAlreadyStarted
	}

	if err := p.Cmd.Start(); err != nil {
		return err
	}

	p.Started = time.Now()
	p.state.Store(int32(StateRunning))

	go p.waitLoop()

	return nil
}

// waitLoop waits for the process to exit and records its status.
func (p *Process) waitLoop() {
	p.waitOnce.Do(func() {
		// The exit status comes from ProcessState. Wait's error repeats it,
		// or reports that waitDelay cut the output copy short.
		_ = p.Cmd.Wait()
		p.ended.Store(time.Now().UnixNano())

		exitCode := -1
		state := StateExited
		if ps := p.Cmd.ProcessState; ps != nil {
			exitCode = ps.ExitCode()
			if status, ok := ps.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				state = StateKilled
			}
		}

		p.exitCode.Store(int32(exitCode))
		p.state.Store(int32(state))
		close(p.done)
	})
}
