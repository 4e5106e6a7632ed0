package process

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Supervisor tracks running invocations so they can be terminated together
// when the application exits.
//
// Supervisor is safe for concurrent use.
type Supervisor struct {
	mu        sync.RWMutex
	processes map[string]*Process

	// shutdown is closed when Shutdown begins.
	shutdown chan struct{}
	closed   atomic.Bool

	// maxProcesses limits concurrent processes (0 = unlimited).
	maxProcesses int

	onProcessExit func(p *Process)
	logger        *zap.Logger
}

// SupervisorOption configures a Supervisor instance.
type SupervisorOption func(*Supervisor)

// WithMaxProcesses sets the maximum number of concurrent processes.
// A value of 0 (default) means unlimited.
func WithMaxProcesses(max int) SupervisorOption {
	return func(s *Supervisor) {
		s.maxProcesses = max
	}
}

// WithProcessExitCallback sets a callback invoked after each process exits.
func WithProcessExitCallback(fn func(p *Process)) SupervisorOption {
	return func(s *Supervisor) {
		s.onProcessExit = fn
	}
}

// WithSupervisorLogger sets the logger used for lifecycle messages.
func WithSupervisorLogger(l *zap.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSupervisor creates a new process supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		processes: make(map[string]*Process),
		shutdown:  make(chan struct{}),
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches cmd under a fresh ID and tracks it until it exits.
//
// Returns ErrSupervisorShutdown once Shutdown has been called. A failure to
// launch the command is returned unwrapped from exec.Cmd.Start.
func (s *Supervisor) Start(name string, cmd *exec.Cmd) (*Process, error) {
	return s.StartWithID(uuid.New().String(), name, cmd)
}

// StartWithID launches cmd under the given ID.
func (s *Supervisor) StartWithID(id, name string, cmd *exec.Cmd) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}

	if s.maxProcesses > 0 && len(s.processes) >= s.maxProcesses {
		return nil, fmt.Errorf("process limit reached: %d", s.maxProcesses)
	}

	if _, exists := s.processes[id]; exists {
		return nil, fmt.Errorf("process ID already exists: %s", id)
	}

	proc := NewProcess(id, name, cmd)
	if err := proc.start(); err != nil {
		return nil, err
	}

	s.processes[id] = proc
	s.logger.Debug("process started",
		zap.String("id", id),
		zap.String("name", name),
		zap.Strings("args", cmd.Args[1:]),
		zap.String("dir", cmd.Dir),
		zap.Int("pid", proc.PID()),
	)

	go s.monitorProcess(proc)

	return proc, nil
}

// monitorProcess waits for exit, runs the callback and stops tracking.
func (s *Supervisor) monitorProcess(proc *Process) {
	<-proc.Done()

	s.logger.Debug("process exited",
		zap.String("id", proc.ID),
		zap.String("name", proc.Name),
		zap.Int("exit_code", proc.ExitCode()),
		zap.Stringer("state", proc.State()),
		zap.Duration("runtime", proc.Runtime()),
	)

	if s.onProcessExit != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("process exit callback panicked", zap.Any("panic", r))
				}
			}()
			s.onProcessExit(proc)
		}()
	}

	s.mu.Lock()
	delete(s.processes, proc.ID)
	s.mu.Unlock()
}

// Get returns a process by ID, or nil.
func (s *Supervisor) Get(id string) *Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes[id]
}

// List returns all tracked processes.
func (s *Supervisor) List() []*Process {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		result = append(result, p)
	}
	return result
}

// Count returns the number of tracked processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// Kill kills a process by ID.
// Returns ErrProcessNotFound if the process doesn't exist.
func (s *Supervisor) Kill(id string) error {
	proc := s.Get(id)
	if proc == nil {
		return ErrProcessNotFound
	}

	if !proc.IsRunning() {
		return nil
	}

	return proc.Kill()
}

// Shutdown terminates every tracked process.
//
// It sends SIGTERM and waits up to timeout; anything still running after
// that is killed. Shutdown returns once all processes have been reaped.
// Later calls to Start fail with ErrSupervisorShutdown.
func (s *Supervisor) Shutdown(timeout time.Duration) {
	if s.closed.Swap(true) {
		return
	}

	close(s.shutdown)

	procs := s.List()
	if len(procs) == 0 {
		return
	}

	s.logger.Debug("terminating processes", zap.Int("count", len(procs)))

	for _, p := range procs {
		if p.IsRunning() {
			_ = p.Terminate()
		}
	}

	done := make(chan struct{})
	go func() {
		for _, p := range procs {
			<-p.Done()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, p := range procs {
			if p.IsRunning() {
				_ = p.Kill()
			}
		}
		<-done
	}

	s.waitForCleanup()
}

// waitForCleanup waits for the monitor goroutines to drop their entries.
func (s *Supervisor) waitForCleanup() {
	for s.Count() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// IsShuttingDown returns true once Shutdown has been called.
func (s *Supervisor) IsShuttingDown() bool {
	return s.closed.Load()
}

// ShutdownChan returns a channel that is closed when shutdown begins.
func (s *Supervisor) ShutdownChan() <-chan struct{} {
	return s.shutdown
}
