// Package process runs external commands for the integration layer.
//
// Every invocation is a tracked Process owned by a Supervisor. The Runner
// wraps the supervisor with the request/response shape the git client needs:
// run an executable with arguments in a working directory and return its
// captured output once the child has fully exited.
//
// # Runner
//
//	runner := process.NewRunner(process.NewSupervisor())
//	res, err := runner.Run(ctx, "git", []string{"rev-parse", "--show-toplevel"}, dir)
//	if err != nil {
//	    // the command could not be launched at all
//	}
//	if res.ExitCode != 0 {
//	    // inspect res.Stderr
//	}
//
// A launch failure is returned as a *LaunchError. A non-zero exit status is
// not an error; callers inspect Result.ExitCode and Result.Stderr.
//
// # Executable Resolution
//
// Known executables resolve to fixed absolute paths before falling back to
// a PATH lookup, so a hostile binary earlier in PATH cannot shadow them. An
// explicit override can be installed with WithExecutable.
//
// # Graceful Shutdown
//
//	// Send SIGTERM, wait up to 2 seconds, then SIGKILL
//	supervisor.Shutdown(2 * time.Second)
//
// # Thread Safety
//
// Supervisor, Process and Runner are safe for concurrent use.
package process
