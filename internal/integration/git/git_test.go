package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/redmargin/internal/integration/process"
	"github.com/stretchr/testify/require"
)

// requireGit skips the test when git is not installed.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// testRepo creates an initialized repository in a temp directory and
// returns its symlink-resolved path.
func testRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	initRepo(t, dir)
	return dir
}

// initRepo runs git init in dir and configures a test identity.
func initRepo(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
}

// createFile writes content to name inside dir, creating parents.
func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// gitCmd runs a git command in dir and fails the test on error.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s\n%s", strings.Join(args, " "), out)
	return string(out)
}

// commitAll stages everything and commits.
func commitAll(t *testing.T, dir, msg string) {
	t.Helper()
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "-q", "-m", msg)
}

// newTestClient returns a client backed by a real runner.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	sup := process.NewSupervisor()
	t.Cleanup(func() { sup.Shutdown(time.Second) })
	return NewClient(process.NewRunner(sup), Config{}, nil)
}

// fakeExecutor replays a canned result for every call and records args.
type fakeExecutor struct {
	result process.Result
	err    error
	calls  [][]string
	dirs   []string
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string, dir string) (process.Result, error) {
	f.calls = append(f.calls, args)
	f.dirs = append(f.dirs, dir)
	return f.result, f.err
}
