package git

import (
	"context"
	"errors"
	"strings"

	"github.com/dshills/redmargin/internal/integration/process"
	"go.uber.org/zap"
)

// DefaultReference is the revision working files are compared against.
const DefaultReference = "HEAD"

// Executor runs an external command and returns its captured output.
// *process.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, executable string, args []string, dir string) (process.Result, error)
}

// Config configures a Client.
type Config struct {
	// Executable is the git binary to run. Defaults to "git", which the
	// process resolver maps to a trusted absolute path.
	Executable string

	// Reference is the revision to diff against. Defaults to HEAD.
	Reference string
}

// Client runs git commands on behalf of the change pipeline.
type Client struct {
	exec      Executor
	gitExe    string
	reference string
	logger    *zap.Logger
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(exec Executor, cfg Config, logger *zap.Logger) *Client {
	if cfg.Executable == "" {
		cfg.Executable = "git"
	}
	if cfg.Reference == "" {
		cfg.Reference = DefaultReference
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		exec:      exec,
		gitExe:    cfg.Executable,
		reference: cfg.Reference,
		logger:    logger.Named("git"),
	}
}

// Reference returns the revision the client diffs against.
func (c *Client) Reference() string {
	return c.reference
}

// run executes git in dir. Launch failures are mapped to ErrGitNotFound
// when the executable is missing.
func (c *Client) run(ctx context.Context, dir string, args ...string) (process.Result, error) {
	res, err := c.exec.Run(ctx, c.gitExe, args, dir)
	if err != nil {
		if errors.Is(err, process.ErrExecutableNotFound) {
			return res, errors.Join(ErrGitNotFound, err)
		}
		return res, err
	}
	c.logger.Debug("git finished",
		zap.Strings("args", args),
		zap.String("dir", dir),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// stderrHas reports whether stderr contains any of the phrases, ignoring case.
func stderrHas(stderr string, phrases ...string) bool {
	s := strings.ToLower(stderr)
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
