package git

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocateRoot finds the working tree that contains filePath.
//
// It asks git from the file's directory, so submodules and linked worktrees
// resolve to their own root rather than an enclosing repository. A nil
// Repository with a nil error means the file is not in a repository; that
// includes a directory that does not exist.
func (c *Client) LocateRoot(ctx context.Context, filePath string) (*Repository, error) {
	dir := filepath.Dir(filePath)
	args := []string{"-C", dir, "rev-parse", "--show-toplevel"}

	res, err := c.run(ctx, "", args...)
	if err != nil {
		return nil, err
	}

	if res.ExitCode != 0 {
		switch {
		case stderrHas(res.Stderr, "permission denied"):
			return nil, &PathError{Op: "locate root", Path: dir, Err: ErrPermissionDenied}
		case stderrHas(res.Stderr, "not a git repository", "cannot change to"):
			c.logger.Debug("not a repository", zap.String("dir", dir))
			return nil, nil
		default:
			return nil, &CommandError{Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
	}

	root := strings.TrimSpace(res.Stdout)
	if root == "" {
		return nil, nil
	}

	repo, err := OpenRepository(filepath.FromSlash(root))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("located repository",
		zap.String("root", repo.Root),
		zap.String("git_dir", repo.GitDir),
		zap.String("common_dir", repo.CommonDir),
	)
	return repo, nil
}
