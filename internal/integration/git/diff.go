package git

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/redmargin/internal/changeset"
	"go.uber.org/zap"
)

// Retrieve computes the ChangeSet for filePath against the client's
// reference revision.
//
// Untracked files, and every file in a repository without commits, yield
// an untracked ChangeSet covering all lines. Binary files yield an empty
// ChangeSet. Errors are returned only for launch failures, permission
// problems and unexpected git failures.
func (c *Client) Retrieve(ctx context.Context, filePath string, repo *Repository) (changeset.ChangeSet, error) {
	rel := relativePath(repo.Root, filePath)
	log := c.logger.With(zap.String("path", rel))

	tracked, err := c.isTracked(ctx, repo.Root, rel)
	if err != nil {
		return changeset.ChangeSet{}, err
	}
	if !tracked {
		log.Debug("file is untracked")
		return changeset.Untracked(countLines(filePath)), nil
	}

	args := []string{"diff", "--no-color", "--no-ext-diff", "--unified=0", c.reference, "--", rel}
	res, err := c.run(ctx, repo.Root, args...)
	if err != nil {
		return changeset.ChangeSet{}, err
	}

	if res.ExitCode != 0 {
		switch {
		case stderrHas(res.Stderr, "unknown revision", "bad revision", "ambiguous argument"):
			log.Debug("reference revision missing, treating as untracked", zap.String("reference", c.reference))
			return changeset.Untracked(countLines(filePath)), nil
		case stderrHas(res.Stderr, "permission denied"):
			return changeset.ChangeSet{}, &PathError{Op: "diff", Path: rel, Err: ErrPermissionDenied}
		default:
			return changeset.ChangeSet{}, &CommandError{Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
	}

	cs := ParseDiffOutput(res.Stdout)
	log.Debug("retrieved changes", zap.Stringer("changes", cs))
	return cs, nil
}

// isTracked asks git whether rel is in the index. Only git's "did not
// match any file" answer means untracked; any other failure is an error.
func (c *Client) isTracked(ctx context.Context, root, rel string) (bool, error) {
	args := []string{"ls-files", "--error-unmatch", "--", rel}
	res, err := c.run(ctx, root, args...)
	if err != nil {
		return false, err
	}
	switch {
	case res.ExitCode == 0:
		return true, nil
	case stderrHas(res.Stderr, "did not match any file"):
		return false, nil
	case stderrHas(res.Stderr, "permission denied"):
		return false, &PathError{Op: "ls-files", Path: rel, Err: ErrPermissionDenied}
	default:
		return false, &CommandError{Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
}

// ParseDiffOutput classifies every hunk header in a zero-context diff.
//
//   - OldCount == 0, NewCount > 0: added lines
//   - OldCount > 0, NewCount > 0: modified lines
//   - NewCount == 0, OldCount > 0: a deletion anchor
//
// Binary diffs produce an empty ChangeSet. Lines that are not well-formed
// hunk headers are skipped.
func ParseDiffOutput(output string) changeset.ChangeSet {
	if output == "" {
		return changeset.Empty()
	}

	var added, modified []changeset.Range
	var deleted []int

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if isBinaryMarker(line) {
			return changeset.Empty()
		}
		if !strings.HasPrefix(line, "@@") {
			continue
		}

		h, ok := ParseHunkHeader(line)
		if !ok {
			continue
		}

		switch {
		case h.IsInsertion():
			added = append(added, h.NewRange())
		case h.NewCount > 0:
			modified = append(modified, h.NewRange())
		case h.IsDeletion():
			deleted = append(deleted, h.DeletionAnchor())
		}
	}

	return changeset.New(added, modified, deleted)
}

func isBinaryMarker(line string) bool {
	return (strings.HasPrefix(line, "Binary files ") && strings.HasSuffix(line, " differ")) ||
		line == "GIT binary patch"
}

// relativePath returns filePath relative to root using forward slashes.
// Both sides are symlink-resolved so /var and /private/var style aliases
// compare equal. A file outside root falls back to its base name.
func relativePath(root, filePath string) string {
	resolvedRoot := evalSymlinks(root)
	resolvedFile := evalSymlinks(filePath)

	rel, err := filepath.Rel(resolvedRoot, resolvedFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(filePath)
	}
	return filepath.ToSlash(rel)
}

// evalSymlinks resolves path, or its parent directory when the file
// itself no longer exists.
func evalSymlinks(path string) string {
	if p, err := filepath.EvalSymlinks(path); err == nil {
		return p
	}
	dir, base := filepath.Split(path)
	if p, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(p, base)
	}
	return filepath.Clean(path)
}

// countLines counts newline-terminated lines plus a trailing unterminated
// line. An empty or unreadable file has zero lines.
func countLines(path string) int {
	content, err := os.ReadFile(path)
	if err != nil || len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
