package git

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repository is a resolved working tree.
type Repository struct {
	// Root is the top-level directory of the working tree.
	Root string

	// GitDir holds HEAD and the index for this working tree.
	GitDir string

	// CommonDir holds refs shared between linked worktrees. It equals
	// GitDir for an ordinary repository.
	CommonDir string
}

// OpenRepository resolves the git and common directories for root without
// invoking git.
//
// .git may be a directory, or a file containing "gitdir: <path>" as written
// for linked worktrees and submodules. A relative gitdir is taken relative
// to root. If the git dir contains a "commondir" file, refs are looked up
// there.
func OpenRepository(root string) (*Repository, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PathError{Op: "open repository", Path: root, Err: ErrNotRepository}
		}
		return nil, fmt.Errorf("stat .git: %w", err)
	}

	gitDir := dotGit
	if !info.IsDir() {
		gitDir, err = readGitFile(dotGit)
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(gitDir) {
			gitDir = filepath.Join(root, gitDir)
		}
	}
	gitDir = filepath.Clean(gitDir)

	commonDir := gitDir
	if content, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		dir := strings.TrimSpace(string(content))
		if dir != "" {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(gitDir, dir)
			}
			commonDir = filepath.Clean(dir)
		}
	}

	return &Repository{
		Root:      root,
		GitDir:    gitDir,
		CommonDir: commonDir,
	}, nil
}

// readGitFile parses a .git file of the form "gitdir: <path>".
func readGitFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read .git file: %w", err)
	}
	content = bytes.TrimSpace(content)
	if !bytes.HasPrefix(content, []byte("gitdir:")) {
		return "", &PathError{Op: "read .git file", Path: path, Err: ErrNotRepository}
	}
	return strings.TrimSpace(string(content[len("gitdir:"):])), nil
}

// HeadPath returns the path of the HEAD file.
func (r *Repository) HeadPath() string {
	return filepath.Join(r.GitDir, "HEAD")
}

// IndexPath returns the path of the index file.
func (r *Repository) IndexPath() string {
	return filepath.Join(r.GitDir, "index")
}

// RefPath returns the loose-ref file for a full ref name such as
// "refs/heads/main".
func (r *Repository) RefPath(ref string) string {
	return filepath.Join(r.CommonDir, filepath.FromSlash(ref))
}

// HeadRef returns the ref HEAD points at, e.g. "refs/heads/main".
// It returns ErrDetachedHead when HEAD holds a commit hash. An unborn
// branch in a fresh repository still yields its ref name.
func (r *Repository) HeadRef() (string, error) {
	content, err := os.ReadFile(r.HeadPath())
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	return parseHead(content)
}

// BranchRefPath returns the file to watch for the current branch.
func (r *Repository) BranchRefPath() (string, error) {
	ref, err := r.HeadRef()
	if err != nil {
		return "", err
	}
	return r.RefPath(ref), nil
}

// Exists reports whether the working tree still has a .git entry.
func (r *Repository) Exists() bool {
	_, err := os.Lstat(filepath.Join(r.Root, ".git"))
	return err == nil
}

func parseHead(content []byte) (string, error) {
	content = bytes.TrimSpace(content)
	if ref, ok := bytes.CutPrefix(content, []byte("ref:")); ok {
		name := strings.TrimSpace(string(ref))
		if name == "" {
			return "", ErrInvalidHead
		}
		return name, nil
	}
	if len(content) >= 40 && isHex(content) {
		return "", ErrDetachedHead
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidHead, content)
}

func isHex(b []byte) bool {
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
