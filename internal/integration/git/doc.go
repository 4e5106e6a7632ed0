// Package git locates repositories and turns `git diff` output into
// line-level change sets for a single working file.
//
// # Architecture
//
// The package is organized around these core types:
//
//   - Client: runs git through a process.Runner and interprets its output
//   - Repository: a resolved working tree root with its git and common dirs
//   - DiffHunk: one parsed "@@ -a,b +c,d @@" header
//
// # Usage
//
//	client := git.NewClient(process.NewRunner(sup), git.Config{}, logger)
//
//	repo, err := client.LocateRoot(ctx, "/path/to/project/README.md")
//	if err != nil {
//	    // permission denied, git missing, or another real failure
//	}
//	if repo == nil {
//	    // not inside a repository
//	}
//
//	cs, err := client.Retrieve(ctx, "/path/to/project/README.md", repo)
//
// # Outcomes That Are Not Errors
//
// A file outside any repository, an untracked file, a repository without
// commits and a binary file all produce values (a nil Repository, an
// untracked ChangeSet or an empty ChangeSet). Only launch failures,
// permission problems and unexpected git failures are returned as errors.
//
// # Repository State Files
//
// Repository exposes the paths of HEAD, the index and the current branch
// ref so callers can watch them. Linked worktrees and submodules keep those
// files outside the working tree; the `gitdir:` indirection and the
// `commondir` file are followed without invoking git.
package git
