package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/integration/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retrieve locates the repository for file and retrieves its changes.
func retrieve(t *testing.T, file string) changeset.ChangeSet {
	t.Helper()
	client := newTestClient(t)
	repo, err := client.LocateRoot(context.Background(), file)
	require.NoError(t, err)
	require.NotNil(t, repo)

	cs, err := client.Retrieve(context.Background(), file, repo)
	require.NoError(t, err)
	return cs
}

func TestRetrieveModifiedLine(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "Line 1\nLine 2\nLine 3\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "Line 1\nModified Line 2\nLine 3\n")

	cs := retrieve(t, file)
	assert.False(t, cs.IsUntracked())
	assert.Equal(t, []changeset.Range{{Start: 2, End: 2}}, cs.Modified())
	assert.Empty(t, cs.Added())
	assert.Empty(t, cs.Deleted())
}

func TestRetrieveDeletedLines(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "Line 1\nLine 4\nLine 5\n")

	cs := retrieve(t, file)
	assert.Empty(t, cs.Added())
	assert.Empty(t, cs.Modified())
	assert.Equal(t, []int{1}, cs.Deleted(), "anchor is git's new-file start of the removed block")
}

func TestRetrieveDeletedFirstLine(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "Line 1\nLine 2\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "Line 2\n")

	cs := retrieve(t, file)
	assert.Equal(t, []int{0}, cs.Deleted())
}

func TestRetrieveAddedLines(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "Line 1\nLine 2\nLine 3\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "New top\nLine 1\nLine 2\nLine 3\nLine 4\nLine 5\n")

	cs := retrieve(t, file)
	assert.Equal(t, []changeset.Range{{Start: 1, End: 1}, {Start: 5, End: 6}}, cs.Added())
	assert.Empty(t, cs.Modified())
}

func TestRetrieveMultipleHunks(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "1\nChanged 2\n3\n4\n5\n6\n7\nChanged 8\n9\n10\n")

	cs := retrieve(t, file)
	assert.Equal(t, []changeset.Range{{Start: 2, End: 2}, {Start: 8, End: 8}}, cs.Modified())
}

func TestRetrieveCleanFile(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "Line 1\n")
	commitAll(t, dir, "initial")

	cs := retrieve(t, file)
	assert.True(t, cs.Equal(changeset.Empty()))
}

func TestRetrieveUntrackedFile(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "tracked.md", "x\n")
	commitAll(t, dir, "initial")
	file := createFile(t, dir, "new.md", "a\nb\nc")

	cs := retrieve(t, file)
	assert.True(t, cs.IsUntracked())
	assert.Equal(t, []changeset.Range{{Start: 1, End: 3}}, cs.Added(), "unterminated last line counts")
}

func TestRetrieveFreshRepository(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "new.md", "one\ntwo\n")

	t.Run("untracked", func(t *testing.T) {
		cs := retrieve(t, file)
		assert.True(t, cs.IsUntracked())
		assert.Equal(t, []changeset.Range{{Start: 1, End: 2}}, cs.Added())
	})

	t.Run("staged without any commit", func(t *testing.T) {
		gitCmd(t, dir, "add", "new.md")
		cs := retrieve(t, file)
		assert.True(t, cs.IsUntracked(), "missing reference revision is treated as untracked")
		assert.Equal(t, []changeset.Range{{Start: 1, End: 2}}, cs.Added())
	})
}

func TestRetrieveStagedNotCommitted(t *testing.T) {
	dir := testRepo(t)
	createFile(t, dir, "base.md", "base\n")
	commitAll(t, dir, "initial")

	file := createFile(t, dir, "staged.md", "a\nb\nc\n")
	gitCmd(t, dir, "add", "staged.md")

	cs := retrieve(t, file)
	assert.False(t, cs.IsUntracked(), "staged files diff against HEAD, not the index")
	assert.Equal(t, []changeset.Range{{Start: 1, End: 3}}, cs.Added())
}

func TestRetrieveStagedModification(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "a\nb\nc\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "a\nB\nc\n")
	gitCmd(t, dir, "add", "test.md")

	cs := retrieve(t, file)
	assert.Equal(t, []changeset.Range{{Start: 2, End: 2}}, cs.Modified(), "staged edits still show against HEAD")
}

func TestRetrieveBinaryFile(t *testing.T) {
	dir := testRepo(t)
	path := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 1, 2, 3, 0, 5}, 0o644))
	commitAll(t, dir, "initial")
	require.NoError(t, os.WriteFile(path, []byte{0, 9, 9, 9, 0, 5, 6}, 0o644))

	cs := retrieve(t, path)
	assert.True(t, cs.Equal(changeset.Empty()))
}

func TestRetrieveFileInSubdirectory(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "docs/guide with space.md", "a\nb\n")
	commitAll(t, dir, "initial")
	createFile(t, dir, "docs/guide with space.md", "a\nb\nc\n")

	cs := retrieve(t, file)
	assert.Equal(t, []changeset.Range{{Start: 3, End: 3}}, cs.Added())
}

func TestRetrieveMixedAddAndDelete(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "Line 1\nLine 2\nLine 3\nLine 4\n")
	commitAll(t, dir, "initial")

	createFile(t, dir, "test.md", "Line 1\nLine 3\nLine 4\nLine 5\nLine 6\n")

	cs := retrieve(t, file)
	assert.Equal(t, []int{1}, cs.Deleted())
	assert.Equal(t, []changeset.Range{{Start: 4, End: 5}}, cs.Added())
}

func TestRetrieveCustomReference(t *testing.T) {
	dir := testRepo(t)
	file := createFile(t, dir, "test.md", "a\n")
	commitAll(t, dir, "first")
	createFile(t, dir, "test.md", "a\nb\n")
	commitAll(t, dir, "second")

	sup := process.NewSupervisor()
	defer sup.Shutdown(0)
	client := NewClient(process.NewRunner(sup), Config{Reference: "HEAD~1"}, nil)
	assert.Equal(t, "HEAD~1", client.Reference())

	repo, err := client.LocateRoot(context.Background(), file)
	require.NoError(t, err)
	cs, err := client.Retrieve(context.Background(), file, repo)
	require.NoError(t, err)
	assert.Equal(t, []changeset.Range{{Start: 2, End: 2}}, cs.Added())
}

func TestRetrieveErrorMapping(t *testing.T) {
	repo := &Repository{Root: "/work", GitDir: "/work/.git", CommonDir: "/work/.git"}

	t.Run("permission denied", func(t *testing.T) {
		fake := &scriptedExecutor{results: []process.Result{
			{ExitCode: 0},
			{ExitCode: 128, Stderr: "error: open(\"x\"): Permission denied"},
		}}
		_, err := NewClient(fake, Config{}, nil).Retrieve(context.Background(), "/work/x.md", repo)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unexpected failure", func(t *testing.T) {
		fake := &scriptedExecutor{results: []process.Result{
			{ExitCode: 0},
			{ExitCode: 129, Stderr: "usage: git diff"},
		}}
		_, err := NewClient(fake, Config{}, nil).Retrieve(context.Background(), "/work/x.md", repo)
		var ce *CommandError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 129, ce.ExitCode)
	})

	t.Run("ls-files unmatched is untracked", func(t *testing.T) {
		fake := &scriptedExecutor{results: []process.Result{
			{ExitCode: 1, Stderr: "error: pathspec 'x.md' did not match any file(s) known to git\nDid you forget to 'git add'?\n"},
		}}
		cs, err := NewClient(fake, Config{}, nil).Retrieve(context.Background(), "/work/x.md", repo)
		require.NoError(t, err)
		assert.True(t, cs.IsUntracked())
		assert.Len(t, fake.calls, 1)
	})

	t.Run("ls-files permission denied", func(t *testing.T) {
		fake := &scriptedExecutor{results: []process.Result{
			{ExitCode: 128, Stderr: "fatal: open(\".git/index\"): Permission denied"},
		}}
		_, err := NewClient(fake, Config{}, nil).Retrieve(context.Background(), "/work/x.md", repo)
		var pe *PathError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "ls-files", pe.Op)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("ls-files other failure is not untracked", func(t *testing.T) {
		fake := &scriptedExecutor{results: []process.Result{
			{ExitCode: 128, Stderr: "fatal: index file corrupt"},
		}}
		cs, err := NewClient(fake, Config{}, nil).Retrieve(context.Background(), "/work/x.md", repo)
		var ce *CommandError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 128, ce.ExitCode)
		assert.Equal(t, []string{"ls-files", "--error-unmatch", "--", "x.md"}, ce.Args)
		assert.False(t, cs.IsUntracked())
		assert.Len(t, fake.calls, 1, "no diff after a failed index lookup")
	})

	t.Run("command arguments", func(t *testing.T) {
		fake := &scriptedExecutor{results: []process.Result{
			{ExitCode: 0},
			{ExitCode: 0, Stdout: "@@ -1 +1 @@\n"},
		}}
		cs, err := NewClient(fake, Config{}, nil).Retrieve(context.Background(), "/work/docs/x.md", repo)
		require.NoError(t, err)
		assert.Equal(t, []changeset.Range{{Start: 1, End: 1}}, cs.Modified())

		require.Len(t, fake.calls, 2)
		assert.Equal(t, []string{"ls-files", "--error-unmatch", "--", "docs/x.md"}, fake.calls[0])
		assert.Equal(t, []string{"diff", "--no-color", "--no-ext-diff", "--unified=0", "HEAD", "--", "docs/x.md"}, fake.calls[1])
		assert.Equal(t, []string{"/work", "/work"}, fake.dirs)
	})
}

func TestCountLines(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 2},
		{"\n\n\n", 3},
	}
	for i, tt := range tests {
		path := filepath.Join(dir, "f"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
		assert.Equal(t, tt.want, countLines(path), "%q", tt.content)
	}
	assert.Equal(t, 0, countLines(filepath.Join(dir, "missing")))
}

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "docs/a.md", relativePath("/work", "/work/docs/a.md"))
	assert.Equal(t, "a.md", relativePath("/work", "/elsewhere/a.md"))
}

// scriptedExecutor returns its results in order, one per call.
type scriptedExecutor struct {
	results []process.Result
	calls   [][]string
	dirs    []string
}

func (s *scriptedExecutor) Run(_ context.Context, _ string, args []string, dir string) (process.Result, error) {
	s.calls = append(s.calls, args)
	s.dirs = append(s.dirs, dir)
	res := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return res, nil
}
