package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tasks = "# Todo\n" +
	"- [ ] dash\n" +
	"* [x] star\n" +
	"+ [X] plus\n" +
	"  - [ ] nested\n" +
	"1. [ ] ordered\n" +
	"plain [ ] text\n"

func writeTasks(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo.md")
	require.NoError(t, os.WriteFile(path, []byte(tasks), 0o600))
	return path
}

func readLine(t *testing.T, path string, line int) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return splitLines(string(data))[line-1]
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func TestToggleTask(t *testing.T) {
	tests := []struct {
		line    int
		checked bool
		want    string
	}{
		{2, true, "- [x] dash"},
		{3, false, "* [ ] star"},
		{4, false, "+ [ ] plus"},
		{5, true, "  - [x] nested"},
	}

	for _, tt := range tests {
		path := writeTasks(t)
		checked, err := ToggleTask(path, tt.line)
		require.NoError(t, err)
		assert.Equal(t, tt.checked, checked, "line %d", tt.line)
		assert.Equal(t, tt.want, readLine(t, path, tt.line))
	}
}

func TestToggleTaskKeepsRestOfFile(t *testing.T) {
	path := writeTasks(t)
	_, err := ToggleTask(path, 2)
	require.NoError(t, err)
	_, err = ToggleTask(path, 2)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tasks, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestToggleTaskErrors(t *testing.T) {
	path := writeTasks(t)

	_, err := ToggleTask(path, 1)
	assert.ErrorIs(t, err, ErrNotATask)
	_, err = ToggleTask(path, 6)
	assert.ErrorIs(t, err, ErrNotATask)
	_, err = ToggleTask(path, 7)
	assert.ErrorIs(t, err, ErrNotATask)
	_, err = ToggleTask(path, 0)
	assert.ErrorIs(t, err, ErrLineOutOfRange)
	_, err = ToggleTask(path, 99)
	assert.ErrorIs(t, err, ErrLineOutOfRange)
	_, err = ToggleTask(filepath.Join(t.TempDir(), "missing.md"), 1)
	assert.ErrorIs(t, err, os.ErrNotExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tasks, string(data), "failed toggles leave the file untouched")
}

func TestSetTask(t *testing.T) {
	path := writeTasks(t)

	changed, err := SetTask(path, 2, false)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = SetTask(path, 2, true)
	require.NoError(t, err)
	assert.True(t, changed)

	checked, err := TaskState(path, 2)
	require.NoError(t, err)
	assert.True(t, checked)

	checked, err = TaskState(path, 4)
	require.NoError(t, err)
	assert.True(t, checked, "upper-case X counts as checked")
}

func TestWriteFileAtomicNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.md")
	require.NoError(t, WriteFileAtomic(path, []byte("hi")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}
