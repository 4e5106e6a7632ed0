// Package document edits Markdown files in place.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var (
	// ErrLineOutOfRange indicates the line number is not in the file.
	ErrLineOutOfRange = errors.New("line out of range")

	// ErrNotATask indicates the line holds no task-list checkbox.
	ErrNotATask = errors.New("not a task list item")
)

// taskPattern matches a bullet task item up to and including its box.
var taskPattern = regexp.MustCompile(`^([ \t]*[-*+][ \t]+\[)([ xX])(\])`)

// ToggleTask flips the checkbox on a 1-indexed line and writes the file
// back atomically. It returns the new state.
func ToggleTask(path string, line int) (checked bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	lines := bytes.Split(data, []byte("\n"))
	idx := line - 1
	if idx < 0 || idx >= len(lines) {
		return false, fmt.Errorf("line %d of %s: %w", line, path, ErrLineOutOfRange)
	}

	m := taskPattern.FindSubmatchIndex(lines[idx])
	if m == nil {
		return false, fmt.Errorf("line %d of %s: %w", line, path, ErrNotATask)
	}
	box := m[4]
	checked = lines[idx][box] == ' '
	if checked {
		lines[idx][box] = 'x'
	} else {
		lines[idx][box] = ' '
	}

	if err := WriteFileAtomic(path, bytes.Join(lines, []byte("\n"))); err != nil {
		return false, err
	}
	return checked, nil
}

// SetTask sets the checkbox on a 1-indexed line to checked. It reports
// whether the file changed; a box already in the wanted state is left
// alone.
func SetTask(path string, line int, checked bool) (bool, error) {
	current, err := TaskState(path, line)
	if err != nil {
		return false, err
	}
	if current == checked {
		return false, nil
	}
	if _, err := ToggleTask(path, line); err != nil {
		return false, err
	}
	return true, nil
}

// TaskState reports whether the checkbox on a 1-indexed line is checked.
func TaskState(path string, line int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	lines := bytes.Split(data, []byte("\n"))
	idx := line - 1
	if idx < 0 || idx >= len(lines) {
		return false, fmt.Errorf("line %d of %s: %w", line, path, ErrLineOutOfRange)
	}
	m := taskPattern.FindSubmatch(lines[idx])
	if m == nil {
		return false, fmt.Errorf("line %d of %s: %w", line, path, ErrNotATask)
	}
	return m[2][0] != ' ', nil
}

// WriteFileAtomic replaces path with data through a temporary file in the
// same directory, so readers see either the old or the new content. The
// file's permissions are kept.
func WriteFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on failure
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
