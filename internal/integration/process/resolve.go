package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// trustedLocations lists fixed install paths for executables we invoke.
// They are tried in order before any PATH lookup.
var trustedLocations = map[string][]string{
	"git": {
		"/usr/bin/git",
		"/usr/local/bin/git",
		"/opt/homebrew/bin/git",
	},
}

// Resolver maps an executable name to the absolute path that will be run.
type Resolver struct {
	overrides map[string]string
	trusted   map[string][]string
	lookPath  func(string) (string, error)
}

// NewResolver creates a resolver with the built-in trusted locations.
func NewResolver() *Resolver {
	return &Resolver{
		overrides: make(map[string]string),
		trusted:   trustedLocations,
		lookPath:  exec.LookPath,
	}
}

// Override pins name to path. An empty path removes the override.
func (r *Resolver) Override(name, path string) {
	if path == "" {
		delete(r.overrides, name)
		return
	}
	r.overrides[name] = path
}

// Resolve returns an absolute path for name.
//
// Absolute names are returned unchanged. Otherwise an explicit override is
// used, then the trusted install locations, then exec.LookPath. A PATH hit
// that is not absolute (a relative PATH entry) is refused.
func (r *Resolver) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}

	if p, ok := r.overrides[name]; ok {
		return p, nil
	}

	for _, candidate := range r.trusted[name] {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	p, err := r.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrExecutableNotFound)
	}
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("%s resolved to relative path %q: %w", name, p, ErrExecutableNotFound)
	}
	return p, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
