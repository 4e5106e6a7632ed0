package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/redmargin/internal/config/loader"
	"github.com/dshills/redmargin/internal/logging"
)

// GitConfig selects the git executable and the revision to diff against.
type GitConfig struct {
	// Path overrides executable resolution when set.
	Path string
	// Reference is the revision working files are compared with.
	Reference string
}

// WatchConfig tunes file watching.
type WatchConfig struct {
	// SettleDelay is the pause before reopening a replaced file.
	SettleDelay time.Duration
	// Debounce collapses trigger bursts. Zero reacts immediately.
	Debounce time.Duration
}

// ViewConfig holds viewer preferences.
type ViewConfig struct {
	LineNumbers bool
	Markers     bool
	Highlight   bool
	// Theme is a chroma style name for fenced code.
	Theme string
}

// LoggingConfig selects log level, format and destination.
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// MetricsConfig enables the metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string
}

// Config is the complete configuration. It is a plain value passed to the
// components that need it.
type Config struct {
	Git     GitConfig
	Watch   WatchConfig
	View    ViewConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Git: GitConfig{
			Reference: "HEAD",
		},
		Watch: WatchConfig{
			SettleDelay: 100 * time.Millisecond,
		},
		View: ViewConfig{
			LineNumbers: true,
			Markers:     true,
			Highlight:   true,
			Theme:       "monokai",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/redmargin/config.toml, falling back
// to the OS user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "redmargin", "config.toml")
}

// Options control Load.
type Options struct {
	// Path is the config file. Empty means DefaultPath. A missing file is
	// not an error.
	Path string
	// FS reads the file. Nil means the OS file system.
	FS loader.FileSystem
	// Env supplies environment variables. Nil means the process
	// environment.
	Env *loader.EnvLoader
}

// Load merges defaults, the config file and the environment, then
// validates the result.
func Load(opts Options) (Config, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}

	merged := make(map[string]any)
	if path != "" {
		l, err := loader.ForPath(fsys, path)
		if err != nil {
			return Config{}, err
		}
		fileCfg, err := l.Load()
		if err != nil {
			return Config{}, err
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}

	env := opts.Env
	if env == nil {
		env = loader.NewEnvLoader(loader.Prefix)
	}
	envCfg, err := env.Load()
	if err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}
	merged = loader.DeepMerge(merged, envCfg)

	cfg := Default()
	if err := cfg.apply(merged); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// apply decodes known settings from m onto c. Unknown keys are ignored.
func (c *Config) apply(m map[string]any) error {
	var errs []error
	str := func(path string, dst *string) {
		if v, ok := getPath(m, path); ok {
			s, ok := v.(string)
			if !ok {
				errs = append(errs, &TypeError{Path: path, Expected: "string", Actual: v})
				return
			}
			*dst = s
		}
	}
	boolean := func(path string, dst *bool) {
		if v, ok := getPath(m, path); ok {
			b, ok := v.(bool)
			if !ok {
				errs = append(errs, &TypeError{Path: path, Expected: "bool", Actual: v})
				return
			}
			*dst = b
		}
	}
	duration := func(path string, dst *time.Duration) {
		if v, ok := getPath(m, path); ok {
			d, err := toDuration(path, v)
			if err != nil {
				errs = append(errs, err)
				return
			}
			*dst = d
		}
	}

	str("git.path", &c.Git.Path)
	str("git.reference", &c.Git.Reference)
	duration("watch.settleDelay", &c.Watch.SettleDelay)
	duration("watch.debounce", &c.Watch.Debounce)
	boolean("view.lineNumbers", &c.View.LineNumbers)
	boolean("view.markers", &c.View.Markers)
	boolean("view.highlight", &c.View.Highlight)
	str("view.theme", &c.View.Theme)
	str("logging.level", &c.Logging.Level)
	str("logging.format", &c.Logging.Format)
	str("logging.file", &c.Logging.File)
	str("metrics.addr", &c.Metrics.Addr)

	return errors.Join(errs...)
}

func toDuration(path string, v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, &ValidationError{Path: path, Message: "invalid duration", Value: d}
		}
		return parsed, nil
	case int:
		return time.Duration(d) * time.Millisecond, nil
	case int64:
		return time.Duration(d) * time.Millisecond, nil
	case uint64:
		return time.Duration(d) * time.Millisecond, nil
	default:
		return 0, &TypeError{Path: path, Expected: "duration", Actual: v}
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Git.Reference) == "" {
		errs = append(errs, &ValidationError{Path: "git.reference", Message: "must not be empty", Value: c.Git.Reference})
	}
	if c.Git.Path != "" && !filepath.IsAbs(c.Git.Path) {
		errs = append(errs, &ValidationError{Path: "git.path", Message: "must be absolute", Value: c.Git.Path})
	}
	if c.Watch.SettleDelay < 0 {
		errs = append(errs, &ValidationError{Path: "watch.settleDelay", Message: "must not be negative", Value: c.Watch.SettleDelay})
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, &ValidationError{Path: "watch.debounce", Message: "must not be negative", Value: c.Watch.Debounce})
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, &ValidationError{Path: "logging.level", Message: "unknown level", Value: c.Logging.Level})
	}
	switch c.Logging.Format {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, &ValidationError{Path: "logging.format", Message: "must be console or json", Value: c.Logging.Format})
	}
	return errors.Join(errs...)
}

// LoggingOptions converts the logging section for logging.New.
func (c Config) LoggingOptions() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	current := any(m)
	for _, part := range strings.Split(path, ".") {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = cm[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
