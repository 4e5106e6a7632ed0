package loader

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Prefix is the environment variable prefix for redmargin settings.
const Prefix = "REDMARGIN_"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string
	mapping map[string]string // env var -> setting path
	environ func() []string
}

// NewEnvLoader creates an environment loader with the default mapping.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		environ: os.Environ,
	}
}

// NewEnvLoaderFrom reads vars, in "NAME=value" form, instead of the process
// environment.
func NewEnvLoaderFrom(prefix string, vars []string) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.environ = func() []string { return vars }
	return l
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		"REDMARGIN_GIT_PATH":      "git.path",
		"REDMARGIN_GIT_REFERENCE": "git.reference",
		"REDMARGIN_SETTLE_DELAY":  "watch.settleDelay",
		"REDMARGIN_DEBOUNCE":      "watch.debounce",
		"REDMARGIN_LOG_LEVEL":     "logging.level",
		"REDMARGIN_LOG_FORMAT":    "logging.format",
		"REDMARGIN_LOG_FILE":      "logging.file",
		"REDMARGIN_METRICS_ADDR":  "metrics.addr",
	}
}

// AddMapping maps an environment variable onto a setting path.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// Load reads prefixed variables. Mapped names go to their configured path;
// other prefixed names are converted, so REDMARGIN_VIEW_LINE_NUMBERS sets
// view.lineNumbers. Empty values are kept.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(config, path, parseValue(value))
	}
	return config, nil
}

// envToPath converts REDMARGIN_VIEW_LINE_NUMBERS to view.lineNumbers.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	if len(parts) < 2 || parts[0] == "" {
		return ""
	}

	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return strings.ToLower(parts[0]) + "." + setting
}

// parseValue guesses a type for an environment value.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
