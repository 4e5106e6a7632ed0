// Package config provides redmargin's configuration.
//
// Settings come from three layers, higher layers overriding lower:
//
//	┌───────────────────────────┐
//	│  3. Environment Variables │  ← REDMARGIN_*
//	├───────────────────────────┤
//	│  2. Config File           │  ← $XDG_CONFIG_HOME/redmargin/config.toml
//	├───────────────────────────┤
//	│  1. Built-in Defaults     │
//	└───────────────────────────┘
//
// Command-line flags are applied by the caller after Load.
//
// A config file is TOML or YAML:
//
//	[git]
//	path = "/usr/bin/git"
//	reference = "HEAD"
//
//	[watch]
//	settleDelay = "100ms"
//	debounce = "0s"
//
//	[view]
//	lineNumbers = true
//	markers = true
//	highlight = true
//	theme = "monokai"
//
//	[logging]
//	level = "info"
//	format = "console"
//	file = ""
//
//	[metrics]
//	addr = ""
//
// Durations are strings accepted by time.ParseDuration, or integers meaning
// milliseconds.
package config
