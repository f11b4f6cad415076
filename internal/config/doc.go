// Package config loads and validates tally's TOML configuration.
//
// Configuration lives at ~/.config/tally/config.toml by default, with a
// project-local tally.toml honored as a fallback. Load applies defaults,
// expands ~ in paths, and validates the result so the rest of the program can
// trust every field.
package config
