// Package config loads application settings from defaults, an optional YAML
// file and LOCKN_* environment variables, in increasing precedence, and
// validates them with struct tags before anything else starts.
package config
