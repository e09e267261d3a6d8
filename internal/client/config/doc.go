// Package config loads runtime configuration for the lockbox CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. The TOML file at DefaultConfigPath, or the path given with --config.
//  3. Command-line flags of the cobra command tree, which override earlier values.
//
// # TOML schema
//
//	server_url   = "http://127.0.0.1:8080"
//	download_dir = "/home/me/Downloads"
//	timeout      = "30s"
//
// The session (tokens of the signed-in user) lives in session.toml next to
// the config file and is written with mode 0600.
package config
