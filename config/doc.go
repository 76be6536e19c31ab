// Package config resolves ghswitch settings from layered sources.
//
// Precedence, highest first:
//  1. Command-line flags
//  2. Environment variables (GHSWITCH_<KEY>)
//  3. Global config (<user config dir>/ghswitch/config.yaml)
//  4. Built-in defaults
//
// # Basic Usage
//
//	settings, resolved, err := config.Load(path, flagValues)
//	fmt.Println(settings.ConnectTimeout)
//	fmt.Println(resolved.Source(config.KeyConnectTimeout)) // "default", "global", ...
//
// Durations accept Go syntax ("10s", "1m30s") or a bare number of seconds.
// Paths may start with "~/".
//
// SaveConfig backs "ghswitch config set" and "ghswitch config unset".
// Values are validated before they are written, so a bad edit is
// rejected instead of breaking the next run.
package config
