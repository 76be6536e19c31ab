package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source names the layer a value was taken from.
type Source string

// Layers, lowest precedence first.
const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// EnvPrefix turns key "ssh_dir" into GHSWITCH_SSH_DIR when set to
	// "GHSWITCH_". Empty disables the environment layer.
	EnvPrefix string

	// GlobalPath is the YAML settings file. Empty skips it.
	GlobalPath string

	Defaults map[string]string

	// ValidKeys restricts what the global file may set. Nil allows any key.
	ValidKeys []string

	// ErrWriter receives warnings as they happen. Nil discards them.
	ErrWriter io.Writer
}

// Resolver merges defaults, the global file and the environment.
type Resolver struct {
	config ResolverConfig

	// Warnings collects problems that did not stop resolution, such as an
	// unparsable global file or an unknown key in it.
	Warnings []string
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{config: cfg}
}

// GlobalPath returns the global file this resolver reads.
func (r *Resolver) GlobalPath() string {
	return r.config.GlobalPath
}

func (r *Resolver) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	if r.config.ErrWriter != nil {
		fmt.Fprintf(r.config.ErrWriter, "Warning: %s\n", msg)
	}
}

type entry struct {
	value  string
	source Source
}

// Resolved is a merged view of every layer.
type Resolved struct {
	entries map[string]entry
}

func (c *Resolved) set(key, value string, source Source) {
	c.entries[key] = entry{value: value, source: source}
}

// Get returns the value for key, or "" if no layer set it.
func (c *Resolved) Get(key string) string {
	return c.entries[key].value
}

// Source reports which layer supplied key.
func (c *Resolved) Source(key string) Source {
	return c.entries[key].source
}

// GetWithSource returns the value for key and the layer it came from.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	e := c.entries[key]
	return e.value, e.source
}

// All returns a copy of every value.
func (c *Resolved) All() map[string]string {
	out := make(map[string]string, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.value
	}
	return out
}

// Keys returns every resolved key in sorted order.
func (c *Resolved) Keys() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Resolve merges defaults, then the global file, then the environment.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{entries: make(map[string]entry)}
	for _, layer := range []func(*Resolved){r.defaults, r.global, r.env} {
		layer(cfg)
	}
	return cfg
}

// ResolveWithFlags resolves and then lets non-empty flag values win.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.set(key, value, SourceFlag)
		}
	}
	return cfg
}

func (r *Resolver) defaults(cfg *Resolved) {
	for key, value := range r.config.Defaults {
		cfg.set(key, value, SourceDefault)
	}
}

func (r *Resolver) global(cfg *Resolved) {
	path := r.config.GlobalPath
	if path == "" {
		return
	}

	parsed, err := readYAML(path)
	if err != nil {
		r.warnf("%v", err)
		return
	}

	for _, key := range slices.Sorted(maps.Keys(parsed)) {
		if r.config.ValidKeys != nil && !slices.Contains(r.config.ValidKeys, key) {
			r.warnf("ignoring unknown key %q in %s", key, path)
			continue
		}
		if v := scalarString(parsed[key]); v != "" {
			cfg.set(key, v, SourceGlobal)
		}
	}
}

// env consults the environment for every key a lower layer knows about.
func (r *Resolver) env(cfg *Resolved) {
	prefix := r.config.EnvPrefix
	if prefix == "" {
		return
	}
	for _, key := range cfg.Keys() {
		if v := os.Getenv(EnvName(prefix, key)); v != "" {
			cfg.set(key, v, SourceEnv)
		}
	}
}

// EnvName returns the environment variable consulted for key.
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// readYAML returns the top-level mapping of path. A missing file is empty.
func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return map[string]any{}, nil
	case err != nil:
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	parsed := map[string]any{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if parsed == nil {
		parsed = map[string]any{}
	}
	return parsed, nil
}

// scalarString renders YAML scalars. Lists and maps yield "".
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
