package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"gopkg.in/yaml.v3"
)

// SaveConfig provides methods to save configuration values.
type SaveConfig struct {
	// Path is the global config file.
	Path string

	// ValidKeys lists keys that can be set. If nil, all keys are valid.
	ValidKeys []string

	// Validate checks a value before it is written. Optional.
	Validate func(key, value string) error
}

// AppSaveConfig returns the SaveConfig for ghswitch settings at path.
func AppSaveConfig(path string) SaveConfig {
	return SaveConfig{Path: path, ValidKeys: Keys(), Validate: ValidateValue}
}

func (c SaveConfig) checkKey(key string) error {
	if c.Path == "" {
		return fmt.Errorf("global config path not configured")
	}
	if len(c.ValidKeys) > 0 && !slices.Contains(c.ValidKeys, key) {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s",
			key, strings.Join(c.ValidKeys, ", "))
	}
	return nil
}

// SaveGlobal saves a key-value pair to the global config file.
func (c SaveConfig) SaveGlobal(key, value string) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	if c.Validate != nil {
		if err := c.Validate(key, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	existing, err := readYAML(c.Path)
	if err != nil {
		return err
	}
	existing[key] = parseValue(value)

	return c.write(existing)
}

// DeleteGlobalKey removes a key from the global config. Removing an
// absent key is not an error.
func (c SaveConfig) DeleteGlobalKey(key string) error {
	if err := c.checkKey(key); err != nil {
		return err
	}

	existing, err := readYAML(c.Path)
	if err != nil {
		return err
	}
	if _, ok := existing[key]; !ok {
		return nil
	}
	delete(existing, key)

	return c.write(existing)
}

func (c SaveConfig) write(values map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	// May hold webhook URLs.
	if err := atomicwriter.WriteFile(c.Path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", c.Path, err)
	}
	return nil
}

// parseValue converts string values to appropriate types for YAML.
func parseValue(value string) any {
	lower := strings.ToLower(value)
	if lower == "true" {
		return true
	}
	if lower == "false" {
		return false
	}
	return value
}
