// Package config loads YAML configuration files, expanding ${VAR}
// environment references before parsing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator lets a config type check itself after loading.
type Validator interface {
	Validate() error
}

// Load reads filename, expands environment variables in its contents,
// unmarshals the YAML into target, and runs target's Validate when it
// implements Validator.
func Load[T any](filename string, target *T) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), target); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config %s: %w", filename, err)
		}
	}
	return nil
}

// LoadIfPresent loads the file when it exists and reports whether it was
// found. A missing file is not an error, so callers can fall back to
// built-in defaults.
func LoadIfPresent[T any](filename string, target *T) (bool, error) {
	err := Load(filename, target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
