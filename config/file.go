package config

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// LoadFile reads a YAML mapping of environment variable names to values
// and exports every entry the environment does not already set, so that
// the precedence is environment, then file, then built-in defaults. Call
// it before Load.
//
//	MIRROR_PORT: 8080
//	MIRROR_HEADLESS: false
//	MIRROR_API_KEYS: key-one,key-two
func LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var values map[string]string
	if err := yaml.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if v, ok := os.LookupEnv(key); ok && v != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return nil
}
