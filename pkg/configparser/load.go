package configparser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile reads a YAML file and exports its leaves into the environment.
// Nested keys are joined with "_" and upper cased, so database.host becomes
// DATABASE_HOST. Values may reference the environment as ${VAR} or
// ${VAR:-default}. Variables already set in the environment win.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}
	if _, err := os.Stat(filepath); err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	for _, key := range v.AllKeys() {
		value := expand(v.GetString(key))
		if value == "" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if os.Getenv(envKey) != "" {
			continue
		}
		if err := os.Setenv(envKey, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", envKey, err)
		}
	}

	return nil
}

// expand substitutes ${VAR} and ${VAR:-default}.
func expand(value string) string {
	return os.Expand(value, func(ref string) string {
		name, def, hasDefault := strings.Cut(ref, ":-")
		if env := os.Getenv(strings.TrimSpace(name)); env != "" {
			return env
		}
		if hasDefault {
			return strings.TrimSpace(def)
		}
		return ""
	})
}
