package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Name  string `env:"TESTCFG_NAME" default:"compass"`
	Debug bool   `env:"TESTCFG_DEBUG"`

	Database struct {
		Host     string        `env:"TESTCFG_DATABASE_HOST" default:"localhost"`
		MaxConns int32         `env:"TESTCFG_DATABASE_MAXCONNS" default:"10"`
		Timeout  time.Duration `env:"TESTCFG_DATABASE_TIMEOUT" default:"5s"`
	}
	Weight float64 `env:"TESTCFG_WEIGHT" default:"0.1"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "compass" || cfg.Database.Host != "localhost" || cfg.Database.MaxConns != 10 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Database.Timeout != 5*time.Second || cfg.Weight != 0.1 || cfg.Debug {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("TESTCFG_DATABASE_HOST", "db")
	t.Setenv("TESTCFG_DATABASE_TIMEOUT", "250ms")
	t.Setenv("TESTCFG_DEBUG", "true")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "db" || cfg.Database.Timeout != 250*time.Millisecond || !cfg.Debug {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestParseEnvBadDuration(t *testing.T) {
	t.Setenv("TESTCFG_DATABASE_TIMEOUT", "soon")

	var cfg testConfig
	if err := ParseEnv(&cfg); err == nil {
		t.Fatalf("expected error for a bad duration")
	}
}

func TestParseEnvRejectsNonPointer(t *testing.T) {
	if err := ParseEnv(testConfig{}); err != ErrNotStructPointer {
		t.Fatalf("expected ErrNotStructPointer, got %v", err)
	}
}

type yamlConfig struct {
	Name   string  `env:"YAMLCFG_NAME" default:"compass"`
	Weight float64 `env:"YAMLCFG_WEIGHT" default:"0.1"`
}

func TestLoadAndParseYaml(t *testing.T) {
	t.Setenv("FROM_ENV", "0.25")
	t.Cleanup(func() {
		os.Unsetenv("YAMLCFG_NAME")
		os.Unsetenv("YAMLCFG_WEIGHT")
	})

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "yamlcfg:\n  name: \"yaml\"\n  weight: ${FROM_ENV:-0.5}\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	var cfg yamlConfig
	if err := LoadAndParseYaml(path, &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "yaml" || cfg.Weight != 0.25 {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
}

func TestLoadAndParseYamlMissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadAndParseYaml(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("missing file must fall back to defaults: %v", err)
	}
}
