package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/msaudi/tasmee/internal/match"
	"github.com/msaudi/tasmee/internal/practice"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills
// defaults for unset fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	switch {
	case cfg.Server.TickInterval == 0:
		cfg.Server.TickInterval = DefaultTickInterval
	case cfg.Server.TickInterval < 0:
		errs = append(errs, fmt.Errorf("server.tick_interval %v is negative", cfg.Server.TickInterval))
	}

	// Practice defaults
	if cfg.Practice.DefaultStrictness == "" {
		cfg.Practice.DefaultStrictness = match.StrictnessMedium
	} else if !cfg.Practice.DefaultStrictness.IsValid() {
		errs = append(errs, fmt.Errorf("practice.default_strictness %q is invalid; valid values: lenient, medium, strict", cfg.Practice.DefaultStrictness))
	}
	if cfg.Practice.DefaultDifficulty == "" {
		cfg.Practice.DefaultDifficulty = practice.DifficultyMedium
	} else if !cfg.Practice.DefaultDifficulty.IsValid() {
		errs = append(errs, fmt.Errorf("practice.default_difficulty %q is invalid; valid values: easy, medium, hard", cfg.Practice.DefaultDifficulty))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; session summaries will be kept in memory only")
	}

	return errors.Join(errs...)
}
