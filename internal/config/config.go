// Package config loads settings from, in order of increasing precedence,
// defaults, a YAML file, VAULTSRS_* environment variables, and command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "VAULTSRS_"

// Config is the full runtime configuration.
type Config struct {
	VaultDir string `koanf:"vault" validate:"required"`
	DBPath   string `koanf:"db" validate:"required"`
	DeckTag  string `koanf:"deck_tag" validate:"required"`
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Git   Git   `koanf:"git"`
	FSRS  FSRS  `koanf:"fsrs"`
	Queue Queue `koanf:"queue"`
}

// Git configures the optional vault sync remote. An empty URL disables sync.
type Git struct {
	URL    string `koanf:"url"`
	Branch string `koanf:"branch"`
}

type FSRS struct {
	RequestRetention float64 `koanf:"request_retention" validate:"gt=0,lt=1"`
	MaximumInterval  int     `koanf:"maximum_interval" validate:"gte=1"`
}

// Queue sets session quotas. -1 means unlimited; 0 means none.
type Queue struct {
	MaxDue int `koanf:"max_due" validate:"gte=-1"`
	MaxNew int `koanf:"max_new" validate:"gte=-1"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		VaultDir: ".",
		DBPath:   "vaultsrs.db",
		DeckTag:  "flashcards",
		LogLevel: "info",
		Git:      Git{Branch: "main"},
		FSRS:     FSRS{RequestRetention: 0.9, MaximumInterval: 36500},
		Queue:    Queue{MaxDue: Unlimited, MaxNew: 20},
	}
}

// Unlimited mirrors the queue package's sentinel so config files can say -1.
const Unlimited = -1

// Load merges the config sources. path may be empty, and a missing file is
// not an error: the environment and flags still apply over the defaults.
// flags may be nil when the caller has no command line.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Double underscore separates sections so leaf keys keep theirs:
	// VAULTSRS_QUEUE__MAX_DUE -> queue.max_due
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, fmt.Errorf("loading flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Default(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
