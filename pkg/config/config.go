// Package config loads the userdict configuration from a TOML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/japaniel/userdict/internal/logger"
	"github.com/japaniel/userdict/pkg/dictionary"
)

// EnvPath names the variable holding an explicit config file path.
const EnvPath = "USERDICT_CONFIG"

// Speller data formats.
const (
	FormatWordList = "wordlist"
	FormatJMdict   = "jmdict"
)

// Config is the root configuration.
type Config struct {
	// Locale is used when a command does not name one.
	Locale   string          `toml:"locale" env:"USERDICT_LOCALE" env-default:"en"`
	Store    StoreConfig     `toml:"store"`
	Suggest  SuggestConfig   `toml:"suggest"`
	Learn    LearnConfig     `toml:"learn"`
	Log      LogConfig       `toml:"log"`
	Spellers []SpellerConfig `toml:"speller"`
}

// StoreConfig locates the SQLite database. An empty path resolves to
// DefaultDBPath.
type StoreConfig struct {
	Path string `toml:"path" env:"USERDICT_DB"`
}

// SuggestConfig tunes merged suggestions.
type SuggestConfig struct {
	SpellerLimit    int    `toml:"speller_limit"    env:"USERDICT_SPELLER_LIMIT"    env-default:"3"`
	DictionaryLimit int    `toml:"dictionary_limit" env:"USERDICT_DICTIONARY_LIMIT" env-default:"5"`
	Match           string `toml:"match"            env:"USERDICT_MATCH"            env-default:"prefix"`
}

// SpellerConfig binds a speller data file to a locale.
type SpellerConfig struct {
	Locale string `toml:"locale"`
	Path   string `toml:"path"`
	Format string `toml:"format"`
}

// LearnConfig tunes bulk learning.
type LearnConfig struct {
	Workers       int `toml:"workers"        env:"USERDICT_LEARN_WORKERS" env-default:"4"`
	BatchProgress int `toml:"batch_progress" env:"USERDICT_LEARN_PROGRESS" env-default:"50"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string `toml:"level"     env:"USERDICT_LOG_LEVEL"     env-default:"info"`
	Format    string `toml:"format"    env:"USERDICT_LOG_FORMAT"    env-default:"text"`
	Timestamp bool   `toml:"timestamp" env:"USERDICT_LOG_TIMESTAMP" env-default:"false"`
	Caller    bool   `toml:"caller"    env:"USERDICT_LOG_CALLER"    env-default:"false"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Locale: "en",
		Store:  StoreConfig{Path: DefaultDBPath()},
		Suggest: SuggestConfig{
			SpellerLimit:    3,
			DictionaryLimit: 5,
			Match:           "prefix",
		},
		Learn: LearnConfig{Workers: 4, BatchProgress: 50},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Dir returns the per-user configuration directory of userdict.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "userdict")
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDBPath returns the database file used when none is configured.
func DefaultDBPath() string {
	return filepath.Join(Dir(), "userdict.db")
}

// Load reads configuration from a TOML file and environment variables.
// Priority: ENV > file > defaults (via env-default tags).
// The file is path, else $USERDICT_CONFIG, else DefaultPath. If the file
// does not exist and was not named explicitly, configuration is loaded from
// ENV + defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	explicitPath := path != ""
	if !explicitPath {
		path = os.Getenv(EnvPath)
		explicitPath = path != ""
	}
	if !explicitPath {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		// No file, load from ENV + defaults only.
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultDBPath()
	}
	for i := range cfg.Spellers {
		if cfg.Spellers[i].Format == "" {
			cfg.Spellers[i].Format = FormatWordList
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is empty"))
	}
	if c.Locale == "" {
		errs = append(errs, errors.New("locale is empty"))
	}
	if c.Suggest.SpellerLimit <= 0 {
		errs = append(errs, fmt.Errorf("suggest.speller_limit must be positive, got %d", c.Suggest.SpellerLimit))
	}
	if c.Suggest.DictionaryLimit < 0 {
		errs = append(errs, fmt.Errorf("suggest.dictionary_limit must not be negative, got %d", c.Suggest.DictionaryLimit))
	}
	if _, ok := dictionary.ParseMatch(c.Suggest.Match); !ok {
		errs = append(errs, fmt.Errorf("suggest.match %q is not prefix or substring", c.Suggest.Match))
	}
	if c.Learn.Workers <= 0 {
		errs = append(errs, fmt.Errorf("learn.workers must be positive, got %d", c.Learn.Workers))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, ok := formatters[strings.ToLower(c.Log.Format)]; !ok {
		errs = append(errs, fmt.Errorf("log.format %q is not text, json or logfmt", c.Log.Format))
	}
	seen := make(map[string]bool)
	for i, sp := range c.Spellers {
		switch {
		case sp.Locale == "":
			errs = append(errs, fmt.Errorf("speller[%d]: locale is empty", i))
		case seen[sp.Locale]:
			errs = append(errs, fmt.Errorf("speller[%d]: locale %q bound twice", i, sp.Locale))
		}
		seen[sp.Locale] = true
		if sp.Path == "" {
			errs = append(errs, fmt.Errorf("speller[%d]: path is empty", i))
		}
		if sp.Format != FormatWordList && sp.Format != FormatJMdict {
			errs = append(errs, fmt.Errorf("speller[%d]: unknown format %q", i, sp.Format))
		}
	}
	return errors.Join(errs...)
}

var formatters = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// NewLogger builds a logger with these settings.
func (c LogConfig) NewLogger(prefix string) *log.Logger {
	f, ok := formatters[strings.ToLower(c.Format)]
	if !ok {
		f = log.TextFormatter
	}
	return logger.NewWithConfig(prefix, logger.ParseLevel(c.Level), c.Caller, c.Timestamp, f)
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return f.Close()
}
