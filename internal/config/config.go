package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	NarratorTemplate = "template"
	NarratorGemini   = "gemini"
)

// Config holds the application configuration. Environment variables take
// precedence over the optional YAML file named by SELMA_CONFIG.
type Config struct {
	GeminiAPIKey    string `env:"GEMINI_API_KEY" yaml:"-"`
	SaveDir         string `env:"SELMA_SAVE_DIR" yaml:"save_dir"`
	Seed            uint64 `env:"SELMA_SEED" yaml:"seed"` // 0 draws a random seed
	DrawDeckSize    int    `env:"SELMA_DRAW_DECK_SIZE" yaml:"draw_deck_size"`
	MaxDrawAttempts int    `env:"SELMA_MAX_DRAW_ATTEMPTS" yaml:"max_draw_attempts"`
	Debug           bool   `env:"SELMA_DEBUG" yaml:"debug"`
	AllowOutput     bool   `env:"SELMA_ALLOW_OUTPUT" yaml:"allow_output"`
	EventLogDir     string `env:"SELMA_EVENT_LOG_DIR" yaml:"event_log_dir"` // empty disables the event log
	DBPath          string `env:"SELMA_DB_PATH" yaml:"db_path"`             // empty disables the event store
	Narrator        string `env:"SELMA_NARRATOR" yaml:"narrator"`
	LogFile         string `env:"SELMA_LOG_FILE" yaml:"log_file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		SaveDir:         ".saves",
		DrawDeckSize:    5,
		MaxDrawAttempts: 1000,
		AllowOutput:     true,
		Narrator:        NarratorTemplate,
		LogFile:         "selma.log",
	}
}

// LoadConfig loads the configuration from the config file, if any, and
// environment variables.
func LoadConfig() (*Config, error) {
	var boot struct {
		File string `env:"SELMA_CONFIG"`
	}
	if err := env.Parse(&boot); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := Default()
	if boot.File != "" {
		data, err := os.ReadFile(boot.File)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", boot.File, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the simulation cannot run with.
func (c *Config) Validate() error {
	if c.DrawDeckSize <= 0 {
		return fmt.Errorf("draw deck size must be positive, got %d", c.DrawDeckSize)
	}
	if c.MaxDrawAttempts <= 0 {
		return fmt.Errorf("max draw attempts must be positive, got %d", c.MaxDrawAttempts)
	}
	switch c.Narrator {
	case NarratorTemplate:
	case NarratorGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown narrator %q", c.Narrator)
	}
	return nil
}

// RunSeed returns the configured seed, or a random one when it is zero.
func (c *Config) RunSeed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint64(b[:])
}
