// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/setanarut/nftgen/internal/logging"
	"github.com/setanarut/nftgen/utils"
)

// Config holds everything the CLI commands need. Every field maps to an
// environment variable; command-line flags override it.
type Config struct {
	LayersDir  string   `env:"NFTGEN_LAYERS_DIR" envDefault:"orbitalz-layers"`
	LayerOrder []string `env:"NFTGEN_LAYER_ORDER" envSeparator:"," envDefault:"Background,Orbital,Eyes,Nose,Mouth,Hat"`

	LogLevel  string `env:"NFTGEN_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"NFTGEN_LOG_FORMAT" envDefault:"text"`

	// Seed fixes the random source; 0 seeds every generation from the clock.
	Seed             int64  `env:"NFTGEN_SEED"`
	StrictDimensions bool   `env:"NFTGEN_STRICT_DIMENSIONS"`
	PaletteSize      int    `env:"NFTGEN_PALETTE_SIZE" envDefault:"5"`
	PaletteMethod    string `env:"NFTGEN_PALETTE_METHOD" envDefault:"dominantcolor"`

	Addr         string    `env:"NFTGEN_ADDR" envDefault:":8080"`
	Triggers     []string  `env:"NFTGEN_TRIGGERS" envSeparator:"," envDefault:"orbi,@orbitalz_bot"`
	IgnoreBefore time.Time `env:"NFTGEN_IGNORE_BEFORE" envDefault:"2022-06-13T16:56:51Z"`
	// WebhookSecret, when set, must match the X-Telegram-Bot-Api-Secret-Token header.
	WebhookSecret string `env:"NFTGEN_WEBHOOK_SECRET"`
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	TelegramAPI   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`

	HistoryDB string `env:"NFTGEN_HISTORY_DB"`

	S3Bucket string `env:"NFTGEN_S3_BUCKET" envDefault:"orbi-bot"`
	S3Region string `env:"NFTGEN_S3_REGION" envDefault:"us-west-1"`
	S3Prefix string `env:"NFTGEN_S3_PREFIX"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom is Load with an explicit environment, for tests.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	// Blank order entries are kept so catalog loading rejects them.
	for i := range c.LayerOrder {
		c.LayerOrder[i] = strings.TrimSpace(c.LayerOrder[i])
	}
	c.Triggers = trimAll(c.Triggers)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.LayersDir == "" {
		return errors.New("layers dir is a required configuration field and cannot be empty")
	}
	if len(c.LayerOrder) == 0 {
		return errors.New("layer order cannot be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	if c.PaletteSize < 0 {
		return fmt.Errorf("palette size must be >= 0, got %d", c.PaletteSize)
	}
	if _, err := utils.ParsePaletteMethod(c.PaletteMethod); err != nil {
		return err
	}
	return nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
