package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "orbitalz-layers", cfg.LayersDir)
	assert.Equal(t, []string{"Background", "Orbital", "Eyes", "Nose", "Mouth", "Hat"}, cfg.LayerOrder)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Zero(t, cfg.Seed)
	assert.Equal(t, 5, cfg.PaletteSize)
	assert.Equal(t, []string{"orbi", "@orbitalz_bot"}, cfg.Triggers)
	assert.True(t, cfg.IgnoreBefore.Equal(time.Date(2022, 6, 13, 16, 56, 51, 0, time.UTC)))
	assert.Equal(t, "https://api.telegram.org", cfg.TelegramAPI)
	assert.Equal(t, "orbi-bot", cfg.S3Bucket)
	assert.Equal(t, "us-west-1", cfg.S3Region)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"NFTGEN_LAYERS_DIR":        "/srv/layers",
		"NFTGEN_LAYER_ORDER":       " Sky , Body,Hat ",
		"NFTGEN_LOG_LEVEL":         "DEBUG",
		"NFTGEN_LOG_FORMAT":        "json",
		"NFTGEN_SEED":              "99",
		"NFTGEN_STRICT_DIMENSIONS": "true",
		"NFTGEN_PALETTE_METHOD":    "kmeans",
		"NFTGEN_TRIGGERS":          "gm, ,wagmi",
		"TELEGRAM_TOKEN":           "123:abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "/srv/layers", cfg.LayersDir)
	assert.Equal(t, []string{"Sky", "Body", "Hat"}, cfg.LayerOrder)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.True(t, cfg.StrictDimensions)
	assert.Equal(t, "kmeans", cfg.PaletteMethod)
	assert.Equal(t, []string{"gm", "wagmi"}, cfg.Triggers)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
}

func TestLoadFromKeepsBlankOrderEntries(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"NFTGEN_LAYER_ORDER": "Background,,Hat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Background", "", "Hat"}, cfg.LayerOrder)
}

func TestLoadFromInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"log level":      {"NFTGEN_LOG_LEVEL": "verbose"},
		"log format":     {"NFTGEN_LOG_FORMAT": "xml"},
		"palette size":   {"NFTGEN_PALETTE_SIZE": "-1"},
		"palette method": {"NFTGEN_PALETTE_METHOD": "median-cut"},
		"seed":           {"NFTGEN_SEED": "lucky"},
		"cutoff":         {"NFTGEN_IGNORE_BEFORE": "yesterday"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(environ)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	cfg.LayersDir = ""
	assert.ErrorContains(t, cfg.Validate(), "layers dir")

	cfg.LayersDir = "layers"
	cfg.LayerOrder = nil
	assert.ErrorContains(t, cfg.Validate(), "layer order")
}

func TestLoadReadsProcessEnv(t *testing.T) {
	t.Setenv("NFTGEN_LAYERS_DIR", "from-env")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LayersDir)
}
