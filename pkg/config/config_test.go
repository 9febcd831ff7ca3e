package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Port    int      `env:"HTTP_PORT" envDefault:"8080"`
	Level   string   `env:"LOG_LEVEL" envDefault:"info"`
	Brokers []string `env:"BROKERS" envSeparator:","`
	Secret  string   `env:"SECRET,required"`
}

func TestLoadFromMap_Defaults(t *testing.T) {
	var cfg sampleConfig
	err := LoadFromMap(&cfg, map[string]string{"SECRET": "s3cret"})

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.Level)
	assert.Empty(t, cfg.Brokers)
	assert.Equal(t, "s3cret", cfg.Secret)
}

func TestLoadFromMap_Overrides(t *testing.T) {
	var cfg sampleConfig
	err := LoadFromMap(&cfg, map[string]string{
		"HTTP_PORT": "9000",
		"BROKERS":   "a:9092,b:9092",
		"SECRET":    "x",
	})

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
}

func TestLoadFromMap_MissingRequired(t *testing.T) {
	var cfg sampleConfig
	err := LoadFromMap(&cfg, map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFromMap_InvalidInt(t *testing.T) {
	var cfg sampleConfig
	err := LoadFromMap(&cfg, map[string]string{"HTTP_PORT": "abc", "SECRET": "x"})

	assert.Error(t, err)
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "from-env", cfg.Secret)
	assert.Equal(t, "debug", cfg.Level)
}
