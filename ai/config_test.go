package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "gemma3:1b", cfg.Model)
	assert.Equal(t, 3000, cfg.MaxContent)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 0.7, cfg.Weight)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://gpu:8080/v1"),
			WithModel("qwen2.5:3b"),
			WithToken("secret"),
			WithMaxContent(500),
			WithMaxAttempts(1),
			WithWeight(0.5),
		)

		assert.Equal(t, "http://gpu:8080/v1", cfg.Host)
		assert.Equal(t, "qwen2.5:3b", cfg.Model)
		assert.Equal(t, "secret", cfg.Token)
		assert.Equal(t, 500, cfg.MaxContent)
		assert.Equal(t, 1, cfg.MaxAttempts)
		assert.Equal(t, 0.5, cfg.Weight)
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
			assert.Equal(t, "none", cfg.Token)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing host", func(c *Config) { c.Host = "" }, "Host is required"},
		{"missing model", func(c *Config) { c.Model = "" }, "Model is required"},
		{"zero content", func(c *Config) { c.MaxContent = 0 }, "MaxContent"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "MaxAttempts"},
		{"weight above one", func(c *Config) { c.Weight = 1.5 }, "Weight"},
		{"negative weight", func(c *Config) { c.Weight = -0.1 }, "Weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg := NewConfig(WithHost("http://remote:9000"))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://remote:9000/v1", cfg.Host)
}
