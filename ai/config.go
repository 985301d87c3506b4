// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for the language-model services.
type Config struct {
	// Host is the base URL of an OpenAI-compatible API.
	// Example: "http://localhost:11434/v1" for a local Ollama server
	Host string

	// Model is the chat model identifier.
	// Example: "gemma3:1b", "qwen2.5:3b", "gpt-4o-mini"
	Model string

	// Token is the API key. Local servers accept any value.
	Token string

	// MaxContent is the number of runes of entry text sent to the model.
	// Default: 3000
	MaxContent int

	// MaxAttempts bounds how many times a malformed response is re-requested.
	// Default: 3
	MaxAttempts int

	// Weight is the share of the model score in the blended relevance score;
	// the keyword score supplies the rest.
	// Default: 0.7
	Weight float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the API host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the chat model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithToken sets the API key.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithMaxContent sets how much entry text is sent to the model.
func WithMaxContent(n int) ConfigOption {
	return func(c *Config) {
		c.MaxContent = n
	}
}

// WithMaxAttempts sets the retry bound for malformed responses.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithWeight sets the model share of the blended score.
func WithWeight(w float64) ConfigOption {
	return func(c *Config) {
		c.Weight = w
	}
}

// DefaultConfig returns a Config for a local Ollama server.
func DefaultConfig() *Config {
	return &Config{
		Host:        "http://localhost:11434/v1",
		Model:       "gemma3:1b",
		Token:       "none",
		MaxContent:  3000,
		MaxAttempts: 3,
		Weight:      0.7,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://gpu-box:11434"),
//	    WithModel("qwen2.5:3b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.MaxContent < 1 {
		return errors.New("ai config: MaxContent must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be positive")
	}
	if c.Weight < 0 || c.Weight > 1 {
		return errors.New("ai config: Weight must be between 0 and 1")
	}
	return nil
}
