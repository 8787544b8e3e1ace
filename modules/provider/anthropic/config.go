package anthropic

import (
	"errors"
	"fmt"
	"time"
)

// defaultModel is the model used when none is specified.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultContextWindow covers every current Claude model (200k tokens).
const defaultContextWindow = 200_000

// defaultAPIKeyEnv is read when neither api_key nor api_key_env is set.
const defaultAPIKeyEnv = "ANTHROPIC_API_KEY"

// defaultTimeout bounds the wait for response headers. A stream that has
// started is not affected.
const defaultTimeout = 60 * time.Second

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	APIKey        string        `yaml:"api_key"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	MaxTokens     int           `yaml:"max_tokens"`
	ContextWindow int           `yaml:"context_window"`
	Timeout       time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("provider.anthropic: model must not be empty"))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("provider.anthropic: max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("provider.anthropic: context_window must be positive, got %d", c.ContextWindow))
	}
	return errors.Join(errs...)
}

// resolveAPIKey prefers the literal api_key, then the named environment
// variable.
func (c *Config) resolveAPIKey(lookup func(string) (string, bool)) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if v, ok := lookup(c.APIKeyEnv); ok {
		return v
	}
	return ""
}

// contextWindowForModel returns the explicit override or the default.
func (c *Config) contextWindowForModel() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return defaultContextWindow
}
