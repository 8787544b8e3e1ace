package openai

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults for Config.
const (
	defaultBaseURL       = "https://api.openai.com/v1"
	defaultModel         = "gpt-4o"
	defaultAPIKeyEnv     = "OPENAI_API_KEY"
	defaultContextWindow = 128_000
	defaultMaxTokens     = 4096
	defaultTimeout       = 60 * time.Second
)

// Config holds the YAML-decoded configuration for any server speaking the
// OpenAI chat completions API: OpenAI itself, OpenRouter, or a local
// model server.
type Config struct {
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	APIKeyEnv     string            `yaml:"api_key_env"`
	Model         string            `yaml:"model"`
	ContextWindow int               `yaml:"context_window"`
	MaxTokens     int               `yaml:"max_tokens"`
	Headers       map[string]string `yaml:"headers"`
	Timeout       time.Duration     `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = defaultContextWindow
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("provider.openai: base_url is not a valid URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("provider.openai: base_url scheme must be http or https, got %q", u.Scheme))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("provider.openai: model must not be empty"))
	}
	if c.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("provider.openai: context_window must be positive, got %d", c.ContextWindow))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("provider.openai: max_tokens must be positive, got %d", c.MaxTokens))
	}
	return errors.Join(errs...)
}

// resolveAPIKey prefers the literal api_key, then the named environment
// variable. Local servers usually need neither.
func (c *Config) resolveAPIKey(lookup func(string) (string, bool)) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if v, ok := lookup(c.APIKeyEnv); ok {
		return v
	}
	return ""
}
