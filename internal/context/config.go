// Package ctxengine decides which project files accompany a chat request.
// It estimates token costs, admits files tier by tier under a fixed budget,
// and truncates the ones that do not fit whole.
package ctxengine

import "fmt"

// ContextConfig holds the budget constants for context assembly.
type ContextConfig struct {
	// Capacity is the model context window in tokens.
	Capacity int `yaml:"capacity"`

	// ReservedForResponse is held back for the model's reply.
	ReservedForResponse int `yaml:"reserved_for_response"`

	// ReservedForSystemPrompt is held back for the agent system prompt.
	ReservedForSystemPrompt int `yaml:"reserved_for_system_prompt"`

	// HistoryMessages is how many recent messages are kept before budgeting.
	HistoryMessages int `yaml:"history_messages"`

	// MinTruncateTokens is the remaining budget required before a file that
	// overflows its tier is admitted in truncated form.
	MinTruncateTokens int `yaml:"min_truncate_tokens"`

	// Tokenizer selects the estimator: "tiktoken" (default) or "chars".
	Tokenizer string `yaml:"tokenizer"`

	// CharsPerToken tunes the character estimator. 0 means 4.0.
	CharsPerToken float64 `yaml:"chars_per_token"`
}

// WithDefaults returns a copy of cfg with zero-valued fields replaced by
// the stock budget.
func (cfg ContextConfig) WithDefaults() ContextConfig {
	if cfg.Capacity == 0 {
		cfg.Capacity = 180_000
	}
	if cfg.ReservedForResponse == 0 {
		cfg.ReservedForResponse = 5_000
	}
	if cfg.ReservedForSystemPrompt == 0 {
		cfg.ReservedForSystemPrompt = 3_000
	}
	if cfg.HistoryMessages == 0 {
		cfg.HistoryMessages = 10
	}
	if cfg.MinTruncateTokens == 0 {
		cfg.MinTruncateTokens = 500
	}
	if cfg.Tokenizer == "" {
		cfg.Tokenizer = TokenizerTiktoken
	}
	return cfg
}

// Validate checks a defaulted config for values the assembler cannot use.
func (cfg ContextConfig) Validate() error {
	switch {
	case cfg.Capacity < 0, cfg.ReservedForResponse < 0, cfg.ReservedForSystemPrompt < 0:
		return fmt.Errorf("%w: negative token count", ErrInvalidBudget)
	case cfg.ReservedForResponse+cfg.ReservedForSystemPrompt >= cfg.Capacity:
		return fmt.Errorf("%w: reserves (%d) leave nothing of capacity %d",
			ErrInvalidBudget, cfg.ReservedForResponse+cfg.ReservedForSystemPrompt, cfg.Capacity)
	case cfg.HistoryMessages < 0:
		return fmt.Errorf("%w: history_messages must not be negative", ErrInvalidBudget)
	case cfg.Tokenizer != TokenizerTiktoken && cfg.Tokenizer != TokenizerChars:
		return fmt.Errorf("%w: unknown tokenizer %q", ErrInvalidBudget, cfg.Tokenizer)
	}
	return nil
}
