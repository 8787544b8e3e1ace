package ctxengine_test

import (
	"testing"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/provider"
)

// Compile-time interface guards.
var (
	_ ctxengine.TokenEstimator = (*ctxengine.CharEstimator)(nil)
	_ ctxengine.TokenEstimator = (*ctxengine.TiktokenEstimator)(nil)
)

// ---------------------------------------------------------------------------
// NewCharEstimator
// ---------------------------------------------------------------------------

func TestNewCharEstimator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		charsPerToken float64
		wantRatio     float64
	}{
		{name: "valid_ratio", charsPerToken: 3.0, wantRatio: 3.0},
		{name: "zero_defaults_to_4", charsPerToken: 0, wantRatio: 4.0},
		{name: "negative_defaults_to_4", charsPerToken: -1.5, wantRatio: 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			est := ctxengine.NewCharEstimator(tt.charsPerToken)
			if est.CharsPerToken != tt.wantRatio {
				t.Errorf("NewCharEstimator(%v).CharsPerToken = %v, want %v",
					tt.charsPerToken, est.CharsPerToken, tt.wantRatio)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CharEstimator.Estimate
// ---------------------------------------------------------------------------

func TestCharEstimator_Estimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty", input: "", want: 0},
		{name: "single_char", input: "a", want: 1},
		{name: "hello", input: "hello", want: 2},
		{name: "exact_multiple", input: "abcd", want: 2}, // int(4/4)+1
		{name: "sentence", input: "Elena is 32 years old.", want: 6},
	}

	est := ctxengine.NewCharEstimator(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := est.Estimate(tt.input); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTiktokenEstimator_EmptyIsZero(t *testing.T) {
	t.Parallel()

	// Empty input returns before the encoding is loaded, so this never
	// touches the network.
	est := ctxengine.NewTiktokenEstimator("", nil)
	if got := est.Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
}

func TestTiktokenEstimator_UnknownEncodingFallsBack(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewTiktokenEstimator("no_such_encoding", nil)
	want := ctxengine.NewCharEstimator(0).Estimate("hello world")
	if got := est.Estimate("hello world"); got != want {
		t.Errorf("Estimate = %d, want character fallback %d", got, want)
	}
}

func TestNewEstimator_Chars(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewEstimator(ctxengine.ContextConfig{Tokenizer: ctxengine.TokenizerChars, CharsPerToken: 2}, nil)
	ce, ok := est.(*ctxengine.CharEstimator)
	if !ok {
		t.Fatalf("NewEstimator returned %T, want *CharEstimator", est)
	}
	if ce.CharsPerToken != 2 {
		t.Errorf("CharsPerToken = %v, want 2", ce.CharsPerToken)
	}
}

// ---------------------------------------------------------------------------
// EstimateMessages
// ---------------------------------------------------------------------------

func TestEstimateMessages(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewCharEstimator(0)
	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: "hello"},          // 4 + 2
		{Role: provider.MessageRoleAssistant, Content: ""},          // 4 + 0
		{Role: provider.MessageRoleUser, Content: "Elena is 32 years old."}, // 4 + 6
	}
	if got := ctxengine.EstimateMessages(est, msgs); got != 20 {
		t.Errorf("EstimateMessages = %d, want 20", got)
	}
	if got := ctxengine.EstimateMessages(est, nil); got != 0 {
		t.Errorf("EstimateMessages(nil) = %d, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// TokenBudget
// ---------------------------------------------------------------------------

func TestTokenBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		budget        ctxengine.TokenBudget
		wantAvailable int
		wantFile      int
		wantRemaining int
	}{
		{
			name:          "fresh",
			budget:        ctxengine.TokenBudget{Capacity: 1000, ReservedForResponse: 100, ReservedForSystemPrompt: 100},
			wantAvailable: 800, wantFile: 800, wantRemaining: 800,
		},
		{
			name:          "history_and_files",
			budget:        ctxengine.TokenBudget{Capacity: 1000, ReservedForResponse: 100, ReservedForSystemPrompt: 100, History: 300, Files: 200},
			wantAvailable: 800, wantFile: 500, wantRemaining: 300,
		},
		{
			name:          "history_over_window_clamps",
			budget:        ctxengine.TokenBudget{Capacity: 1000, ReservedForResponse: 100, ReservedForSystemPrompt: 100, History: 900},
			wantAvailable: 800, wantFile: 0, wantRemaining: 0,
		},
		{
			name:          "reserves_over_capacity",
			budget:        ctxengine.TokenBudget{Capacity: 100, ReservedForResponse: 100, ReservedForSystemPrompt: 100},
			wantAvailable: 0, wantFile: 0, wantRemaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.budget.Available(); got != tt.wantAvailable {
				t.Errorf("Available() = %d, want %d", got, tt.wantAvailable)
			}
			if got := tt.budget.FileBudget(); got != tt.wantFile {
				t.Errorf("FileBudget() = %d, want %d", got, tt.wantFile)
			}
			if got := tt.budget.Remaining(); got != tt.wantRemaining {
				t.Errorf("Remaining() = %d, want %d", got, tt.wantRemaining)
			}
			if !tt.budget.Fits(tt.wantRemaining) || tt.budget.Fits(tt.wantRemaining+1) {
				t.Errorf("Fits disagrees with Remaining() = %d", tt.wantRemaining)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ContextConfig
// ---------------------------------------------------------------------------

func TestContextConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := ctxengine.ContextConfig{}.WithDefaults()
	if cfg.Capacity != 180_000 || cfg.ReservedForResponse != 5_000 || cfg.ReservedForSystemPrompt != 3_000 {
		t.Errorf("budget defaults = %+v", cfg)
	}
	if cfg.HistoryMessages != 10 || cfg.MinTruncateTokens != 500 {
		t.Errorf("history/truncate defaults = %d/%d", cfg.HistoryMessages, cfg.MinTruncateTokens)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestContextConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ctxengine.ContextConfig
	}{
		{name: "reserves_eat_capacity", cfg: ctxengine.ContextConfig{Capacity: 1000, ReservedForResponse: 600, ReservedForSystemPrompt: 400}},
		{name: "negative_capacity", cfg: ctxengine.ContextConfig{Capacity: -1}},
		{name: "unknown_tokenizer", cfg: ctxengine.ContextConfig{Tokenizer: "sentencepiece"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := tt.cfg.WithDefaults().Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
