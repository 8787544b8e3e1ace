package ctxengine

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/catonblt/novelbuddies/internal/provider"
)

// Tokenizer names accepted by ContextConfig.Tokenizer.
const (
	TokenizerTiktoken = "tiktoken"
	TokenizerChars    = "chars"
)

// messageOverhead approximates the role and framing tokens of one chat message.
const messageOverhead = 4

// TokenEstimator estimates the token count of a string.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens using a simple characters-per-token ratio.
// A ratio of ~4 works well for English; ~3 for French or other Latin languages.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator with the given ratio.
// If charsPerToken is <= 0, defaults to 4.0.
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate returns the estimated token count for the given text.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	// Round up so a short string never costs nothing.
	return int(float64(len(text))/e.CharsPerToken) + 1
}

// TiktokenEstimator counts tokens with a BPE encoding. The encoding is
// loaded on first use; if that fails (tiktoken-go may need to download the
// ranks file) every call falls back to the character estimator.
type TiktokenEstimator struct {
	encoding string
	fallback *CharEstimator
	logger   *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTiktokenEstimator creates an estimator for the named encoding
// ("cl100k_base" when empty).
func NewTiktokenEstimator(encoding string, logger *slog.Logger) *TiktokenEstimator {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TiktokenEstimator{
		encoding: encoding,
		fallback: NewCharEstimator(0),
		logger:   logger,
	}
}

// Estimate returns the BPE token count of text. It never fails.
func (e *TiktokenEstimator) Estimate(text string) (n int) {
	if text == "" {
		return 0
	}
	e.once.Do(e.load)
	if e.enc == nil {
		return e.fallback.Estimate(text)
	}
	defer func() {
		if r := recover(); r != nil {
			n = e.fallback.Estimate(text)
		}
	}()
	return len(e.enc.Encode(text, nil, nil))
}

func (e *TiktokenEstimator) load() {
	enc, err := tiktoken.GetEncoding(e.encoding)
	if err != nil {
		e.logger.Warn("tokenizer unavailable, using character estimate",
			"encoding", e.encoding, "error", err)
		return
	}
	e.enc = enc
}

// NewEstimator returns the estimator selected by cfg.
func NewEstimator(cfg ContextConfig, logger *slog.Logger) TokenEstimator {
	if cfg.Tokenizer == TokenizerChars {
		return NewCharEstimator(cfg.CharsPerToken)
	}
	return NewTiktokenEstimator("", logger)
}

// EstimateMessages returns the total estimated tokens for a slice of chat
// messages, including per-message framing.
func EstimateMessages(estimator TokenEstimator, messages []provider.LLMMessage) int {
	total := 0
	for i := range messages {
		total += messageOverhead + estimator.Estimate(messages[i].Content)
	}
	return total
}
