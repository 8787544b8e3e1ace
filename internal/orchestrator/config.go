package orchestrator

import (
	"errors"
	"fmt"
)

// Default values for Config.
const (
	DefaultAutonomyThreshold = 50
	DefaultAutonomy          = 50
	DefaultMaxTokens         = 4096
	DefaultReviewMaxTokens   = 2048
	DefaultMemoryResults     = 5
	DefaultMemoryTokens      = 2000
)

// Config controls the chat flow and the review pipeline.
type Config struct {
	// AutonomyThreshold is the autonomy level at or above which parsed file
	// operations are applied without asking. Below it they are returned as
	// pending for the author to confirm.
	AutonomyThreshold int `yaml:"autonomy_threshold"`

	// DefaultAutonomy is used for requests that do not carry a level.
	DefaultAutonomy int `yaml:"default_autonomy"`

	// MaxTokens caps the advocate's reply.
	MaxTokens int `yaml:"max_tokens"`

	// ReviewMaxTokens caps each review agent's reply.
	ReviewMaxTokens int `yaml:"review_max_tokens"`

	// Temperature, when set, is passed to the provider.
	Temperature *float64 `yaml:"temperature"`

	// MemoryResults is how many memory hits are requested per chat.
	// Negative disables the memory lookup.
	MemoryResults int `yaml:"memory_results"`

	// MemoryTokens caps the memory section in the system prompt.
	MemoryTokens int `yaml:"memory_tokens"`
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.AutonomyThreshold == 0 {
		c.AutonomyThreshold = DefaultAutonomyThreshold
	}
	if c.DefaultAutonomy == 0 {
		c.DefaultAutonomy = DefaultAutonomy
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ReviewMaxTokens <= 0 {
		c.ReviewMaxTokens = DefaultReviewMaxTokens
	}
	if c.MemoryResults == 0 {
		c.MemoryResults = DefaultMemoryResults
	}
	if c.MemoryTokens <= 0 {
		c.MemoryTokens = DefaultMemoryTokens
	}
	return c
}

// RequiresConfirmation reports whether operations proposed at the given
// autonomy level wait for the author. Nil uses DefaultAutonomy.
func (c Config) RequiresConfirmation(autonomy *int) bool {
	c = c.withDefaults()
	level := c.DefaultAutonomy
	if autonomy != nil {
		level = *autonomy
	}
	return level < c.AutonomyThreshold
}

// Validate reports out-of-range settings.
func (c Config) Validate() error {
	var errs []error
	if c.AutonomyThreshold < 0 || c.AutonomyThreshold > 100 {
		errs = append(errs, fmt.Errorf("orchestrator: autonomy_threshold %d out of range 0-100", c.AutonomyThreshold))
	}
	if c.DefaultAutonomy < 0 || c.DefaultAutonomy > 100 {
		errs = append(errs, fmt.Errorf("orchestrator: default_autonomy %d out of range 0-100", c.DefaultAutonomy))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 1) {
		errs = append(errs, fmt.Errorf("orchestrator: temperature %.2f out of range 0-1", *c.Temperature))
	}
	return errors.Join(errs...)
}
