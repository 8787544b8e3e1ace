// Package patch locates a quoted passage inside a file even when the quote
// has drifted from the source in whitespace or a few characters, and
// replaces it.
package patch

import "fmt"

// Config holds the matching heuristics. The zero value means defaults.
type Config struct {
	// Threshold is the minimum similarity a fuzzy window must reach.
	Threshold float64 `yaml:"threshold"`

	// ShortCircuit stops the fuzzy scan as soon as a window scores at least this.
	ShortCircuit float64 `yaml:"short_circuit"`

	// MinWindowRatio and MaxWindowRatio bound fuzzy window sizes relative to
	// the normalized find length.
	MinWindowRatio float64 `yaml:"min_window_ratio"`
	MaxWindowRatio float64 `yaml:"max_window_ratio"`

	// WindowSamples is how many window sizes are tried across that range.
	WindowSamples int `yaml:"window_samples"`

	// StepDivisor sets the window stride to the minimum window size divided by it.
	StepDivisor int `yaml:"step_divisor"`

	// MappingWindowMin and MappingWindowMax clamp the search radius used to
	// map a normalized offset back to the original text (10% of its length).
	MappingWindowMin int `yaml:"mapping_window_min"`
	MappingWindowMax int `yaml:"mapping_window_max"`
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = 0.85
	}
	if c.ShortCircuit == 0 {
		c.ShortCircuit = 0.98
	}
	if c.MinWindowRatio == 0 {
		c.MinWindowRatio = 0.7
	}
	if c.MaxWindowRatio == 0 {
		c.MaxWindowRatio = 1.5
	}
	if c.WindowSamples == 0 {
		c.WindowSamples = 10
	}
	if c.StepDivisor == 0 {
		c.StepDivisor = 4
	}
	if c.MappingWindowMin == 0 {
		c.MappingWindowMin = 50
	}
	if c.MappingWindowMax == 0 {
		c.MappingWindowMax = 400
	}
	return c
}

// Validate reports heuristics that would make the scan meaningless.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.Threshold <= 0 || c.Threshold > 1:
		return fmt.Errorf("patch: threshold %.2f out of (0,1]", c.Threshold)
	case c.ShortCircuit < c.Threshold || c.ShortCircuit > 1:
		return fmt.Errorf("patch: short_circuit %.2f must be between threshold and 1", c.ShortCircuit)
	case c.MinWindowRatio <= 0 || c.MaxWindowRatio < c.MinWindowRatio:
		return fmt.Errorf("patch: window ratio range [%.2f, %.2f] is empty", c.MinWindowRatio, c.MaxWindowRatio)
	case c.WindowSamples < 1 || c.StepDivisor < 1:
		return fmt.Errorf("patch: window_samples and step_divisor must be positive")
	case c.MappingWindowMin < 1 || c.MappingWindowMax < c.MappingWindowMin:
		return fmt.Errorf("patch: mapping window [%d, %d] is empty", c.MappingWindowMin, c.MappingWindowMax)
	}
	return nil
}
