package titles

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for a title extraction run.
const (
	DefaultTitleFontSize    = 5.5
	DefaultMinTitleLength   = 8
	DefaultMinTitleDistance = 100
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid title config")

// Config holds the thresholds for one extraction run.
type Config struct {
	TitleFontSize    float64 `json:"title_font_size" yaml:"title_font_size"`       // points; heights >= this are "above"
	MinTitleLength   int     `json:"min_title_length" yaml:"min_title_length"`     // runes; a title must be strictly longer
	MinTitleDistance int     `json:"min_title_distance" yaml:"min_title_distance"` // runes between title starts on a page
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		TitleFontSize:    DefaultTitleFontSize,
		MinTitleLength:   DefaultMinTitleLength,
		MinTitleDistance: DefaultMinTitleDistance,
	}
}

// Validate reports whether the thresholds are usable.
func (c Config) Validate() error {
	if math.IsNaN(c.TitleFontSize) || math.IsInf(c.TitleFontSize, 0) || c.TitleFontSize <= 0 {
		return fmt.Errorf("%w: title font size must be a positive number, got %v", ErrInvalidConfig, c.TitleFontSize)
	}
	if c.MinTitleLength < 0 {
		return fmt.Errorf("%w: min title length must not be negative, got %d", ErrInvalidConfig, c.MinTitleLength)
	}
	if c.MinTitleDistance < 0 {
		return fmt.Errorf("%w: min title distance must not be negative, got %d", ErrInvalidConfig, c.MinTitleDistance)
	}
	return nil
}
