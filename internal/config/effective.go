package config

import (
	"fmt"

	"github.com/1broseidon/hyprbar/internal/bar"
)

// ValidationError points at the setting that failed validation and, when
// it came from a file, where it was written.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Namespace != nil {
		cfg.Namespace = *raw.Namespace
	}
	if raw.Layer != nil {
		cfg.Layer = *raw.Layer
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Font != nil {
		if raw.Font.Path != nil {
			cfg.Font.Path = *raw.Font.Path
		}
		if raw.Font.Size != nil {
			cfg.Font.Size = *raw.Font.Size
		}
		if raw.Font.DPI != nil {
			cfg.Font.DPI = *raw.Font.DPI
		}
	}
	if raw.Control != nil && raw.Control.Enabled != nil {
		cfg.Control.Enabled = *raw.Control.Enabled
	}
	if raw.Bars != nil {
		bars := make([]bar.Config, len(*raw.Bars))
		copy(bars, *raw.Bars)
		for i := range bars {
			if bars[i].Pattern == "" {
				bars[i].Pattern = bar.PatternGradient
			}
		}
		cfg.Bars = bars
	}
	return cfg
}
