// Package config loads hyprbar's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/1broseidon/hyprbar/internal/bar"
	"github.com/1broseidon/hyprbar/internal/font"
	"github.com/1broseidon/hyprbar/internal/proto/wlr_layer_shell"
)

// Config is the effective configuration after defaults and all files
// have been merged.
type Config struct {
	// Namespace is the layer-surface namespace compositors match rules
	// against.
	Namespace string        `yaml:"namespace"`
	Layer     string        `yaml:"layer"`
	LogLevel  string        `yaml:"log_level"`
	Font      font.Options  `yaml:"font"`
	Control   ControlConfig `yaml:"control"`
	Bars      []bar.Config  `yaml:"bars"`
}

// ControlConfig configures the control socket in the runtime directory.
type ControlConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a single 32 pixel gradient bar along the top edge
// of the first output, in the bottom layer.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "hyprbar",
		Layer:     "bottom",
		LogLevel:  "info",
		Font:      font.DefaultOptions(),
		Control:   ControlConfig{Enabled: true},
		Bars: []bar.Config{
			{Position: bar.PositionTop, Size: 32, Pattern: bar.PatternGradient},
		},
	}
}

var layers = map[string]wlr_layer_shell.ZwlrLayerShellV1Layer{
	"background": wlr_layer_shell.ZwlrLayerShellV1LayerBackground,
	"bottom":     wlr_layer_shell.ZwlrLayerShellV1LayerBottom,
	"top":        wlr_layer_shell.ZwlrLayerShellV1LayerTop,
	"overlay":    wlr_layer_shell.ZwlrLayerShellV1LayerOverlay,
}

// WaylandLayer returns the layer-shell layer bars are placed in.
func (c *Config) WaylandLayer() wlr_layer_shell.ZwlrLayerShellV1Layer {
	if l, ok := layers[c.Layer]; ok {
		return l
	}
	return wlr_layer_shell.ZwlrLayerShellV1LayerBottom
}

// SlogLevel returns the minimum level to log at.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return &ValidationError{Path: "namespace", Err: fmt.Errorf("namespace is required")}
	}
	if _, ok := layers[c.Layer]; !ok {
		return &ValidationError{Path: "layer", Err: fmt.Errorf("layer must be one of: background, bottom, top, overlay")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if c.Font.Size <= 0 {
		return &ValidationError{Path: "font.size", Err: fmt.Errorf("size must be > 0")}
	}
	if c.Font.DPI < 0 {
		return &ValidationError{Path: "font.dpi", Err: fmt.Errorf("dpi must be >= 0")}
	}
	if len(c.Bars) == 0 {
		return &ValidationError{Path: "bars", Err: fmt.Errorf("bars must not be empty")}
	}
	for i, b := range c.Bars {
		if err := b.Validate(); err != nil {
			return &ValidationError{Path: "bars", Err: fmt.Errorf("bar %d: %w", i, err)}
		}
	}
	return nil
}
