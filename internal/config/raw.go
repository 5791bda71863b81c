package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/hyprbar/internal/bar"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// RawConfig is one file as written. Nil fields were not set and leave the
// value below them untouched.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Namespace *string       `yaml:"namespace"`
	Layer     *string       `yaml:"layer"`
	LogLevel  *string       `yaml:"log_level"`
	Font      *RawFont      `yaml:"font"`
	Control   *RawControl   `yaml:"control"`
	Bars      *[]bar.Config `yaml:"bars"`
}

type RawFont struct {
	Path *string  `yaml:"path"`
	Size *float64 `yaml:"size"`
	DPI  *float64 `yaml:"dpi"`
}

type RawControl struct {
	Enabled *bool `yaml:"enabled"`
}

// merge overlays other onto r. The bar list is replaced as a whole.
func (r RawConfig) merge(other RawConfig) RawConfig {
	out := r
	out.Include = nil
	if other.Namespace != nil {
		out.Namespace = other.Namespace
	}
	if other.Layer != nil {
		out.Layer = other.Layer
	}
	if other.LogLevel != nil {
		out.LogLevel = other.LogLevel
	}
	if other.Font != nil {
		if out.Font == nil {
			out.Font = &RawFont{}
		}
		f := *out.Font
		if other.Font.Path != nil {
			f.Path = other.Font.Path
		}
		if other.Font.Size != nil {
			f.Size = other.Font.Size
		}
		if other.Font.DPI != nil {
			f.DPI = other.Font.DPI
		}
		out.Font = &f
	}
	if other.Control != nil {
		if out.Control == nil {
			out.Control = &RawControl{}
		}
		c := *out.Control
		if other.Control.Enabled != nil {
			c.Enabled = other.Control.Enabled
		}
		out.Control = &c
	}
	if other.Bars != nil {
		out.Bars = other.Bars
	}
	return out
}
