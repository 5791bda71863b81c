package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	namespace
//	layer
//	log_level
//	font.path
//	font.size
//	font.dpi
//	control.enabled
//	bars
//	bars.<index>.position
//	bars.<index>.size
//	bars.<index>.pattern
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	// Individual bars are only tracked as part of the list.
	if strings.HasPrefix(path, "bars.") {
		if src, ok := res.Sources["bars"]; ok {
			return value, src, nil
		}
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "namespace":
		return leaf(cfg.Namespace)
	case "layer":
		return leaf(cfg.Layer)
	case "log_level":
		return leaf(cfg.LogLevel)
	case "font":
		if len(parts) == 1 {
			return cfg.Font, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "path":
			return cfg.Font.Path, nil
		case "size":
			return cfg.Font.Size, nil
		case "dpi":
			return cfg.Font.DPI, nil
		}
	case "control":
		if len(parts) == 1 {
			return cfg.Control, nil
		}
		if len(parts) == 2 && parts[1] == "enabled" {
			return cfg.Control.Enabled, nil
		}
	case "bars":
		if len(parts) == 1 {
			return cfg.Bars, nil
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 || idx >= len(cfg.Bars) {
			return nil, fmt.Errorf("no bar %q (have %d)", parts[1], len(cfg.Bars))
		}
		b := cfg.Bars[idx]
		if len(parts) == 2 {
			return b, nil
		}
		if len(parts) != 3 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[2] {
		case "position":
			return b.Position, nil
		case "size":
			return b.Size, nil
		case "pattern":
			return b.Pattern, nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
