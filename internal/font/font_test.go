package font

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gomono"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	face, err := Load(DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer face.Close()

	if face.Name() != "Go Regular" {
		t.Fatalf("Name() = %q, want Go Regular", face.Name())
	}
	m := face.Metrics()
	if m.Ascent <= 0 || m.Descent <= 0 || m.Height < m.Ascent {
		t.Fatalf("Metrics() = %+v", m)
	}
	if face.Advance("") != 0 {
		t.Fatalf("Advance(\"\") = %d", face.Advance(""))
	}
	if narrow, wide := face.Advance("iiii"), face.Advance("WWWW"); narrow <= 0 || narrow >= wide {
		t.Fatalf("Advance: iiii=%d WWWW=%d", narrow, wide)
	}
}

func TestLoadScalesWithSize(t *testing.T) {
	small, err := Load(Options{Size: 12, DPI: 72})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer small.Close()
	large, err := Load(Options{Size: 48, DPI: 72})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer large.Close()

	if small.Metrics().Height >= large.Metrics().Height {
		t.Fatalf("12pt height %d >= 48pt height %d", small.Metrics().Height, large.Metrics().Height)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.ttf")
	if err := os.WriteFile(path, gomono.TTF, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	face, err := Load(Options{Path: path, Size: 16})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer face.Close()

	if face.Name() != "Go Mono" {
		t.Fatalf("Name() = %q, want Go Mono", face.Name())
	}
	if face.Options().DPI != 100 {
		t.Fatalf("DPI = %g, want default 100", face.Options().DPI)
	}
	if face.Advance("iiii") != face.Advance("WWWW") {
		t.Fatal("monospace advances differ")
	}
}

func TestLoadErrors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.ttf")
	if err := os.WriteFile(garbage, []byte("not a font"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"missing file", Options{Path: filepath.Join(t.TempDir(), "nope.ttf"), Size: 12}},
		{"not a font", Options{Path: garbage, Size: 12}},
		{"zero size", Options{Size: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)
			var cfgErr *errdefs.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load error = %v, want *ConfigurationError", err)
			}
		})
	}
}
