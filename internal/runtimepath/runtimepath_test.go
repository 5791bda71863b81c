package runtimepath

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_MissingXDGRuntimeDirIsConfigurationError(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	_, err := Dir()
	var cfgErr *errdefs.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Dir() error = %v, want *ConfigurationError", err)
	}
	if !errors.Is(err, ErrNoRuntimeDir) {
		t.Fatalf("Dir() error = %v, want ErrNoRuntimeDir", err)
	}
}

func TestDisplaySocketPath(t *testing.T) {
	td := t.TempDir()

	tests := []struct {
		name       string
		runtimeDir string
		display    string
		want       string
		wantErr    bool
	}{
		{name: "default display", runtimeDir: td, display: "", want: filepath.Join(td, "wayland-0")},
		{name: "named display", runtimeDir: td, display: "wayland-1", want: filepath.Join(td, "wayland-1")},
		{name: "absolute display", runtimeDir: td, display: "/tmp/custom-wl", want: "/tmp/custom-wl"},
		{name: "absolute display without runtime dir", runtimeDir: "", display: "/tmp/custom-wl", wantErr: true},
		{name: "relative display without runtime dir", runtimeDir: "", display: "wayland-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_RUNTIME_DIR", tt.runtimeDir)
			t.Setenv("WAYLAND_DISPLAY", tt.display)

			got, err := DisplaySocketPath()
			if tt.wantErr {
				var cfgErr *errdefs.ConfigurationError
				if !errors.As(err, &cfgErr) || !errors.Is(err, ErrNoRuntimeDir) {
					t.Fatalf("DisplaySocketPath() = %q, %v; want a missing runtime dir error", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DisplaySocketPath() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DisplaySocketPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestControlSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	socket, err := ControlSocketPath()
	if err != nil {
		t.Fatalf("ControlSocketPath() error: %v", err)
	}
	if !strings.HasSuffix(socket, "/hyprbar.sock") || !strings.HasPrefix(socket, td) {
		t.Fatalf("ControlSocketPath() = %q", socket)
	}
}
