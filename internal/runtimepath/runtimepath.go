package runtimepath

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

// DefaultDisplay is the compositor socket name used when WAYLAND_DISPLAY
// is unset.
const DefaultDisplay = "wayland-0"

// ControlSocketName is the file name of hyprbar's control socket inside
// the runtime directory.
const ControlSocketName = "hyprbar.sock"

// ErrNoRuntimeDir is wrapped by the error Dir returns when
// XDG_RUNTIME_DIR is unset.
var ErrNoRuntimeDir = errors.New("XDG_RUNTIME_DIR is not set")

// Dir returns the user's runtime directory. Wayland sockets only live in
// XDG_RUNTIME_DIR, so unlike most lookups there is no fallback.
func Dir() (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", &errdefs.ConfigurationError{What: "runtime directory", Err: ErrNoRuntimeDir}
	}
	return runtimeDir, nil
}

// DisplaySocketPath returns the compositor socket path. WAYLAND_DISPLAY
// names a socket inside the runtime directory, or is an absolute path used
// as is; it defaults to wayland-0. The runtime directory must be set
// either way, as it is for every Wayland session.
func DisplaySocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = DefaultDisplay
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	return filepath.Join(runtimeDir, display), nil
}

// ControlSocketPath returns the path of hyprbar's control socket.
func ControlSocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, ControlSocketName), nil
}
