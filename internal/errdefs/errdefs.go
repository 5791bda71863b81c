// Package errdefs defines the error taxonomy shared by hyprbar's packages.
//
// Library code returns these types and never exits the process; the binary
// entry point decides which of them are fatal.
package errdefs

import "fmt"

// ConfigurationError reports a missing or invalid piece of configuration:
// an unset environment variable, a bad config file, or a compositor that
// does not advertise a required capability.
type ConfigurationError struct {
	What string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return e.What
	}
	return fmt.Sprintf("%s: %v", e.What, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports that the compositor is unreachable, rejected a
// request, or dropped the connection.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResourceAllocationError reports a failure to create, size or map a
// shared-memory region, or to create a compositor-side object.
type ResourceAllocationError struct {
	Resource string
	Size     int
	Err      error
}

func (e *ResourceAllocationError) Error() string {
	msg := "failed to allocate " + e.Resource
	if e.Size > 0 {
		msg = fmt.Sprintf("%s (%d bytes)", msg, e.Size)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResourceAllocationError) Unwrap() error { return e.Err }

// BoundsError reports a pixel access outside of a canvas.
type BoundsError struct {
	X, Y          int
	Width, Height int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("point (%d, %d) is outside of canvas bounds (width: %d, height: %d)", e.X, e.Y, e.Width, e.Height)
}
