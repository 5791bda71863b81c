// Package shm allocates anonymous shared-memory regions that a Wayland
// compositor can read pixels from.
//
// A region is a memfd sized with ftruncate. The file descriptor is the
// creation-time handle passed to the compositor; the mapping is what the
// process writes through. The two have independent lifetimes.
package shm

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

// memfdName shows up in /proc/<pid>/fd and in compositor debug output.
const memfdName = "hyprbar-surface"

// Allocate creates an anonymous close-on-exec memory region of exactly
// size bytes and returns it as an open file. The caller owns the file and
// must close it.
func Allocate(size int) (*os.File, error) {
	if size <= 0 {
		return nil, &errdefs.ResourceAllocationError{
			Resource: "shared memory",
			Size:     size,
			Err:      fmt.Errorf("size must be positive, got %d", size),
		}
	}

	fd, err := unix.MemfdCreate(memfdName, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, &errdefs.ResourceAllocationError{Resource: "shared memory", Size: size, Err: err}
	}

	for {
		err = unix.Ftruncate(fd, int64(size))
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, &errdefs.ResourceAllocationError{
			Resource: "shared memory",
			Size:     size,
			Err:      fmt.Errorf("truncate: %w", err),
		}
	}

	return os.NewFile(uintptr(fd), memfdName), nil
}

// Mapping is a read/write MAP_SHARED view of a shared-memory region.
type Mapping struct {
	data []byte
}

// Map maps size bytes of f into the process.
func Map(f *os.File, size int) (*Mapping, error) {
	if size <= 0 {
		return nil, &errdefs.ResourceAllocationError{
			Resource: "mapping",
			Size:     size,
			Err:      fmt.Errorf("size must be positive, got %d", size),
		}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &errdefs.ResourceAllocationError{Resource: "mapping", Size: size, Err: err}
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped region. The slice is invalid after Unmap.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Pixels returns the mapped region as packed 32-bit pixels. A trailing
// partial pixel, if any, is not included. The slice is invalid after Unmap.
func (m *Mapping) Pixels() []uint32 {
	if len(m.data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&m.data[0])), len(m.data)/4)
}

// Len returns the mapping size in bytes, or 0 once unmapped.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Unmap releases the mapping. Calling it again is a no-op.
func (m *Mapping) Unmap() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
