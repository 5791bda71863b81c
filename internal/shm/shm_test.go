package shm

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

func TestAllocate_ExactSizeAndCloseOnExec(t *testing.T) {
	const size = 1920 * 32 * 4

	f, err := Allocate(size)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != size {
		t.Fatalf("size = %d, want %d", info.Size(), size)
	}

	flags, err := unix.FcntlInt(f.Fd(), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("fcntl: %v", err)
	}
	if flags&unix.FD_CLOEXEC == 0 {
		t.Fatalf("expected FD_CLOEXEC to be set, flags=%#x", flags)
	}
}

func TestAllocate_RejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -4} {
		_, err := Allocate(size)
		var allocErr *errdefs.ResourceAllocationError
		if !errors.As(err, &allocErr) {
			t.Fatalf("Allocate(%d) error = %v, want ResourceAllocationError", size, err)
		}
	}
}

func TestMap_WritesAreVisibleThroughTheFile(t *testing.T) {
	f, err := Allocate(16)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	defer f.Close()

	m, err := Map(f, 16)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	px := m.Pixels()
	if len(px) != 4 {
		t.Fatalf("len(Pixels()) = %d, want 4", len(px))
	}
	px[3] = 0xFF00FF00

	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, 12); err != nil {
		t.Fatalf("read back: %v", err)
	}
	got := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	if got != 0xFF00FF00 && got != 0x00FF00FF {
		t.Fatalf("read back %#x", got)
	}

	if err := m.Unmap(); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len after Unmap = %d", m.Len())
	}
	if err := m.Unmap(); err != nil {
		t.Fatalf("second Unmap: %v", err)
	}
}
