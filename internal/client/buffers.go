package client

import (
	"errors"
	"os"

	wl "github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

// shmBuffers wraps frames into wl_buffers and holds each one until the
// compositor releases it. The mapping and file behind a buffer belong to
// the canvas that painted it.
type shmBuffers struct {
	shm      *wl.Shm
	inFlight map[uint32]*wl.Buffer
}

func newShmBuffers(shm *wl.Shm) *shmBuffers {
	return &shmBuffers{
		shm:      shm,
		inFlight: make(map[uint32]*wl.Buffer),
	}
}

// CreateBuffer creates a single-buffer pool over f, an ARGB8888 buffer at
// offset 0 and destroys the pool again.
func (s *shmBuffers) CreateBuffer(f *os.File, size, width, height, stride int32) (*wl.Buffer, error) {
	pool, err := s.shm.CreatePool(int(f.Fd()), size)
	if err != nil {
		return nil, &errdefs.ConnectionError{Op: "create shm pool", Err: err}
	}
	buf, err := pool.CreateBuffer(0, width, height, stride, uint32(wl.ShmFormatArgb8888))
	if err != nil {
		pool.Destroy()
		return nil, &errdefs.ConnectionError{Op: "create buffer", Err: err}
	}
	if err := pool.Destroy(); err != nil {
		buf.Destroy()
		return nil, &errdefs.ConnectionError{Op: "destroy shm pool", Err: err}
	}

	s.inFlight[buf.ID()] = buf
	buf.SetReleaseHandler(func(wl.BufferReleaseEvent) {
		s.release(buf)
	})
	return buf, nil
}

// release destroys a buffer the compositor no longer reads from.
func (s *shmBuffers) release(buf *wl.Buffer) {
	if _, ok := s.inFlight[buf.ID()]; !ok {
		return
	}
	delete(s.inFlight, buf.ID())
	buf.Destroy()
}

// InFlight returns the number of buffers the compositor has not released.
func (s *shmBuffers) InFlight() int {
	return len(s.inFlight)
}

// DestroyAll destroys every unreleased buffer.
func (s *shmBuffers) DestroyAll() error {
	var errs []error
	for id, buf := range s.inFlight {
		delete(s.inFlight, id)
		errs = append(errs, buf.Destroy())
	}
	return errors.Join(errs...)
}
