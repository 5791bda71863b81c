package bar

import (
	"errors"
	"fmt"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/errdefs"
	"github.com/1broseidon/hyprbar/internal/shm"
)

// Canvas is one frame's pixel buffer for a bar. It owns the mapping and
// the shared-memory file; the compositor buffer created from them belongs
// to the BufferFactory. The size is taken from the bar when the canvas is
// created.
type Canvas struct {
	bar     *Bar
	width   int
	height  int
	file    *os.File
	mapping *shm.Mapping
	pixels  []uint32
	buffer  *client.Buffer
	closed  bool
}

// NewCanvas allocates and maps a frame for the configured bar b and wraps
// it in a compositor buffer.
func NewCanvas(b *Bar, buffers BufferFactory) (*Canvas, error) {
	if !b.configured {
		return nil, fmt.Errorf("canvas for %s bar: not configured", b.cfg.Position)
	}
	size := b.BufSize()

	f, err := shm.Allocate(size)
	if err != nil {
		return nil, err
	}
	m, err := shm.Map(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	buf, err := buffers.CreateBuffer(f, int32(size), int32(b.width), int32(b.height), int32(b.Stride()))
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}

	return &Canvas{
		bar:     b,
		width:   b.width,
		height:  b.height,
		file:    f,
		mapping: m,
		pixels:  m.Pixels()[:b.width*b.height],
		buffer:  buf,
	}, nil
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

func (c *Canvas) inBounds(x, y int) bool {
	return x >= 0 && x < c.width && y >= 0 && y < c.height
}

// SetPixel writes color at x, y. Points outside the canvas are rejected
// with a *errdefs.BoundsError and nothing is written.
func (c *Canvas) SetPixel(x, y int, color uint32) error {
	if c.closed {
		return errors.New("canvas is closed")
	}
	if !c.inBounds(x, y) {
		return &errdefs.BoundsError{X: x, Y: y, Width: c.width, Height: c.height}
	}
	c.pixels[y*c.width+x] = color
	return nil
}

// Pixel reads the color at x, y.
func (c *Canvas) Pixel(x, y int) (uint32, error) {
	if c.closed {
		return 0, errors.New("canvas is closed")
	}
	if !c.inBounds(x, y) {
		return 0, &errdefs.BoundsError{X: x, Y: y, Width: c.width, Height: c.height}
	}
	return c.pixels[y*c.width+x], nil
}

// Close presents the frame: it unmaps the pixels, attaches the buffer at
// scale 1, damages all of it and commits, then closes the shared-memory
// file. Every step runs even if an earlier one fails. Closing twice is a
// no-op.
func (c *Canvas) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pixels = nil

	var errs []error
	if err := c.mapping.Unmap(); err != nil {
		errs = append(errs, err)
	}
	s := c.bar.surface
	if err := s.SetBufferScale(1); err != nil {
		errs = append(errs, fmt.Errorf("set buffer scale: %w", err))
	}
	if err := s.Attach(c.buffer, 0, 0); err != nil {
		errs = append(errs, fmt.Errorf("attach: %w", err))
	}
	if err := s.DamageBuffer(0, 0, int32(c.width), int32(c.height)); err != nil {
		errs = append(errs, fmt.Errorf("damage: %w", err))
	}
	if err := s.Commit(); err != nil {
		errs = append(errs, fmt.Errorf("commit: %w", err))
	}
	if err := c.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
