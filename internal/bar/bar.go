// Package bar implements a single layer-shell bar: the configuration it
// is created from, the state machine that drives its surface through
// registration, configuration and painting, and the Canvas a frame is
// painted into.
package bar

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/errdefs"
	"github.com/1broseidon/hyprbar/internal/proto/wlr_layer_shell"
)

// Position is the screen edge a bar is anchored to.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
)

// Valid reports whether p is one of the four edges.
func (p Position) Valid() bool {
	switch p {
	case PositionTop, PositionBottom, PositionLeft, PositionRight:
		return true
	}
	return false
}

// Horizontal reports whether the bar spans the width of the output.
func (p Position) Horizontal() bool {
	return p == PositionTop || p == PositionBottom
}

const (
	anchorTop    = wlr_layer_shell.ZwlrLayerSurfaceV1AnchorTop
	anchorBottom = wlr_layer_shell.ZwlrLayerSurfaceV1AnchorBottom
	anchorLeft   = wlr_layer_shell.ZwlrLayerSurfaceV1AnchorLeft
	anchorRight  = wlr_layer_shell.ZwlrLayerSurfaceV1AnchorRight
)

func (p Position) anchor() uint32 {
	var a wlr_layer_shell.ZwlrLayerSurfaceV1Anchor
	switch p {
	case PositionBottom:
		a = anchorLeft | anchorRight | anchorBottom
	case PositionLeft:
		a = anchorTop | anchorBottom | anchorLeft
	case PositionRight:
		a = anchorTop | anchorBottom | anchorRight
	default:
		a = anchorLeft | anchorRight | anchorTop
	}
	return uint32(a)
}

// MaxSize is the largest bar thickness accepted. It keeps every size
// derived from it, including a full frame's byte count, within the
// protocol's 32-bit fields.
const MaxSize = 4096

// Config describes one bar. Size is the thickness in pixels: the height
// of a top or bottom bar, the width of a left or right one.
type Config struct {
	Position Position `yaml:"position" json:"position"`
	Size     int      `yaml:"size" json:"size"`
	Pattern  Pattern  `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// Validate checks the position, size and pattern.
func (c Config) Validate() error {
	if !c.Position.Valid() {
		return fmt.Errorf("invalid position %q (expected top, bottom, left or right)", c.Position)
	}
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.Size > MaxSize {
		return fmt.Errorf("size must be at most %d, got %d", MaxSize, c.Size)
	}
	if !c.Pattern.Valid() {
		return fmt.Errorf("invalid pattern %q (expected gradient or band)", c.Pattern)
	}
	return nil
}

// requestedSize is the size passed to set_size. The axis along the edge
// is 0 so the compositor stretches the bar between the anchors.
func (c Config) requestedSize() (width, height uint32) {
	if c.Position.Horizontal() {
		return 0, uint32(c.Size)
	}
	return uint32(c.Size), 0
}

// State is the lifecycle state of a Bar.
type State int

const (
	StateCreated State = iota
	StateRegistered
	StateConfigured
	StatePainting
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRegistered:
		return "registered"
	case StateConfigured:
		return "configured"
	case StatePainting:
		return "painting"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Surface is the part of wl_surface a bar uses.
type Surface interface {
	SetBufferScale(scale int32) error
	Attach(buffer *client.Buffer, x, y int32) error
	DamageBuffer(x, y, width, height int32) error
	Commit() error
	Destroy() error
}

// LayerSurface is the part of zwlr_layer_surface_v1 a bar uses.
type LayerSurface interface {
	SetSize(width, height uint32) error
	SetAnchor(anchor uint32) error
	SetExclusiveZone(zone int32) error
	AckConfigure(serial uint32) error
	Destroy() error
}

// Destroyer is any protocol object the bar owns and must destroy.
type Destroyer interface {
	Destroy() error
}

// BufferFactory wraps a shared-memory file into a compositor buffer in
// ARGB8888 format. The factory owns the returned buffer until the
// compositor releases it.
type BufferFactory interface {
	CreateBuffer(f *os.File, size, width, height, stride int32) (*client.Buffer, error)
}

// Bar is one layer-shell bar. Width and height are only meaningful once
// the bar is configured; the first configure event fixes them for the
// bar's lifetime.
type Bar struct {
	cfg  Config
	fill func(x, y int) uint32

	surface Surface
	layer   LayerSurface
	output  Destroyer

	state      State
	configured bool
	closed     bool
	width      int
	height     int
	frames     int
}

// New returns a bar in the Created state.
func New(cfg Config) (*Bar, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = PatternGradient
	}
	if err := cfg.Validate(); err != nil {
		return nil, &errdefs.ConfigurationError{What: "bar", Err: err}
	}
	return &Bar{cfg: cfg, fill: cfg.Pattern.fill()}, nil
}

// Config returns the configuration the bar was created from.
func (b *Bar) Config() Config { return b.cfg }

// State returns the current lifecycle state.
func (b *Bar) State() State { return b.state }

// Configured reports whether the compositor has sized the bar.
func (b *Bar) Configured() bool { return b.configured }

// Closed reports whether the compositor has closed the bar's layer
// surface.
func (b *Bar) Closed() bool { return b.closed }

// Active reports whether the bar should be repainted.
func (b *Bar) Active() bool {
	return b.configured && !b.closed && b.state != StateDestroyed
}

// Width returns the configured width in pixels.
func (b *Bar) Width() int { return b.width }

// Height returns the configured height in pixels.
func (b *Bar) Height() int { return b.height }

// Stride returns the length of one pixel row in bytes.
func (b *Bar) Stride() int { return b.width * 4 }

// BufSize returns the size of one frame in bytes.
func (b *Bar) BufSize() int { return b.Stride() * b.height }

// Frames returns the number of frames painted so far.
func (b *Bar) Frames() int { return b.frames }

// Register gives the bar its surface and layer surface, requests the
// bar's size, anchors and exclusive zone, and commits the surface with no
// buffer so the compositor answers with a configure event.
func (b *Bar) Register(surface Surface, layer LayerSurface) error {
	if b.state != StateCreated {
		return fmt.Errorf("register %s bar: already %s", b.cfg.Position, b.state)
	}
	b.surface = surface
	b.layer = layer

	w, h := b.cfg.requestedSize()
	if err := layer.SetSize(w, h); err != nil {
		return err
	}
	if err := layer.SetAnchor(b.cfg.Position.anchor()); err != nil {
		return err
	}
	if err := layer.SetExclusiveZone(int32(b.cfg.Size)); err != nil {
		return err
	}
	if err := surface.Commit(); err != nil {
		return err
	}
	b.state = StateRegistered
	return nil
}

// AttachOutput hands the bar an output-scoped object (its xdg output) to
// destroy along with the surfaces.
func (b *Bar) AttachOutput(output Destroyer) {
	b.output = output
}

// HandleConfigure acknowledges a configure event. The first one fixes the
// bar's size and moves it to Configured; first is true exactly then, and
// the caller is expected to paint. Later events are acknowledged and
// otherwise ignored.
func (b *Bar) HandleConfigure(ev wlr_layer_shell.ZwlrLayerSurfaceV1ConfigureEvent) (first bool, err error) {
	switch b.state {
	case StateDestroyed:
		return false, nil
	case StateCreated:
		return false, fmt.Errorf("configure for unregistered %s bar", b.cfg.Position)
	}
	if err := b.layer.AckConfigure(ev.Serial); err != nil {
		return false, err
	}
	if b.configured {
		return false, nil
	}

	// Zero on an axis lets the client choose; fall back to the request.
	w, h := ev.Width, ev.Height
	reqW, reqH := b.cfg.requestedSize()
	if w == 0 {
		w = reqW
	}
	if h == 0 {
		h = reqH
	}
	if w == 0 || h == 0 {
		return false, fmt.Errorf("configure for %s bar left it %dx%d", b.cfg.Position, w, h)
	}
	if uint64(w)*uint64(h)*4 > math.MaxInt32 {
		return false, fmt.Errorf("configure for %s bar: %dx%d does not fit one shm pool", b.cfg.Position, w, h)
	}

	b.width = int(w)
	b.height = int(h)
	b.configured = true
	b.state = StateConfigured
	return true, nil
}

// HandleClosed records that the compositor closed the layer surface. A
// closed bar is no longer painted.
func (b *Bar) HandleClosed() {
	b.closed = true
}

// Paint renders one full frame with the bar's pattern and commits it.
func (b *Bar) Paint(buffers BufferFactory) error {
	if b.state != StateConfigured {
		return fmt.Errorf("paint %s bar: %s, not configured", b.cfg.Position, b.state)
	}
	if b.closed {
		return fmt.Errorf("paint %s bar: layer surface closed", b.cfg.Position)
	}

	b.state = StatePainting
	defer func() { b.state = StateConfigured }()

	c, err := NewCanvas(b, buffers)
	if err != nil {
		return err
	}
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if err := c.SetPixel(x, y, b.fill(x, y)); err != nil {
				return errors.Join(err, c.Close())
			}
		}
	}
	if err := c.Close(); err != nil {
		return err
	}
	b.frames++
	return nil
}

// Destroy destroys the layer surface, the attached output object and the
// surface, in that order. Destroying twice is a no-op.
func (b *Bar) Destroy() error {
	if b.state == StateDestroyed {
		return nil
	}
	var errs []error
	if b.layer != nil {
		errs = append(errs, b.layer.Destroy())
	}
	if b.output != nil {
		errs = append(errs, b.output.Destroy())
	}
	if b.surface != nil {
		errs = append(errs, b.surface.Destroy())
	}
	b.state = StateDestroyed
	return errors.Join(errs...)
}
