// Package wlr_layer_shell binds the wlr-layer-shell-unstable-v1 protocol
// for go-wayland clients.
//
// Requests and events follow go-wayland's generated bindings: every
// object embeds client.BaseProxy, registers itself with the Context on
// creation, and dispatches events to a single handler per event type.
package wlr_layer_shell

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/wire"
)

// ZwlrLayerShellV1InterfaceName is the name of the interface as it appears in the [client.Registry].
const ZwlrLayerShellV1InterfaceName = "zwlr_layer_shell_v1"

// ZwlrLayerShellV1 : create surfaces that are layers of the desktop
type ZwlrLayerShellV1 struct {
	client.BaseProxy
}

// NewZwlrLayerShellV1 : create surfaces that are layers of the desktop
func NewZwlrLayerShellV1(ctx *client.Context) *ZwlrLayerShellV1 {
	zwlrLayerShellV1 := &ZwlrLayerShellV1{}
	ctx.Register(zwlrLayerShellV1)
	return zwlrLayerShellV1
}

// GetLayerSurface : create a layer_surface from a surface
//
// A nil output lets the compositor choose one.
func (i *ZwlrLayerShellV1) GetLayerSurface(surface *client.Surface, output *client.Output, layer uint32, namespace string) (*ZwlrLayerSurfaceV1, error) {
	id := NewZwlrLayerSurfaceV1(i.Context())
	var outputID uint32
	if output != nil {
		outputID = output.ID()
	}
	const opcode = 0
	req := wire.NewRequest(i.ID(), opcode).
		NewID(id.ID()).
		Object(surface.ID()).
		Object(outputID).
		Uint(layer).
		String(namespace)
	err := i.Context().WriteMsg(req.Message().Bytes(), nil)
	return id, err
}

// The destroy request only exists from version 3; hyprbar binds version 1
// and leaves the shell to the end of the connection.

// Dispatch has nothing to do: zwlr_layer_shell_v1 has no events.
func (i *ZwlrLayerShellV1) Dispatch(opcode uint16, fd int, data []byte) {}

type ZwlrLayerShellV1Layer uint32

const (
	ZwlrLayerShellV1LayerBackground ZwlrLayerShellV1Layer = 0
	ZwlrLayerShellV1LayerBottom     ZwlrLayerShellV1Layer = 1
	ZwlrLayerShellV1LayerTop        ZwlrLayerShellV1Layer = 2
	ZwlrLayerShellV1LayerOverlay    ZwlrLayerShellV1Layer = 3
)

// ZwlrLayerSurfaceV1InterfaceName is the name of the interface as it appears in the [client.Registry].
const ZwlrLayerSurfaceV1InterfaceName = "zwlr_layer_surface_v1"

// ZwlrLayerSurfaceV1 : layer metadata interface
type ZwlrLayerSurfaceV1 struct {
	client.BaseProxy
	configureHandler ZwlrLayerSurfaceV1ConfigureHandlerFunc
	closedHandler    ZwlrLayerSurfaceV1ClosedHandlerFunc
}

// NewZwlrLayerSurfaceV1 : layer metadata interface
func NewZwlrLayerSurfaceV1(ctx *client.Context) *ZwlrLayerSurfaceV1 {
	zwlrLayerSurfaceV1 := &ZwlrLayerSurfaceV1{}
	ctx.Register(zwlrLayerSurfaceV1)
	return zwlrLayerSurfaceV1
}

func (i *ZwlrLayerSurfaceV1) send(req *wire.Encoder) error {
	return i.Context().WriteMsg(req.Message().Bytes(), nil)
}

// SetSize : sets the size of the surface
//
// A zero axis asks the compositor to choose, which requires anchoring
// the two opposite edges of that axis.
func (i *ZwlrLayerSurfaceV1) SetSize(width, height uint32) error {
	const opcode = 0
	return i.send(wire.NewRequest(i.ID(), opcode).Uint(width).Uint(height))
}

// SetAnchor : configures the anchor point of the surface
func (i *ZwlrLayerSurfaceV1) SetAnchor(anchor uint32) error {
	const opcode = 1
	return i.send(wire.NewRequest(i.ID(), opcode).Uint(anchor))
}

// SetExclusiveZone : configures the exclusive geometry of this surface
func (i *ZwlrLayerSurfaceV1) SetExclusiveZone(zone int32) error {
	const opcode = 2
	return i.send(wire.NewRequest(i.ID(), opcode).Int(zone))
}

// AckConfigure : ack a configure event
func (i *ZwlrLayerSurfaceV1) AckConfigure(serial uint32) error {
	const opcode = 6
	return i.send(wire.NewRequest(i.ID(), opcode).Uint(serial))
}

// Destroy : destroy the layer_surface
func (i *ZwlrLayerSurfaceV1) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 7
	return i.send(wire.NewRequest(i.ID(), opcode))
}

type ZwlrLayerSurfaceV1Anchor uint32

const (
	ZwlrLayerSurfaceV1AnchorTop    ZwlrLayerSurfaceV1Anchor = 1
	ZwlrLayerSurfaceV1AnchorBottom ZwlrLayerSurfaceV1Anchor = 2
	ZwlrLayerSurfaceV1AnchorLeft   ZwlrLayerSurfaceV1Anchor = 4
	ZwlrLayerSurfaceV1AnchorRight  ZwlrLayerSurfaceV1Anchor = 8
)

// ZwlrLayerSurfaceV1ConfigureEvent : suggest a surface change
//
// The client must ack_configure the serial before committing a buffer.
// A zero width or height leaves that axis to the client.
type ZwlrLayerSurfaceV1ConfigureEvent struct {
	Serial uint32
	Width  uint32
	Height uint32
}
type ZwlrLayerSurfaceV1ConfigureHandlerFunc func(ZwlrLayerSurfaceV1ConfigureEvent)

// SetConfigureHandler : sets handler for ZwlrLayerSurfaceV1ConfigureEvent
func (i *ZwlrLayerSurfaceV1) SetConfigureHandler(f ZwlrLayerSurfaceV1ConfigureHandlerFunc) {
	i.configureHandler = f
}

// ZwlrLayerSurfaceV1ClosedEvent : surface should be closed
type ZwlrLayerSurfaceV1ClosedEvent struct{}
type ZwlrLayerSurfaceV1ClosedHandlerFunc func(ZwlrLayerSurfaceV1ClosedEvent)

// SetClosedHandler : sets handler for ZwlrLayerSurfaceV1ClosedEvent
func (i *ZwlrLayerSurfaceV1) SetClosedHandler(f ZwlrLayerSurfaceV1ClosedHandlerFunc) {
	i.closedHandler = f
}

func (i *ZwlrLayerSurfaceV1) Dispatch(opcode uint16, fd int, data []byte) {
	switch opcode {
	case 0:
		if i.configureHandler == nil {
			return
		}
		var e ZwlrLayerSurfaceV1ConfigureEvent
		d := wire.NewDecoder(data)
		e.Serial = d.Uint()
		e.Width = d.Uint()
		e.Height = d.Uint()
		if d.Err() != nil {
			return
		}
		i.configureHandler(e)
	case 1:
		if i.closedHandler == nil {
			return
		}
		var e ZwlrLayerSurfaceV1ClosedEvent
		i.closedHandler(e)
	}
}
