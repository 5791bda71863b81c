// Package xdg_output binds the xdg-output-unstable-v1 protocol for
// go-wayland clients.
package xdg_output

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/wire"
)

// ZxdgOutputManagerV1InterfaceName is the name of the interface as it appears in the [client.Registry].
const ZxdgOutputManagerV1InterfaceName = "zxdg_output_manager_v1"

// ZxdgOutputManagerV1 : manage xdg_output objects
type ZxdgOutputManagerV1 struct {
	client.BaseProxy
}

// NewZxdgOutputManagerV1 : manage xdg_output objects
func NewZxdgOutputManagerV1(ctx *client.Context) *ZxdgOutputManagerV1 {
	zxdgOutputManagerV1 := &ZxdgOutputManagerV1{}
	ctx.Register(zxdgOutputManagerV1)
	return zxdgOutputManagerV1
}

// Destroy : destroy the xdg_output_manager object
//
// Outputs already created stay valid.
func (i *ZxdgOutputManagerV1) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 0
	return i.Context().WriteMsg(wire.NewRequest(i.ID(), opcode).Message().Bytes(), nil)
}

// GetXdgOutput : create an xdg output from a wl_output
func (i *ZxdgOutputManagerV1) GetXdgOutput(output *client.Output) (*ZxdgOutputV1, error) {
	id := NewZxdgOutputV1(i.Context())
	const opcode = 1
	req := wire.NewRequest(i.ID(), opcode).NewID(id.ID()).Object(output.ID())
	err := i.Context().WriteMsg(req.Message().Bytes(), nil)
	return id, err
}

// Dispatch has nothing to do: zxdg_output_manager_v1 has no events.
func (i *ZxdgOutputManagerV1) Dispatch(opcode uint16, fd int, data []byte) {}

// ZxdgOutputV1InterfaceName is the name of the interface as it appears in the [client.Registry].
const ZxdgOutputV1InterfaceName = "zxdg_output_v1"

// ZxdgOutputV1 : compositor logical output region
type ZxdgOutputV1 struct {
	client.BaseProxy
	logicalPositionHandler ZxdgOutputV1LogicalPositionHandlerFunc
	logicalSizeHandler     ZxdgOutputV1LogicalSizeHandlerFunc
	doneHandler            ZxdgOutputV1DoneHandlerFunc
	nameHandler            ZxdgOutputV1NameHandlerFunc
	descriptionHandler     ZxdgOutputV1DescriptionHandlerFunc
}

// NewZxdgOutputV1 : compositor logical output region
func NewZxdgOutputV1(ctx *client.Context) *ZxdgOutputV1 {
	zxdgOutputV1 := &ZxdgOutputV1{}
	ctx.Register(zxdgOutputV1)
	return zxdgOutputV1
}

// Destroy : destroy the xdg_output object
func (i *ZxdgOutputV1) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 0
	return i.Context().WriteMsg(wire.NewRequest(i.ID(), opcode).Message().Bytes(), nil)
}

// ZxdgOutputV1LogicalPositionEvent : position of the output within the global compositor space
type ZxdgOutputV1LogicalPositionEvent struct {
	X int32
	Y int32
}
type ZxdgOutputV1LogicalPositionHandlerFunc func(ZxdgOutputV1LogicalPositionEvent)

// SetLogicalPositionHandler : sets handler for ZxdgOutputV1LogicalPositionEvent
func (i *ZxdgOutputV1) SetLogicalPositionHandler(f ZxdgOutputV1LogicalPositionHandlerFunc) {
	i.logicalPositionHandler = f
}

// ZxdgOutputV1LogicalSizeEvent : size of the output in the global compositor space
type ZxdgOutputV1LogicalSizeEvent struct {
	Width  int32
	Height int32
}
type ZxdgOutputV1LogicalSizeHandlerFunc func(ZxdgOutputV1LogicalSizeEvent)

// SetLogicalSizeHandler : sets handler for ZxdgOutputV1LogicalSizeEvent
func (i *ZxdgOutputV1) SetLogicalSizeHandler(f ZxdgOutputV1LogicalSizeHandlerFunc) {
	i.logicalSizeHandler = f
}

// ZxdgOutputV1DoneEvent : all information about the output have been sent
//
// Only sent before version 3; later compositors use wl_output.done.
type ZxdgOutputV1DoneEvent struct{}
type ZxdgOutputV1DoneHandlerFunc func(ZxdgOutputV1DoneEvent)

// SetDoneHandler : sets handler for ZxdgOutputV1DoneEvent
func (i *ZxdgOutputV1) SetDoneHandler(f ZxdgOutputV1DoneHandlerFunc) {
	i.doneHandler = f
}

// ZxdgOutputV1NameEvent : name of this output
type ZxdgOutputV1NameEvent struct {
	Name string
}
type ZxdgOutputV1NameHandlerFunc func(ZxdgOutputV1NameEvent)

// SetNameHandler : sets handler for ZxdgOutputV1NameEvent
func (i *ZxdgOutputV1) SetNameHandler(f ZxdgOutputV1NameHandlerFunc) {
	i.nameHandler = f
}

// ZxdgOutputV1DescriptionEvent : human-readable description of this output
type ZxdgOutputV1DescriptionEvent struct {
	Description string
}
type ZxdgOutputV1DescriptionHandlerFunc func(ZxdgOutputV1DescriptionEvent)

// SetDescriptionHandler : sets handler for ZxdgOutputV1DescriptionEvent
func (i *ZxdgOutputV1) SetDescriptionHandler(f ZxdgOutputV1DescriptionHandlerFunc) {
	i.descriptionHandler = f
}

func (i *ZxdgOutputV1) Dispatch(opcode uint16, fd int, data []byte) {
	d := wire.NewDecoder(data)
	switch opcode {
	case 0:
		if i.logicalPositionHandler == nil {
			return
		}
		e := ZxdgOutputV1LogicalPositionEvent{X: d.Int(), Y: d.Int()}
		if d.Err() == nil {
			i.logicalPositionHandler(e)
		}
	case 1:
		if i.logicalSizeHandler == nil {
			return
		}
		e := ZxdgOutputV1LogicalSizeEvent{Width: d.Int(), Height: d.Int()}
		if d.Err() == nil {
			i.logicalSizeHandler(e)
		}
	case 2:
		if i.doneHandler == nil {
			return
		}
		i.doneHandler(ZxdgOutputV1DoneEvent{})
	case 3:
		if i.nameHandler == nil {
			return
		}
		e := ZxdgOutputV1NameEvent{Name: d.String()}
		if d.Err() == nil {
			i.nameHandler(e)
		}
	case 4:
		if i.descriptionHandler == nil {
			return
		}
		e := ZxdgOutputV1DescriptionEvent{Description: d.String()}
		if d.Err() == nil {
			i.descriptionHandler(e)
		}
	}
}
