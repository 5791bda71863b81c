package wltest

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/hyprbar/internal/wire"
)

const (
	anchorTop    = 1
	anchorBottom = 2
	anchorLeft   = 4
	anchorRight  = 8
)

func (s *Server) handleDisplay(opcode uint16, dec *wire.Decoder) error {
	id := dec.Uint()
	if dec.Err() != nil {
		return nil
	}
	switch opcode {
	case 0: // sync
		s.event(wire.NewEvent(id, 0).Uint(s.nextSerial()))
		s.event(wire.NewEvent(1, 1).Uint(id))
	case 1: // get_registry
		if err := s.newObject(id, "wl_registry", 1); err != nil {
			return err
		}
		for i, g := range s.globals {
			s.event(wire.NewEvent(id, 0).Uint(uint32(i+1)).String(g.Interface).Uint(g.Version))
		}
	}
	return nil
}

// handleRegistry binds a global and returns its interface name.
func (s *Server) handleRegistry(object uint32, dec *wire.Decoder) (string, error) {
	name := dec.Uint()
	iface := dec.String()
	version := dec.Uint()
	id := dec.Uint()
	if dec.Err() != nil {
		return iface, nil
	}
	if name == 0 || int(name) > len(s.globals) {
		return iface, protocolError(object, 0, "invalid global %s (%d)", iface, name)
	}
	g := s.globals[name-1]
	if g.Interface != iface {
		return iface, protocolError(object, 0, "invalid interface for global %d: have %s, wanted %s", name, iface, g.Interface)
	}
	if version == 0 || version > g.Version {
		return iface, protocolError(object, 0, "invalid version for global %s (%d): have %d, wanted %d", iface, name, version, g.Version)
	}
	if err := s.newObject(id, iface, version); err != nil {
		return iface, err
	}

	switch iface {
	case "wl_shm":
		s.event(wire.NewEvent(id, 0).Uint(0))
		s.event(wire.NewEvent(id, 0).Uint(1))
	case "wl_output":
		s.event(wire.NewEvent(id, 0).
			Int(0).Int(0).
			Int(600).Int(340).
			Int(0).
			String("wltest").String("virtual").
			Int(0))
		s.event(wire.NewEvent(id, 1).Uint(3).Int(s.opts.OutputWidth).Int(s.opts.OutputHeight).Int(60000))
		if version >= 2 {
			s.event(wire.NewEvent(id, 3).Int(1))
		}
		if version >= 4 {
			s.event(wire.NewEvent(id, 4).String("WL-1"))
			s.event(wire.NewEvent(id, 5).String("wltest virtual output"))
		}
		if version >= 2 {
			s.event(wire.NewEvent(id, 2))
		}
	}
	return iface, nil
}

func (s *Server) handleCompositor(object uint32, opcode uint16, dec *wire.Decoder) error {
	id := dec.Uint()
	if dec.Err() != nil {
		return nil
	}
	iface := "wl_surface"
	if opcode == 1 {
		iface = "wl_region"
	}
	if err := s.newObject(id, iface, s.versions[object]); err != nil {
		return err
	}
	if opcode == 0 {
		s.surfaces[id] = &surface{id: id, scale: 1}
	}
	return nil
}

func (s *Server) handleSurface(object uint32, opcode uint16, dec *wire.Decoder) error {
	surf := s.surfaces[object]
	switch opcode {
	case 0: // destroy
		if surf.layer != nil && !surf.layer.Destroyed {
			return protocolError(object, 0, "wl_surface destroyed before its role object")
		}
		delete(s.surfaces, object)
		s.deleteObject(object)
	case 1: // attach
		surf.pending = dec.Object()
		dec.Int()
		dec.Int()
		surf.attached = true
	case 8: // set_buffer_scale
		scale := dec.Int()
		if scale < 1 {
			return protocolError(object, 0, "buffer scale must be at least one (%d specified)", scale)
		}
		surf.scale = scale
	case 6: // commit
		return s.commit(surf)
	}
	return nil
}

func (s *Server) commit(surf *surface) error {
	ls := surf.layer
	if ls != nil && !ls.Configured {
		if surf.attached && surf.pending != 0 {
			return protocolError(ls.ID, 0, "layer surface has a buffer attached before the initial configure")
		}
		width, height := ls.Width, ls.Height
		if width == 0 {
			if ls.Anchor&(anchorLeft|anchorRight) != anchorLeft|anchorRight {
				return protocolError(ls.ID, 1, "width 0 requested without setting left and right anchors")
			}
			width = uint32(s.opts.OutputWidth)
		}
		if height == 0 {
			if ls.Anchor&(anchorTop|anchorBottom) != anchorTop|anchorBottom {
				return protocolError(ls.ID, 1, "height 0 requested without setting top and bottom anchors")
			}
			height = uint32(s.opts.OutputHeight)
		}
		ls.Configured = true
		s.event(wire.NewEvent(ls.ID, 0).Uint(s.nextSerial()).Uint(width).Uint(height))
		surf.attached = false
		return nil
	}

	if !surf.attached || surf.pending == 0 {
		surf.attached = false
		return nil
	}
	surf.attached = false
	if ls != nil && ls.AckedSerial == 0 {
		return protocolError(ls.ID, 0, "layer surface committed a buffer without acking a configure")
	}
	b, ok := s.buffers[surf.pending]
	if !ok {
		return protocolError(surf.id, 0, "attached buffer %d does not exist", surf.pending)
	}
	data := make([]byte, int(b.stride)*int(b.height))
	if _, err := unix.Pread(b.fd, data, int64(b.offset)); err != nil {
		return err
	}
	s.frames = append(s.frames, Frame{
		Surface: surf.id,
		Buffer:  surf.pending,
		Width:   b.width,
		Height:  b.height,
		Stride:  b.stride,
		Format:  b.format,
		Scale:   surf.scale,
		Data:    data,
	})
	if prev := surf.current; prev != 0 && prev != surf.pending {
		s.release(prev)
	}
	surf.current = surf.pending
	return nil
}

// release hands a buffer the compositor has stopped reading back to the
// client. Buffers the client already destroyed are skipped.
func (s *Server) release(id uint32) {
	if _, ok := s.buffers[id]; !ok {
		return
	}
	s.event(wire.NewEvent(id, 0))
	s.requests = append(s.requests, fmt.Sprintf("event wl_buffer#%d.release", id))
}

func (s *Server) handleShm(object uint32, opcode uint16, dec *wire.Decoder) error {
	if opcode != 0 {
		s.deleteObject(object)
		return nil
	}
	id := dec.Uint()
	size := dec.Int()
	if dec.Err() != nil {
		return nil
	}
	fd, ok := s.conn.takeFD()
	if !ok {
		return protocolError(object, 2, "create_pool without a file descriptor")
	}
	if size <= 0 {
		unix.Close(fd)
		return protocolError(object, 2, "invalid size (%d)", size)
	}
	if err := s.newObject(id, "wl_shm_pool", 1); err != nil {
		unix.Close(fd)
		return err
	}
	s.pools[id] = &pool{fd: fd, size: size}
	return nil
}

func (s *Server) handleShmPool(object uint32, opcode uint16, dec *wire.Decoder) error {
	p := s.pools[object]
	switch opcode {
	case 0: // create_buffer
		id := dec.Uint()
		offset := dec.Int()
		width := dec.Int()
		height := dec.Int()
		stride := dec.Int()
		format := dec.Uint()
		if dec.Err() != nil {
			return nil
		}
		if format > 1 {
			return protocolError(object, 0, "invalid format 0x%x", format)
		}
		if offset < 0 || width <= 0 || height <= 0 || stride < width*4 ||
			int64(offset)+int64(stride)*int64(height) > int64(p.size) {
			return protocolError(object, 1, "invalid width, height or stride (%dx%d, %d)", width, height, stride)
		}
		fd, err := unix.Dup(p.fd)
		if err != nil {
			return err
		}
		if err := s.newObject(id, "wl_buffer", 1); err != nil {
			unix.Close(fd)
			return err
		}
		s.buffers[id] = &buffer{fd: fd, offset: offset, width: width, height: height, stride: stride, format: format}
	case 1: // destroy
		unix.Close(p.fd)
		delete(s.pools, object)
		s.deleteObject(object)
	case 2: // resize
		size := dec.Int()
		if dec.Err() == nil && size >= p.size {
			p.size = size
		}
	}
	return nil
}

func (s *Server) handleBuffer(object uint32) error {
	if b, ok := s.buffers[object]; ok {
		unix.Close(b.fd)
		delete(s.buffers, object)
	}
	for _, surf := range s.surfaces {
		if surf.current == object {
			surf.current = 0
		}
	}
	s.deleteObject(object)
	return nil
}

func (s *Server) handleLayerShell(object uint32, opcode uint16, dec *wire.Decoder) error {
	if opcode == 1 {
		s.deleteObject(object)
		return nil
	}
	id := dec.Uint()
	surfaceID := dec.Object()
	outputID := dec.Object()
	layer := dec.Uint()
	namespace := dec.String()
	if dec.Err() != nil {
		return nil
	}
	surf, ok := s.surfaces[surfaceID]
	if !ok {
		return protocolError(object, 0, "get_layer_surface on unknown surface %d", surfaceID)
	}
	if surf.layer != nil {
		return protocolError(object, 0, "wl_surface@%d already has a role", surfaceID)
	}
	if layer > 3 {
		return protocolError(object, 2, "invalid layer %d", layer)
	}
	if err := s.newObject(id, "zwlr_layer_surface_v1", s.versions[object]); err != nil {
		return err
	}
	ls := &LayerSurface{ID: id, Surface: surfaceID, Output: outputID, Layer: layer, Namespace: namespace}
	surf.layer = ls
	s.layers[id] = ls
	s.order = append(s.order, ls)
	return nil
}

func (s *Server) handleLayerSurface(object uint32, opcode uint16, dec *wire.Decoder) error {
	ls := s.layers[object]
	switch opcode {
	case 0: // set_size
		ls.Width = dec.Uint()
		ls.Height = dec.Uint()
	case 1: // set_anchor
		anchor := dec.Uint()
		if anchor > anchorTop|anchorBottom|anchorLeft|anchorRight {
			return protocolError(object, 2, "invalid anchor %d", anchor)
		}
		ls.Anchor = anchor
	case 2: // set_exclusive_zone
		ls.ExclusiveZone = dec.Int()
	case 6: // ack_configure
		serial := dec.Uint()
		if dec.Err() == nil {
			if serial == 0 || serial > s.serial {
				return protocolError(object, 0, "ack_configure with unknown serial %d", serial)
			}
			ls.AckedSerial = serial
		}
	case 7: // destroy
		ls.Destroyed = true
		delete(s.layers, object)
		s.deleteObject(object)
	}
	return nil
}

func (s *Server) handleXdgOutputManager(object uint32, opcode uint16, dec *wire.Decoder) error {
	if opcode == 0 {
		s.deleteObject(object)
		return nil
	}
	id := dec.Uint()
	outputID := dec.Object()
	if dec.Err() != nil {
		return nil
	}
	if s.objects[outputID] != "wl_output" {
		return protocolError(object, 0, "get_xdg_output on non-output object %d", outputID)
	}
	version := s.versions[object]
	if err := s.newObject(id, "zxdg_output_v1", version); err != nil {
		return err
	}
	s.event(wire.NewEvent(id, 0).Int(0).Int(0))
	s.event(wire.NewEvent(id, 1).Int(s.opts.OutputWidth).Int(s.opts.OutputHeight))
	if version >= 2 {
		s.event(wire.NewEvent(id, 3).String("WL-1"))
		s.event(wire.NewEvent(id, 4).String("wltest virtual output"))
	}
	if version < 3 {
		s.event(wire.NewEvent(id, 2))
	}
	return nil
}
