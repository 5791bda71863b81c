// Package wltest runs a fake Wayland compositor on a Unix socket, for
// tests that drive hyprbar's client code through go-wayland.
//
// The fake implements just enough server-side behaviour for a layer-shell
// client: registry globals, sync callbacks, shm pools and buffers (the
// pixels of every committed buffer are copied out as a Frame), outputs,
// xdg-output and layer surfaces, including the initial configure sent in
// response to a layer surface's first commit. A committed buffer is
// released once the next one replaces it. Every request is recorded as
// "interface#id.request" and every release as "event wl_buffer#id.release"
// so tests can assert ordering.
package wltest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/hyprbar/internal/wire"
)

// Global is a global the fake advertises through wl_registry. Globals are
// numbered from 1 in slice order.
type Global struct {
	Interface string
	Version   uint32
}

// DefaultGlobals returns the globals a typical wlroots compositor
// advertises to a layer-shell client.
func DefaultGlobals() []Global {
	return []Global{
		{Interface: "wl_compositor", Version: 6},
		{Interface: "wl_shm", Version: 1},
		{Interface: "wl_output", Version: 4},
		{Interface: "zwlr_layer_shell_v1", Version: 4},
		{Interface: "zxdg_output_manager_v1", Version: 3},
	}
}

// WithoutGlobal returns globals minus every entry for iface.
func WithoutGlobal(globals []Global, iface string) []Global {
	var out []Global
	for _, g := range globals {
		if g.Interface != iface {
			out = append(out, g)
		}
	}
	return out
}

// Options configures a fake compositor.
type Options struct {
	// Globals defaults to DefaultGlobals.
	Globals []Global

	// OutputWidth and OutputHeight are the mode of the single output;
	// they default to 1920x1080.
	OutputWidth, OutputHeight int32

	// MaxFrames makes the fake hang up once that many buffers have been
	// committed. Zero means never.
	MaxFrames int
}

// Frame is a committed buffer.
type Frame struct {
	Surface uint32
	Buffer  uint32
	Width   int32
	Height  int32
	Stride  int32
	Format  uint32
	Scale   int32
	Data    []byte
}

// Pixel returns the ARGB pixel at x, y.
func (f Frame) Pixel(x, y int) uint32 {
	off := y*int(f.Stride) + x*4
	return binary.NativeEndian.Uint32(f.Data[off : off+4])
}

// LayerSurface is a snapshot of a zwlr_layer_surface_v1 as seen by the
// compositor.
type LayerSurface struct {
	ID            uint32
	Surface       uint32
	Output        uint32
	Layer         uint32
	Namespace     string
	Width         uint32
	Height        uint32
	Anchor        uint32
	ExclusiveZone int32
	Configured    bool
	AckedSerial   uint32
	Destroyed     bool
}

// ProtocolError is a wl_display.error the fake sent before hanging up.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wltest: protocol error on object %d (code %d): %s", e.Object, e.Code, e.Message)
}

type surface struct {
	id       uint32
	pending  uint32
	current  uint32
	attached bool
	scale    int32
	layer    *LayerSurface
}

type pool struct {
	fd   int
	size int32
}

type buffer struct {
	fd     int
	offset int32
	width  int32
	height int32
	stride int32
	format uint32
}

// SocketName is the name of the socket Start listens on.
const SocketName = "wayland-test"

// Server is a running fake compositor. It serves a single client.
type Server struct {
	ln      *net.UnixListener
	path    string
	opts    Options
	globals []Global

	mu       sync.Mutex
	conn     *conn
	stopping bool
	objects  map[uint32]string
	versions map[uint32]uint32
	surfaces map[uint32]*surface
	layers   map[uint32]*LayerSurface
	order    []*LayerSurface
	pools    map[uint32]*pool
	buffers  map[uint32]*buffer
	requests []string
	frames   []Frame
	serial   uint32
	err      error

	done chan struct{}
}

// Start listens on dir/SocketName and serves the first client to connect
// on a new goroutine.
func Start(dir string, opts Options) (*Server, error) {
	path := filepath.Join(dir, SocketName)
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	if opts.Globals == nil {
		opts.Globals = DefaultGlobals()
	}
	if opts.OutputWidth == 0 {
		opts.OutputWidth = 1920
	}
	if opts.OutputHeight == 0 {
		opts.OutputHeight = 1080
	}
	s := &Server{
		ln:       ln,
		path:     path,
		opts:     opts,
		globals:  opts.Globals,
		objects:  map[uint32]string{1: "wl_display"},
		versions: map[uint32]uint32{1: 1},
		surfaces: make(map[uint32]*surface),
		layers:   make(map[uint32]*LayerSurface),
		pools:    make(map[uint32]*pool),
		buffers:  make(map[uint32]*buffer),
		done:     make(chan struct{}),
	}
	go s.serve()
	return s, nil
}

// Path returns the socket path clients dial.
func (s *Server) Path() string {
	return s.path
}

// Close stops listening, hangs up on the client and waits for the serving
// goroutine to exit.
func (s *Server) Close() error {
	s.ln.Close()
	s.mu.Lock()
	s.stopping = true
	if s.conn != nil && !s.conn.closed {
		unix.Shutdown(s.conn.fd, unix.SHUT_RDWR)
	}
	s.mu.Unlock()
	<-s.done
	return s.Err()
}

// Done is closed once the fake has hung up.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the protocol or I/O error that ended serving, if any. A
// clean hang-up by either side is not an error.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Requests returns every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Frames returns every committed buffer so far.
func (s *Server) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// LayerSurfaces returns the layer surfaces in creation order.
func (s *Server) LayerSurfaces() []LayerSurface {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LayerSurface, 0, len(s.order))
	for _, ls := range s.order {
		out = append(out, *ls)
	}
	return out
}

func (s *Server) serve() {
	defer close(s.done)

	c, err := s.accept()
	if err != nil || c == nil {
		if err != nil {
			s.fail(err)
		}
		return
	}
	defer s.shutdown()

	for {
		if err := c.fill(); err != nil {
			if !hungUp(err) {
				s.fail(err)
			}
			return
		}
		for {
			msg, ok, err := c.next()
			if err != nil {
				s.fail(err)
				return
			}
			if !ok {
				break
			}
			s.mu.Lock()
			err = s.handle(msg)
			frames := len(s.frames)
			s.mu.Unlock()

			var perr *ProtocolError
			if errors.As(err, &perr) {
				s.postError(perr)
				s.fail(perr)
				return
			}
			if err != nil {
				s.fail(err)
				return
			}
			if s.opts.MaxFrames > 0 && frames >= s.opts.MaxFrames {
				c.flush()
				return
			}
		}
		if err := c.flush(); err != nil {
			if !hungUp(err) {
				s.fail(err)
			}
			return
		}
	}
}

// accept waits for the client and takes its descriptor out of the
// runtime poller so the serving loop can block on it directly. It returns
// a nil conn if Close ran first.
func (s *Server) accept() (*conn, error) {
	nc, err := s.ln.AcceptUnix()
	s.ln.Close()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, nil
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	f, err := nc.File()
	nc.Close()
	if err != nil {
		return nil, fmt.Errorf("client file: %w", err)
	}
	fd, err := unix.Dup(int(f.Fd()))
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("dup client: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		unix.Close(fd)
		return nil, nil
	}
	s.conn = newConn(fd)
	return s.conn, nil
}

// hungUp reports whether err only means the client went away: a clean
// EOF, or a reset or broken pipe from a client that closed with
// requests or events still in flight.
func hungUp(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET)
}

func (s *Server) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pools {
		unix.Close(p.fd)
		delete(s.pools, id)
	}
	for id, b := range s.buffers {
		unix.Close(b.fd)
		delete(s.buffers, id)
	}
	s.conn.close()
}

func (s *Server) postError(perr *ProtocolError) {
	s.mu.Lock()
	s.event(wire.NewEvent(1, 0).Object(perr.Object).Uint(perr.Code).String(perr.Message))
	s.mu.Unlock()
	s.conn.flush()
}

func (s *Server) event(e *wire.Encoder) {
	s.conn.send(e.Message())
}

func (s *Server) nextSerial() uint32 {
	s.serial++
	return s.serial
}

func protocolError(object, code uint32, format string, args ...any) error {
	return &ProtocolError{Object: object, Code: code, Message: fmt.Sprintf(format, args...)}
}

// newObject registers a client-allocated id.
func (s *Server) newObject(id uint32, iface string, version uint32) error {
	if id == 0 {
		return protocolError(1, 0, "null new_id for %s", iface)
	}
	if _, ok := s.objects[id]; ok {
		return protocolError(1, 0, "new_id %d for %s already in use by %s", id, iface, s.objects[id])
	}
	s.objects[id] = iface
	s.versions[id] = version
	return nil
}

// deleteObject retires id and confirms it to the client.
func (s *Server) deleteObject(id uint32) {
	delete(s.objects, id)
	delete(s.versions, id)
	s.event(wire.NewEvent(1, 1).Uint(id))
}

func (s *Server) handle(msg wire.Message) error {
	iface, ok := s.objects[msg.Object]
	if !ok {
		return protocolError(1, 0, "request %d on unknown object %d", msg.Opcode, msg.Object)
	}
	names := requestNames[iface]
	if int(msg.Opcode) >= len(names) {
		return protocolError(msg.Object, 1, "invalid opcode %d for %s", msg.Opcode, iface)
	}
	req := fmt.Sprintf("%s#%d.%s", iface, msg.Object, names[msg.Opcode])

	dec := wire.NewDecoder(msg.Args)
	var err error
	switch iface {
	case "wl_display":
		err = s.handleDisplay(msg.Opcode, dec)
	case "wl_registry":
		var bound string
		bound, err = s.handleRegistry(msg.Object, dec)
		req += "(" + bound + ")"
	case "wl_compositor":
		err = s.handleCompositor(msg.Object, msg.Opcode, dec)
	case "wl_surface":
		err = s.handleSurface(msg.Object, msg.Opcode, dec)
	case "wl_shm":
		err = s.handleShm(msg.Object, msg.Opcode, dec)
	case "wl_shm_pool":
		err = s.handleShmPool(msg.Object, msg.Opcode, dec)
	case "wl_buffer":
		err = s.handleBuffer(msg.Object)
	case "wl_output":
		s.deleteObject(msg.Object)
	case "zwlr_layer_shell_v1":
		err = s.handleLayerShell(msg.Object, msg.Opcode, dec)
	case "zwlr_layer_surface_v1":
		err = s.handleLayerSurface(msg.Object, msg.Opcode, dec)
	case "zxdg_output_manager_v1":
		err = s.handleXdgOutputManager(msg.Object, msg.Opcode, dec)
	case "zxdg_output_v1":
		s.deleteObject(msg.Object)
	}
	s.requests = append(s.requests, req)
	if err != nil {
		return err
	}
	if dec.Err() != nil {
		return protocolError(msg.Object, 1, "%s: %v", req, dec.Err())
	}
	return nil
}

var requestNames = map[string][]string{
	"wl_display":             {"sync", "get_registry"},
	"wl_registry":            {"bind"},
	"wl_compositor":          {"create_surface", "create_region"},
	"wl_surface":             {"destroy", "attach", "damage", "frame", "set_opaque_region", "set_input_region", "commit", "set_buffer_transform", "set_buffer_scale", "damage_buffer", "offset"},
	"wl_shm":                 {"create_pool", "release"},
	"wl_shm_pool":            {"create_buffer", "destroy", "resize"},
	"wl_buffer":              {"destroy"},
	"wl_output":              {"release"},
	"zwlr_layer_shell_v1":    {"get_layer_surface", "destroy"},
	"zwlr_layer_surface_v1":  {"set_size", "set_anchor", "set_exclusive_zone", "set_margin", "set_keyboard_interactivity", "get_popup", "ack_configure", "destroy", "set_layer", "set_exclusive_edge"},
	"zxdg_output_manager_v1": {"destroy", "get_xdg_output"},
	"zxdg_output_v1":         {"destroy"},
}
