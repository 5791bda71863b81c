// Package client owns the compositor connection: it binds the globals a
// bar needs, creates bars on request and runs the event loop that keeps
// them painted.
package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	wl "github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/bar"
	"github.com/1broseidon/hyprbar/internal/diag"
	"github.com/1broseidon/hyprbar/internal/errdefs"
	"github.com/1broseidon/hyprbar/internal/font"
	"github.com/1broseidon/hyprbar/internal/ipc"
	"github.com/1broseidon/hyprbar/internal/proto/wlr_layer_shell"
	"github.com/1broseidon/hyprbar/internal/proto/xdg_output"
	"github.com/1broseidon/hyprbar/internal/runtimepath"
)

// Highest interface versions hyprbar speaks.
const (
	compositorVersion       = 4
	shmVersion              = 1
	layerShellVersion       = 1
	xdgOutputManagerVersion = 2
	outputVersion           = 3
)

// wl_output.release exists from this version on.
const outputReleaseVersion = 3

// Required globals, in the order they are reported.
var requiredGlobals = []string{
	"wl_compositor",
	"wl_shm",
	"zwlr_layer_shell_v1",
	"zxdg_output_manager_v1",
	"wl_output",
}

// Options configures a Client.
type Options struct {
	Namespace string
	Layer     wlr_layer_shell.ZwlrLayerShellV1Layer

	// Font, when set, is loaded at startup and held for the client's
	// lifetime.
	Font *font.Options

	// ControlSocket is the path of the control socket. Empty disables it.
	ControlSocket string

	// Stdin, when set, is watched by the event loop and drained until EOF.
	Stdin *os.File

	Logger *slog.Logger
}

type entry struct {
	bar   *bar.Bar
	layer *wlr_layer_shell.ZwlrLayerSurfaceV1
}

// Client is a connection to the compositor and the bars drawn through it.
// It is not safe for concurrent use; everything runs on the goroutine
// that calls Start.
type Client struct {
	opts   Options
	logger *slog.Logger

	display  *wl.Display
	ctx      *wl.Context
	fd       int
	registry *wl.Registry

	compositor *wl.Compositor
	shm        *wl.Shm
	layerShell *wlr_layer_shell.ZwlrLayerShellV1
	xdgOutputs *xdg_output.ZxdgOutputManagerV1
	output     *wl.Output
	outputVer  uint32
	bindErr    error

	// protoErr is the wl_display.error the compositor sent, if any. Once
	// set, or once connErr is, nothing more is sent.
	protoErr error
	connErr  error

	bars    []*entry
	buffers *shmBuffers
	face    *font.Face
	control *ipc.Server

	// err is set by event handlers and ends the event loop.
	err     error
	started bool
	closed  bool
}

// Connect dials the compositor named by WAYLAND_DISPLAY and calls Dial.
func Connect(opts Options) (*Client, error) {
	path, err := runtimepath.DisplaySocketPath()
	if err != nil {
		return nil, err
	}
	return Dial(path, opts)
}

// Dial connects to the compositor socket at path and binds the required
// globals. If the compositor does not advertise all of them the error is
// an *errdefs.ConfigurationError wrapping a *diag.CapabilityReport.
func Dial(path string, opts Options) (*Client, error) {
	display, err := wl.Connect(path)
	if err != nil {
		return nil, &errdefs.ConnectionError{Op: "connect to compositor", Err: err}
	}
	fd, err := socketFD(display.Context())
	if err != nil {
		display.Context().Close()
		return nil, &errdefs.ConnectionError{Op: "connect to compositor", Err: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		opts:    opts,
		logger:  logger,
		display: display,
		ctx:     display.Context(),
		fd:      fd,
	}
	display.SetErrorHandler(c.handleDisplayError)

	if err := c.bind(); err != nil {
		c.ctx.Close()
		return nil, err
	}
	c.buffers = newShmBuffers(c.shm)

	if opts.Font != nil {
		face, err := font.Load(*opts.Font)
		if err != nil {
			c.ctx.Close()
			return nil, err
		}
		c.face = face
		c.logger.Debug("font loaded", "name", face.Name(), "size", opts.Font.Size)
	}

	if opts.ControlSocket != "" {
		srv := ipc.NewServer(opts.ControlSocket, c, c.logger)
		if err := srv.Start(); err != nil {
			c.logger.Warn("control socket disabled", "path", opts.ControlSocket, "error", err)
		} else {
			c.control = srv
		}
	}
	return c, nil
}

func (c *Client) handleDisplayError(ev wl.DisplayErrorEvent) {
	err := fmt.Errorf("protocol error %d: %s", ev.Code, ev.Message)
	if c.protoErr == nil {
		c.protoErr = err
	}
	c.logger.Error("compositor reported a protocol error", "code", ev.Code, "message", ev.Message)
}

// dispatch reads and handles one event. A wl_display.error ends the
// connection, and takes precedence over the hang-up that follows it.
func (c *Client) dispatch() error {
	if c.connErr != nil {
		return c.connErr
	}
	err := c.ctx.Dispatch()
	if c.protoErr != nil {
		err = c.protoErr
	}
	if err != nil {
		c.connErr = err
		return err
	}
	return nil
}

// roundtrip blocks until the compositor has handled every request sent
// so far.
func (c *Client) roundtrip() error {
	cb, err := c.display.Sync()
	if err != nil {
		return err
	}
	defer c.ctx.Unregister(cb)
	done := false
	cb.SetDoneHandler(func(wl.CallbackDoneEvent) { done = true })
	for !done {
		if err := c.dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) bind() error {
	registry, err := c.display.GetRegistry()
	if err != nil {
		return &errdefs.ConnectionError{Op: "get registry", Err: err}
	}
	c.registry = registry
	registry.SetGlobalHandler(c.bindGlobal)
	registry.SetGlobalRemoveHandler(func(ev wl.RegistryGlobalRemoveEvent) {
		c.logger.Debug("global removed", "name", ev.Name)
	})

	if err := c.roundtrip(); err != nil {
		return &errdefs.ConnectionError{Op: "initial roundtrip", Err: err}
	}
	if c.bindErr != nil {
		return &errdefs.ConnectionError{Op: "bind globals", Err: c.bindErr}
	}

	report := c.capabilities()
	if !report.Complete() {
		return &errdefs.ConfigurationError{What: "compositor capabilities", Err: report}
	}
	return nil
}

func (c *Client) capabilities() *diag.CapabilityReport {
	bound := map[string]bool{
		"wl_compositor":          c.compositor != nil,
		"wl_shm":                 c.shm != nil,
		"zwlr_layer_shell_v1":    c.layerShell != nil,
		"zxdg_output_manager_v1": c.xdgOutputs != nil,
		"wl_output":              c.output != nil,
	}
	report := &diag.CapabilityReport{}
	for _, name := range requiredGlobals {
		if bound[name] {
			report.Present = append(report.Present, name)
		} else {
			report.Missing = append(report.Missing, name)
		}
	}
	return report
}

// bindGlobal binds the first advertisement of each required interface.
func (c *Client) bindGlobal(g wl.RegistryGlobalEvent) {
	var p wl.Proxy
	var version uint32
	switch g.Interface {
	case "wl_compositor":
		if c.compositor != nil {
			return
		}
		version = min(g.Version, compositorVersion)
		c.compositor = wl.NewCompositor(c.ctx)
		p = c.compositor
	case "wl_shm":
		if c.shm != nil {
			return
		}
		version = min(g.Version, shmVersion)
		c.shm = wl.NewShm(c.ctx)
		p = c.shm
	case wlr_layer_shell.ZwlrLayerShellV1InterfaceName:
		if c.layerShell != nil {
			return
		}
		version = min(g.Version, layerShellVersion)
		c.layerShell = wlr_layer_shell.NewZwlrLayerShellV1(c.ctx)
		p = c.layerShell
	case xdg_output.ZxdgOutputManagerV1InterfaceName:
		if c.xdgOutputs != nil {
			return
		}
		version = min(g.Version, xdgOutputManagerVersion)
		c.xdgOutputs = xdg_output.NewZxdgOutputManagerV1(c.ctx)
		p = c.xdgOutputs
	case "wl_output":
		if c.output != nil {
			return
		}
		version = min(g.Version, outputVersion)
		c.outputVer = version
		c.output = wl.NewOutput(c.ctx)
		c.output.SetGeometryHandler(func(ev wl.OutputGeometryEvent) {
			c.logger.Debug("output geometry", "make", ev.Make, "model", ev.Model, "x", ev.X, "y", ev.Y)
		})
		c.output.SetModeHandler(func(ev wl.OutputModeEvent) {
			c.logger.Debug("output mode", "width", ev.Width, "height", ev.Height, "refresh_mhz", ev.Refresh)
		})
		c.output.SetScaleHandler(func(ev wl.OutputScaleEvent) {
			c.logger.Debug("output scale", "factor", ev.Factor)
		})
		p = c.output
	default:
		return
	}
	if err := c.registry.Bind(g.Name, g.Interface, version, p); err != nil {
		if c.bindErr == nil {
			c.bindErr = err
		}
		return
	}
	c.logger.Debug("capability bound", "interface", g.Interface, "name", g.Name, "version", version)
}

// AddBar creates the surfaces for a bar and registers it with the
// compositor. Bars are painted in the order they were added.
func (c *Client) AddBar(cfg bar.Config) (*bar.Bar, error) {
	if c.closed {
		return nil, errors.New("client is closed")
	}
	if c.started {
		return nil, errors.New("bars must be added before Start")
	}
	b, err := bar.New(cfg)
	if err != nil {
		return nil, err
	}

	surface, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, &errdefs.ConnectionError{Op: "create surface", Err: err}
	}
	layer, err := c.layerShell.GetLayerSurface(surface, c.output, uint32(c.opts.Layer), c.opts.Namespace)
	if err != nil {
		surface.Destroy()
		return nil, &errdefs.ConnectionError{Op: "get layer surface", Err: err}
	}
	if err := b.Register(surface, layer); err != nil {
		return nil, &errdefs.ConnectionError{Op: "register bar", Err: errors.Join(err, b.Destroy())}
	}

	c.bars = append(c.bars, &entry{bar: b, layer: layer})
	c.logger.Debug("bar registered", "position", cfg.Position, "size", cfg.Size)
	return b, nil
}

// Bars returns the bars in paint order.
func (c *Client) Bars() []*bar.Bar {
	out := make([]*bar.Bar, len(c.bars))
	for i, e := range c.bars {
		out[i] = e.bar
	}
	return out
}

// Face returns the loaded font face, or nil.
func (c *Client) Face() *font.Face {
	return c.face
}

// Start listens for configure events on every bar, asks for the geometry
// of the output they are on, and runs the event loop until it fails.
func (c *Client) Start() error {
	if c.closed {
		return errors.New("client is closed")
	}
	if c.started {
		return errors.New("client already started")
	}
	c.started = true

	for _, e := range c.bars {
		e := e
		e.layer.SetConfigureHandler(func(ev wlr_layer_shell.ZwlrLayerSurfaceV1ConfigureEvent) {
			c.handleConfigure(e, ev)
		})
		e.layer.SetClosedHandler(func(wlr_layer_shell.ZwlrLayerSurfaceV1ClosedEvent) {
			c.logger.Info("bar closed by compositor", "position", e.bar.Config().Position)
			e.bar.HandleClosed()
		})

		xdg, err := c.xdgOutputs.GetXdgOutput(c.output)
		if err != nil {
			return &errdefs.ConnectionError{Op: "get xdg output", Err: err}
		}
		c.watchXdgOutput(e.bar.Config().Position, xdg)
		e.bar.AttachOutput(xdg)
	}
	return c.Run()
}

func (c *Client) handleConfigure(e *entry, ev wlr_layer_shell.ZwlrLayerSurfaceV1ConfigureEvent) {
	b := e.bar
	first, err := b.HandleConfigure(ev)
	if err != nil {
		c.fail(err)
		return
	}
	if !first {
		c.logger.Debug("configure ignored", "position", b.Config().Position, "width", ev.Width, "height", ev.Height)
		return
	}
	c.logger.Info("bar configured", "position", b.Config().Position, "width", b.Width(), "height", b.Height())
	if err := b.Paint(c.buffers); err != nil {
		c.fail(err)
	}
}

func (c *Client) watchXdgOutput(position bar.Position, xdg *xdg_output.ZxdgOutputV1) {
	xdg.SetLogicalPositionHandler(func(ev xdg_output.ZxdgOutputV1LogicalPositionEvent) {
		c.logger.Debug("output position", "bar", position, "x", ev.X, "y", ev.Y)
	})
	xdg.SetLogicalSizeHandler(func(ev xdg_output.ZxdgOutputV1LogicalSizeEvent) {
		c.logger.Info("output geometry", "bar", position, "width", ev.Width, "height", ev.Height)
	})
	xdg.SetNameHandler(func(ev xdg_output.ZxdgOutputV1NameEvent) {
		c.logger.Info("output name", "bar", position, "name", ev.Name)
	})
	xdg.SetDescriptionHandler(func(ev xdg_output.ZxdgOutputV1DescriptionEvent) {
		c.logger.Debug("output description", "bar", position, "description", ev.Description)
	})
}

func (c *Client) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Status reports the bars for the control socket.
func (c *Client) Status() ipc.StatusData {
	st := ipc.StatusData{
		Namespace:       c.opts.Namespace,
		Bars:            make([]ipc.BarStatus, 0, len(c.bars)),
		BuffersInFlight: c.buffers.InFlight(),
	}
	for _, e := range c.bars {
		b := e.bar
		cfg := b.Config()
		st.Bars = append(st.Bars, ipc.BarStatus{
			Position: string(cfg.Position),
			Size:     cfg.Size,
			Pattern:  string(cfg.Pattern),
			State:    b.State().String(),
			Closed:   b.Closed(),
			Width:    b.Width(),
			Height:   b.Height(),
			Frames:   b.Frames(),
		})
	}
	return st
}

// Close destroys every bar, the unreleased buffers and the xdg output
// manager, releases the output, stops the control socket and closes the
// connection. If the
// connection has already failed only local resources are released.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	healthy := c.connErr == nil && c.protoErr == nil

	var errs []error
	keep := func(err error) {
		if err != nil && healthy {
			errs = append(errs, err)
		}
	}
	if healthy {
		for _, e := range c.bars {
			keep(e.bar.Destroy())
		}
		keep(c.buffers.DestroyAll())
		keep(c.xdgOutputs.Destroy())
		if c.outputVer >= outputReleaseVersion {
			keep(c.output.Release())
		}
	}

	if c.face != nil {
		if err := c.face.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.control != nil {
		c.control.Stop()
	}
	if err := c.ctx.Close(); err != nil && healthy {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
