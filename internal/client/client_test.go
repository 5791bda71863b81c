package client_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/hyprbar/internal/bar"
	"github.com/1broseidon/hyprbar/internal/client"
	"github.com/1broseidon/hyprbar/internal/diag"
	"github.com/1broseidon/hyprbar/internal/errdefs"
	"github.com/1broseidon/hyprbar/internal/font"
	"github.com/1broseidon/hyprbar/internal/ipc"
	"github.com/1broseidon/hyprbar/internal/proto/wlr_layer_shell"
	"github.com/1broseidon/hyprbar/internal/wltest"
)

func testOptions() client.Options {
	return client.Options{Namespace: "hyprbar", Layer: wlr_layer_shell.ZwlrLayerShellV1LayerBottom}
}

const (
	anchorTop    = uint32(wlr_layer_shell.ZwlrLayerSurfaceV1AnchorTop)
	anchorBottom = uint32(wlr_layer_shell.ZwlrLayerSurfaceV1AnchorBottom)
	anchorLeft   = uint32(wlr_layer_shell.ZwlrLayerSurfaceV1AnchorLeft)
	anchorRight  = uint32(wlr_layer_shell.ZwlrLayerSurfaceV1AnchorRight)
)

// shmFormatARGB8888 is wl_shm.format.argb8888.
const shmFormatARGB8888 = 0

func newClient(t *testing.T, srvOpts wltest.Options, opts client.Options) (*wltest.Server, *client.Client) {
	t.Helper()
	srv, err := wltest.Start(t.TempDir(), srvOpts)
	if err != nil {
		t.Fatalf("wltest.Start: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	c, err := client.Dial(srv.Path(), opts)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return srv, c
}

func addBar(t *testing.T, c *client.Client, cfg bar.Config) *bar.Bar {
	t.Helper()
	b, err := c.AddBar(cfg)
	if err != nil {
		t.Fatalf("AddBar(%+v): %v", cfg, err)
	}
	return b
}

// runUntilHangup runs the event loop until the fake compositor hangs up.
func runUntilHangup(t *testing.T, c *client.Client) {
	t.Helper()
	err := c.Start()
	var cerr *errdefs.ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("Start = %v, want *errdefs.ConnectionError", err)
	}
}

func TestSingleTopBar(t *testing.T) {
	srv, c := newClient(t, wltest.Options{MaxFrames: 2}, testOptions())
	b := addBar(t, c, bar.Config{Position: bar.PositionTop, Size: 32})
	runUntilHangup(t, c)

	if b.Width() != 1920 || b.Height() != 32 {
		t.Fatalf("bar is %dx%d, want 1920x32", b.Width(), b.Height())
	}
	if b.BufSize() != 245760 || b.Stride() != 7680 {
		t.Fatalf("bufsize %d stride %d, want 245760 and 7680", b.BufSize(), b.Stride())
	}
	if got := b.Width() * b.Height(); got != 61440 {
		t.Fatalf("%d pixels per frame, want 61440", got)
	}
	if b.Frames() < 2 {
		t.Fatalf("painted %d frames, want at least 2", b.Frames())
	}

	layers := srv.LayerSurfaces()
	if len(layers) != 1 {
		t.Fatalf("compositor saw %d layer surfaces, want 1", len(layers))
	}
	ls := layers[0]
	if ls.Namespace != "hyprbar" || ls.Layer != uint32(wlr_layer_shell.ZwlrLayerShellV1LayerBottom) {
		t.Fatalf("layer surface namespace %q layer %d", ls.Namespace, ls.Layer)
	}
	if ls.Width != 0 || ls.Height != 32 || ls.ExclusiveZone != 32 {
		t.Fatalf("layer surface size %dx%d zone %d, want 0x32 zone 32", ls.Width, ls.Height, ls.ExclusiveZone)
	}
	wantAnchor := anchorLeft | anchorRight | anchorTop
	if ls.Anchor != wantAnchor {
		t.Fatalf("anchor %d, want %d", ls.Anchor, wantAnchor)
	}
	if ls.Output == 0 {
		t.Fatal("layer surface not bound to an output")
	}

	frames := srv.Frames()
	if len(frames) != 2 {
		t.Fatalf("compositor received %d frames, want 2", len(frames))
	}
	for i, f := range frames {
		if f.Surface != ls.Surface {
			t.Fatalf("frame %d on surface %d, want %d", i, f.Surface, ls.Surface)
		}
		if f.Width != 1920 || f.Height != 32 || f.Stride != 7680 || len(f.Data) != 245760 {
			t.Fatalf("frame %d is %dx%d stride %d with %d bytes", i, f.Width, f.Height, f.Stride, len(f.Data))
		}
		if f.Format != shmFormatARGB8888 || f.Scale != 1 {
			t.Fatalf("frame %d format %d scale %d", i, f.Format, f.Scale)
		}
	}
	for _, p := range [][2]int{{0, 0}, {300, 5}, {1919, 31}} {
		x, y := p[0], p[1]
		want := uint32(0xFF)<<24 | uint32(x%256)<<16 | uint32(y%256)<<8 | 127
		if got := frames[0].Pixel(x, y); got != want {
			t.Fatalf("pixel (%d,%d) = %#08x, want %#08x", x, y, got, want)
		}
	}
}

func TestTwoBarsRepaintInRegistrationOrder(t *testing.T) {
	srv, c := newClient(t, wltest.Options{MaxFrames: 6}, testOptions())
	top := addBar(t, c, bar.Config{Position: bar.PositionTop, Size: 32})
	bottom := addBar(t, c, bar.Config{Position: bar.PositionBottom, Size: 64, Pattern: bar.PatternBand})
	runUntilHangup(t, c)

	if top.Width() != 1920 || top.Height() != 32 {
		t.Fatalf("top bar is %dx%d, want 1920x32", top.Width(), top.Height())
	}
	if bottom.Width() != 1920 || bottom.Height() != 64 {
		t.Fatalf("bottom bar is %dx%d, want 1920x64", bottom.Width(), bottom.Height())
	}

	layers := srv.LayerSurfaces()
	if len(layers) != 2 {
		t.Fatalf("compositor saw %d layer surfaces, want 2", len(layers))
	}
	wantBottom := anchorLeft | anchorRight | anchorBottom
	if layers[1].Anchor != wantBottom || layers[1].ExclusiveZone != 64 {
		t.Fatalf("bottom layer surface anchor %d zone %d", layers[1].Anchor, layers[1].ExclusiveZone)
	}
	topSurface, bottomSurface := layers[0].Surface, layers[1].Surface

	frames := srv.Frames()
	firstBottom := -1
	for i, f := range frames {
		switch f.Surface {
		case topSurface:
			if f.Height != 32 {
				t.Fatalf("top frame %d has height %d", i, f.Height)
			}
		case bottomSurface:
			if f.Height != 64 {
				t.Fatalf("bottom frame %d has height %d", i, f.Height)
			}
			if firstBottom < 0 {
				firstBottom = i
			}
		default:
			t.Fatalf("frame %d on unknown surface %d", i, f.Surface)
		}
	}
	if firstBottom < 0 || frames[0].Surface != topSurface {
		t.Fatalf("expected top painted first and bottom painted at all, got %d frames", len(frames))
	}
	// Once both are configured every pass paints top, then bottom.
	for i := firstBottom + 1; i < len(frames); i++ {
		if frames[i].Surface == frames[i-1].Surface {
			t.Fatalf("frames %d and %d both on surface %d", i-1, i, frames[i].Surface)
		}
	}

	f := frames[firstBottom]
	if f.Pixel(0, 0) != 0xFF181818 || f.Pixel(100, 10) != 0 {
		t.Fatalf("bottom bar not painted with the band pattern: %#08x %#08x", f.Pixel(0, 0), f.Pixel(100, 10))
	}
}

func TestMissingShmIsReported(t *testing.T) {
	srv, err := wltest.Start(t.TempDir(), wltest.Options{
		Globals: wltest.WithoutGlobal(wltest.DefaultGlobals(), "wl_shm"),
	})
	if err != nil {
		t.Fatalf("wltest.Start: %v", err)
	}
	defer srv.Close()

	c, err := client.Dial(srv.Path(), testOptions())
	if err == nil {
		c.Close()
		t.Fatal("Dial succeeded without wl_shm")
	}

	var cfgErr *errdefs.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Dial = %v, want *errdefs.ConfigurationError", err)
	}
	var report *diag.CapabilityReport
	if !errors.As(err, &report) {
		t.Fatalf("Dial = %v, want a capability report", err)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "wl_shm" {
		t.Fatalf("missing = %v, want [wl_shm]", report.Missing)
	}
	if len(report.Present) != 4 {
		t.Fatalf("present = %v, want the other four", report.Present)
	}
	if diag.ExitCode(err) == 0 {
		t.Fatal("exit code 0 for missing capability")
	}

	<-srv.Done()
	for _, req := range srv.Requests() {
		if strings.Contains(req, "get_layer_surface") || strings.Contains(req, "create_surface") {
			t.Fatalf("bar registered despite missing capability: %s", req)
		}
	}
}

func TestBindsEveryRequiredGlobal(t *testing.T) {
	srv, c := newClient(t, wltest.Options{}, testOptions())
	c.Close()
	<-srv.Done()

	want := []string{
		"wl_registry#2.bind(wl_compositor)",
		"wl_registry#2.bind(wl_shm)",
		"wl_registry#2.bind(wl_output)",
		"wl_registry#2.bind(zwlr_layer_shell_v1)",
		"wl_registry#2.bind(zxdg_output_manager_v1)",
	}
	got := srv.Requests()
	for _, w := range want {
		found := false
		for _, r := range got {
			if r == w {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("request %q missing from %v", w, got)
		}
	}
	if err := srv.Err(); err != nil {
		t.Fatalf("compositor rejected a request: %v", err)
	}
}

func TestCloseDestroysBars(t *testing.T) {
	srv, c := newClient(t, wltest.Options{}, testOptions())
	addBar(t, c, bar.Config{Position: bar.PositionLeft, Size: 40})
	addBar(t, c, bar.Config{Position: bar.PositionRight, Size: 40})

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	<-srv.Done()
	if err := srv.Err(); err != nil {
		t.Fatalf("compositor error: %v", err)
	}

	layers := srv.LayerSurfaces()
	if len(layers) != 2 {
		t.Fatalf("compositor saw %d layer surfaces, want 2", len(layers))
	}
	for i, ls := range layers {
		if !ls.Destroyed {
			t.Fatalf("layer surface %d not destroyed", i)
		}
		if ls.Width != 40 || ls.Height != 0 {
			t.Fatalf("layer surface %d requested %dx%d, want 40x0", i, ls.Width, ls.Height)
		}
	}
	if _, err := c.AddBar(bar.Config{Position: bar.PositionTop, Size: 10}); err == nil {
		t.Fatal("AddBar after Close succeeded")
	}
}

func TestAddBarRejectsInvalidConfig(t *testing.T) {
	_, c := newClient(t, wltest.Options{}, testOptions())

	_, err := c.AddBar(bar.Config{Position: "middle", Size: 10})
	var cfgErr *errdefs.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("AddBar = %v, want *errdefs.ConfigurationError", err)
	}
	if len(c.Bars()) != 0 {
		t.Fatalf("invalid bar was added")
	}
}

func TestFontIsLoaded(t *testing.T) {
	opts := testOptions()
	fontOpts := font.DefaultOptions()
	opts.Font = &fontOpts
	_, c := newClient(t, wltest.Options{}, opts)

	if c.Face() == nil || c.Face().Name() != "Go Regular" {
		t.Fatalf("face = %v, want Go Regular", c.Face())
	}
}

func TestControlSocketReportsStatus(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "hyprbar.sock")
	opts := testOptions()
	opts.ControlSocket = socket
	srv, c := newClient(t, wltest.Options{}, opts)
	addBar(t, c, bar.Config{Position: bar.PositionTop, Size: 24})

	done := make(chan error, 1)
	go func() { done <- c.Start() }()

	ipcClient := ipc.NewClient(socket)
	deadline := time.Now().Add(5 * time.Second)
	var status *ipc.StatusData
	for {
		st, err := ipcClient.GetStatus()
		if err == nil && len(st.Bars) == 1 && st.Bars[0].Frames > 0 {
			status = st
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no painted bar reported before deadline (last: %+v, %v)", st, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := status.Bars[0]
	if status.Namespace != "hyprbar" || got.Position != "top" || got.Width != 1920 || got.Height != 24 {
		t.Fatalf("status = %+v", status)
	}
	if got.State != bar.StateConfigured.String() || got.Pattern != "gradient" {
		t.Fatalf("bar status = %+v", got)
	}

	srv.Close()
	select {
	case err := <-done:
		var cerr *errdefs.ConnectionError
		if !errors.As(err, &cerr) {
			t.Fatalf("Start = %v, want *errdefs.ConnectionError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not stop after hang-up")
	}
}

func TestReleasedBuffersAreDestroyed(t *testing.T) {
	const frames = 12
	srv, c := newClient(t, wltest.Options{MaxFrames: frames}, testOptions())
	addBar(t, c, bar.Config{Position: bar.PositionTop, Size: 16})
	runUntilHangup(t, c)

	got := srv.Frames()
	if len(got) != frames {
		t.Fatalf("compositor received %d frames, want %d", len(got), frames)
	}
	reqs := srv.Requests()
	index := func(req string) int {
		for i, r := range reqs {
			if r == req {
				return i
			}
		}
		return -1
	}

	// Every buffer but the one on screen is released when the next frame
	// replaces it.
	released := 0
	for _, r := range reqs {
		if strings.HasPrefix(r, "event wl_buffer#") {
			released++
		}
	}
	if released != frames-1 {
		t.Fatalf("compositor released %d buffers, want %d", released, frames-1)
	}

	// A buffer is destroyed only after its release, and the client keeps
	// up with releases: only the last few can still be pending when the
	// compositor hangs up.
	pending := 0
	for i, f := range got {
		release := index(fmt.Sprintf("event wl_buffer#%d.release", f.Buffer))
		destroy := index(fmt.Sprintf("wl_buffer#%d.destroy", f.Buffer))
		if destroy >= 0 && (release < 0 || destroy < release) {
			t.Fatalf("frame %d: buffer %d destroyed before its release", i, f.Buffer)
		}
		if release >= 0 && destroy < 0 {
			pending++
		}
		if i == len(got)-1 && release >= 0 {
			t.Fatalf("buffer %d on screen was released", f.Buffer)
		}
	}
	if pending > 3 {
		t.Fatalf("%d released buffers never destroyed", pending)
	}
	// The frame on screen stays in flight, plus whatever was committed
	// while the compositor was hanging up.
	if inFlight := c.Status().BuffersInFlight; inFlight < 1 || inFlight > 5 {
		t.Fatalf("buffers in flight = %d, want between 1 and 5", inFlight)
	}
	if err := srv.Err(); err != nil {
		t.Fatalf("compositor error: %v", err)
	}
}

func TestStdinIsDrainedUntilEOF(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	if _, err := w.Write([]byte("status line\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	var logs bytes.Buffer
	opts := testOptions()
	opts.Stdin = r
	opts.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv, c := newClient(t, wltest.Options{MaxFrames: 8}, opts)
	b := addBar(t, c, bar.Config{Position: bar.PositionBottom, Size: 20})
	runUntilHangup(t, c)

	if n := len(srv.Frames()); n != 8 {
		t.Fatalf("compositor received %d frames, want 8", n)
	}
	if b.Frames() < 8 {
		t.Fatalf("bar painted %d frames, want at least 8", b.Frames())
	}
	// Once stdin reports EOF it is no longer polled, so the hang-up is
	// only seen once.
	if n := strings.Count(logs.String(), `msg="stdin closed"`); n != 1 {
		t.Fatalf("stdin closed logged %d times, want 1:\n%s", n, logs.String())
	}
}

func TestConnectUsesWaylandDisplay(t *testing.T) {
	srv, err := wltest.Start(t.TempDir(), wltest.Options{})
	if err != nil {
		t.Fatalf("wltest.Start: %v", err)
	}
	defer srv.Close()

	t.Setenv("XDG_RUNTIME_DIR", filepath.Dir(srv.Path()))
	t.Setenv("WAYLAND_DISPLAY", filepath.Base(srv.Path()))
	c, err := client.Connect(testOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	<-srv.Done()
	if err := srv.Err(); err != nil {
		t.Fatalf("compositor error: %v", err)
	}
}

func TestConnectWithoutCompositor(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("WAYLAND_DISPLAY", "wayland-missing")

	_, err := client.Connect(testOptions())
	var cerr *errdefs.ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("Connect = %v, want *errdefs.ConnectionError", err)
	}
}
