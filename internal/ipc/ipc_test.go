package ipc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type staticStatus StatusData

func (s staticStatus) Status() StatusData { return StatusData(s) }

func startServer(t *testing.T, status StatusProvider) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hyprbar.sock")
	srv := NewServer(path, status, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

// serveUntil runs ServeOne on the calling goroutine until done is closed,
// the way the event loop does when the listener polls readable.
func serveUntil(t *testing.T, srv *Server, done <-chan struct{}) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case <-done:
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("client did not finish")
		}
		if err := srv.ServeOne(); err != nil {
			t.Fatalf("ServeOne: %v", err)
		}
	}
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"command":"GET_STATUS"}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Command != CommandGetStatus {
		t.Fatalf("command = %q, want GET_STATUS", req.Command)
	}

	if _, err := ParseRequest([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestServerStartSetsPermissions(t *testing.T) {
	srv := startServer(t, staticStatus{})

	info, err := os.Stat(srv.SocketPath())
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("socket permissions = %o, want 600", perm)
	}
	if srv.Fd() < 0 {
		t.Fatalf("Fd() = %d after Start", srv.Fd())
	}

	srv.Stop()
	if _, err := os.Stat(srv.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("socket still present after Stop: %v", err)
	}
	if srv.Fd() != -1 {
		t.Fatalf("Fd() = %d after Stop, want -1", srv.Fd())
	}
}

func TestServeOneWithoutClientReturns(t *testing.T) {
	srv := startServer(t, staticStatus{})

	start := time.Now()
	if err := srv.ServeOne(); err != nil {
		t.Fatalf("ServeOne: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("ServeOne blocked for %s with no client", elapsed)
	}
}

func TestGetStatusRoundTrip(t *testing.T) {
	srv := startServer(t, staticStatus{
		Namespace: "hyprbar",
		Bars: []BarStatus{
			{Position: "top", Size: 32, Pattern: "gradient", State: "configured", Width: 1920, Height: 32, Frames: 12},
			{Position: "bottom", Size: 64, Pattern: "band", State: "registered"},
		},
		BuffersInFlight: 2,
	})

	var (
		status *StatusData
		err    error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		status, err = NewClient(srv.SocketPath()).GetStatus()
	}()
	serveUntil(t, srv, done)

	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Namespace != "hyprbar" || status.BuffersInFlight != 2 {
		t.Fatalf("status = %+v", status)
	}
	if len(status.Bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(status.Bars))
	}
	if b := status.Bars[0]; b.Position != "top" || b.Width != 1920 || b.Frames != 12 {
		t.Fatalf("bar 0 = %+v", b)
	}
	if b := status.Bars[1]; b.State != "registered" || b.Width != 0 {
		t.Fatalf("bar 1 = %+v", b)
	}
}

func TestPingReturnsPID(t *testing.T) {
	srv := startServer(t, staticStatus{})

	var (
		pid int
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pid, err = NewClient(srv.SocketPath()).Ping()
	}()
	serveUntil(t, srv, done)

	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestUnknownCommandIsError(t *testing.T) {
	srv := startServer(t, staticStatus{})

	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err = NewClient(srv.SocketPath()).sendRequest(&Request{Command: "RELOAD"})
	}()
	serveUntil(t, srv, done)

	if err == nil || !strings.Contains(err.Error(), "Unknown command: RELOAD") {
		t.Fatalf("sendRequest error = %v, want unknown command", err)
	}
}

func TestClientWithoutServer(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := c.GetStatus(); err == nil || !strings.Contains(err.Error(), "is it running?") {
		t.Fatalf("GetStatus error = %v", err)
	}
}
