package xdg_output_test

import (
	"fmt"
	"testing"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/1broseidon/hyprbar/internal/proto/xdg_output"
	"github.com/1broseidon/hyprbar/internal/wltest"
)

func TestXdgOutputEvents(t *testing.T) {
	tests := []struct {
		version  uint32
		wantName string
		wantDone bool
	}{
		{1, "", true},
		{2, "WL-1", true},
		{3, "WL-1", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("v%d", tt.version), func(t *testing.T) {
			srv, err := wltest.Start(t.TempDir(), wltest.Options{OutputWidth: 1280, OutputHeight: 720})
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer srv.Close()
			c, err := wltest.Dial(srv)
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer c.Close()
			ctx := c.Display.Context()

			output := client.NewOutput(ctx)
			g, _ := c.Global("wl_output")
			if err := c.Registry.Bind(g.Name, "wl_output", 1, output); err != nil {
				t.Fatalf("bind wl_output: %v", err)
			}
			var mode client.OutputModeEvent
			output.SetModeHandler(func(ev client.OutputModeEvent) { mode = ev })

			manager := xdg_output.NewZxdgOutputManagerV1(ctx)
			g, _ = c.Global(xdg_output.ZxdgOutputManagerV1InterfaceName)
			if err := c.Registry.Bind(g.Name, xdg_output.ZxdgOutputManagerV1InterfaceName, tt.version, manager); err != nil {
				t.Fatalf("bind manager: %v", err)
			}
			xdg, err := manager.GetXdgOutput(output)
			if err != nil {
				t.Fatalf("GetXdgOutput: %v", err)
			}

			var pos xdg_output.ZxdgOutputV1LogicalPositionEvent
			var size xdg_output.ZxdgOutputV1LogicalSizeEvent
			var name, desc string
			var done bool
			xdg.SetLogicalPositionHandler(func(ev xdg_output.ZxdgOutputV1LogicalPositionEvent) { pos = ev })
			xdg.SetLogicalSizeHandler(func(ev xdg_output.ZxdgOutputV1LogicalSizeEvent) { size = ev })
			xdg.SetNameHandler(func(ev xdg_output.ZxdgOutputV1NameEvent) { name = ev.Name })
			xdg.SetDescriptionHandler(func(ev xdg_output.ZxdgOutputV1DescriptionEvent) { desc = ev.Description })
			xdg.SetDoneHandler(func(xdg_output.ZxdgOutputV1DoneEvent) { done = true })
			if err := c.Roundtrip(); err != nil {
				t.Fatalf("Roundtrip: %v", err)
			}

			if mode.Width != 1280 || mode.Height != 720 {
				t.Fatalf("output mode = %dx%d, want 1280x720", mode.Width, mode.Height)
			}
			if pos.X != 0 || pos.Y != 0 || size.Width != 1280 || size.Height != 720 {
				t.Fatalf("logical geometry = %+v %+v", pos, size)
			}
			if name != tt.wantName || done != tt.wantDone {
				t.Fatalf("name = %q, done = %v; want %q, %v", name, done, tt.wantName, tt.wantDone)
			}
			if tt.wantName != "" && desc == "" {
				t.Fatal("no description alongside the name")
			}

			xdg.Destroy()
			manager.Destroy()
			if err := c.Roundtrip(); err != nil {
				t.Fatalf("Roundtrip after destroy: %v", err)
			}
			if err := srv.Err(); err != nil {
				t.Fatalf("server: %v", err)
			}
			want := []string{
				fmt.Sprintf("zxdg_output_v1#%d.destroy", xdg.ID()),
				fmt.Sprintf("zxdg_output_manager_v1#%d.destroy", manager.ID()),
			}
			reqs := srv.Requests()
			if len(reqs) < 3 || reqs[len(reqs)-3] != want[0] || reqs[len(reqs)-2] != want[1] {
				t.Fatalf("requests = %q, want to end with %q and a sync", reqs, want)
			}
		})
	}
}
