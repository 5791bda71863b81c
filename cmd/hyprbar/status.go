package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/1broseidon/hyprbar/internal/ipc"
	"github.com/1broseidon/hyprbar/internal/runtimepath"
)

func runStatus(args []string) int {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "print the raw status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: hyprbar status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the running instance's bars via the control socket.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	path, err := runtimepath.ControlSocketPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	status, err := ipc.NewClient(path).GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("namespace:         %s\n", status.Namespace)
	fmt.Printf("uptime_seconds:    %d\n", status.UptimeSeconds)
	fmt.Printf("buffers_in_flight: %d\n", status.BuffersInFlight)
	fmt.Println("bars:")
	for _, b := range status.Bars {
		state := b.State
		if b.Closed {
			state += " (closed)"
		}
		fmt.Printf("  %-6s %3dpx  %-8s %4dx%-4d  %-10s frames=%d\n",
			b.Position, b.Size, b.Pattern, b.Width, b.Height, state, b.Frames)
	}
	return 0
}
