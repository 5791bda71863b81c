// hyprbar draws bars along the edges of a Wayland output through the
// wlr layer-shell protocol.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/1broseidon/hyprbar/internal/client"
	"github.com/1broseidon/hyprbar/internal/config"
	"github.com/1broseidon/hyprbar/internal/diag"
	"github.com/1broseidon/hyprbar/internal/runtimepath"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		if err := runBar(args); err != nil {
			diag.Fatal(err)
		}
	case "status":
		os.Exit(runStatus(args))
	case "config":
		os.Exit(runConfig(args))
	case "version":
		fmt.Printf("hyprbar %s\n", version)
	case "help":
		printMainUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printMainUsage(os.Stderr)
		os.Exit(diag.ExitUsage)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hyprbar [command] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Draw the configured bars (default)")
	fmt.Fprintln(w, "  status              Show the running instance's bars")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write the default configuration")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "  help                Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'hyprbar <command> --help' for command-specific options.")
}

func runBar(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.StringP("config", "c", "", "config file (default: ~/.config/hyprbar/config.yaml)")
	verbose := fs.BoolP("verbose", "v", false, "log at debug level")
	noStdin := fs.Bool("no-stdin", false, "do not watch standard input")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return diag.Usagef("%v", err)
	}
	if fs.NArg() != 0 {
		return diag.Usagef("run takes no arguments, got %q", fs.Arg(0))
	}

	res, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg := res.Config

	level := cfg.SlogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("configuration loaded", "files", res.Files, "bars", len(cfg.Bars))

	opts := client.Options{
		Namespace: cfg.Namespace,
		Layer:     cfg.WaylandLayer(),
		Font:      &cfg.Font,
		Logger:    logger,
	}
	if cfg.Control.Enabled {
		path, err := runtimepath.ControlSocketPath()
		if err != nil {
			return err
		}
		opts.ControlSocket = path
	}
	if !*noStdin {
		opts.Stdin = os.Stdin
	}

	c, err := client.Connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, bc := range cfg.Bars {
		if _, err := c.AddBar(bc); err != nil {
			return err
		}
	}
	logger.Info("hyprbar started", "version", version, "namespace", cfg.Namespace, "layer", cfg.Layer, "bars", len(cfg.Bars))
	return c.Start()
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}
