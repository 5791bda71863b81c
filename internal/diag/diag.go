// Package diag formats the diagnostics hyprbar prints before exiting:
// the single fatal-error line and the compositor capability report.
// Output is colored only when it goes to a terminal.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError reports a bad command line.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usagef returns a *UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the process exit status: 0 for nil, 2 for a
// usage error, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

// CapabilityReport lists the required compositor globals that were and
// were not advertised. As an error it names the missing ones.
type CapabilityReport struct {
	Present []string
	Missing []string
}

// Complete reports whether nothing is missing.
func (r *CapabilityReport) Complete() bool {
	return len(r.Missing) == 0
}

func (r *CapabilityReport) Error() string {
	return "compositor does not advertise " + strings.Join(r.Missing, ", ")
}

// Printer writes diagnostics to a stream.
type Printer struct {
	w       io.Writer
	present lipgloss.Style
	missing lipgloss.Style
	fatal   lipgloss.Style
	dim     lipgloss.Style
}

// NewPrinter returns a printer for w. Styles are dropped unless w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	if !isTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		w:       w,
		present: r.NewStyle().Foreground(lipgloss.Color("42")),
		missing: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		fatal:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Report prints one line per capability.
func (p *Printer) Report(r *CapabilityReport) {
	fmt.Fprintln(p.w, p.dim.Render("compositor capabilities:"))
	for _, name := range r.Present {
		fmt.Fprintf(p.w, "  %s %s\n", p.present.Render("✓"), name)
	}
	for _, name := range r.Missing {
		fmt.Fprintf(p.w, "  %s %s\n", p.missing.Render("✗"), p.missing.Render(name))
	}
}

// Fatal prints err as a single [FATAL] line, preceded by the capability
// report when err carries one.
func (p *Printer) Fatal(err error) {
	var report *CapabilityReport
	if errors.As(err, &report) {
		p.Report(report)
	}
	fmt.Fprintf(p.w, "%s %v\n", p.fatal.Render("[FATAL]"), err)
}

// Fatal prints err to stderr and exits with ExitCode(err). It is meant for
// main only.
func Fatal(err error) {
	NewPrinter(os.Stderr).Fatal(err)
	os.Exit(ExitCode(err))
}
