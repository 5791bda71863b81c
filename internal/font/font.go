// Package font loads the face a bar would draw text with. Painting does
// not render text yet; the face is loaded and held so a broken font
// configuration fails at startup.
package font

import (
	"fmt"
	"os"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/1broseidon/hyprbar/internal/errdefs"
)

// Options selects a font file and rendering size.
type Options struct {
	// Path is an OpenType or TrueType file. Empty selects the embedded
	// Go Regular.
	Path string  `yaml:"path"`
	Size float64 `yaml:"size"`
	DPI  float64 `yaml:"dpi"`
}

// DefaultOptions returns the embedded font at 48pt, 100 DPI.
func DefaultOptions() Options {
	return Options{Size: 48, DPI: 100}
}

// Metrics are the vertical metrics of a face in whole pixels.
type Metrics struct {
	Ascent  int
	Descent int
	Height  int
}

// Face is a loaded font face.
type Face struct {
	face xfont.Face
	name string
	opts Options
}

// Load parses the font named by opts and creates a face. Errors are
// *errdefs.ConfigurationError.
func Load(opts Options) (*Face, error) {
	if opts.Size <= 0 {
		return nil, &errdefs.ConfigurationError{What: "font", Err: fmt.Errorf("size must be positive, got %g", opts.Size)}
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultOptions().DPI
	}

	data := goregular.TTF
	if opts.Path != "" {
		var err error
		data, err = os.ReadFile(opts.Path)
		if err != nil {
			return nil, &errdefs.ConfigurationError{What: "font", Err: err}
		}
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, &errdefs.ConfigurationError{What: "font " + displayPath(opts.Path), Err: fmt.Errorf("parse: %w", err)}
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    opts.Size,
		DPI:     opts.DPI,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, &errdefs.ConfigurationError{What: "font " + displayPath(opts.Path), Err: fmt.Errorf("create face: %w", err)}
	}

	name, err := parsed.Name(nil, sfnt.NameIDFull)
	if err != nil || name == "" {
		name = displayPath(opts.Path)
	}
	return &Face{face: face, name: name, opts: opts}, nil
}

func displayPath(path string) string {
	if path == "" {
		return "(embedded)"
	}
	return path
}

// Name returns the font's full name.
func (f *Face) Name() string { return f.name }

// Options returns the options the face was loaded with.
func (f *Face) Options() Options { return f.opts }

// Metrics returns the face's vertical metrics.
func (f *Face) Metrics() Metrics {
	m := f.face.Metrics()
	return Metrics{
		Ascent:  m.Ascent.Ceil(),
		Descent: m.Descent.Ceil(),
		Height:  m.Height.Ceil(),
	}
}

// Advance returns the width of s in pixels.
func (f *Face) Advance(s string) int {
	return xfont.MeasureString(f.face, s).Round()
}

// Close releases the face.
func (f *Face) Close() error {
	return f.face.Close()
}
