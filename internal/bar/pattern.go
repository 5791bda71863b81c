package bar

// Pattern selects the fill a bar is painted with.
type Pattern string

const (
	// PatternGradient runs red along x and green along y with a constant
	// blue component, repeating every 256 pixels.
	PatternGradient Pattern = "gradient"
	// PatternBand paints a dark triangle into the top-left corner and
	// leaves the rest transparent.
	PatternBand Pattern = "band"
)

// Valid reports whether p names a known pattern. The empty pattern is
// the gradient.
func (p Pattern) Valid() bool {
	switch p {
	case "", PatternGradient, PatternBand:
		return true
	}
	return false
}

func (p Pattern) fill() func(x, y int) uint32 {
	if p == PatternBand {
		return band
	}
	return gradient
}

// argb packs a pixel in the byte order of WL_SHM_FORMAT_ARGB8888.
func argb(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func gradient(x, y int) uint32 {
	return argb(0xFF, uint8(x%256), uint8(y%256), 127)
}

const bandColor = 0xFF181818

func band(x, y int) uint32 {
	if x+y < 30 {
		return bandColor
	}
	return 0
}
