package strip

// Wheel maps a position on a 0-255 color wheel to an RGB triple. Classic
// test-pattern helper: red→green→blue→red as pos wraps.
func Wheel(pos byte) (r, g, b byte) {
	switch {
	case pos < 85:
		return 255 - pos*3, pos * 3, 0
	case pos < 170:
		pos -= 85
		return 0, 255 - pos*3, pos * 3
	default:
		pos -= 170
		return pos * 3, 0, 255 - pos*3
	}
}
