package cpu

import (
	"math"
)

// RGBToHSB is the default RGB2HSB converter.
//
// The packed 0xRRGGBB input is converted to hue in degrees (0..359),
// saturation and brightness in percent (0..100), packed as H<<16 | S<<8 | B.
func RGBToHSB(rgb uint32) (hsb uint32) {
	r := float64((rgb>>16)&0xff) / 255
	g := float64((rgb>>8)&0xff) / 255
	b := float64(rgb&0xff) / 255

	high := max(r, g, b)
	low := min(r, g, b)
	delta := high - low

	var hue float64
	switch {
	case delta == 0:
		hue = 0
	case high == r:
		hue = 60 * math.Mod((g-b)/delta, 6)
	case high == g:
		hue = 60 * ((b-r)/delta + 2)
	default:
		hue = 60 * ((r-g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}

	var saturation float64
	if high > 0 {
		saturation = delta / high
	}

	h := uint32(math.Round(hue)) % 360
	s := uint32(math.Round(saturation * 100))
	v := uint32(math.Round(high * 100))

	hsb = h<<16 | s<<8 | v
	return
}
