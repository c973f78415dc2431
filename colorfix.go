package termgrid

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// fixContrast returns a foreground whose L* lightness is at least minDist
// away from the background's, preserving the foreground hue and alpha.
// minDist is in [0, 1] on colorful's Lab lightness scale; zero disables
// the fix. Colors are 0xAABBGGRR.
func fixContrast(bg, fg uint32, minDist float64) uint32 {
	if minDist <= 0 {
		return fg
	}

	bl, _, _ := rgbaColor(bg).Lab()
	fl, fa, fb := rgbaColor(fg).Lab()

	d := fl - bl
	if math.Abs(d) >= minDist {
		return fg
	}

	// Push the foreground away from the background, keeping the side it
	// already leans toward. On a tie, dark backgrounds push up.
	target := bl + minDist
	if d < 0 || (d == 0 && bl > 0.5) {
		target = bl - minDist
	}
	if target > 1 || target < 0 {
		target = bl - (target - bl)
	}

	fixed := colorful.Lab(clampLightness(target), fa, fb).Clamped()
	r := uint32(fixed.R*255 + 0.5)
	g := uint32(fixed.G*255 + 0.5)
	b := uint32(fixed.B*255 + 0.5)
	return fg&0xFF000000 | b<<16 | g<<8 | r
}

func rgbaColor(c uint32) colorful.Color {
	return colorful.Color{
		R: float64(c&0xFF) / 255,
		G: float64(c>>8&0xFF) / 255,
		B: float64(c>>16&0xFF) / 255,
	}
}

func clampLightness(l float64) float64 {
	if l < 0 {
		return 0
	}
	if l > 1 {
		return 1
	}
	return l
}
