package palette

import (
	"fmt"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ColorShift re-hues the part of a palette that holds remappable
// player colour. Hues are fractions of a full turn in [0, 1).
type ColorShift struct {
	MinHue              float64
	MaxHue              float64
	ReferenceHue        float64
	ReferenceSaturation float64
}

// DefaultColorShift matches the red remap ramp used by the stock unit palettes
var DefaultColorShift = ColorShift{
	MinHue:              0.83,
	MaxHue:              0.84,
	ReferenceHue:        0.835,
	ReferenceSaturation: 1,
}

// Validate checks the hue and saturation ranges
func (cs ColorShift) Validate() error {
	for _, v := range []float64{cs.MinHue, cs.MaxHue, cs.ReferenceHue, cs.ReferenceSaturation} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("palette: color shift value %v out of [0,1]", v)
		}
	}
	return nil
}

// InRange reports whether hue h (in turns) falls in the shifted range.
// MinHue > MaxHue describes a range that wraps through 0.
func (cs ColorShift) InRange(h float64) bool {
	if cs.MinHue <= cs.MaxHue {
		return h >= cs.MinHue && h <= cs.MaxHue
	}
	return h >= cs.MinHue || h <= cs.MaxHue
}

// Apply returns a copy of p with every entry in the hue range moved by the
// hue and saturation difference between target and the reference.
// Brightness and alpha are kept. Index 0 and transparent entries are skipped.
func (cs ColorShift) Apply(p Palette, target color.Color) Palette {
	tc, ok := colorful.MakeColor(target)
	if !ok {
		return p
	}
	th, ts, _ := tc.Hsv()
	hueOffset := th/360 - cs.ReferenceHue
	satOffset := ts - cs.ReferenceSaturation

	out := p
	for i := 1; i < len(out); i++ {
		c := out[i]
		if c.A == 0 {
			continue
		}
		src := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
		h, s, v := src.Hsv()
		if !cs.InRange(h / 360) {
			continue
		}
		nh := math.Mod(h/360+hueOffset, 1)
		if nh < 0 {
			nh++
		}
		ns := clamp(s+satOffset, 0, 1)
		r, g, b := colorful.Hsv(nh*360, ns, v).Clamped().RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: c.A}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
