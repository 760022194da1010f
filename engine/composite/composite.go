// Package composite blends layered terrain art through an alpha mask into a
// single premultiplied BGRA buffer.
//
// Every overlay is blended into an accumulator in order, weighted by the
// overlay's alpha times the mask coverage at that pixel. The weights are
// normalised by Denominator, which is deliberately 255*255+30 and not
// 255*255: a fully covered opaque overlay leaves a small trace of what was
// underneath, and the shipped terrain art is calibrated against that.
package composite

import (
	"errors"
	"fmt"

	"github.com/1siamBot/rts-tilecache/engine/frames"
)

// Denominator normalises the 16-bit blend weights
const Denominator = 65205

var (
	ErrUnsupportedFormat = errors.New("composite: unsupported pixel format")
	ErrDimensionMismatch = errors.New("composite: frame dimensions differ from mask")
	ErrNoOverlays        = errors.New("composite: no overlay frames")
	ErrBufferSize        = errors.New("composite: destination buffer has wrong size")
)

// Composite blends overlays into a fresh zeroed BGRA buffer of the mask's
// size. Nothing is allocated or written unless every input is valid.
func Composite(mask frames.Frame, overlays []frames.Frame) ([]byte, error) {
	if err := Validate(mask, overlays); err != nil {
		return nil, err
	}
	dst := make([]byte, mask.Width*mask.Height*4)
	blendAll(dst, mask, overlays)
	return dst, nil
}

// CompositeInto blends into dst, which must hold exactly mask.Width*mask.Height
// BGRA pixels. dst is treated as the starting accumulator, so callers reusing
// a buffer must clear it first. dst is untouched when an error is returned.
func CompositeInto(dst []byte, mask frames.Frame, overlays []frames.Frame) error {
	if err := Validate(mask, overlays); err != nil {
		return err
	}
	if len(dst) != mask.Width*mask.Height*4 {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrBufferSize, mask.Width*mask.Height*4, len(dst))
	}
	blendAll(dst, mask, overlays)
	return nil
}

// Validate checks formats, buffer lengths and sizes of a composite request
func Validate(mask frames.Frame, overlays []frames.Frame) error {
	if mask.Format != frames.Indexed8 {
		return fmt.Errorf("%w: mask is %s, want %s", ErrUnsupportedFormat, mask.Format, frames.Indexed8)
	}
	if len(mask.Data) != mask.Width*mask.Height {
		return fmt.Errorf("mask: %w", frames.ErrBufferLength)
	}
	if len(overlays) == 0 {
		return ErrNoOverlays
	}
	for i, o := range overlays {
		if o.Format != frames.BGRA && o.Format != frames.RGBA {
			return fmt.Errorf("%w: overlay %d is %s", ErrUnsupportedFormat, i, o.Format)
		}
		if o.Width != mask.Width || o.Height != mask.Height {
			return fmt.Errorf("%w: overlay %d is %dx%d, mask is %dx%d",
				ErrDimensionMismatch, i, o.Width, o.Height, mask.Width, mask.Height)
		}
		if len(o.Data) != o.Width*o.Height*4 {
			return fmt.Errorf("overlay %d: %w", i, frames.ErrBufferLength)
		}
	}
	return nil
}

func blendAll(dst []byte, mask frames.Frame, overlays []frames.Frame) {
	for _, o := range overlays {
		// channel offsets of B and R in the overlay's native order
		bi, ri := 0, 2
		if o.Format == frames.RGBA {
			bi, ri = 2, 0
		}
		for p, m := range mask.Data {
			if m == 0 {
				// zero coverage leaves the accumulator as is
				continue
			}
			s := o.Data[p*4 : p*4+4]
			d := dst[p*4 : p*4+4]
			out := Blend([4]byte{d[0], d[1], d[2], d[3]}, [4]byte{s[bi], s[1], s[ri], s[3]}, m)
			copy(d, out[:])
		}
	}
}

// Blend mixes one BGRA overlay pixel into an accumulated BGRA pixel with the
// given mask coverage. The overlay's alpha term is forced to 255 for the
// alpha channel, so coverage always pushes the result toward opaque.
func Blend(acc, overlay [4]byte, maskAlpha uint8) [4]byte {
	overlayAlpha := uint32(overlay[3]) * uint32(maskAlpha)
	baseAlpha := Denominator - overlayAlpha

	var out [4]byte
	for c := 0; c < 3; c++ {
		out[c] = uint8((uint32(overlay[c])*overlayAlpha + uint32(acc[c])*baseAlpha) / Denominator)
	}
	out[3] = uint8((255*overlayAlpha + uint32(acc[3])*baseAlpha) / Denominator)
	return out
}
