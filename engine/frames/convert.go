package frames

import (
	"fmt"

	"github.com/1siamBot/rts-tilecache/engine/palette"
)

// ToBGRA returns the frame as a premultiplied BGRA buffer, the layout sheet
// pages hold. Direct colour frames carry straight alpha and are
// premultiplied here; indexed frames are resolved through pal.
func ToBGRA(f Frame, pal *palette.Palette) ([]byte, error) {
	n := f.Width * f.Height
	switch f.Format {
	case BGRA:
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			o := i * 4
			premultiply(out[o:o+4], f.Data[o], f.Data[o+1], f.Data[o+2], f.Data[o+3])
		}
		return out, nil
	case RGBA:
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			o := i * 4
			premultiply(out[o:o+4], f.Data[o+2], f.Data[o+1], f.Data[o], f.Data[o+3])
		}
		return out, nil
	case Indexed8:
		if pal == nil {
			return nil, ErrNoPalette
		}
		out := make([]byte, n*4)
		for i, idx := range f.Data[:n] {
			c := pal.BGRA(idx)
			copy(out[i*4:i*4+4], c[:])
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown format %s", ErrMalformed, f.Format)
}

// premultiply writes b, g, r scaled by a into dst, rounding like
// palette.Palette.BGRA
func premultiply(dst []byte, b, g, r, a uint8) {
	if a == 255 {
		dst[0], dst[1], dst[2], dst[3] = b, g, r, 255
		return
	}
	av := uint32(a)
	dst[0] = uint8(uint32(b) * av / 255)
	dst[1] = uint8(uint32(g) * av / 255)
	dst[2] = uint8(uint32(r) * av / 255)
	dst[3] = a
}
