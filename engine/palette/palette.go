// Package palette reads RA2/TS 256-colour palettes and re-hues them
// toward player colours.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
)

// Size is the byte length of a .pal file: 256 entries of 6-bit RGB
const Size = 256 * 3

var ErrShortPalette = errors.New("palette: short palette data")

// Palette is a 256 entry colour table. Index 0 is transparent.
type Palette [256]color.RGBA

// Parse reads a 768 byte palette. RA2 palettes store 6-bit channels (0-63),
// which are scaled by 4.
func Parse(data []byte) (Palette, error) {
	var p Palette
	if len(data) < Size {
		return p, fmt.Errorf("%w: %d bytes", ErrShortPalette, len(data))
	}
	for i := 0; i < 256; i++ {
		p[i] = color.RGBA{
			R: data[i*3] << 2,
			G: data[i*3+1] << 2,
			B: data[i*3+2] << 2,
			A: 255,
		}
	}
	p[0].A = 0
	p[0].R, p[0].G, p[0].B = 0, 0, 0
	return p, nil
}

// Load reads and parses a palette file from fsys
func Load(fsys fs.FS, name string) (Palette, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Palette{}, fmt.Errorf("palette %s: %w", name, err)
	}
	p, err := Parse(data)
	if err != nil {
		return Palette{}, fmt.Errorf("palette %s: %w", name, err)
	}
	return p, nil
}

// Grayscale is the fallback used when no palette is available
func Grayscale() Palette {
	var p Palette
	for i := range p {
		p[i] = color.RGBA{uint8(i), uint8(i), uint8(i), 255}
	}
	p[0] = color.RGBA{}
	return p
}

// BGRA returns the premultiplied B, G, R, A bytes for an index
func (p *Palette) BGRA(index uint8) [4]byte {
	c := p[index]
	if c.A == 255 {
		return [4]byte{c.B, c.G, c.R, 255}
	}
	a := uint32(c.A)
	return [4]byte{
		uint8(uint32(c.B) * a / 255),
		uint8(uint32(c.G) * a / 255),
		uint8(uint32(c.R) * a / 255),
		c.A,
	}
}

// Encode writes the palette back to the 6-bit on-disk form
func (p *Palette) Encode() []byte {
	out := make([]byte, Size)
	for i, c := range p {
		out[i*3] = c.R >> 2
		out[i*3+1] = c.G >> 2
		out[i*3+2] = c.B >> 2
	}
	return out
}
