package frames

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrUnknownAsset = errors.New("frames: no loader for asset")
	ErrMalformed    = errors.New("frames: malformed asset")
	ErrBufferLength = errors.New("frames: buffer length does not match frame size")
	ErrNoPalette    = errors.New("frames: indexed frame needs a palette")
)

// Format is the pixel layout of a frame buffer
type Format uint8

const (
	Indexed8 Format = iota // 1 byte per pixel: palette index or alpha coverage
	BGRA                   // 4 bytes per pixel, B G R A
	RGBA                   // 4 bytes per pixel, R G B A
)

// BytesPerPixel returns the size of one pixel in this layout
func (f Format) BytesPerPixel() int {
	switch f {
	case Indexed8:
		return 1
	case BGRA, RGBA:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case Indexed8:
		return "Indexed8"
	case BGRA:
		return "BGRA"
	case RGBA:
		return "RGBA"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Frame is a decoded image. Frames are treated as immutable once loaded:
// nothing in this module writes into Data after decoding.
type Frame struct {
	Width, Height int
	Format        Format
	Data          []byte

	// Offset is the position of the frame centre relative to the sprite origin
	Offset image.Point
	// FrameSize is the canvas the frame was cut from (equal to Size for most loaders)
	FrameSize image.Point
}

// NewFrame validates the buffer against the dimensions and format
func NewFrame(width, height int, format Format, data []byte) (Frame, error) {
	if width < 0 || height < 0 {
		return Frame{}, fmt.Errorf("%w: negative size %dx%d", ErrMalformed, width, height)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return Frame{}, fmt.Errorf("%w: unknown format %s", ErrMalformed, format)
	}
	if len(data) != width*height*bpp {
		return Frame{}, fmt.Errorf("%w: %dx%d %s wants %d bytes, got %d",
			ErrBufferLength, width, height, format, width*height*bpp, len(data))
	}
	return Frame{
		Width:     width,
		Height:    height,
		Format:    format,
		Data:      data,
		FrameSize: image.Pt(width, height),
	}, nil
}

// Size returns width and height as a point
func (f Frame) Size() image.Point {
	return image.Pt(f.Width, f.Height)
}

// Stride is the number of bytes per row
func (f Frame) Stride() int {
	return f.Width * f.Format.BytesPerPixel()
}

// Empty reports whether the frame covers no pixels
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0
}
