package frames

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io/fs"
)

// shpHeader is the TS/RA2 SHP file header. The leading zero word
// distinguishes it from the older TD/RA format.
type shpHeader struct {
	Zero      uint16
	Width     uint16
	Height    uint16
	NumFrames uint16
}

// shpFrameHeader is the 24 byte per-frame record
type shpFrameHeader struct {
	X, Y          uint16
	Width, Height uint16
	Compression   uint8
	_             [3]byte
	RadarColor    uint32
	_             uint32
	Offset        uint32
}

const (
	shpHeaderSize      = 8
	shpFrameHeaderSize = 24
)

// SHPLoader decodes TS/RA2 SHP files into Indexed8 frames. Every frame is
// placed on the full file canvas so all frames of one file share a size.
type SHPLoader struct{}

func (SHPLoader) Load(fsys fs.FS, name string) (*Asset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	frames, err := DecodeSHP(data)
	if err != nil {
		return nil, fmt.Errorf("shp %s: %w", name, err)
	}
	return &Asset{Frames: frames}, nil
}

// DecodeSHP parses a whole SHP file
func DecodeSHP(data []byte) ([]Frame, error) {
	if len(data) < shpHeaderSize {
		return nil, fmt.Errorf("%w: shp too small", ErrMalformed)
	}
	r := bytes.NewReader(data)
	var hdr shpHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if hdr.Zero != 0 {
		return nil, fmt.Errorf("%w: not a TS shp", ErrMalformed)
	}
	if len(data) < shpHeaderSize+int(hdr.NumFrames)*shpFrameHeaderSize {
		return nil, fmt.Errorf("%w: truncated frame table", ErrMalformed)
	}

	headers := make([]shpFrameHeader, hdr.NumFrames)
	if err := binary.Read(r, binary.LittleEndian, headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	canvas := image.Rect(0, 0, int(hdr.Width), int(hdr.Height))
	out := make([]Frame, len(headers))
	for i, fh := range headers {
		f, err := decodeSHPFrame(data, canvas, fh)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func decodeSHPFrame(data []byte, canvas image.Rectangle, fh shpFrameHeader) (Frame, error) {
	cw, ch := canvas.Dx(), canvas.Dy()
	pix := make([]byte, cw*ch)
	f := Frame{
		Width:     cw,
		Height:    ch,
		Format:    Indexed8,
		Data:      pix,
		FrameSize: canvas.Size(),
	}

	w, h := int(fh.Width), int(fh.Height)
	if w == 0 || h == 0 {
		// Empty/shadow frame
		return f, nil
	}
	rect := image.Rect(int(fh.X), int(fh.Y), int(fh.X)+w, int(fh.Y)+h)
	if !rect.In(canvas) {
		return Frame{}, fmt.Errorf("%w: frame rect %v outside canvas %v", ErrMalformed, rect, canvas)
	}

	pos := int(fh.Offset)
	row := func(y int) []byte {
		start := (rect.Min.Y+y)*cw + rect.Min.X
		return pix[start : start+w]
	}

	switch fh.Compression {
	case 3:
		// RLE-zero compressed scanlines, each prefixed by its length
		for y := 0; y < h; y++ {
			if pos+2 > len(data) {
				return Frame{}, fmt.Errorf("%w: scanline %d past end", ErrMalformed, y)
			}
			lineLen := int(binary.LittleEndian.Uint16(data[pos:]))
			if lineLen < 2 || pos+lineLen > len(data) {
				return Frame{}, fmt.Errorf("%w: scanline %d length %d", ErrMalformed, y, lineLen)
			}
			decodeRLEZeros(data[pos+2:pos+lineLen], row(y))
			pos += lineLen
		}
	case 2:
		// Uncompressed scanlines with a length prefix
		for y := 0; y < h; y++ {
			if pos+2 > len(data) {
				return Frame{}, fmt.Errorf("%w: scanline %d past end", ErrMalformed, y)
			}
			lineLen := int(binary.LittleEndian.Uint16(data[pos:]))
			if lineLen < 2 || pos+lineLen > len(data) {
				return Frame{}, fmt.Errorf("%w: scanline %d length %d", ErrMalformed, y, lineLen)
			}
			copy(row(y), data[pos+2:pos+lineLen])
			pos += lineLen
		}
	default:
		// Uncompressed full-width rows
		if pos+w*h > len(data) {
			return Frame{}, fmt.Errorf("%w: raw frame past end", ErrMalformed)
		}
		for y := 0; y < h; y++ {
			copy(row(y), data[pos+y*w:pos+(y+1)*w])
		}
	}
	return f, nil
}

// decodeRLEZeros expands a scanline where a zero byte is followed by the
// length of a transparent run. Output past dst is dropped.
func decodeRLEZeros(src, dst []byte) {
	x := 0
	for i := 0; i < len(src) && x < len(dst); i++ {
		v := src[i]
		if v != 0 {
			dst[x] = v
			x++
			continue
		}
		i++
		if i >= len(src) {
			return
		}
		x += int(src[i])
	}
}

// EncodeSHP writes frames as an uncompressed TS SHP. All frames must be
// Indexed8 and share one size. Used by tools and tests to produce assets.
func EncodeSHP(frames []Frame) ([]byte, error) {
	var w, h int
	if len(frames) > 0 {
		w, h = frames[0].Width, frames[0].Height
	}
	var buf bytes.Buffer
	hdr := shpHeader{Width: uint16(w), Height: uint16(h), NumFrames: uint16(len(frames))}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	offset := shpHeaderSize + len(frames)*shpFrameHeaderSize
	for i, f := range frames {
		if f.Format != Indexed8 || f.Width != w || f.Height != h {
			return nil, fmt.Errorf("%w: frame %d is %s %dx%d", ErrMalformed, i, f.Format, f.Width, f.Height)
		}
		fh := shpFrameHeader{
			Width:       uint16(w),
			Height:      uint16(h),
			Compression: 1,
			Offset:      uint32(offset + i*w*h),
		}
		if err := binary.Write(&buf, binary.LittleEndian, fh); err != nil {
			return nil, err
		}
	}
	for _, f := range frames {
		buf.Write(f.Data)
	}
	return buf.Bytes(), nil
}
