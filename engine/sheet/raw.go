package sheet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/klauspost/compress/zstd"
)

var rawMagic = [4]byte{'B', 'G', 'R', 'A'}

// maxRawPage bounds the page size accepted by ReadRaw
const maxRawPage = 16384

var ErrBadRaw = errors.New("sheet: bad raw page")

type rawHeader struct {
	Magic  [4]byte
	Width  uint32
	Height uint32
}

// WriteRaw dumps a page as a header followed by zstd-compressed BGRA pixels
func WriteRaw(w io.Writer, s *Sheet) error {
	if s.Disposed() {
		return ErrDisposed
	}
	hdr := rawHeader{Magic: rawMagic, Width: uint32(s.Size.X), Height: uint32(s.Size.Y)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if _, err := enc.Write(s.Pixels()); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadRaw loads a page written by WriteRaw
func ReadRaw(r io.Reader) (*Sheet, error) {
	var hdr rawHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRaw, err)
	}
	if hdr.Magic != rawMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadRaw, hdr.Magic[:])
	}
	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > maxRawPage || hdr.Height > maxRawPage {
		return nil, fmt.Errorf("%w: size %dx%d", ErrBadRaw, hdr.Width, hdr.Height)
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	s := newSheet(0, image.Pt(int(hdr.Width), int(hdr.Height)))
	if _, err := io.ReadFull(dec, s.pix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRaw, err)
	}
	return s, nil
}
