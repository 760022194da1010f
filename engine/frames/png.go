package frames

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io/fs"
	"path"
	"strings"

	xdraw "golang.org/x/image/draw"
	"gopkg.in/ini.v1"
)

// Metadata keys understood by the PNG loader
const (
	KeyFrameSize   = "FrameSize"
	KeyFrameAmount = "FrameAmount"
	KeyOffset      = "Offset"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// PNGLoader decodes PNG files. Paletted images become Indexed8 frames, as
// do 8-bit grayscale images that name overlay sources (coverage masks).
// Everything else becomes non-premultiplied RGBA. tEXt chunks and an
// optional INI sidecar (<name without ext>.meta) provide metadata.
type PNGLoader struct{}

func (PNGLoader) Load(fsys fs.FS, name string) (*Asset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	asset, gray, err := decodePNGSheet(data)
	if err != nil {
		return nil, fmt.Errorf("png %s: %w", name, err)
	}

	sidecar := strings.TrimSuffix(name, path.Ext(name)) + ".meta"
	if meta, err := fs.ReadFile(fsys, sidecar); err == nil {
		extra, err := ParseSidecar(meta)
		if err != nil {
			return nil, fmt.Errorf("png %s: sidecar: %w", name, err)
		}
		asset.Metadata.Merge(extra)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("png %s: sidecar: %w", name, err)
	}
	if gray {
		resolveGray(asset)
	}
	asset, err = splitPNGAsset(asset)
	if err != nil {
		return nil, fmt.Errorf("png %s: %w", name, err)
	}
	return asset, nil
}

// DecodePNG decodes a PNG and its text metadata, splitting it into frames
// when FrameSize is present.
func DecodePNG(data []byte) (*Asset, error) {
	a, gray, err := decodePNGSheet(data)
	if err != nil {
		return nil, err
	}
	if gray {
		resolveGray(a)
	}
	return splitPNGAsset(a)
}

// decodePNGSheet decodes the whole image as a single frame. gray reports an
// 8-bit grayscale image, held as Indexed8 until resolveGray sees the final
// metadata.
func decodePNGSheet(data []byte) (a *Asset, gray bool, err error) {
	meta, err := readPNGText(data)
	if err != nil {
		return nil, false, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if g, ok := img.(*image.Gray); ok {
		return &Asset{Frames: []Frame{grayFrame(g)}, Metadata: meta}, true, nil
	}
	return &Asset{Frames: []Frame{imageFrame(img)}, Metadata: meta}, false, nil
}

func grayFrame(g *image.Gray) Frame {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pix[y*w:(y+1)*w], g.Pix[off:off+w])
	}
	return Frame{Width: w, Height: h, Format: Indexed8, Data: pix, FrameSize: image.Pt(w, h)}
}

// resolveGray keeps a grayscale frame as a coverage mask when the asset
// lists overlay sources, and widens it to opaque RGBA otherwise
func resolveGray(a *Asset) {
	if len(SourceFilenames(a.Metadata)) > 0 {
		return
	}
	for i, f := range a.Frames {
		rgba := make([]byte, len(f.Data)*4)
		for j, v := range f.Data {
			rgba[j*4], rgba[j*4+1], rgba[j*4+2], rgba[j*4+3] = v, v, v, 255
		}
		f.Format = RGBA
		f.Data = rgba
		a.Frames[i] = f
	}
}

// ParseSidecar reads an INI sidecar. Keys of the default section are used
// in file order.
func ParseSidecar(data []byte) (Metadata, error) {
	var m Metadata
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, k := range cfg.Section(ini.DefaultSection).Keys() {
		m.Set(k.Name(), k.Value())
	}
	return m, nil
}

// imageFrame copies an image into a frame buffer
func imageFrame(img image.Image) Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if p, ok := img.(*image.Paletted); ok {
		pix := make([]byte, w*h)
		for y := 0; y < h; y++ {
			off := p.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pix[y*w:(y+1)*w], p.Pix[off:off+w])
		}
		return Frame{Width: w, Height: h, Format: Indexed8, Data: pix, FrameSize: image.Pt(w, h)}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if n, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			off := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], n.Pix[off:off+w*4])
		}
	} else {
		xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	}
	return Frame{Width: w, Height: h, Format: RGBA, Data: dst.Pix, FrameSize: image.Pt(w, h)}
}

// splitPNGAsset cuts a single sheet frame into FrameSize cells, row-major
func splitPNGAsset(a *Asset) (*Asset, error) {
	size, ok, err := a.Metadata.Point(KeyFrameSize)
	if err != nil || !ok || len(a.Frames) != 1 {
		return a, err
	}
	sheet := a.Frames[0]
	if size.X <= 0 || size.Y <= 0 || size.X > sheet.Width || size.Y > sheet.Height {
		return nil, fmt.Errorf("%w: frame size %v on %dx%d sheet", ErrMalformed, size, sheet.Width, sheet.Height)
	}
	cols := sheet.Width / size.X
	amount := cols * (sheet.Height / size.Y)
	if n, ok, err := a.Metadata.Int(KeyFrameAmount); err != nil {
		return nil, err
	} else if ok {
		if n < 0 || n > amount {
			return nil, fmt.Errorf("%w: %d frames do not fit a %dx%d sheet", ErrMalformed, n, sheet.Width, sheet.Height)
		}
		amount = n
	}

	bpp := sheet.Format.BytesPerPixel()
	out := make([]Frame, amount)
	for i := range out {
		ox := (i % cols) * size.X
		oy := (i / cols) * size.Y
		pix := make([]byte, size.X*size.Y*bpp)
		for y := 0; y < size.Y; y++ {
			src := ((oy+y)*sheet.Width + ox) * bpp
			copy(pix[y*size.X*bpp:(y+1)*size.X*bpp], sheet.Data[src:src+size.X*bpp])
		}
		off, _, err := a.Metadata.Point(IndexedKey(KeyOffset, i))
		if err != nil {
			return nil, err
		}
		out[i] = Frame{
			Width:     size.X,
			Height:    size.Y,
			Format:    sheet.Format,
			Data:      pix,
			Offset:    off,
			FrameSize: size,
		}
	}
	return &Asset{Frames: out, Metadata: a.Metadata}, nil
}

// readPNGText walks the chunk list and collects tEXt key/value pairs
func readPNGText(data []byte) (Metadata, error) {
	var m Metadata
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return m, fmt.Errorf("%w: not a png", ErrMalformed)
	}
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[pos:]))
		typ := string(data[pos+4 : pos+8])
		end := pos + 8 + n + 4
		if n < 0 || end > len(data) {
			return m, fmt.Errorf("%w: chunk %q overruns file", ErrMalformed, typ)
		}
		if typ == "tEXt" {
			body := data[pos+8 : pos+8+n]
			if i := bytes.IndexByte(body, 0); i > 0 {
				m.Set(string(body[:i]), string(body[i+1:]))
			}
		}
		if typ == "IEND" {
			break
		}
		pos = end
	}
	return m, nil
}

// EncodePNG encodes img and inserts one tEXt chunk per metadata key
// right after the IHDR chunk.
func EncodePNG(img image.Image, meta Metadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	// signature + IHDR (length, type, 13 byte body, crc)
	ihdrEnd := len(pngSignature) + 8 + 13 + 4
	if len(data) < ihdrEnd {
		return nil, fmt.Errorf("%w: encoder produced short png", ErrMalformed)
	}

	var out bytes.Buffer
	out.Write(data[:ihdrEnd])
	for _, k := range meta.Keys() {
		v, _ := meta.Get(k)
		writeChunk(&out, "tEXt", append(append([]byte(k), 0), v...))
	}
	out.Write(data[ihdrEnd:])
	return out.Bytes(), nil
}

func writeChunk(w *bytes.Buffer, typ string, body []byte) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(body)))
	copy(hdr[4:], typ)
	w.Write(hdr[:])
	w.Write(body)
	crc := crc32.NewIEEE()
	crc.Write(hdr[4:])
	crc.Write(body)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}
