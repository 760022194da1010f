// Package sheet packs sprite pixels into fixed-size BGRA pages ready for
// GPU upload.
package sheet

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/1siamBot/rts-tilecache/engine/frames"
)

var (
	ErrSpriteTooLarge    = errors.New("sheet: sprite does not fit on a page")
	ErrUnsupportedLayout = errors.New("sheet: unsupported source layout")
	ErrDisposed          = errors.New("sheet: sheet disposed")
)

// Sheet is one BGRA page
type Sheet struct {
	ID   int
	Size image.Point

	mu       sync.RWMutex
	pix      []byte
	disposed bool
}

func newSheet(id int, size image.Point) *Sheet {
	return &Sheet{ID: id, Size: size, pix: make([]byte, size.X*size.Y*4)}
}

// Pixels returns a copy of the BGRA page
func (s *Sheet) Pixels() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.pix))
	copy(out, s.pix)
	return out
}

// Image converts the page to an RGBA image. The page holds premultiplied
// colour, which matches image.RGBA.
func (s *Sheet) Image() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img := image.NewRGBA(image.Rect(0, 0, s.Size.X, s.Size.Y))
	if s.disposed {
		return img
	}
	for i := 0; i+3 < len(s.pix); i += 4 {
		img.Pix[i] = s.pix[i+2]
		img.Pix[i+1] = s.pix[i+1]
		img.Pix[i+2] = s.pix[i]
		img.Pix[i+3] = s.pix[i+3]
	}
	return img
}

// Dispose drops the page pixels
func (s *Sheet) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pix = nil
	s.disposed = true
}

func (s *Sheet) Disposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

// copyInto writes a size.X x size.Y source buffer at rect.Min
func (s *Sheet) copyInto(rect image.Rectangle, buf []byte, layout frames.Format) error {
	w, h := rect.Dx(), rect.Dy()
	if len(buf) != w*h*4 {
		return fmt.Errorf("%w: want %d bytes for %dx%d, got %d", frames.ErrBufferLength, w*h*4, w, h, len(buf))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	stride := s.Size.X * 4
	for y := 0; y < h; y++ {
		dst := s.pix[(rect.Min.Y+y)*stride+rect.Min.X*4:][:w*4]
		src := buf[y*w*4 : (y+1)*w*4]
		switch layout {
		case frames.BGRA:
			copy(dst, src)
		case frames.RGBA:
			for x := 0; x < w*4; x += 4 {
				dst[x] = src[x+2]
				dst[x+1] = src[x+1]
				dst[x+2] = src[x]
				dst[x+3] = src[x+3]
			}
		}
	}
	return nil
}

// Sprite is a region of a sheet
type Sprite struct {
	Sheet  *Sheet
	Bounds image.Rectangle // pixels on the sheet
	Offset image.Point     // centre offset from the sprite origin
	Size   image.Point
}

// Rect is the area the sprite covers around its origin
func (s *Sprite) Rect() image.Rectangle {
	tl := s.Offset.Sub(s.Size.Div(2))
	return image.Rectangle{Min: tl, Max: tl.Add(s.Size)}
}

// Copy writes buf, laid out as layout, into the sprite region. BGRA is copied
// as is and RGBA is reordered to BGRA.
func (s *Sprite) Copy(buf []byte, layout frames.Format) error {
	if layout != frames.BGRA && layout != frames.RGBA {
		return fmt.Errorf("%w: %s", ErrUnsupportedLayout, layout)
	}
	if s.Size.X == 0 || s.Size.Y == 0 {
		return nil
	}
	return s.Sheet.copyInto(s.Bounds, buf, layout)
}

// Builder allocates sprite regions with shelf packing and opens a new page
// when the current one is full. It is safe for concurrent use.
type Builder struct {
	pageSize image.Point
	margin   int

	mu        sync.Mutex
	sheets    []*Sheet
	cursor    image.Point
	rowHeight int
}

// DefaultPageSize is used when NewBuilder gets a zero size
var DefaultPageSize = image.Pt(2048, 2048)

// NewBuilder creates a builder with the given page size and gap between sprites
func NewBuilder(pageSize image.Point, margin int) *Builder {
	if pageSize.X <= 0 || pageSize.Y <= 0 {
		pageSize = DefaultPageSize
	}
	if margin < 0 {
		margin = 0
	}
	return &Builder{pageSize: pageSize, margin: margin}
}

// PageSize returns the size of every page
func (b *Builder) PageSize() image.Point {
	return b.pageSize
}

// Allocate reserves a region of size on a page
func (b *Builder) Allocate(size, offset image.Point) (*Sprite, error) {
	if size.X < 0 || size.Y < 0 {
		return nil, fmt.Errorf("sheet: negative sprite size %v", size)
	}
	if size.X > b.pageSize.X || size.Y > b.pageSize.Y {
		return nil, fmt.Errorf("%w: %v on %v page", ErrSpriteTooLarge, size, b.pageSize)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.sheets) == 0 {
		b.newPage()
	}
	if size.X == 0 || size.Y == 0 {
		return &Sprite{Sheet: b.sheets[len(b.sheets)-1], Offset: offset}, nil
	}

	if b.cursor.X+size.X > b.pageSize.X {
		// next shelf
		b.cursor.X = 0
		b.cursor.Y += b.rowHeight + b.margin
		b.rowHeight = 0
	}
	if b.cursor.Y+size.Y > b.pageSize.Y {
		b.newPage()
	}

	rect := image.Rectangle{Min: b.cursor, Max: b.cursor.Add(size)}
	b.cursor.X += size.X + b.margin
	if size.Y > b.rowHeight {
		b.rowHeight = size.Y
	}
	return &Sprite{
		Sheet:  b.sheets[len(b.sheets)-1],
		Bounds: rect,
		Offset: offset,
		Size:   size,
	}, nil
}

func (b *Builder) newPage() {
	b.sheets = append(b.sheets, newSheet(len(b.sheets), b.pageSize))
	b.cursor = image.Point{}
	b.rowHeight = 0
}

// Add allocates a region and copies buf into it
func (b *Builder) Add(buf []byte, layout frames.Format, size, offset image.Point) (*Sprite, error) {
	if layout != frames.BGRA && layout != frames.RGBA {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, layout)
	}
	if len(buf) != size.X*size.Y*4 {
		return nil, fmt.Errorf("%w: want %d bytes for %v, got %d", frames.ErrBufferLength, size.X*size.Y*4, size, len(buf))
	}
	s, err := b.Allocate(size, offset)
	if err != nil {
		return nil, err
	}
	if err := s.Copy(buf, layout); err != nil {
		return nil, err
	}
	return s, nil
}

// Sheets returns the pages allocated so far
func (b *Builder) Sheets() []*Sheet {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Sheet, len(b.sheets))
	copy(out, b.sheets)
	return out
}

// Dispose releases every page
func (b *Builder) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sheets {
		s.Dispose()
	}
	b.sheets = nil
	b.cursor = image.Point{}
	b.rowHeight = 0
}
