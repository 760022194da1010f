package sheet

import (
	"bytes"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/1siamBot/rts-tilecache/engine/frames"
)

func TestBuilderShelfPacking(t *testing.T) {
	b := NewBuilder(image.Pt(10, 10), 1)

	a, err := b.Allocate(image.Pt(4, 3), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.Allocate(image.Pt(4, 5), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	// does not fit on the first shelf (4+1+4+1+4 > 10)
	d, err := b.Allocate(image.Pt(4, 2), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Bounds != image.Rect(0, 0, 4, 3) || c.Bounds != image.Rect(5, 0, 9, 5) {
		t.Fatalf("first shelf: %v %v", a.Bounds, c.Bounds)
	}
	if d.Bounds != image.Rect(0, 6, 4, 8) {
		t.Fatalf("second shelf: %v", d.Bounds)
	}

	e, err := b.Allocate(image.Pt(3, 3), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if e.Sheet != a.Sheet || e.Bounds != image.Rect(5, 6, 8, 9) {
		t.Fatalf("expected a slot next to d, got sheet %d %v", e.Sheet.ID, e.Bounds)
	}

	// overflows the page
	f, err := b.Allocate(image.Pt(10, 4), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if f.Sheet == a.Sheet || f.Bounds != image.Rect(0, 0, 10, 4) {
		t.Fatalf("expected a new page, got sheet %d %v", f.Sheet.ID, f.Bounds)
	}
	if len(b.Sheets()) != 2 {
		t.Fatalf("got %d sheets", len(b.Sheets()))
	}
}

func TestBuilderRejectsOversized(t *testing.T) {
	b := NewBuilder(image.Pt(8, 8), 0)
	if _, err := b.Allocate(image.Pt(9, 1), image.Point{}); !errors.Is(err, ErrSpriteTooLarge) {
		t.Fatalf("got %v", err)
	}
}

func TestAddReordersRGBA(t *testing.T) {
	b := NewBuilder(image.Pt(4, 4), 0)
	s, err := b.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8}, frames.RGBA, image.Pt(2, 1), image.Pt(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	pix := s.Sheet.Pixels()
	if !bytes.Equal(pix[:8], []byte{3, 2, 1, 4, 7, 6, 5, 8}) {
		t.Fatalf("sheet pixels %v", pix[:8])
	}
	img := s.Sheet.Image()
	if got := img.RGBAAt(1, 0); got.R != 5 || got.B != 7 || got.A != 8 {
		t.Fatalf("image pixel %v", got)
	}

	if _, err := b.Add([]byte{1}, frames.Indexed8, image.Pt(1, 1), image.Point{}); !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("got %v", err)
	}
	if _, err := b.Add(make([]byte, 3), frames.BGRA, image.Pt(1, 1), image.Point{}); !errors.Is(err, frames.ErrBufferLength) {
		t.Fatalf("got %v", err)
	}
}

func TestSpriteRect(t *testing.T) {
	s := &Sprite{Offset: image.Pt(2, -1), Size: image.Pt(24, 12)}
	if got := s.Rect(); got != image.Rect(-10, -7, 14, 5) {
		t.Fatalf("rect %v", got)
	}
}

func TestEmptySpriteTakesNoSpace(t *testing.T) {
	b := NewBuilder(image.Pt(4, 4), 0)
	e, err := b.Add(nil, frames.BGRA, image.Point{}, image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if !e.Bounds.Empty() {
		t.Fatalf("bounds %v", e.Bounds)
	}
	s, err := b.Allocate(image.Pt(4, 4), image.Point{})
	if err != nil || s.Bounds != image.Rect(0, 0, 4, 4) {
		t.Fatalf("%v %v", s.Bounds, err)
	}
}

func TestConcurrentAdd(t *testing.T) {
	b := NewBuilder(image.Pt(64, 64), 1)
	var wg sync.WaitGroup
	sprites := make([]*Sprite, 64)
	for i := range sprites {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf := bytes.Repeat([]byte{byte(i), 0, 0, 255}, 8*8)
			s, err := b.Add(buf, frames.BGRA, image.Pt(8, 8), image.Point{})
			if err != nil {
				t.Error(err)
				return
			}
			sprites[i] = s
		}(i)
	}
	wg.Wait()

	for i, a := range sprites {
		for j, c := range sprites[:i] {
			if a.Sheet == c.Sheet && a.Bounds.Overlaps(c.Bounds) {
				t.Fatalf("sprites %d and %d overlap: %v %v", i, j, a.Bounds, c.Bounds)
			}
		}
		pix := a.Sheet.Pixels()
		o := (a.Bounds.Min.Y*64 + a.Bounds.Min.X) * 4
		if pix[o] != byte(i) {
			t.Fatalf("sprite %d holds %d", i, pix[o])
		}
	}
}

func TestDispose(t *testing.T) {
	b := NewBuilder(image.Pt(4, 4), 0)
	s, err := b.Add(make([]byte, 16), frames.BGRA, image.Pt(2, 2), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	b.Dispose()
	if !s.Sheet.Disposed() || len(b.Sheets()) != 0 {
		t.Fatal("builder did not dispose its sheets")
	}
	if err := s.Copy(make([]byte, 16), frames.BGRA); !errors.Is(err, ErrDisposed) {
		t.Fatalf("got %v", err)
	}
}

func TestRawRoundTrip(t *testing.T) {
	b := NewBuilder(image.Pt(16, 8), 0)
	buf := make([]byte, 5*3*4)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	s, err := b.Add(buf, frames.BGRA, image.Pt(5, 3), image.Point{})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := WriteRaw(&out, s.Sheet); err != nil {
		t.Fatal(err)
	}
	got, err := ReadRaw(&out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size != s.Sheet.Size || !bytes.Equal(got.Pixels(), s.Sheet.Pixels()) {
		t.Fatal("raw page differs after reload")
	}

	if _, err := ReadRaw(bytes.NewReader([]byte("PNG\x00\x01\x00\x00\x00\x01\x00\x00\x00"))); !errors.Is(err, ErrBadRaw) {
		t.Fatalf("got %v", err)
	}
}
