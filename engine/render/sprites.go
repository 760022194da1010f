package render

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/1siamBot/rts-tilecache/engine/sheet"
)

// SheetImages uploads sheet pages to the GPU once and hands out sprite
// sub-images
type SheetImages struct {
	mu     sync.Mutex
	pages  map[*sheet.Sheet]*ebiten.Image
	sprite map[*sheet.Sprite]*ebiten.Image
}

func NewSheetImages() *SheetImages {
	return &SheetImages{
		pages:  make(map[*sheet.Sheet]*ebiten.Image),
		sprite: make(map[*sheet.Sprite]*ebiten.Image),
	}
}

// Sprite returns the GPU image for s, uploading its page on first use.
// Empty and disposed sprites return nil.
func (si *SheetImages) Sprite(s *sheet.Sprite) *ebiten.Image {
	if s == nil || s.Bounds.Empty() {
		return nil
	}
	si.mu.Lock()
	defer si.mu.Unlock()
	if img, ok := si.sprite[s]; ok {
		return img
	}
	page, ok := si.pages[s.Sheet]
	if !ok {
		if s.Sheet.Disposed() {
			return nil
		}
		page = ebiten.NewImageFromImage(s.Sheet.Image())
		si.pages[s.Sheet] = page
	}
	img := page.SubImage(s.Bounds).(*ebiten.Image)
	si.sprite[s] = img
	return img
}

// Pages returns the number of uploaded pages
func (si *SheetImages) Pages() int {
	si.mu.Lock()
	defer si.mu.Unlock()
	return len(si.pages)
}

// Dispose deallocates every uploaded page
func (si *SheetImages) Dispose() {
	si.mu.Lock()
	defer si.mu.Unlock()
	for _, img := range si.pages {
		img.Deallocate()
	}
	si.pages = make(map[*sheet.Sheet]*ebiten.Image)
	si.sprite = make(map[*sheet.Sprite]*ebiten.Image)
}

// spriteOrigin is the top-left of s when drawn on a cell at origin
func spriteOrigin(s *sheet.Sprite, origin, tileSize image.Point) image.Point {
	return s.Rect().Min.Add(origin).Add(tileSize.Div(2))
}
