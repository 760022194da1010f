// Package preview renders tile cache contents to plain RGBA images.
package preview

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/sheet"
	"github.com/1siamBot/rts-tilecache/engine/tilecache"
)

// pages converts each sheet page at most once per render
type pages map[*sheet.Sheet]*image.RGBA

func (p pages) sub(s *sheet.Sprite) *image.RGBA {
	img, ok := p[s.Sheet]
	if !ok {
		img = s.Sheet.Image()
		p[s.Sheet] = img
	}
	return img.SubImage(s.Bounds).(*image.RGBA)
}

// SpriteImage copies one sprite out of its sheet
func SpriteImage(s *sheet.Sprite) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, s.Size.X, s.Size.Y))
	if s.Size.X == 0 || s.Size.Y == 0 {
		return out
	}
	src := pages{}.sub(s)
	xdraw.Copy(out, image.Point{}, src, src.Bounds(), xdraw.Src, nil)
	return out
}

// place returns the destination rectangle of s drawn on the cell whose
// top-left corner is at origin
func place(s *sheet.Sprite, origin, tileSize image.Point) image.Rectangle {
	center := origin.Add(tileSize.Div(2))
	return s.Rect().Add(center)
}

// RenderMap draws every cell of tm at animation frame
func RenderMap(tm *maplib.TileMap, cache *tilecache.Cache, frame int) *image.RGBA {
	ts := cache.TileSize()
	dst := image.NewRGBA(image.Rect(0, 0, tm.Width*ts.X, tm.Height*ts.Y))
	p := pages{}
	for y := 0; y < tm.Height; y++ {
		for x := 0; x < tm.Width; x++ {
			s := cache.Sprite(*tm.At(x, y), frame)
			if s == nil || s.Size.X == 0 || s.Size.Y == 0 {
				continue
			}
			src := p.sub(s)
			r := place(s, image.Pt(x*ts.X, y*ts.Y), ts)
			xdraw.Draw(dst, r, src, src.Bounds().Min, xdraw.Over)
		}
	}
	return dst
}

// ContactSheet lays out the first tile of every template at frame 0 in a
// grid cols cells wide
func ContactSheet(cache *tilecache.Cache, cols int) *image.RGBA {
	if cols <= 0 {
		cols = 16
	}
	tmpls := cache.Templates()
	ts := cache.TileSize()
	rows := (len(tmpls) + cols - 1) / cols
	w := cols
	if len(tmpls) < cols {
		w = len(tmpls)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w*ts.X, rows*ts.Y))
	p := pages{}
	for i, t := range tmpls {
		idx := t.TileIndices()
		if len(idx) == 0 {
			continue
		}
		s := cache.Sprite(maplib.TerrainTile{Template: t.ID, Index: idx[0]}, 0)
		if s == nil || s.Size.X == 0 || s.Size.Y == 0 {
			continue
		}
		src := p.sub(s)
		origin := image.Pt((i%cols)*ts.X, (i/cols)*ts.Y)
		xdraw.Draw(dst, place(s, origin, ts), src, src.Bounds().Min, xdraw.Over)
	}
	return dst
}

// Scale resizes img by factor with Catmull-Rom filtering
func Scale(img image.Image, factor float64) *image.RGBA {
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
