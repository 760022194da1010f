package render

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/tilecache"
)

var placeholderOutline = color.RGBA{255, 0, 255, 200}

// MapRenderer draws a tile map from a tile cache
type MapRenderer struct {
	Camera *Camera
	Cache  *tilecache.Cache
	Images *SheetImages

	Frame            int  // animation frame passed to the cache
	ShowPlaceholders bool // outline cells drawn with the missing tile
}

// NewMapRenderer creates a renderer with its own camera and GPU sheet images
func NewMapRenderer(cache *tilecache.Cache, screenW, screenH int) *MapRenderer {
	return &MapRenderer{
		Camera: NewCamera(screenW, screenH),
		Cache:  cache,
		Images: NewSheetImages(),
	}
}

// pad is how far sprites may reach outside their cell
func (r *MapRenderer) pad() int {
	b := r.Cache.Bounds()
	half := r.Cache.TileSize().Div(2)
	p := 0
	for _, v := range []int{-b.Min.X - half.X, -b.Min.Y - half.Y, b.Max.X - half.X, b.Max.Y - half.Y} {
		if v > p {
			p = v
		}
	}
	return p
}

// DrawMap renders the visible portion of the tile map
func (r *MapRenderer) DrawMap(screen *ebiten.Image, tm *maplib.TileMap) {
	ts := r.Cache.TileSize()
	r.Camera.SetMapBounds(tm.Width*ts.X, tm.Height*ts.Y)
	minX, minY, maxX, maxY := r.Camera.VisibleTileRange(tm.Width, tm.Height, ts.X, ts.Y, r.pad())
	placeholder := r.Cache.Placeholder()

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			tile := tm.At(x, y)
			if tile == nil {
				continue
			}
			s := r.Cache.Sprite(*tile, r.Frame)
			img := r.Images.Sprite(s)
			if img == nil {
				continue
			}
			at := spriteOrigin(s, image.Pt(x*ts.X, y*ts.Y), ts)

			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(at.X)-r.Camera.X, float64(at.Y)-r.Camera.Y)
			op.GeoM.Scale(r.Camera.Zoom, r.Camera.Zoom)
			op.GeoM.Translate(float64(r.Camera.ScreenW)/2, float64(r.Camera.ScreenH)/2)
			screen.DrawImage(img, op)

			if r.ShowPlaceholders && s == placeholder {
				sx, sy := r.Camera.WorldToScreen(float64(x*ts.X), float64(y*ts.Y))
				z := float32(r.Camera.Zoom)
				vector.StrokeRect(screen, float32(sx), float32(sy), float32(ts.X)*z, float32(ts.Y)*z, 1, placeholderOutline, false)
			}
		}
	}
}

// DrawGrid draws cell borders over the visible map
func (r *MapRenderer) DrawGrid(screen *ebiten.Image, tm *maplib.TileMap) {
	ts := r.Cache.TileSize()
	minX, minY, maxX, maxY := r.Camera.VisibleTileRange(tm.Width, tm.Height, ts.X, ts.Y, 0)
	gridColor := color.RGBA{255, 255, 255, 30}

	for y := minY; y <= maxY+1; y++ {
		x0, sy := r.Camera.WorldToScreen(float64(minX*ts.X), float64(y*ts.Y))
		x1, _ := r.Camera.WorldToScreen(float64((maxX+1)*ts.X), 0)
		vector.StrokeLine(screen, float32(x0), float32(sy), float32(x1), float32(sy), 1, gridColor, false)
	}
	for x := minX; x <= maxX+1; x++ {
		sx, y0 := r.Camera.WorldToScreen(float64(x*ts.X), float64(minY*ts.Y))
		_, y1 := r.Camera.WorldToScreen(0, float64((maxY+1)*ts.Y))
		vector.StrokeLine(screen, float32(sx), float32(y0), float32(sx), float32(y1), 1, gridColor, false)
	}
}

// HoverCell returns the map cell under a screen position
func (r *MapRenderer) HoverCell(sx, sy int) (int, int) {
	ts := r.Cache.TileSize()
	wx, wy := r.Camera.ScreenToWorld(sx, sy)
	cx, cy := int(wx)/ts.X, int(wy)/ts.Y
	if wx < 0 {
		cx = -1
	}
	if wy < 0 {
		cy = -1
	}
	return cx, cy
}

// Dispose releases the uploaded sheet pages
func (r *MapRenderer) Dispose() {
	r.Images.Dispose()
}
