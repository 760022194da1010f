package preview

import (
	"context"
	"image"
	"image/color"
	"io"
	"log"
	"testing"
	"testing/fstest"

	"github.com/1siamBot/rts-tilecache/engine/frames"
	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/sheet"
	"github.com/1siamBot/rts-tilecache/engine/tilecache"
	"github.com/1siamBot/rts-tilecache/engine/tileset"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := frames.EncodePNG(img, frames.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func testCache(t *testing.T) *tilecache.Cache {
	t.Helper()
	fsys := fstest.MapFS{
		"t.ini":    {Data: []byte("[General]\nTileSize=2,2\n[Template 1]\nImage=red.png\n[Template 2]\nImage=blue.png\n")},
		"red.png":  {Data: solidPNG(t, red)},
		"blue.png": {Data: solidPNG(t, blue)},
	}
	ts, err := tileset.Load(fsys, "t.ini")
	if err != nil {
		t.Fatal(err)
	}
	c, err := tilecache.Build(context.Background(), tilecache.Config{
		Tileset: ts,
		FS:      fsys,
		Sheets:  sheet.NewBuilder(image.Pt(32, 32), 1),
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Dispose)
	return c
}

func TestRenderMap(t *testing.T) {
	c := testCache(t)
	tm := maplib.NewTileMap("m", "", 3, 1, maplib.TerrainTile{Template: 1})
	tm.Set(1, 0, maplib.TerrainTile{Template: 2})
	tm.Set(2, 0, maplib.TerrainTile{Template: 42})

	img := RenderMap(tm, c, 0)
	if img.Bounds() != image.Rect(0, 0, 6, 2) {
		t.Fatalf("bounds %v", img.Bounds())
	}
	if got := img.RGBAAt(1, 1); got != red {
		t.Errorf("cell 0: %v", got)
	}
	if got := img.RGBAAt(2, 0); got != blue {
		t.Errorf("cell 1: %v", got)
	}
	// unknown template draws the magenta checker
	if got := img.RGBAAt(4, 0); got != (color.RGBA{R: 255, B: 255, A: 255}) {
		t.Errorf("placeholder cell: %v", got)
	}
}

func TestContactSheet(t *testing.T) {
	c := testCache(t)
	img := ContactSheet(c, 1)
	if img.Bounds() != image.Rect(0, 0, 2, 4) {
		t.Fatalf("bounds %v", img.Bounds())
	}
	if img.RGBAAt(0, 0) != red || img.RGBAAt(1, 3) != blue {
		t.Fatalf("grid %v %v", img.RGBAAt(0, 0), img.RGBAAt(1, 3))
	}

	wide := ContactSheet(c, 8)
	if wide.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("wide bounds %v", wide.Bounds())
	}
}

func TestSpriteImageAndScale(t *testing.T) {
	c := testCache(t)
	s := c.Sprite(maplib.TerrainTile{Template: 2}, 0)
	img := SpriteImage(s)
	if img.Bounds() != image.Rect(0, 0, 2, 2) || img.RGBAAt(1, 1) != blue {
		t.Fatalf("sprite image %v %v", img.Bounds(), img.RGBAAt(1, 1))
	}

	big := Scale(img, 3)
	if big.Bounds() != image.Rect(0, 0, 6, 6) {
		t.Fatalf("scaled bounds %v", big.Bounds())
	}
	if got := big.RGBAAt(3, 3); got.B < 250 || got.R > 5 || got.A < 250 {
		t.Fatalf("scaled pixel %v", got)
	}
}
