// Package main writes a small procedural tileset that exercises every path
// of the tile cache: plain RGBA templates, an animated template, layered
// shore templates built from coverage masks, a multi-cell template split by
// a .meta sidecar, a paletted template with remappable colour and a demo map.
//
// Usage:
//
//	go run ./tools/generate_tileset -out assets/demo
//	go run ./tools/compose_tiles -tileset assets/demo/demo.ini -assets assets/demo -map assets/demo/demo.json
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/1siamBot/rts-tilecache/engine/frames"
	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/palette"
)

// Template ids
const (
	idGrass = iota + 1
	idDirt
	idSand
	idRock
	idWater
	idShoreN
	idShoreE
	idShoreS
	idShoreW
	idBoulders
	idBeacon
)

const waterFrames = 4

type colorFn func(x, y int, rng *rand.Rand) color.NRGBA

var textures = map[string]colorFn{
	"grass": func(x, y int, rng *rand.Rand) color.NRGBA {
		v := 90.0 + rng.Float64()*20 - 10 + 6*math.Sin(float64(x)*0.9+float64(y)*0.4)
		return color.NRGBA{uint8(v * 0.45), uint8(v * 1.3), uint8(v * 0.35), 255}
	},
	"dirt": func(x, y int, rng *rand.Rand) color.NRGBA {
		v := 120.0 + rng.Float64()*20 - 10 + 5*math.Sin(float64(x)*0.8+float64(y)*0.3)
		return color.NRGBA{uint8(v * 1.05), uint8(v * 0.82), uint8(v * 0.55), 255}
	},
	"sand": func(x, y int, rng *rand.Rand) color.NRGBA {
		v := 175.0 + rng.Float64()*12 - 6 + 4*math.Sin(float64(x)*0.15+float64(y)*0.08)
		return color.NRGBA{uint8(v), uint8(v * 0.92), uint8(v * 0.65), 255}
	},
	"rock": func(x, y int, rng *rand.Rand) color.NRGBA {
		v := 100.0 + rng.Float64()*18 - 9 + 8*math.Sin(float64(x)*0.4+float64(y)*0.6)
		return color.NRGBA{uint8(v * 0.95), uint8(v * 0.92), uint8(v * 0.88), 255}
	},
}

// water is animated by shifting the wave phase per frame
func water(frame int) colorFn {
	return func(x, y int, rng *rand.Rand) color.NRGBA {
		phase := float64(frame) * math.Pi / 2
		v := 110.0 + rng.Float64()*8 - 4 + 12*math.Sin(float64(x)*0.5+float64(y)*0.25+phase)
		return color.NRGBA{uint8(v * 0.25), uint8(v * 0.6), uint8(math.Min(v*1.6, 255)), 255}
	}
}

type generator struct {
	out  string
	size image.Point
}

func main() {
	out := flag.String("out", "assets/demo", "Output directory")
	tile := flag.Int("tile", 24, "Tile size in pixels")
	mapSize := flag.Int("map", 32, "Demo map size in cells")
	flag.Parse()

	g := &generator{out: *out, size: image.Pt(*tile, *tile)}
	if err := g.run(*mapSize); err != nil {
		fmt.Fprintf(os.Stderr, "generate_tileset: %v\n", err)
		os.Exit(1)
	}
}

func (g *generator) run(mapSize int) error {
	if err := os.MkdirAll(g.out, 0755); err != nil {
		return err
	}

	for name, fn := range textures {
		if err := g.writeStrip(name+".png", []colorFn{fn}, int64(len(name))); err != nil {
			return err
		}
	}
	waves := make([]colorFn, waterFrames)
	for i := range waves {
		waves[i] = water(i)
	}
	if err := g.writeStrip("water.png", waves, 7); err != nil {
		return err
	}

	// shore masks: full coverage on the land side fading toward the water
	shores := map[string]func(x, y int) float64{
		"n": func(x, y int) float64 { return float64(y) / float64(g.size.Y-1) },
		"s": func(x, y int) float64 { return 1 - float64(y)/float64(g.size.Y-1) },
		"e": func(x, y int) float64 { return 1 - float64(x)/float64(g.size.X-1) },
		"w": func(x, y int) float64 { return float64(x) / float64(g.size.X-1) },
	}
	for dir, cover := range shores {
		if err := g.writeShore("shore_"+dir+".png", cover); err != nil {
			return err
		}
	}

	if err := g.writeBoulders(); err != nil {
		return err
	}
	if err := g.writeBeacon(); err != nil {
		return err
	}
	if err := g.writePalette(); err != nil {
		return err
	}
	if err := g.writeTileset(); err != nil {
		return err
	}
	if err := g.writeMap(mapSize); err != nil {
		return err
	}
	fmt.Printf("Wrote demo tileset to %s\n", g.out)
	return nil
}

func (g *generator) write(name string, data []byte) error {
	return os.WriteFile(filepath.Join(g.out, name), data, 0644)
}

// writeStrip renders one frame per fn side by side
func (g *generator) writeStrip(name string, fns []colorFn, seed int64) error {
	w, h := g.size.X, g.size.Y
	img := image.NewNRGBA(image.Rect(0, 0, w*len(fns), h))
	for f, fn := range fns {
		rng := rand.New(rand.NewSource(seed * 12345))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetNRGBA(f*w+x, y, fn(x, y, rng))
			}
		}
	}
	var meta frames.Metadata
	if len(fns) > 1 {
		meta.Set(frames.KeyFrameSize, fmt.Sprintf("%d,%d", w, h))
	}
	data, err := frames.EncodePNG(img, meta)
	if err != nil {
		return err
	}
	return g.write(name, data)
}

func coveragePalette() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}

// writeShore writes a coverage mask layering sand then grass
func (g *generator) writeShore(name string, cover func(x, y int) float64) error {
	img := image.NewPaletted(image.Rect(0, 0, g.size.X, g.size.Y), coveragePalette())
	for y := 0; y < g.size.Y; y++ {
		for x := 0; x < g.size.X; x++ {
			img.SetColorIndex(x, y, uint8(math.Round(cover(x, y)*255)))
		}
	}
	var meta frames.Metadata
	meta.Set(frames.IndexedKey(frames.SourceFilenameKey, 0), "sand.png")
	meta.Set(frames.IndexedKey(frames.SourceFilenameKey, 1), "grass.png")
	data, err := frames.EncodePNG(img, meta)
	if err != nil {
		return err
	}
	return g.write(name, data)
}

// writeBoulders writes a 2x2 cell rock outcrop; the frame layout lives in a
// .meta sidecar
func (g *generator) writeBoulders() error {
	w, h := g.size.X*2, g.size.Y*2
	img := image.NewNRGBA(image.Rect(0, 0, g.size.X*4, g.size.Y))
	rng := rand.New(rand.NewSource(99))
	rock := textures["rock"]
	grass := textures["grass"]
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := grass(x, y, rng)
			if math.Hypot(float64(x)-cx, float64(y)-cy) < float64(w)*0.4 {
				c = rock(x, y, rng)
			}
			// cell (x/size, y/size) becomes frame row*2+col, laid out in one row
			frame := (y/g.size.Y)*2 + x/g.size.X
			img.SetNRGBA(frame*g.size.X+x%g.size.X, y%g.size.Y, c)
		}
	}
	data, err := frames.EncodePNG(img, frames.Metadata{})
	if err != nil {
		return err
	}
	if err := g.write("boulders.png", data); err != nil {
		return err
	}
	meta := fmt.Sprintf("FrameSize=%d,%d\nFrameAmount=4\n", g.size.X, g.size.Y)
	return g.write("boulders.meta", []byte(meta))
}

// beaconRemap is the palette index range holding remappable colour
const beaconRemap = 16

// writeBeacon writes a paletted marker whose centre uses the remap range
func (g *generator) writeBeacon() error {
	img := image.NewPaletted(image.Rect(0, 0, g.size.X, g.size.Y), coveragePalette())
	c := float64(g.size.X) / 2
	for y := 0; y < g.size.Y; y++ {
		for x := 0; x < g.size.X; x++ {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c)
			switch {
			case d < c*0.5:
				img.SetColorIndex(x, y, uint8(beaconRemap+int(d)%16))
			case d < c*0.8:
				img.SetColorIndex(x, y, 200)
			default:
				img.SetColorIndex(x, y, 0)
			}
		}
	}
	data, err := frames.EncodePNG(img, frames.Metadata{})
	if err != nil {
		return err
	}
	return g.write("beacon.png", data)
}

// writePalette writes a grey ramp with a magenta remap ramp at 16..31
func (g *generator) writePalette() error {
	p := palette.Grayscale()
	for i := 0; i < 16; i++ {
		v := uint8(255 - i*8)
		p[beaconRemap+i] = color.RGBA{v, 0, v, 255}
	}
	return g.write("demo.pal", p.Encode())
}

func (g *generator) writeTileset() error {
	var b strings.Builder
	fmt.Fprintf(&b, "[General]\nName=Demo\nId=DEMO\nTileSize=%d,%d\nPalette=demo.pal\n\n", g.size.X, g.size.Y)
	plain := []struct {
		id   int
		name string
	}{{idGrass, "grass"}, {idDirt, "dirt"}, {idSand, "sand"}, {idRock, "rock"}}
	for _, p := range plain {
		fmt.Fprintf(&b, "[Template %d]\nImage=%s.png\n\n", p.id, p.name)
	}
	fmt.Fprintf(&b, "[Template %d]\nImage=water.png\nFrames=%d\n\n", idWater, waterFrames)
	for i, dir := range []string{"n", "e", "s", "w"} {
		fmt.Fprintf(&b, "[Template %d]\nImage=shore_%s.png\n\n", idShoreN+i, dir)
	}
	fmt.Fprintf(&b, "[Template %d]\nImage=boulders.png\nSize=2,2\n\n", idBoulders)
	fmt.Fprintf(&b, "[Template %d]\nImage=beacon.png\n", idBeacon)
	return g.write("demo.ini", []byte(b.String()))
}

// writeMap lays out a grass field with a lake, its shores, a dirt road,
// an outcrop and a beacon
func (g *generator) writeMap(n int) error {
	tm := maplib.NewTileMap("Demo Lake", "DEMO", n, n, maplib.TerrainTile{Template: idGrass})
	x0, y0, x1, y1 := n/4, n/4, n/2, n/2
	tm.Fill(x0, y0, x1, y1, idWater, 1, 1)
	tm.Fill(x0, y0-1, x1, y0-1, idShoreN, 1, 1)
	tm.Fill(x0, y1+1, x1, y1+1, idShoreS, 1, 1)
	tm.Fill(x0-1, y0, x0-1, y1, idShoreW, 1, 1)
	tm.Fill(x1+1, y0, x1+1, y1, idShoreE, 1, 1)
	tm.Fill(0, 3*n/4, n-1, 3*n/4, idDirt, 1, 1)
	tm.Fill(3*n/4, n/4, 3*n/4+1, n/4+1, idBoulders, 2, 2)
	tm.Set(3*n/4, n/2, maplib.TerrainTile{Template: idBeacon})
	tm.Set(1, 1, maplib.TerrainTile{Template: 200})
	return tm.SaveJSON(filepath.Join(g.out, "demo.json"))
}
