package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/1siamBot/rts-tilecache/engine/assets"
	"github.com/1siamBot/rts-tilecache/engine/input"
	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/render"
	"github.com/1siamBot/rts-tilecache/engine/tilecache"
	"github.com/1siamBot/rts-tilecache/engine/tileset"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
	DemoMapSize  = 48
)

// Viewer implements ebiten.Game
type Viewer struct {
	renderer *render.MapRenderer
	cache    *tilecache.Cache
	tileMap  *maplib.TileMap
	input    *input.InputState

	showGrid   bool
	hoverTileX int
	hoverTileY int
}

func NewViewer(cache *tilecache.Cache, tm *maplib.TileMap) *Viewer {
	v := &Viewer{
		renderer: render.NewMapRenderer(cache, ScreenWidth, ScreenHeight),
		cache:    cache,
		tileMap:  tm,
		input:    input.NewInputState(),
	}
	v.renderer.ShowPlaceholders = true
	ts := cache.TileSize()
	v.renderer.Camera.SetMapBounds(tm.Width*ts.X, tm.Height*ts.Y)
	v.renderer.Camera.CenterOn(float64(tm.Width*ts.X)/2, float64(tm.Height*ts.Y)/2)
	return v
}

func (v *Viewer) Update() error {
	v.input.Update()
	if v.input.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	v.handleCamera()

	if v.input.IsKeyJustPressed(ebiten.KeyF) {
		v.renderer.Frame++
	}
	if v.input.IsKeyJustPressed(ebiten.KeyG) {
		v.renderer.ShowPlaceholders = !v.renderer.ShowPlaceholders
	}
	if v.input.IsKeyJustPressed(ebiten.KeyH) {
		v.showGrid = !v.showGrid
	}

	v.hoverTileX, v.hoverTileY = v.renderer.HoverCell(v.input.MouseX, v.input.MouseY)
	return nil
}

func (v *Viewer) handleCamera() {
	cam := v.renderer.Camera
	speed := cam.Speed / 60.0 // per frame at 60fps

	if v.input.Held(ebiten.KeyW, ebiten.KeyUp) {
		cam.Pan(0, -speed)
	}
	if v.input.Held(ebiten.KeyS, ebiten.KeyDown) {
		cam.Pan(0, speed)
	}
	if v.input.Held(ebiten.KeyA, ebiten.KeyLeft) {
		cam.Pan(-speed, 0)
	}
	if v.input.Held(ebiten.KeyD, ebiten.KeyRight) {
		cam.Pan(speed, 0)
	}
	if v.input.ScrollY != 0 {
		cam.ZoomAt(v.input.ScrollY*0.1, v.input.MouseX, v.input.MouseY)
	}
	if v.input.MiddlePressed {
		cam.Pan(float64(-v.input.MouseDX), float64(-v.input.MouseDY))
	}
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{20, 20, 30, 255})
	v.renderer.DrawMap(screen, v.tileMap)
	if v.showGrid {
		v.renderer.DrawGrid(screen, v.tileMap)
	}
	v.drawHUD(screen)
}

func (v *Viewer) drawHUD(screen *ebiten.Image) {
	cell := "Out of Bounds"
	if t := v.tileMap.At(v.hoverTileX, v.hoverTileY); t != nil {
		state := "ok"
		if !v.cache.HasTileSprite(*t, v.renderer.Frame) {
			state = "missing"
		}
		cell = fmt.Sprintf("template %d tile %d (%s)", t.Template, t.Index, state)
	}
	info := fmt.Sprintf(
		"%s | FPS: %.0f | Frame: %d | Sheets: %d | Diagnostics: %d\n"+
			"Cell: (%d, %d) %s | Zoom: %.2fx\n"+
			"[WASD] Pan [Scroll] Zoom [F] Next frame [G] Outlines [H] Grid",
		v.cache.Tileset().Name, ebiten.ActualFPS(), v.renderer.Frame,
		v.renderer.Images.Pages(), len(v.cache.Diagnostics()),
		v.hoverTileX, v.hoverTileY, cell, v.renderer.Camera.Zoom,
	)
	ebitenutil.DebugPrint(screen, info)
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// demoMap lays every template of the tileset across a map, first template as
// the base
func demoMap(ts *tileset.Tileset) *maplib.TileMap {
	tmpls := ts.Templates()
	tm := maplib.NewTileMap("Demo", ts.ID, DemoMapSize, DemoMapSize, maplib.TerrainTile{})
	if len(tmpls) == 0 {
		return tm
	}
	tm.Fill(0, 0, DemoMapSize-1, DemoMapSize-1, tmpls[0].ID, tmpls[0].Size.X, tmpls[0].Size.Y)

	x, y, rowH := 2, 2, 0
	for _, t := range tmpls[1:] {
		if x+t.Size.X >= DemoMapSize-2 {
			x, y, rowH = 2, y+rowH+1, 0
		}
		if y+t.Size.Y >= DemoMapSize-2 {
			break
		}
		for _, idx := range t.TileIndices() {
			tm.Set(x+int(idx)%t.Size.X, y+int(idx)/t.Size.X, maplib.TerrainTile{Template: t.ID, Index: idx})
		}
		x += t.Size.X + 1
		if t.Size.Y > rowH {
			rowH = t.Size.Y
		}
	}
	return tm
}

type options struct {
	tileset     string
	assets      string
	mixPath     string
	mapPath     string
	playerColor string
	workers     int
}

func main() {
	var o options
	flag.StringVar(&o.tileset, "tileset", "", "tileset INI file")
	flag.StringVar(&o.assets, "assets", ".", "directory holding tileset assets")
	flag.StringVar(&o.mixPath, "mix", "", "MIX archive holding tileset assets (overrides -assets)")
	flag.StringVar(&o.mapPath, "map", "", "JSON map to show (default: a generated demo map)")
	flag.StringVar(&o.playerColor, "player-color", "", "re-hue the remap range toward this colour (#rrggbb)")
	flag.IntVar(&o.workers, "workers", 0, "parallel template builds (0 = NumCPU)")
	flag.Parse()

	if o.tileset == "" {
		fmt.Fprintln(os.Stderr, "Usage: viewer -tileset <file.ini> [-assets <dir> | -mix <file.mix>] [-map <map.json>] [-player-color #rrggbb]")
		os.Exit(1)
	}
	if err := run(context.Background(), o); err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	data, err := os.ReadFile(o.tileset)
	if err != nil {
		return err
	}
	ts, err := tileset.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", o.tileset, err)
	}

	src, err := assets.Open(o.assets, o.mixPath)
	if err != nil {
		return err
	}
	defer src.Close()

	cfg := tilecache.Config{Tileset: ts, FS: src, Workers: o.workers}
	if o.playerColor != "" {
		c, err := colorful.Hex(o.playerColor)
		if err != nil {
			return fmt.Errorf("bad -player-color: %w", err)
		}
		cfg.PlayerColor = c
	}
	cache, err := tilecache.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Dispose()

	tm := demoMap(ts)
	if o.mapPath != "" {
		if tm, err = maplib.LoadJSON(o.mapPath); err != nil {
			return err
		}
	}

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("Tileset Viewer: " + ts.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(true)

	viewer := NewViewer(cache, tm)
	defer viewer.renderer.Dispose()
	return ebiten.RunGame(viewer)
}
