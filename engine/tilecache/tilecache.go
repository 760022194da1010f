// Package tilecache builds terrain tile sprites for a tileset and answers
// (template, tile, frame) lookups.
//
// Every template image is decoded once. When its metadata names overlay
// sources (SourceFilename[0], SourceFilename[1], ...) the image is treated
// as a stack of coverage masks and each frame is composited from the
// matching source frames; otherwise frames are used directly. Tiles that
// cannot be built fall back to a placeholder sprite and are reported as
// diagnostics. The build only fails when the context is cancelled or the
// sheet builder cannot take a sprite.
package tilecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"log"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/1siamBot/rts-tilecache/engine/composite"
	"github.com/1siamBot/rts-tilecache/engine/frames"
	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/palette"
	"github.com/1siamBot/rts-tilecache/engine/sheet"
	"github.com/1siamBot/rts-tilecache/engine/tileset"
)

var (
	ErrConfig       = errors.New("tilecache: invalid config")
	ErrMissingFrame = errors.New("tilecache: frame missing from asset")
)

// Config describes what to build and where the assets come from
type Config struct {
	Tileset *tileset.Tileset
	FS      fs.FS

	// Loaders decodes template images; nil uses frames.DefaultRegistry
	Loaders frames.Registry
	// Palette resolves indexed frames; nil loads the tileset palette from FS
	Palette *palette.Palette
	// PlayerColor, when set, re-hues the palette with ColorShift
	PlayerColor color.Color
	ColorShift  *palette.ColorShift

	// Sheets receives the sprites; nil creates a builder with the default page size
	Sheets  *sheet.Builder
	Workers int
	Logger  *log.Logger
}

// Diagnostic records a tile that fell back to the placeholder. Tile and
// Frame are -1 when the whole template failed.
type Diagnostic struct {
	Template uint16
	Tile     int
	Frame    int
	Err      error
}

func (d Diagnostic) Error() string {
	if d.Tile < 0 {
		return fmt.Sprintf("template %d: %v", d.Template, d.Err)
	}
	return fmt.Sprintf("template %d tile %d frame %d: %v", d.Template, d.Tile, d.Frame, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Template uint16 `json:"template"`
		Tile     int    `json:"tile"`
		Frame    int    `json:"frame"`
		Error    string `json:"error"`
	}{d.Template, d.Tile, d.Frame, fmt.Sprint(d.Err)})
}

type templateSprites struct {
	tmpl *tileset.Template
	// per tile index, one sprite per animation frame
	tiles map[uint8][]*sheet.Sprite
}

// Cache holds the sprites of one tileset
type Cache struct {
	tileset     *tileset.Tileset
	sheets      *sheet.Builder
	placeholder *sheet.Sprite
	logger      *log.Logger

	mu          sync.RWMutex
	templates   map[uint16]*templateSprites
	diagnostics []Diagnostic
	bounds      image.Rectangle
	disposed    bool
}

type builder struct {
	*Cache
	fsys    fs.FS
	loaders frames.Registry
	pal     *palette.Palette
}

// Build loads, composites and packs every template of cfg.Tileset
func Build(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Tileset == nil || cfg.FS == nil {
		return nil, fmt.Errorf("%w: tileset and FS are required", ErrConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	sheets := cfg.Sheets
	owned := sheets == nil
	if owned {
		sheets = sheet.NewBuilder(sheet.DefaultPageSize, 1)
	}
	loaders := cfg.Loaders
	if loaders == nil {
		loaders = frames.DefaultRegistry()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	c := &Cache{
		tileset:   cfg.Tileset,
		sheets:    sheets,
		logger:    logger,
		templates: make(map[uint16]*templateSprites),
	}
	b := &builder{Cache: c, fsys: cfg.FS, loaders: loaders}

	pal, err := b.resolvePalette(cfg)
	if err != nil {
		return nil, err
	}
	b.pal = pal

	if err := b.buildPlaceholder(); err != nil {
		if owned {
			sheets.Dispose()
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range cfg.Tileset.Templates() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return b.buildTemplate(gctx, t)
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if owned {
			sheets.Dispose()
		}
		return nil, err
	}

	c.finish()
	return c, nil
}

func (b *builder) resolvePalette(cfg Config) (*palette.Palette, error) {
	var pal palette.Palette
	switch {
	case cfg.Palette != nil:
		pal = *cfg.Palette
	case cfg.Tileset.Palette != "":
		p, err := palette.Load(b.fsys, cfg.Tileset.Palette)
		if err != nil {
			b.logger.Printf("Warning: TileCache: %v; indexed frames will fail", err)
			return nil, nil
		}
		pal = p
	default:
		return nil, nil
	}

	if cfg.PlayerColor != nil {
		shift := palette.DefaultColorShift
		if cfg.ColorShift != nil {
			shift = *cfg.ColorShift
		}
		if err := shift.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		pal = shift.Apply(pal, cfg.PlayerColor)
	}
	return &pal, nil
}

// buildTemplate fills every tile of t. Per-tile problems become diagnostics;
// only cancellation and sheet errors are returned.
func (b *builder) buildTemplate(ctx context.Context, t *tileset.Template) error {
	ts := &templateSprites{tmpl: t, tiles: make(map[uint8][]*sheet.Sprite)}
	defer b.store(ts)

	fail := func(err error) {
		b.report(Diagnostic{Template: t.ID, Tile: -1, Frame: -1, Err: err})
		for _, idx := range t.TileIndices() {
			ts.tiles[idx] = b.placeholders(t.Frames)
		}
	}

	asset, err := b.loaders.Load(b.fsys, t.Image)
	if err != nil {
		fail(err)
		return nil
	}
	var sources []*frames.Asset
	for _, name := range frames.SourceFilenames(asset.Metadata) {
		src, err := b.loaders.Load(b.fsys, name)
		if err != nil {
			fail(fmt.Errorf("overlay source: %w", err))
			return nil
		}
		sources = append(sources, src)
	}

	indices := t.TileIndices()
	for _, idx := range indices {
		ts.tiles[idx] = make([]*sheet.Sprite, t.Frames)
	}
	for anim := 0; anim < t.Frames; anim++ {
		for _, idx := range indices {
			if err := ctx.Err(); err != nil {
				return err
			}
			fi, _ := t.FrameIndex(idx, anim)
			buf, f, err := b.tileFrame(asset, sources, fi)
			if err != nil {
				b.report(Diagnostic{Template: t.ID, Tile: int(idx), Frame: anim, Err: err})
				ts.tiles[idx][anim] = b.placeholder
				continue
			}
			s, err := b.sheets.Add(buf, frames.BGRA, f.Size(), f.Offset)
			if err != nil {
				return fmt.Errorf("template %d tile %d: %w", t.ID, idx, err)
			}
			ts.tiles[idx][anim] = s
		}
	}
	return nil
}

// tileFrame produces the BGRA pixels of frame fi
func (b *builder) tileFrame(asset *frames.Asset, sources []*frames.Asset, fi int) ([]byte, frames.Frame, error) {
	if fi >= len(asset.Frames) {
		return nil, frames.Frame{}, fmt.Errorf("%w: frame %d of %d", ErrMissingFrame, fi, len(asset.Frames))
	}
	f := asset.Frames[fi]
	if len(sources) == 0 {
		buf, err := frames.ToBGRA(f, b.pal)
		return buf, f, err
	}

	overlays := make([]frames.Frame, len(sources))
	for i, src := range sources {
		if fi >= len(src.Frames) {
			return nil, f, fmt.Errorf("%w: overlay %d has %d frames, need %d", ErrMissingFrame, i, len(src.Frames), fi+1)
		}
		overlays[i] = src.Frames[fi]
	}
	buf, err := composite.Composite(f, overlays)
	return buf, f, err
}

func (b *builder) placeholders(n int) []*sheet.Sprite {
	out := make([]*sheet.Sprite, n)
	for i := range out {
		out[i] = b.placeholder
	}
	return out
}

// buildPlaceholder loads the tileset's missing tile, or generates a checker
func (b *builder) buildPlaceholder() error {
	size := b.tileset.TileSize
	buf := checker(size)
	var offset image.Point

	if name := b.tileset.MissingTile; name != "" {
		if asset, err := b.loaders.Load(b.fsys, name); err != nil {
			b.logger.Printf("Warning: TileCache: missing tile %s: %v", name, err)
		} else if len(asset.Frames) == 0 {
			b.logger.Printf("Warning: TileCache: missing tile %s has no frames", name)
		} else if px, err := frames.ToBGRA(asset.Frames[0], b.pal); err != nil {
			b.logger.Printf("Warning: TileCache: missing tile %s: %v", name, err)
		} else {
			buf, size, offset = px, asset.Frames[0].Size(), asset.Frames[0].Offset
		}
	}

	s, err := b.sheets.Add(buf, frames.BGRA, size, offset)
	if err != nil {
		return fmt.Errorf("placeholder: %w", err)
	}
	b.placeholder = s
	return nil
}

// checker is a magenta and black 4px checkerboard
func checker(size image.Point) []byte {
	buf := make([]byte, size.X*size.Y*4)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			o := (y*size.X + x) * 4
			if (x/4+y/4)%2 == 0 {
				buf[o], buf[o+1], buf[o+2] = 255, 0, 255
			}
			buf[o+3] = 255
		}
	}
	return buf
}

func (b *builder) store(ts *templateSprites) {
	b.mu.Lock()
	b.templates[ts.tmpl.ID] = ts
	b.mu.Unlock()
}

func (b *builder) report(d Diagnostic) {
	b.logger.Printf("Warning: TileCache: %s", d.Error())
	b.mu.Lock()
	b.diagnostics = append(b.diagnostics, d)
	b.mu.Unlock()
}

// finish sorts diagnostics, computes bounds and logs a summary
func (c *Cache) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.SliceStable(c.diagnostics, func(i, j int) bool {
		a, b := c.diagnostics[i], c.diagnostics[j]
		if a.Template != b.Template {
			return a.Template < b.Template
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Tile < b.Tile
	})

	built, placeholders := 0, 0
	for _, ts := range c.templates {
		for _, sprites := range ts.tiles {
			for _, s := range sprites {
				if s == c.placeholder {
					placeholders++
					continue
				}
				built++
				if r := s.Rect(); !r.Empty() {
					c.bounds = c.bounds.Union(r)
				}
			}
		}
	}
	c.logger.Printf("TileCache: %s: built %d sprites for %d templates on %d sheets (%d placeholders, %d diagnostics)",
		c.tileset.Name, built, len(c.templates), len(c.sheets.Sheets()), placeholders, len(c.diagnostics))
}

// Sprite returns the sprite for tile at animation frame. Unknown templates
// and tiles get the placeholder; frame wraps around the template's frame
// count. After Dispose it returns nil.
func (c *Cache) Sprite(tile maplib.TerrainTile, frame int) *sheet.Sprite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return nil
	}
	ts, ok := c.templates[tile.Template]
	if !ok {
		return c.placeholder
	}
	sprites, ok := ts.tiles[tile.Index]
	if !ok || len(sprites) == 0 {
		return c.placeholder
	}
	frame %= len(sprites)
	if frame < 0 {
		frame += len(sprites)
	}
	return sprites[frame]
}

// HasTileSprite reports whether tile has a real sprite at frame
func (c *Cache) HasTileSprite(tile maplib.TerrainTile, frame int) bool {
	s := c.Sprite(tile, frame)
	return s != nil && s != c.placeholder
}

// Placeholder returns the missing tile sprite
func (c *Cache) Placeholder() *sheet.Sprite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return nil
	}
	return c.placeholder
}

// Bounds is the union of every real sprite's rectangle around the tile
// origin. Renderers pad their visible area by it.
func (c *Cache) Bounds() image.Rectangle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bounds
}

func (c *Cache) TileSize() image.Point {
	return c.tileset.TileSize
}

func (c *Cache) Tileset() *tileset.Tileset {
	return c.tileset
}

// Templates returns the templates of the tileset, ordered by id
func (c *Cache) Templates() []*tileset.Template {
	return c.tileset.Templates()
}

// Diagnostics returns the recorded fallbacks, ordered by template, frame
// and tile
func (c *Cache) Diagnostics() []Diagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// Sheets returns the pages holding the sprites
func (c *Cache) Sheets() []*sheet.Sheet {
	return c.sheets.Sheets()
}

// Dispose releases the sheets. Lookups afterwards return nil.
func (c *Cache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.sheets.Dispose()
}
