// Package main builds the sprite sheets of a terrain tileset and writes
// them out with a contact sheet, an optional map render and the list of
// tiles that fell back to the placeholder.
//
// Usage:
//
//	go run ./tools/compose_tiles -tileset temperat.ini -assets assets/temperate -out build/temperate
//	go run ./tools/compose_tiles -tileset temperat.ini -mix isotemp.mix -map maps/river.json -raw
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/1siamBot/rts-tilecache/engine/assets"
	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/preview"
	"github.com/1siamBot/rts-tilecache/engine/sheet"
	"github.com/1siamBot/rts-tilecache/engine/tilecache"
	"github.com/1siamBot/rts-tilecache/engine/tileset"
)

type options struct {
	tileset      string
	assets       string
	mixPath      string
	out          string
	workers      int
	pageSize     int
	mapPath      string
	previewScale float64
	raw          bool
	playerColor  string
	columns      int
}

func main() {
	var o options
	flag.StringVar(&o.tileset, "tileset", "", "Tileset INI file")
	flag.StringVar(&o.assets, "assets", ".", "Directory holding the tileset assets")
	flag.StringVar(&o.mixPath, "mix", "", "MIX archive holding the tileset assets (overrides -assets)")
	flag.StringVar(&o.out, "out", "build/tiles", "Output directory")
	flag.IntVar(&o.workers, "workers", 0, "Parallel template builds (0 = NumCPU)")
	flag.IntVar(&o.pageSize, "page", 2048, "Sheet page size in pixels")
	flag.StringVar(&o.mapPath, "map", "", "Optional JSON map to render")
	flag.Float64Var(&o.previewScale, "preview-scale", 1, "Scale factor for the rendered map")
	flag.BoolVar(&o.raw, "raw", false, "Also dump zstd-compressed raw BGRA pages")
	flag.StringVar(&o.playerColor, "player-color", "", "Re-hue the remap range toward this colour (#rrggbb)")
	flag.IntVar(&o.columns, "columns", 16, "Contact sheet columns")
	flag.Parse()

	if o.tileset == "" {
		fmt.Fprintln(os.Stderr, "Usage: compose_tiles -tileset <file.ini> [-assets <dir> | -mix <file.mix>] [-out <dir>]")
		os.Exit(1)
	}
	if err := run(context.Background(), o, log.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "compose_tiles: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, logger *log.Logger) error {
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

	cfg := tilecache.Config{
		Tileset: ts,
		FS:      src,
		Sheets:  sheet.NewBuilder(image.Pt(o.pageSize, o.pageSize), 1),
		Workers: o.workers,
		Logger:  logger,
	}
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

	if err := os.MkdirAll(o.out, 0755); err != nil {
		return err
	}

	for _, s := range cache.Sheets() {
		name := filepath.Join(o.out, fmt.Sprintf("sheet_%d.png", s.ID))
		if err := savePNG(name, s.Image()); err != nil {
			return err
		}
		if o.raw {
			if err := saveRaw(filepath.Join(o.out, fmt.Sprintf("sheet_%d.raw.zst", s.ID)), s); err != nil {
				return err
			}
		}
	}

	if err := savePNG(filepath.Join(o.out, "contact.png"), preview.ContactSheet(cache, o.columns)); err != nil {
		return err
	}

	if o.mapPath != "" {
		tm, err := maplib.LoadJSON(o.mapPath)
		if err != nil {
			return err
		}
		if tm.Tileset != "" && tm.Tileset != ts.ID {
			logger.Printf("Warning: map %s uses tileset %q, rendering with %q", o.mapPath, tm.Tileset, ts.ID)
		}
		var img image.Image = preview.RenderMap(tm, cache, 0)
		if o.previewScale > 0 && o.previewScale != 1 {
			img = preview.Scale(img, o.previewScale)
		}
		if err := savePNG(filepath.Join(o.out, "map.png"), img); err != nil {
			return err
		}
	}

	diags, err := json.MarshalIndent(cache.Diagnostics(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(o.out, "diagnostics.json"), diags, 0644); err != nil {
		return err
	}

	logger.Printf("Wrote %d sheets and %d diagnostics to %s", len(cache.Sheets()), len(cache.Diagnostics()), o.out)
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func saveRaw(path string, s *sheet.Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sheet.WriteRaw(f, s); err != nil {
		f.Close()
		return fmt.Errorf("raw %s: %w", path, err)
	}
	return f.Close()
}
