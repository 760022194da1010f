package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/1siamBot/rts-tilecache/engine/frames"
	"github.com/1siamBot/rts-tilecache/engine/maplib"
	"github.com/1siamBot/rts-tilecache/engine/mix"
	"github.com/1siamBot/rts-tilecache/engine/sheet"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	out := filepath.Join(dir, "out")
	if err := os.Mkdir(assets, 0755); err != nil {
		t.Fatal(err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.Set(i%4, i/4, color.NRGBA{G: 200, A: 255})
	}
	grass, err := frames.EncodePNG(img, frames.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(assets, "grass.png"), grass)
	writeFile(t, filepath.Join(dir, "t.ini"), []byte(
		"[General]\nName=T\nId=T\nTileSize=4,4\n[Template 1]\nImage=grass.png\n[Template 2]\nImage=gone.png\n"))

	tm := maplib.NewTileMap("m", "T", 2, 2, maplib.TerrainTile{Template: 1})
	tm.Set(1, 1, maplib.TerrainTile{Template: 2})
	mapPath := filepath.Join(dir, "m.json")
	if err := tm.SaveJSON(mapPath); err != nil {
		t.Fatal(err)
	}

	err = run(context.Background(), options{
		tileset:      filepath.Join(dir, "t.ini"),
		assets:       assets,
		out:          out,
		pageSize:     64,
		mapPath:      mapPath,
		previewScale: 2,
		raw:          true,
		columns:      4,
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"sheet_0.png", "sheet_0.raw.zst", "contact.png", "map.png", "diagnostics.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	var diags []struct {
		Template int    `json:"template"`
		Error    string `json:"error"`
	}
	data, err := os.ReadFile(filepath.Join(out, "diagnostics.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &diags); err != nil {
		t.Fatal(err)
	}
	if len(diags) != 1 || diags[0].Template != 2 || diags[0].Error == "" {
		t.Fatalf("diagnostics %+v", diags)
	}

	f, err := os.Open(filepath.Join(out, "sheet_0.raw.zst"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	page, err := sheet.ReadRaw(f)
	if err != nil {
		t.Fatal(err)
	}
	if page.Size != image.Pt(64, 64) {
		t.Fatalf("raw page size %v", page.Size)
	}

	mf, err := os.Open(filepath.Join(out, "map.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer mf.Close()
	cfg, _, err := image.DecodeConfig(mf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 16 || cfg.Height != 16 {
		t.Fatalf("map render %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRunFailsOnBadTileset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "t.ini"), []byte("[Template 1]\nImage=a.png\n"))
	err := run(context.Background(), options{tileset: filepath.Join(dir, "t.ini"), assets: dir, out: dir}, log.New(io.Discard, "", 0))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRunReadsMixArchive(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.Set(i%4, i/4, color.NRGBA{R: 90, A: 255})
	}
	dirt, err := frames.EncodePNG(img, frames.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	var archive bytes.Buffer
	if err := mix.Write(&archive, map[string][]byte{"dirt.png": dirt}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "tiles.mix"), archive.Bytes())
	writeFile(t, filepath.Join(dir, "t.ini"), []byte("[General]\nTileSize=4,4\n[Template 1]\nImage=dirt.png\n"))

	out := filepath.Join(dir, "out")
	err = run(context.Background(), options{
		tileset:  filepath.Join(dir, "t.ini"),
		mixPath:  filepath.Join(dir, "tiles.mix"),
		out:      out,
		pageSize: 32,
		columns:  1,
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(out, "diagnostics.json"))
	if err != nil {
		t.Fatal(err)
	}
	var diags []json.RawMessage
	if err := json.Unmarshal(data, &diags); err != nil || len(diags) != 0 {
		t.Fatalf("diagnostics %s %v", data, err)
	}
}

func TestRunFailsOnMissingArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "t.ini"), []byte("[General]\n[Template 1]\nImage=a.png\n"))
	err := run(context.Background(), options{
		tileset: filepath.Join(dir, "t.ini"),
		mixPath: filepath.Join(dir, "none.mix"),
		out:     dir,
	}, log.New(io.Discard, "", 0))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}
