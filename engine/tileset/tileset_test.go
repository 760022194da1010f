package tileset

import (
	"errors"
	"image"
	"testing"
	"testing/fstest"
)

const temperate = `
[General]
Name=Temperate
Id=TEMPERAT
TileSize=24,24
Palette=temperat.pal
MissingTile=missing.png   ; optional

[Template 255]
Image=clear1.png

[Template 3]
Image=shore.shp
Size=2,2
Frames=4
Tiles=3,0
`

func TestParseTileset(t *testing.T) {
	ts, err := Parse([]byte(temperate))
	if err != nil {
		t.Fatal(err)
	}
	if ts.Name != "Temperate" || ts.ID != "TEMPERAT" || ts.Palette != "temperat.pal" {
		t.Fatalf("general section: %+v", ts)
	}
	if ts.MissingTile != "missing.png" {
		t.Fatalf("inline comment kept: %q", ts.MissingTile)
	}
	if ts.TileSize != image.Pt(24, 24) {
		t.Fatalf("tile size %v", ts.TileSize)
	}

	tmpls := ts.Templates()
	if len(tmpls) != 2 || tmpls[0].ID != 3 || tmpls[1].ID != 255 {
		t.Fatalf("templates not ordered by id: %+v", tmpls)
	}

	clear, ok := ts.Template(255)
	if !ok {
		t.Fatal("template 255 missing")
	}
	if clear.Size != image.Pt(1, 1) || clear.Frames != 1 || clear.TileCount() != 1 {
		t.Fatalf("defaults not applied: %+v", clear)
	}

	shore, _ := ts.Template(3)
	if got := shore.TileIndices(); len(got) != 2 || got[0] != 3 || got[1] != 0 {
		t.Fatalf("tile indices %v", got)
	}
	if _, ok := ts.Template(4); ok {
		t.Fatal("unexpected template 4")
	}
}

func TestFrameIndex(t *testing.T) {
	full := &Template{Size: image.Pt(2, 2), Frames: 3}
	subset := &Template{Size: image.Pt(2, 2), Frames: 2, Tiles: []uint8{3, 0}}

	tests := []struct {
		tmpl *Template
		tile uint8
		anim int
		want int
		ok   bool
	}{
		{full, 0, 0, 0, true},
		{full, 3, 0, 3, true},
		{full, 1, 2, 9, true},
		{full, 4, 0, 0, false},
		{full, 0, 3, 0, false},
		{subset, 3, 0, 0, true},
		{subset, 0, 1, 3, true},
		{subset, 1, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.tmpl.FrameIndex(tt.tile, tt.anim)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("FrameIndex(%d, %d) on %v = %d, %v; want %d, %v", tt.tile, tt.anim, tt.tmpl.Tiles, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	tests := map[string]struct {
		src  string
		want error
	}{
		"no general": {"[Template 1]\nImage=a.png\n", ErrInvalid},
		"duplicate id": {
			"[General]\n[Template 1]\nImage=a.png\n[Template 01]\nImage=b.png\n",
			ErrDuplicateTemplate,
		},
		"repeated section": {
			"[General]\n[Template 1]\nImage=a.png\n[Template 1]\nImage=b.png\n",
			ErrDuplicateTemplate,
		},
		"bad id":        {"[General]\n[Template x]\nImage=a.png\n", ErrInvalid},
		"no image":      {"[General]\n[Template 1]\nSize=1,1\n", ErrInvalid},
		"bad size":      {"[General]\n[Template 1]\nImage=a.png\nSize=0,1\n", ErrInvalid},
		"bad tile size": {"[General]\nTileSize=24\n", ErrInvalid},
		"zero frames":   {"[General]\n[Template 1]\nImage=a.png\nFrames=0\n", ErrInvalid},
		"tile outside":  {"[General]\n[Template 1]\nImage=a.png\nTiles=1\n", ErrInvalid},
		"repeated tile": {"[General]\n[Template 1]\nImage=a.png\nSize=2,1\nTiles=1,1\n", ErrInvalid},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.src)); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{"tilesets/temperat.ini": {Data: []byte(temperate)}}
	ts, err := Load(fsys, "tilesets/temperat.ini")
	if err != nil {
		t.Fatal(err)
	}
	if len(ts.Templates()) != 2 {
		t.Fatalf("got %d templates", len(ts.Templates()))
	}
	if _, err := Load(fsys, "missing.ini"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
