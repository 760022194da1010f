// Package tileset loads terrain tileset definitions from INI files.
//
// A tileset has a [General] section and one [Template N] section per
// template:
//
//	[General]
//	Name=Temperate
//	Id=TEMPERAT
//	TileSize=24,24
//	Palette=temperat.pal
//	MissingTile=missing.png
//
//	[Template 255]
//	Image=clear1.png
//	Size=1,1
//	Frames=1
//	Tiles=0,1,2
package tileset

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/1siamBot/rts-tilecache/engine/frames"
)

const templatePrefix = "Template"

var (
	ErrDuplicateTemplate = errors.New("tileset: duplicate template id")
	ErrInvalid           = errors.New("tileset: invalid definition")
)

// Template is one tileset entry
type Template struct {
	ID     uint16
	Image  string
	Size   image.Point // in cells
	Frames int         // animation frames, at least 1
	Tiles  []uint8     // explicit subset, nil means every cell
}

// TileIndices returns the tile indices the template provides, in the
// order their frames appear in the image asset.
func (t *Template) TileIndices() []uint8 {
	if t.Tiles != nil {
		out := make([]uint8, len(t.Tiles))
		copy(out, t.Tiles)
		return out
	}
	n := t.Size.X * t.Size.Y
	out := make([]uint8, n)
	for i := range out {
		out[i] = uint8(i)
	}
	return out
}

func (t *Template) TileCount() int {
	if t.Tiles != nil {
		return len(t.Tiles)
	}
	return t.Size.X * t.Size.Y
}

// FrameIndex maps a tile and animation step to the frame index in the
// template's image: anim*TileCount + position of the tile.
func (t *Template) FrameIndex(tile uint8, anim int) (int, bool) {
	pos := -1
	if t.Tiles == nil {
		if int(tile) < t.Size.X*t.Size.Y {
			pos = int(tile)
		}
	} else {
		for i, v := range t.Tiles {
			if v == tile {
				pos = i
				break
			}
		}
	}
	if pos < 0 || anim < 0 || anim >= t.Frames {
		return 0, false
	}
	return anim*t.TileCount() + pos, true
}

// Tileset is a parsed tileset file
type Tileset struct {
	Name        string
	ID          string
	TileSize    image.Point
	Palette     string
	MissingTile string

	templates []*Template
	byID      map[uint16]*Template
}

// Templates returns the templates ordered by id
func (ts *Tileset) Templates() []*Template {
	out := make([]*Template, len(ts.templates))
	copy(out, ts.templates)
	return out
}

// Template looks up a template by id
func (ts *Tileset) Template(id uint16) (*Template, bool) {
	t, ok := ts.byID[id]
	return t, ok
}

// Load reads and parses a tileset from fsys
func Load(fsys fs.FS, name string) (*Tileset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	ts, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ts, nil
}

// Parse decodes a tileset INI document
func Parse(data []byte) (*Tileset, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowNonUniqueSections: true}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ts := &Tileset{byID: make(map[uint16]*Template)}
	gen, err := cfg.GetSection("General")
	if err != nil {
		return nil, fmt.Errorf("%w: missing [General]", ErrInvalid)
	}
	ts.Name = gen.Key("Name").String()
	ts.ID = gen.Key("Id").String()
	ts.Palette = gen.Key("Palette").String()
	ts.MissingTile = gen.Key("MissingTile").String()
	ts.TileSize, err = frames.ParsePoint(gen.Key("TileSize").MustString("24,24"))
	if err != nil || ts.TileSize.X <= 0 || ts.TileSize.Y <= 0 {
		return nil, fmt.Errorf("%w: TileSize %q", ErrInvalid, gen.Key("TileSize").String())
	}

	for _, sec := range cfg.Sections() {
		rest, ok := strings.CutPrefix(sec.Name(), templatePrefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: section [%s]", ErrInvalid, sec.Name())
		}
		t, err := parseTemplate(uint16(id), sec)
		if err != nil {
			return nil, err
		}
		if _, dup := ts.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTemplate, t.ID)
		}
		ts.byID[t.ID] = t
		ts.templates = append(ts.templates, t)
	}
	sort.Slice(ts.templates, func(i, j int) bool { return ts.templates[i].ID < ts.templates[j].ID })
	return ts, nil
}

func parseTemplate(id uint16, sec *ini.Section) (*Template, error) {
	t := &Template{ID: id, Image: sec.Key("Image").String()}
	if t.Image == "" {
		return nil, fmt.Errorf("%w: template %d has no Image", ErrInvalid, id)
	}

	var err error
	t.Size, err = frames.ParsePoint(sec.Key("Size").MustString("1,1"))
	if err != nil || t.Size.X <= 0 || t.Size.Y <= 0 || t.Size.X*t.Size.Y > 256 {
		return nil, fmt.Errorf("%w: template %d Size %q", ErrInvalid, id, sec.Key("Size").String())
	}
	t.Frames = sec.Key("Frames").MustInt(1)
	if t.Frames < 1 {
		return nil, fmt.Errorf("%w: template %d Frames %d", ErrInvalid, id, t.Frames)
	}

	if sec.HasKey("Tiles") {
		t.Tiles = []uint8{}
		seen := make(map[uint8]bool)
		for _, s := range sec.Key("Tiles").Strings(",") {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 || n >= t.Size.X*t.Size.Y {
				return nil, fmt.Errorf("%w: template %d tile %q", ErrInvalid, id, s)
			}
			if seen[uint8(n)] {
				return nil, fmt.Errorf("%w: template %d repeats tile %d", ErrInvalid, id, n)
			}
			seen[uint8(n)] = true
			t.Tiles = append(t.Tiles, uint8(n))
		}
	}
	return t, nil
}
