package maplib

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
)

// TerrainTile references one tile of a tileset template
type TerrainTile struct {
	Template uint16 `json:"t"`
	Index    uint8  `json:"i"`
}

// TileMap is a rectangular grid of terrain tiles
type TileMap struct {
	Name    string        `json:"name"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Tileset string        `json:"tileset"` // tileset Id
	Tiles   []TerrainTile `json:"tiles"`
}

// NewTileMap creates a map filled with fill
func NewTileMap(name, tileset string, width, height int, fill TerrainTile) *TileMap {
	tm := &TileMap{
		Name:    name,
		Width:   width,
		Height:  height,
		Tileset: tileset,
		Tiles:   make([]TerrainTile, width*height),
	}
	for i := range tm.Tiles {
		tm.Tiles[i] = fill
	}
	return tm
}

// At returns a pointer to the tile at (x, y)
func (tm *TileMap) At(x, y int) *TerrainTile {
	if !tm.InBounds(x, y) {
		return nil
	}
	return &tm.Tiles[y*tm.Width+x]
}

// InBounds checks if coordinates are within map bounds
func (tm *TileMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < tm.Width && y < tm.Height
}

// Set places a tile, ignoring coordinates outside the map
func (tm *TileMap) Set(x, y int, t TerrainTile) {
	if p := tm.At(x, y); p != nil {
		*p = t
	}
}

// Fill sets a rectangular region (inclusive corners). A template larger than
// one cell is laid out across the region with tile indices cycling through
// its w x h cells.
func (tm *TileMap) Fill(x1, y1, x2, y2 int, template uint16, w, h int) {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			idx := ((y-y1)%h)*w + (x-x1)%w
			tm.Set(x, y, TerrainTile{Template: template, Index: uint8(idx)})
		}
	}
}

func (tm *TileMap) validate() error {
	if tm.Width < 0 || tm.Height < 0 || len(tm.Tiles) != tm.Width*tm.Height {
		return fmt.Errorf("maplib: %dx%d map has %d tiles", tm.Width, tm.Height, len(tm.Tiles))
	}
	return nil
}

// SaveJSON saves the map to a JSON file
func (tm *TileMap) SaveJSON(path string) error {
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJSON loads a map from a JSON file
func LoadJSON(path string) (*TileMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(path, data)
}

// ReadJSON loads a map from fsys
func ReadJSON(fsys fs.FS, name string) (*TileMap, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return decode(name, data)
}

func decode(name string, data []byte) (*TileMap, error) {
	var tm TileMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, err
	}
	if err := tm.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &tm, nil
}
