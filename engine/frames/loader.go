package frames

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Asset is the result of decoding one file: its frames plus sideband metadata
type Asset struct {
	Frames   []Frame
	Metadata Metadata
}

// Loader decodes a named file from fsys
type Loader interface {
	Load(fsys fs.FS, name string) (*Asset, error)
}

// Registry picks a Loader by lower-cased file extension
type Registry map[string]Loader

// DefaultRegistry knows SHP and PNG
func DefaultRegistry() Registry {
	return Registry{
		".shp": SHPLoader{},
		".png": PNGLoader{},
	}
}

// Load decodes name with the loader registered for its extension
func (r Registry) Load(fsys fs.FS, name string) (*Asset, error) {
	ext := strings.ToLower(path.Ext(name))
	l, ok := r[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, name)
	}
	return l.Load(fsys, name)
}
