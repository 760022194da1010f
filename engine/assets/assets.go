// Package assets opens the file tree tilesets are read from: a directory or
// a MIX archive.
package assets

import (
	"io/fs"
	"os"
	"sync"

	"github.com/1siamBot/rts-tilecache/engine/mix"
)

// Source is an opened asset tree. Close releases the archive, if any.
type Source struct {
	fs.FS
	Archive *mix.Archive

	once sync.Once
	err  error
}

// Open serves mixPath when it is set and dir otherwise
func Open(dir, mixPath string) (*Source, error) {
	if mixPath == "" {
		return &Source{FS: os.DirFS(dir)}, nil
	}
	a, err := mix.Open(mixPath)
	if err != nil {
		return nil, err
	}
	return &Source{FS: a, Archive: a}, nil
}

// Close is safe to call more than once
func (s *Source) Close() error {
	s.once.Do(func() {
		if s.Archive != nil {
			s.err = s.Archive.Close()
		}
	})
	return s.err
}
