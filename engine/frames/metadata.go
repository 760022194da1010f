package frames

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// SourceFilenameKey is the metadata key prefix naming overlay sources
const SourceFilenameKey = "SourceFilename"

// Metadata holds string key/value pairs attached to an asset, in the
// order they were read.
type Metadata struct {
	keys   []string
	values map[string]string
}

// Set adds or replaces a key. Replacing keeps the original position.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m Metadata) Len() int {
	return len(m.keys)
}

// Merge copies every key of other into m
func (m *Metadata) Merge(other Metadata) {
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// IndexedKey builds a layer-indexed key such as SourceFilename[2]
func IndexedKey(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}

// SourceFilenames reads SourceFilename[0], SourceFilename[1], ... until the
// first missing index. The result is the fixed overlay order.
func SourceFilenames(m Metadata) []string {
	var out []string
	for i := 0; ; i++ {
		v, ok := m.Get(IndexedKey(SourceFilenameKey, i))
		if !ok {
			return out
		}
		out = append(out, strings.TrimSpace(v))
	}
}

// Point parses an "x,y" metadata value
func (m Metadata) Point(key string) (image.Point, bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return image.Point{}, false, nil
	}
	p, err := ParsePoint(v)
	if err != nil {
		return image.Point{}, true, fmt.Errorf("metadata %s: %w", key, err)
	}
	return p, true, nil
}

// Int parses an integer metadata value
func (m Metadata) Int(key string) (int, bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, true, fmt.Errorf("metadata %s: %w", key, err)
	}
	return n, true, nil
}

// ParsePoint parses "x,y" into a point
func ParsePoint(s string) (image.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return image.Point{}, fmt.Errorf("%w: expected x,y, got %q", ErrMalformed, s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return image.Pt(x, y), nil
}
