// Package mix reads Westwood .mix archives (TD/RA old format, TS/RA2 new
// format, plain or Blowfish-encrypted headers) and serves their contents
// through io/fs.
package mix

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	flagChecksum  = 0x00010000
	flagEncrypted = 0x00020000
)

var ErrMalformed = errors.New("mix: malformed archive")

// Entry is one index record
type Entry struct {
	ID     int32
	Offset uint32
	Size   uint32
}

// Archive is a parsed MIX index over a random-access body. It is safe for
// concurrent reads.
type Archive struct {
	Flags      uint32
	BodySize   uint32
	HeaderSize int64

	entries []Entry
	byID    map[int32]Entry
	classic bool // TD/RA index keyed by ClassicID
	data    io.ReaderAt
	closer  io.Closer
}

// Open opens and parses a MIX file from disk
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// NewReader parses the header of a MIX archive read through r
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{data: r}

	var first4 [4]byte
	if _, err := r.ReadAt(first4[:], 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// Old format: first word is the (non-zero) file count
	if first4[0] != 0 || first4[1] != 0 {
		a.classic = true
		return a.readIndex(io.NewSectionReader(r, 0, 1<<62), 6)
	}

	a.Flags = binary.LittleEndian.Uint32(first4[:])
	if a.Flags&flagEncrypted != 0 {
		return a.readEncryptedIndex(r)
	}
	return a.readIndex(io.NewSectionReader(r, 4, 1<<62), 4+6)
}

func (a *Archive) readIndex(r io.Reader, headerSize int64) (*Archive, error) {
	var hdr struct {
		Count    uint16
		BodySize uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	entries := make([]Entry, hdr.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("%w: index: %v", ErrMalformed, err)
	}
	a.BodySize = hdr.BodySize
	a.HeaderSize = headerSize + int64(hdr.Count)*12
	a.setEntries(entries)
	return a, nil
}

func (a *Archive) setEntries(entries []Entry) {
	a.entries = entries
	a.byID = make(map[int32]Entry, len(entries))
	for _, e := range entries {
		a.byID[e.ID] = e
	}
}

// Close releases the underlying file when the archive was opened from disk
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Checksummed reports whether the archive carries a trailing SHA1 digest
func (a *Archive) Checksummed() bool {
	return a.Flags&flagChecksum != 0
}

// Encrypted reports whether the index was Blowfish-encrypted
func (a *Archive) Encrypted() bool {
	return a.Flags&flagEncrypted != 0
}

// Entries returns the index in file order
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Contains reports whether name is in the index
func (a *Archive) Contains(name string) bool {
	_, ok := a.lookup(name)
	return ok
}

// lookup finds name under the id scheme of the archive's format first. RA
// shipped flagged archives with classic ids, so the other scheme is tried
// as well.
func (a *Archive) lookup(name string) (Entry, bool) {
	first, second := ID, ClassicID
	if a.classic {
		first, second = ClassicID, ID
	}
	if e, ok := a.byID[first(name)]; ok {
		return e, true
	}
	e, ok := a.byID[second(name)]
	return e, ok
}

// ReadEntry returns the raw bytes of an index entry
func (a *Archive) ReadEntry(e Entry) ([]byte, error) {
	if a.BodySize != 0 && uint64(e.Offset)+uint64(e.Size) > uint64(a.BodySize) {
		return nil, fmt.Errorf("%w: entry %08x past body end", ErrMalformed, uint32(e.ID))
	}
	buf := make([]byte, e.Size)
	if e.Size == 0 {
		return buf, nil
	}
	if _, err := a.data.ReadAt(buf, a.HeaderSize+int64(e.Offset)); err != nil {
		return nil, fmt.Errorf("%w: entry %08x: %v", ErrMalformed, uint32(e.ID), err)
	}
	return buf, nil
}

// ReadFile returns the contents of name
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, ok := a.lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return a.ReadEntry(e)
}

// Open implements fs.FS. MIX archives are flat, so names with a directory
// part never match.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &file{Reader: bytes.NewReader(data), name: name, size: int64(len(data))}, nil
}

// Nested parses an archive stored inside this one
func (a *Archive) Nested(name string) (*Archive, error) {
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	sub, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return sub, nil
}

type file struct {
	*bytes.Reader
	name string
	size int64
}

func (f *file) Stat() (fs.FileInfo, error) { return fileInfo{name: f.name, size: f.size}, nil }
func (f *file) Close() error               { return nil }

type fileInfo struct {
	name string
	size int64
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0444 }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }

// Write builds an unencrypted new-format archive holding files. Entries are
// sorted by ID as the game expects.
func Write(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return ID(names[i]) < ID(names[j]) })

	entries := make([]Entry, len(names))
	var body bytes.Buffer
	for i, n := range names {
		entries[i] = Entry{ID: ID(n), Offset: uint32(body.Len()), Size: uint32(len(files[n]))}
		body.Write(files[n])
	}

	var hdr bytes.Buffer
	binary.Write(&hdr, binary.LittleEndian, uint32(0))
	binary.Write(&hdr, binary.LittleEndian, uint16(len(entries)))
	binary.Write(&hdr, binary.LittleEndian, uint32(body.Len()))
	binary.Write(&hdr, binary.LittleEndian, entries)
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}
