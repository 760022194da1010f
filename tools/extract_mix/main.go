// Package main lists and extracts files from Westwood .mix archives.
//
// Usage:
//
//	go run ./tools/extract_mix -input ra2.mix -list
//	go run ./tools/extract_mix -input ra2.mix -nested isotemp.mix \
//	  -name clear01.tem -name temperat.pal -png -palette isotem.pal -output assets/temperate
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/1siamBot/rts-tilecache/engine/frames"
	"github.com/1siamBot/rts-tilecache/engine/mix"
	"github.com/1siamBot/rts-tilecache/engine/palette"
)

// names collects repeated -name flags
type names []string

func (n *names) String() string     { return strings.Join(*n, ",") }
func (n *names) Set(v string) error { *n = append(*n, v); return nil }

// source is an archive searched for named files
type source struct {
	name string
	mix  *mix.Archive
}

func main() {
	inputPath := flag.String("input", "", "Path to a .mix archive")
	outputPath := flag.String("output", "assets/extracted", "Output directory")
	listOnly := flag.Bool("list", false, "Just list mix contents (IDs)")
	dumpAll := flag.Bool("dump-all", false, "Dump every entry as <id>.bin")
	nested := flag.String("nested", "", "Comma separated nested archives to search as well")
	palName := flag.String("palette", "", "Palette used by -png (looked up like any other name)")
	toPNG := flag.Bool("png", false, "Also convert extracted .shp/.tem/.sno/.urb files to PNG sheets")
	var wanted names
	flag.Var(&wanted, "name", "File to extract (repeatable)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: extract_mix -input <file.mix> [-list | -dump-all | -name <file> ...] [-output <dir>]")
		os.Exit(1)
	}

	archive, err := mix.Open(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read mix: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	fmt.Printf("Mix: flags=0x%08x files=%d bodySize=%d headerSize=%d encrypted=%v\n",
		archive.Flags, len(archive.Entries()), archive.BodySize, archive.HeaderSize, archive.Encrypted())

	sources := []source{{filepath.Base(*inputPath), archive}}
	for _, nm := range strings.Split(*nested, ",") {
		nm = strings.TrimSpace(nm)
		if nm == "" {
			continue
		}
		sub, err := archive.Nested(nm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nested %s: %v\n", nm, err)
			continue
		}
		fmt.Printf("Found nested mix: %s (%d files)\n", nm, len(sub.Entries()))
		sources = append(sources, source{nm, sub})
	}

	if *listOnly {
		for _, src := range sources {
			fmt.Printf("%s:\n", src.name)
			for _, e := range src.mix.Entries() {
				fmt.Printf("  ID=%08x offset=%d size=%d\n", uint32(e.ID), e.Offset, e.Size)
			}
		}
		return
	}

	if err := os.MkdirAll(*outputPath, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "output: %v\n", err)
		os.Exit(1)
	}

	if *dumpAll {
		for _, src := range sources {
			dumpDir := filepath.Join(*outputPath, "raw_dump", src.name)
			os.MkdirAll(dumpDir, 0755)
			for _, e := range src.mix.Entries() {
				data, err := src.mix.ReadEntry(e)
				if err != nil {
					fmt.Printf("  extract %08x: %v\n", uint32(e.ID), err)
					continue
				}
				fname := fmt.Sprintf("%08x.bin", uint32(e.ID))
				os.WriteFile(filepath.Join(dumpDir, fname), data, 0644)
			}
			fmt.Printf("Dumped %d entries of %s\n", len(src.mix.Entries()), src.name)
		}
		return
	}

	var pal *palette.Palette
	if *toPNG {
		p := palette.Grayscale()
		if *palName != "" {
			if data, from, err := find(sources, *palName); err != nil {
				fmt.Printf("  palette %s not found, using grayscale\n", *palName)
			} else if parsed, err := palette.Parse(data); err != nil {
				fmt.Printf("  palette %s: %v\n", *palName, err)
			} else {
				fmt.Printf("Found palette: %s in %s\n", *palName, from)
				p = parsed
			}
		}
		pal = &p
	}

	extracted := 0
	for _, name := range wanted {
		data, from, err := find(sources, name)
		if err != nil {
			fmt.Printf("  %s: not found\n", name)
			continue
		}
		if err := os.WriteFile(filepath.Join(*outputPath, name), data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Extracted %s from %s (%d bytes)\n", name, from, len(data))
		extracted++

		if pal != nil && isSHP(name) {
			out := filepath.Join(*outputPath, strings.TrimSuffix(name, path.Ext(name))+".png")
			if err := writeSheet(out, data, pal); err != nil {
				fmt.Printf("  convert %s: %v\n", name, err)
			}
		}
	}
	fmt.Printf("\nExtracted %d files to %s\n", extracted, *outputPath)
}

func find(sources []source, name string) ([]byte, string, error) {
	var lastErr error
	for _, src := range sources {
		data, err := src.mix.ReadFile(name)
		if err == nil {
			return data, src.name, nil
		}
		lastErr = err
	}
	return nil, "", lastErr
}

func isSHP(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".shp", ".tem", ".sno", ".urb", ".des":
		return true
	}
	return false
}

// writeSheet converts every SHP frame into one horizontal RGBA strip, with
// FrameSize metadata so the PNG loader splits it back into frames
func writeSheet(out string, data []byte, pal *palette.Palette) error {
	shp, err := frames.DecodeSHP(data)
	if err != nil {
		return err
	}
	if len(shp) == 0 {
		return fmt.Errorf("no frames")
	}
	w, h := shp[0].Width, shp[0].Height
	sheet := image.NewRGBA(image.Rect(0, 0, w*len(shp), h))
	var meta frames.Metadata
	meta.Set(frames.KeyFrameSize, fmt.Sprintf("%d,%d", w, h))
	meta.Set(frames.KeyFrameAmount, fmt.Sprint(len(shp)))

	for i, f := range shp {
		px, err := frames.ToBGRA(f, pal)
		if err != nil {
			return err
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := (y*w + x) * 4
				d := sheet.PixOffset(i*w+x, y)
				sheet.Pix[d], sheet.Pix[d+1], sheet.Pix[d+2], sheet.Pix[d+3] = px[o+2], px[o+1], px[o], px[o+3]
			}
		}
		if f.Offset != (image.Point{}) {
			meta.Set(frames.IndexedKey(frames.KeyOffset, i), fmt.Sprintf("%d,%d", f.Offset.X, f.Offset.Y))
		}
	}

	encoded, err := frames.EncodePNG(sheet, meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, encoded, 0644); err != nil {
		return err
	}
	fmt.Printf("  wrote %s (%d frames)\n", out, len(shp))
	return nil
}
