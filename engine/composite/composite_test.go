package composite

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/1siamBot/rts-tilecache/engine/frames"
)

func maskFrame(t *testing.T, w, h int, values ...byte) frames.Frame {
	t.Helper()
	data := make([]byte, w*h)
	for i := range data {
		data[i] = values[i%len(values)]
	}
	f, err := frames.NewFrame(w, h, frames.Indexed8, data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func solidFrame(t *testing.T, w, h int, format frames.Format, px [4]byte) frames.Frame {
	t.Helper()
	data := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		copy(data[i*4:], px[:])
	}
	f, err := frames.NewFrame(w, h, format, data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func randomFrame(rng *rand.Rand, w, h int, format frames.Format) frames.Frame {
	data := make([]byte, w*h*format.BytesPerPixel())
	rng.Read(data)
	return frames.Frame{Width: w, Height: h, Format: format, Data: data}
}

func TestCompositeWorkedExample(t *testing.T) {
	mask := maskFrame(t, 1, 1, 128)
	overlay := solidFrame(t, 1, 1, frames.BGRA, [4]byte{200, 100, 50, 255})

	out, err := Composite(mask, []frames.Frame{overlay})
	if err != nil {
		t.Fatal(err)
	}
	// overlayAlpha = 255*128 = 32640, baseAlpha = 65205-32640 = 32565
	want := []byte{
		200 * 32640 / 65205,
		100 * 32640 / 65205,
		50 * 32640 / 65205,
		255 * 32640 / 65205,
	}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	if out[0] != 100 || out[3] != 127 {
		t.Fatalf("expected B=100 A=127, got B=%d A=%d", out[0], out[3])
	}
}

func TestCompositeZeroMaskPassesThrough(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mask := maskFrame(t, 8, 6, 0)
	overlays := []frames.Frame{
		randomFrame(rng, 8, 6, frames.BGRA),
		randomFrame(rng, 8, 6, frames.RGBA),
	}
	out, err := Composite(mask, overlays)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, make([]byte, 8*6*4)) {
		t.Fatal("zero mask changed the accumulator")
	}
}

func TestCompositeFullCoverageKeepsConstant(t *testing.T) {
	mask := maskFrame(t, 2, 2, 255)
	overlay := solidFrame(t, 2, 2, frames.BGRA, [4]byte{255, 128, 7, 255})

	out, err := Composite(mask, []frames.Frame{overlay})
	if err != nil {
		t.Fatal(err)
	}
	for p := 0; p < 4; p++ {
		for c, v := range []byte{255, 128, 7} {
			want := byte(uint32(v) * 65025 / 65205)
			if out[p*4+c] != want {
				t.Fatalf("pixel %d channel %d: got %d, want %d", p, c, out[p*4+c], want)
			}
		}
	}
	// 255*65025/65205 truncates to 254, the trace of the empty accumulator
	if out[0] != 254 || out[3] != 254 {
		t.Fatalf("expected 254 for saturated channels, got B=%d A=%d", out[0], out[3])
	}
}

func TestCompositeRGBASwapsOnRead(t *testing.T) {
	mask := maskFrame(t, 3, 1, 10, 200, 255)
	bgra := solidFrame(t, 3, 1, frames.BGRA, [4]byte{9, 80, 240, 190})
	rgba := solidFrame(t, 3, 1, frames.RGBA, [4]byte{240, 80, 9, 190})

	a, err := Composite(mask, []frames.Frame{bgra})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Composite(mask, []frames.Frame{rgba})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("RGBA and BGRA inputs disagree: %v vs %v", a, b)
	}
}

func TestCompositeOrderMatters(t *testing.T) {
	mask := maskFrame(t, 4, 1, 0, 90, 180, 255)
	red := solidFrame(t, 4, 1, frames.BGRA, [4]byte{0, 0, 255, 255})
	blue := solidFrame(t, 4, 1, frames.BGRA, [4]byte{255, 0, 0, 255})

	ab, err := Composite(mask, []frames.Frame{red, blue})
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Composite(mask, []frames.Frame{blue, red})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ab[0:4], make([]byte, 4)) || !bytes.Equal(ba[0:4], make([]byte, 4)) {
		t.Fatalf("uncovered pixel changed: %v %v", ab[0:4], ba[0:4])
	}
	for p := 1; p < 4; p++ {
		if bytes.Equal(ab[p*4:p*4+4], ba[p*4:p*4+4]) {
			t.Fatalf("pixel %d identical for both orders: %v", p, ab[p*4:p*4+4])
		}
	}
}

func TestCompositeAlphaIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var acc, ov [4]byte
		rng.Read(acc[:])
		rng.Read(ov[:])
		m := uint8(rng.Intn(256))
		out := Blend(acc, ov, m)
		if out[3] < acc[3] {
			t.Fatalf("alpha dropped: acc=%v overlay=%v mask=%d -> %v", acc, ov, m, out)
		}
	}

	// more layers never lower alpha
	mask := randomFrame(rng, 5, 5, frames.Indexed8)
	var overlays []frames.Frame
	var prev []byte
	for n := 0; n < 4; n++ {
		overlays = append(overlays, randomFrame(rng, 5, 5, frames.BGRA))
		out, err := Composite(mask, overlays)
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil {
			for p := 0; p < 25; p++ {
				if out[p*4+3] < prev[p*4+3] {
					t.Fatalf("layer %d lowered alpha at pixel %d: %d < %d", n, p, out[p*4+3], prev[p*4+3])
				}
			}
		}
		prev = out
	}
}

func TestBlendZeroMaskIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		var acc, ov [4]byte
		rng.Read(acc[:])
		rng.Read(ov[:])
		if got := Blend(acc, ov, 0); got != acc {
			t.Fatalf("Blend(%v, %v, 0) = %v", acc, ov, got)
		}
	}
}

func TestCompositeRejectsBadInput(t *testing.T) {
	mask := maskFrame(t, 4, 4, 255)
	good := solidFrame(t, 4, 4, frames.BGRA, [4]byte{1, 2, 3, 255})

	tests := []struct {
		name     string
		mask     frames.Frame
		overlays []frames.Frame
		want     error
	}{
		{"no overlays", mask, nil, ErrNoOverlays},
		{"indexed overlay", mask, []frames.Frame{good, maskFrame(t, 4, 4, 1)}, ErrUnsupportedFormat},
		{"rgba mask", good, []frames.Frame{good}, ErrUnsupportedFormat},
		{"wider overlay", mask, []frames.Frame{good, solidFrame(t, 5, 4, frames.BGRA, [4]byte{})}, ErrDimensionMismatch},
		{"shorter overlay", mask, []frames.Frame{solidFrame(t, 4, 3, frames.RGBA, [4]byte{})}, ErrDimensionMismatch},
		{"truncated overlay", mask, []frames.Frame{{Width: 4, Height: 4, Format: frames.BGRA, Data: make([]byte, 10)}}, frames.ErrBufferLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Composite(tt.mask, tt.overlays)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if out != nil {
				t.Fatal("expected no output buffer on error")
			}
		})
	}
}

func TestCompositeIntoLeavesBufferOnError(t *testing.T) {
	mask := maskFrame(t, 2, 2, 255)
	first := solidFrame(t, 2, 2, frames.BGRA, [4]byte{10, 20, 30, 255})
	bad := solidFrame(t, 3, 2, frames.BGRA, [4]byte{10, 20, 30, 255})

	dst := bytes.Repeat([]byte{0xAB}, 16)
	err := CompositeInto(dst, mask, []frames.Frame{first, bad})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v", err)
	}
	if !bytes.Equal(dst, bytes.Repeat([]byte{0xAB}, 16)) {
		t.Fatal("destination written before validation failed")
	}

	if err := CompositeInto(make([]byte, 12), mask, []frames.Frame{first}); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("got %v, want ErrBufferSize", err)
	}
}

func TestCompositeIntoMatchesComposite(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	mask := randomFrame(rng, 7, 3, frames.Indexed8)
	overlays := []frames.Frame{
		randomFrame(rng, 7, 3, frames.RGBA),
		randomFrame(rng, 7, 3, frames.BGRA),
	}
	want, err := Composite(mask, overlays)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 7*3*4)
	if err := CompositeInto(dst, mask, overlays); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, want) {
		t.Fatal("CompositeInto and Composite differ")
	}
}

func BenchmarkComposite(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	mask := randomFrame(rng, 48, 24, frames.Indexed8)
	overlays := []frames.Frame{
		randomFrame(rng, 48, 24, frames.BGRA),
		randomFrame(rng, 48, 24, frames.RGBA),
		randomFrame(rng, 48, 24, frames.BGRA),
	}
	dst := make([]byte, 48*24*4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		clear(dst)
		if err := CompositeInto(dst, mask, overlays); err != nil {
			b.Fatal(err)
		}
	}
}
