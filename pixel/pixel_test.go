package pixel

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func ExampleBuffer_Synthesize() {
	b := New(UInt8, 9)
	b.Synthesize(3, 3, 1, 10, 0, true)
	b.WriteValues(os.Stdout, 9)
	// Output:
	// 0
	// 1
	// 2
	// 10
	// 11
	// 12
	// 20
	// 21
	// 22
}

func TestSynthesizeResetPattern(t *testing.T) {
	b := New(UInt8, 100)
	b.Synthesize(10, 10, 1, 1, 0, true)
	if got := b.Float64(0); got != 0 {
		t.Errorf("pixel (0,0), got %v expected 0", got)
	}
	// row 2, col 3: 3*gainX + 2*gainY
	if got := b.Float64(2*10 + 3); got != 5 {
		t.Errorf("pixel (2,3), got %v expected 5", got)
	}
}

func TestSynthesizeTruncatesIncrement(t *testing.T) {
	b := New(Int16, 4)
	b.Synthesize(2, 2, 0, 0, 2.9, true)
	if got := b.Float64(0); got != 2 {
		t.Errorf("got %v expected 2, increment not truncated to pixel type", got)
	}
}

func TestSynthesizeAccumulateWraps(t *testing.T) {
	b := New(UInt8, 4)
	b.Synthesize(2, 2, 0, 0, 250, true)
	b.Synthesize(2, 2, 0, 0, 10, false)
	if got := b.Float64(0); got != 4 {
		t.Errorf("got %v expected 4 (250+10 wrapped)", got)
	}
}

func TestExtractToFullFrameCopies(t *testing.T) {
	src := New(UInt16, 100)
	dst := New(UInt16, 100)
	src.Synthesize(10, 10, 2, 3, 1, true)
	w, h, err := src.ExtractTo(dst, 10, 10, 1, 1, 0, 0, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if w != 10 || h != 10 {
		t.Errorf("got %dx%d expected 10x10", w, h)
	}
	if !bytes.Equal(src.Bytes(), dst.Bytes()) {
		t.Error("full-frame extraction is not a faithful copy")
	}
}

func TestExtractToBins(t *testing.T) {
	src := New(Float64, 100)
	dst := New(Float64, 50)
	// row pattern: pixel (i,j) = j
	src.Synthesize(10, 10, 1, 0, 0, true)
	w, h, err := src.ExtractTo(dst, 10, 10, 2, 1, 0, 0, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if w != 5 || h != 10 {
		t.Errorf("got %dx%d expected 5x10", w, h)
	}
	// first output pixel averages columns 0 and 1
	if got := dst.Float64(0); got != 0.5 {
		t.Errorf("got %v expected 0.5", got)
	}
	if got := dst.Float64(4); got != 8.5 {
		t.Errorf("got %v expected 8.5", got)
	}
}

func TestExtractToOffset(t *testing.T) {
	src := New(Int32, 100)
	dst := New(Int32, 100)
	src.Synthesize(10, 10, 1, 10, 0, true)
	w, h, err := src.ExtractTo(dst, 10, 10, 1, 1, 3, 2, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if w != 4 || h != 4 {
		t.Fatalf("got %dx%d expected 4x4", w, h)
	}
	// source pixel (2,3) = 3 + 2*10
	if got := dst.Float64(0); got != 23 {
		t.Errorf("got %v expected 23", got)
	}
}

func TestExtractToKindMismatch(t *testing.T) {
	src := New(UInt8, 16)
	dst := New(UInt16, 16)
	_, _, err := src.ExtractTo(dst, 4, 4, 1, 1, 0, 0, 4, 4)
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("got %v expected ErrKindMismatch", err)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	src := New(Float32, 9)
	dst := New(Float32, 9)
	src.Synthesize(3, 3, 0.25, 1.5, 0.125, true)
	buf := &bytes.Buffer{}
	if err := src.WriteValues(buf, 9); err != nil {
		t.Fatal(err)
	}
	if err := dst.ReadValues(buf, 9); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 9; i++ {
		if src.Float64(i) != dst.Float64(i) {
			t.Errorf("pixel %d: got %v expected %v", i, dst.Float64(i), src.Float64(i))
		}
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("UInt16")
	if err != nil {
		t.Fatal(err)
	}
	if k != UInt16 {
		t.Errorf("got %v expected uint16", k)
	}
	if _, err := ParseKind("uint64"); err == nil {
		t.Error("expected an error for an unsupported kind")
	}
}

func TestBytesLength(t *testing.T) {
	for _, k := range []Kind{Int8, UInt8, Int16, UInt16, Int32, UInt32, Float32, Float64} {
		b := New(k, 7)
		if got := len(b.Bytes()); got != 7*k.Size() {
			t.Errorf("%v: got %d bytes expected %d", k, got, 7*k.Size())
		}
	}
}
