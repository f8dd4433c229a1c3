package pixel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unsafe"
)

// ErrKindMismatch is generated when two buffers of different kinds are used
// in an operation that requires them to match
var ErrKindMismatch = errors.New("pixel: buffer kinds do not match")

// Value constrains the numeric types a frame buffer may hold, one per Kind
type Value interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// Buffer is a frame buffer of one concrete pixel kind.  The kind is fixed at
// allocation; all methods dispatch on it without further switching.
//
// Buffers are not internally synchronized.  The detector guards them with
// the per-camera lock.
type Buffer interface {
	// Kind returns the pixel kind the buffer was allocated for
	Kind() Kind

	// Len returns the capacity of the buffer in pixels
	Len() int

	// Bytes returns the backing storage as bytes in native byte order.
	// The slice aliases the buffer; writes through it are visible to
	// subsequent reads.
	Bytes() []byte

	// Float64 returns pixel i widened to float64, for display scaling
	// and export paths that are not performance critical
	Float64(i int) float64

	// Synthesize fills the first width*height pixels with the test
	// pattern.  With reset true, pixel (row i, col j) is
	// j*gainX + i*gainY + increment; with reset false, increment is
	// added to the previous contents.  The increment is truncated to
	// the pixel type before use, and every store truncates again;
	// integer accumulation wraps as native arithmetic does.
	Synthesize(width, height int, gainX, gainY, increment float64, reset bool)

	// ExtractTo reduces the rectangle at (offX, offY) of extent
	// (sizeW, sizeH) within the width*height source into dst, averaging
	// binX x binY blocks into single pixels.  It returns the output
	// dimensions sizeW/binX, sizeH/binY.  dst must have the same kind
	// as the receiver and capacity for the output.
	ExtractTo(dst Buffer, width, height, binX, binY, offX, offY, sizeW, sizeH int) (int, int, error)

	// WriteValues writes the first n pixels to w, one decimal value per
	// line, in Go's default formatting for the pixel type
	WriteValues(w io.Writer, n int) error

	// ReadValues parses n whitespace-separated decimal values from r
	// into the first n pixels
	ReadValues(r io.Reader, n int) error
}

// New allocates a buffer of n pixels of kind k.  This is the single
// exhaustive dispatch over the pixel kinds; everything downstream works
// through the returned Buffer.  An unrecognized kind panics, matching
// Kind.Size.
func New(k Kind, n int) Buffer {
	switch k {
	case Int8:
		return &frame[int8]{kind: k, data: make([]int8, n)}
	case UInt8:
		return &frame[uint8]{kind: k, data: make([]uint8, n)}
	case Int16:
		return &frame[int16]{kind: k, data: make([]int16, n)}
	case UInt16:
		return &frame[uint16]{kind: k, data: make([]uint16, n)}
	case Int32:
		return &frame[int32]{kind: k, data: make([]int32, n)}
	case UInt32:
		return &frame[uint32]{kind: k, data: make([]uint32, n)}
	case Float32:
		return &frame[float32]{kind: k, data: make([]float32, n)}
	case Float64:
		return &frame[float64]{kind: k, data: make([]float64, n)}
	}
	panic(fmt.Sprintf("pixel: allocation of unknown kind %d", int(k)))
}

// frame is the concrete buffer for one pixel type
type frame[T Value] struct {
	kind Kind
	data []T
}

func (f *frame[T]) Kind() Kind { return f.kind }

func (f *frame[T]) Len() int { return len(f.data) }

func (f *frame[T]) Bytes() []byte {
	if len(f.data) == 0 {
		return nil
	}
	nbytes := len(f.data) * f.kind.Size()
	return unsafe.Slice((*byte)(unsafe.Pointer(&f.data[0])), nbytes)
}

func (f *frame[T]) Float64(i int) float64 { return float64(f.data[i]) }

func (f *frame[T]) Synthesize(width, height int, gainX, gainY, increment float64, reset bool) {
	// truncate the increment to the pixel type up front; the original
	// fixed-width arithmetic depends on it
	inc := T(increment)
	if !reset {
		for i := range f.data[:width*height] {
			f.data[i] += inc
		}
		return
	}
	idx := 0
	scaleY := 0.
	for i := 0; i < height; i++ {
		scaleX := 0.
		for j := 0; j < width; j++ {
			f.data[idx] = T(scaleX + scaleY + float64(inc))
			scaleX += gainX
			idx++
		}
		scaleY += gainY
	}
}

func (f *frame[T]) ExtractTo(dst Buffer, width, height, binX, binY, offX, offY, sizeW, sizeH int) (int, int, error) {
	out, ok := dst.(*frame[T])
	if !ok {
		return 0, 0, ErrKindMismatch
	}
	outW := sizeW / binX
	outH := sizeH / binY
	if binX == 1 && binY == 1 && offX == 0 && offY == 0 && sizeW == width && sizeH == height {
		// whole frame, no binning: straight copy
		copy(out.data, f.data[:width*height])
		return outW, outH, nil
	}
	// average each binX x binY block; accumulating in float64 keeps the
	// narrow integer types from overflowing before the divide
	norm := float64(binX * binY)
	di := 0
	for oy := 0; oy < outH; oy++ {
		sy := offY + oy*binY
		for ox := 0; ox < outW; ox++ {
			sx := offX + ox*binX
			sum := 0.
			for by := 0; by < binY; by++ {
				row := (sy+by)*width + sx
				for bx := 0; bx < binX; bx++ {
					sum += float64(f.data[row+bx])
				}
			}
			out.data[di] = T(sum / norm)
			di++
		}
	}
	return outW, outH, nil
}

func (f *frame[T]) WriteValues(w io.Writer, n int) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintln(bw, f.data[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (f *frame[T]) ReadValues(r io.Reader, n int) error {
	br := bufio.NewReader(r)
	for i := 0; i < n; i++ {
		if _, err := fmt.Fscan(br, &f.data[i]); err != nil {
			return fmt.Errorf("pixel: reading value %d of %d: %w", i, n, err)
		}
	}
	return nil
}
