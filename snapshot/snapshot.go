/*Package snapshot serializes processed detector frames to and from disk.

Two encodings are supported for round-tripping: a raw binary layout and a
line-oriented text layout.  Both start with the same three-field header
(width, height, pixel kind) followed by the pixel payload.  A write-only
FITS export lives alongside them for consumption by astronomy tooling.
*/
package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/detlab/simcam/pixel"
)

// Format selects the snapshot encoding
type Format int

const (
	// Binary is the fixed-order header (width, height, kind as int32 in
	// native byte order) followed by the raw pixel payload.  No padding,
	// no checksum.
	Binary Format = iota

	// Text is the header as three decimal integers, one per line,
	// followed by one pixel value per line
	Text
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case Text:
		return "text"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ErrBadFormat is generated for a format value outside the enumeration
type ErrBadFormat struct {
	Format Format
}

func (e ErrBadFormat) Error() string {
	return fmt.Sprintf("snapshot: unknown format %d", int(e.Format))
}

// Header describes the geometry and type of a stored frame
type Header struct {
	Width  int
	Height int
	Kind   pixel.Kind
}

// Write stores the first width*height pixels of img to w in the given format
func Write(w io.Writer, format Format, img pixel.Buffer, width, height int) error {
	n := width * height
	switch format {
	case Binary:
		hdr := [3]int32{int32(width), int32(height), int32(img.Kind())}
		if err := binary.Write(w, binary.NativeEndian, hdr); err != nil {
			return err
		}
		_, err := w.Write(img.Bytes()[:n*img.Kind().Size()])
		return err
	case Text:
		if _, err := fmt.Fprintf(w, "%d\n%d\n%d\n", width, height, int(img.Kind())); err != nil {
			return err
		}
		return img.WriteValues(w, n)
	}
	return ErrBadFormat{format}
}

// ReadHeader parses the geometry/type header.  The caller is expected to
// (re)allocate buffers to match before calling ReadPayload on the same
// reader.
func ReadHeader(r io.Reader, format Format) (Header, error) {
	var h Header
	switch format {
	case Binary:
		var hdr [3]int32
		if err := binary.Read(r, binary.NativeEndian, &hdr); err != nil {
			return h, err
		}
		h.Width, h.Height, h.Kind = int(hdr[0]), int(hdr[1]), pixel.Kind(hdr[2])
	case Text:
		var kind int
		if _, err := fmt.Fscan(r, &h.Width, &h.Height, &kind); err != nil {
			return h, err
		}
		h.Kind = pixel.Kind(kind)
	default:
		return h, ErrBadFormat{format}
	}
	if !h.Kind.Valid() {
		return h, fmt.Errorf("snapshot: header declares unknown pixel kind %d", int(h.Kind))
	}
	if h.Width < 0 || h.Height < 0 {
		return h, fmt.Errorf("snapshot: header declares negative geometry %dx%d", h.Width, h.Height)
	}
	return h, nil
}

// ReadPayload fills dst with the pixel data following a header read by
// ReadHeader.  dst must have been allocated for hdr's kind and at least
// hdr.Width*hdr.Height pixels.
func ReadPayload(r io.Reader, format Format, hdr Header, dst pixel.Buffer) error {
	if dst.Kind() != hdr.Kind {
		return pixel.ErrKindMismatch
	}
	n := hdr.Width * hdr.Height
	switch format {
	case Binary:
		_, err := io.ReadFull(r, dst.Bytes()[:n*hdr.Kind.Size()])
		return err
	case Text:
		return dst.ReadValues(r, n)
	}
	return ErrBadFormat{format}
}
