/*Package pixel holds the fixed set of pixel kinds supported by the simulated
detector and the typed frame buffers built on them.

The eight kinds mirror the usual scientific-detector menu of signed and
unsigned integers plus single and double precision floats.  Buffers are
allocated for one concrete kind and all per-pixel work (synthesis, region
extraction, text serialization) is dispatched once, at allocation time,
through a single exhaustive switch in New.
*/
package pixel

import (
	"fmt"
	"strings"
)

// Kind enumerates the supported pixel data types.  The numeric values are
// part of the binary snapshot format and must not be reordered.
type Kind int

const (
	// Int8 is a signed 8-bit pixel
	Int8 Kind = iota

	// UInt8 is an unsigned 8-bit pixel
	UInt8

	// Int16 is a signed 16-bit pixel
	Int16

	// UInt16 is an unsigned 16-bit pixel
	UInt16

	// Int32 is a signed 32-bit pixel
	Int32

	// UInt32 is an unsigned 32-bit pixel
	UInt32

	// Float32 is a single precision floating point pixel
	Float32

	// Float64 is a double precision floating point pixel
	Float64
)

var kindNames = map[Kind]string{
	Int8:    "int8",
	UInt8:   "uint8",
	Int16:   "int16",
	UInt16:  "uint16",
	Int32:   "int32",
	UInt32:  "uint32",
	Float32: "float32",
	Float64: "float64",
}

// Valid returns true if k is one of the eight supported kinds
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// String returns the lowercase name of the kind, e.g. "uint16"
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Size returns the number of bytes per pixel.  An unrecognized kind is a
// programming error and panics; it can never come from external input once
// a buffer has been allocated.
func (k Kind) Size() int {
	switch k {
	case Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Float64:
		return 8
	}
	panic(fmt.Sprintf("pixel: bytes per pixel of unknown kind %d", int(k)))
}

// ParseKind converts a name such as "uint16" to a Kind.  Matching is
// case-insensitive.
func ParseKind(s string) (Kind, error) {
	ls := strings.ToLower(s)
	for k, name := range kindNames {
		if name == ls {
			return k, nil
		}
	}
	return 0, fmt.Errorf("pixel: unknown kind %q", s)
}
