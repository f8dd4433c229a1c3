package snapshot

import (
	"io"

	"github.com/astrogo/fitsio"

	"github.com/detlab/simcam/pixel"
)

// WriteFITS streams the first width*height pixels of img to w as a single
// FITS HDU.  All pixel kinds are widened to float64 (BITPIX -64); FITS has
// no unsigned integer types, so this sidesteps offset conventions at the
// cost of file size.  Export only; snapshots round-trip through the Binary
// and Text formats.
func WriteFITS(w io.Writer, cards []fitsio.Card, img pixel.Buffer, width, height int) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(-64, []int{width, height})
	defer im.Close()
	if err := im.Header().Append(cards...); err != nil {
		return err
	}
	n := width * height
	buf := make([]float64, n)
	for i := 0; i < n; i++ {
		buf[i] = img.Float64(i)
	}
	if err := im.Write(buf); err != nil {
		return err
	}
	return fits.Write(im)
}
