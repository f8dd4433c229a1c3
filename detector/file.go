package detector

import (
	"fmt"
	"os"

	"github.com/detlab/simcam/params"
	"github.com/detlab/simcam/snapshot"
)

// fileName builds the snapshot path from the path/name/number parameters
// through the printf-style template parameter.  Caller must hold c.mu.
func (c *Camera) fileName() (string, error) {
	var status error
	tmpl, err := c.params.GetString(KeyFileTemplate)
	accum(&status, err)
	path, err := c.params.GetString(KeyFilePath)
	accum(&status, err)
	name, err := c.params.GetString(KeyFileName)
	accum(&status, err)
	num, err := c.params.GetInt(KeyFileNumber)
	accum(&status, err)
	if status != nil {
		return "", status
	}
	return fmt.Sprintf(tmpl, path, name, num), nil
}

// writeFile stores the current processed frame to disk in the configured
// format.  On success the full file name readback is updated and, if auto
// increment is on, the file number advances by one.  Failures leave both
// alone.  Caller must hold c.mu.
func (c *Camera) writeFile() error {
	var status error
	geti := func(k params.Key) int {
		v, err := c.params.GetInt(k)
		accum(&status, err)
		return v
	}
	width := geti(KeyImageSizeX)
	height := geti(KeyImageSizeY)
	format := snapshot.Format(geti(KeyFileFormat))
	autoInc := geti(KeyAutoIncrement)
	num := geti(KeyFileNumber)

	fn, err := c.fileName()
	if err != nil {
		accum(&status, err)
		c.log.Printf("writeFile: building file name: %v", err)
		return status
	}
	f, err := os.Create(fn)
	if err != nil {
		c.log.Printf("writeFile: creating %s: %v", fn, err)
		accum(&status, err)
		return status
	}
	werr := snapshot.Write(f, format, c.img, width, height)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		accum(&status, werr)
		accum(&status, cerr)
		c.log.Printf("writeFile: writing %s: %v", fn, status)
		return status
	}

	accum(&status, c.params.SetString(KeyFullFileName, fn))
	if autoInc != 0 {
		accum(&status, c.params.SetInt(KeyFileNumber, num+1))
	}
	return status
}

// readFile loads a snapshot written by writeFile.  The frame buffers are
// reallocated to the header's geometry and type, the geometry/type
// readbacks updated, and the loaded frame delivered through the same
// callback live acquisition uses.  Caller must hold c.mu.
func (c *Camera) readFile() error {
	var status error
	format := snapshot.Format(0)
	if v, err := c.params.GetInt(KeyFileFormat); err != nil {
		accum(&status, err)
	} else {
		format = snapshot.Format(v)
	}
	autoInc, err := c.params.GetInt(KeyAutoIncrement)
	accum(&status, err)
	num, err := c.params.GetInt(KeyFileNumber)
	accum(&status, err)

	fn, err := c.fileName()
	if err != nil {
		accum(&status, err)
		c.log.Printf("readFile: building file name: %v", err)
		return status
	}
	f, err := os.Open(fn)
	if err != nil {
		c.log.Printf("readFile: opening %s: %v", fn, err)
		accum(&status, err)
		return status
	}
	defer f.Close()

	hdr, err := snapshot.ReadHeader(f, format)
	if err != nil {
		c.log.Printf("readFile: header of %s: %v", fn, err)
		accum(&status, err)
		return status
	}
	if err := c.allocBuffers(hdr.Width, hdr.Height, hdr.Kind); err != nil {
		accum(&status, err)
		return status
	}
	if err := snapshot.ReadPayload(f, format, hdr, c.img); err != nil {
		c.log.Printf("readFile: payload of %s: %v", fn, err)
		accum(&status, err)
		return status
	}

	accum(&status, c.params.SetString(KeyFullFileName, fn))
	if autoInc != 0 {
		accum(&status, c.params.SetInt(KeyFileNumber, num+1))
	}

	// the loaded frame becomes the current image
	accum(&status, c.params.SetInt(KeyImageSizeX, hdr.Width))
	accum(&status, c.params.SetInt(KeyImageSizeY, hdr.Height))
	accum(&status, c.params.SetInt(KeyImageSize, hdr.Width*hdr.Height*hdr.Kind.Size()))
	accum(&status, c.params.SetInt(KeyDataType, int(hdr.Kind)))
	if c.frameCb != nil {
		c.frameCb(hdr.Kind, hdr.Width, hdr.Height, c.img)
	}
	return status
}
