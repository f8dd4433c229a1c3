package detector

import (
	"errors"
	"fmt"
	"time"

	"github.com/detlab/simcam/params"
	"github.com/detlab/simcam/pixel"
)

// allocBuffers makes sure both frame buffers fit width x height pixels of
// the given kind.  Raw is the full sensor, img the processed subregion;
// both are allocated the same size for simplicity.  The call is idempotent:
// an unchanged byte size and kind leaves the buffers alone.
func (c *Camera) allocBuffers(width, height int, kind pixel.Kind) error {
	nbytes := width * height * kind.Size()
	if c.raw != nil && nbytes == c.bufBytes && kind == c.bufKind {
		return nil
	}
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: %dx%d %v", ErrAllocation, width, height, kind)
	}
	c.raw = pixel.New(kind, width*height)
	c.img = pixel.New(kind, width*height)
	c.bufBytes = nbytes
	c.bufKind = kind
	return nil
}

// compute synthesizes the raw frame and extracts the processed image.
// The caller must hold c.mu.
//
// Before any pixel work, geometry parameters are forced mutually
// consistent: bad values are corrected in place and the corrections written
// back so readbacks reflect what will actually be used.
func (c *Camera) compute() error {
	var status error
	geti := func(k params.Key) int {
		v, err := c.params.GetInt(k)
		accum(&status, err)
		return v
	}
	getf := func(k params.Key) float64 {
		v, err := c.params.GetFloat(k)
		accum(&status, err)
		return v
	}
	seti := func(k params.Key, v int) { accum(&status, c.params.SetInt(k, v)) }

	binX := geti(KeyBinX)
	binY := geti(KeyBinY)
	minX := geti(KeyMinX)
	minY := geti(KeyMinY)
	sizeX := geti(KeySizeX)
	sizeY := geti(KeySizeY)
	maxW := geti(KeyMaxSizeX)
	maxH := geti(KeyMaxSizeY)
	reset := geti(KeyResetImage) != 0
	texp := getf(KeyAcquireTime)
	gain := getf(KeyGain)
	gainX := getf(KeyGainX)
	gainY := getf(KeyGainY)

	if binX < 1 {
		binX = 1
		seti(KeyBinX, binX)
	}
	if binY < 1 {
		binY = 1
		seti(KeyBinY, binY)
	}
	if minX < 0 {
		minX = 0
		seti(KeyMinX, minX)
	}
	if minY < 0 {
		minY = 0
		seti(KeyMinY, minY)
	}
	if minX > maxW-1 {
		minX = maxW - 1
		seti(KeyMinX, minX)
	}
	if minY > maxH-1 {
		minY = maxH - 1
		seti(KeyMinY, minY)
	}
	if sizeX < 0 {
		sizeX = 0
		seti(KeySizeX, sizeX)
	}
	if sizeY < 0 {
		sizeY = 0
		seti(KeySizeY, sizeY)
	}
	if minX+sizeX > maxW {
		sizeX = maxW - minX
		seti(KeySizeX, sizeX)
	}
	if minY+sizeY > maxH {
		sizeY = maxH - minY
		seti(KeySizeY, sizeY)
	}

	kind := pixel.Kind(geti(KeyDataType))
	if !kind.Valid() {
		// no safe way to synthesize an unknown type; fall back to the
		// current buffers' kind and correct the readback
		accum(&status, fmt.Errorf("detector: data type %d invalid, keeping %v", int(kind), c.bufKind))
		kind = c.bufKind
		seti(KeyDataType, int(kind))
	}

	if err := c.allocBuffers(maxW, maxH, kind); err != nil {
		accum(&status, err)
		return status
	}

	// synthesis always covers the full sensor; the intensity ramp is
	// gain * exposure * 1000 per frame
	increment := gain * texp * 1000.
	c.raw.Synthesize(maxW, maxH, gainX, gainY, increment, reset)

	outW, outH, err := c.raw.ExtractTo(c.img, maxW, maxH, binX, binY, minX, minY, sizeX, sizeY)
	accum(&status, err)

	seti(KeyImageSizeX, outW)
	seti(KeyImageSizeY, outH)
	seti(KeyImageSize, outW*outH*kind.Size())
	seti(KeyResetImage, 0)
	return status
}

// run is the acquisition task.  One runs per camera for the life of the
// process; there is no shutdown.
//
// Each iteration holds the lock from the top of the frame through delivery
// and the parameter flush, then releases it for the paced wait, so external
// parameter changes land strictly between frames and callers never block on
// the pacing sleep.
func (c *Camera) run() {
	for {
		c.mu.Lock()

		acquire, _ := c.params.GetInt(KeyAcquire)
		for acquire == 0 {
			c.params.SetInt(KeyStatus, StatusIdle)
			c.params.Flush()
			c.mu.Unlock()
			// idle until a start command signals; the lock is not
			// held while we sleep.  The signal channel can hold a
			// token from before acquisition stopped, so the flag is
			// re-read after every wake; only a start command that
			// actually set it may begin a frame.
			<-c.start
			c.mu.Lock()
			acquire, _ = c.params.GetInt(KeyAcquire)
		}

		frameStart := time.Now()
		acquiring := true
		c.params.SetInt(KeyStatus, StatusAcquiring)

		err := c.compute()
		if err != nil {
			c.log.Printf("compute error: %v", err)
		}

		if err == nil || !errors.Is(err, ErrAllocation) {
			if c.frameCb != nil {
				w, _ := c.params.GetInt(KeyImageSizeX)
				h, _ := c.params.GetInt(KeyImageSizeY)
				c.frameCb(c.img.Kind(), w, h, c.img)
			}
		}

		if c.framesRemaining > 0 {
			c.framesRemaining--
		}
		if c.framesRemaining == 0 {
			acquiring = false
			c.params.SetInt(KeyAcquire, 0)
			c.params.SetInt(KeyStatus, StatusIdle)
		}

		if autoSave, _ := c.params.GetInt(KeyAutoSave); autoSave != 0 {
			if err := c.writeFile(); err != nil {
				c.log.Printf("autosave error: %v", err)
			}
		}

		c.params.Flush()

		texp, _ := c.params.GetFloat(KeyAcquireTime)
		period, _ := c.params.GetFloat(KeyAcquirePeriod)

		c.mu.Unlock()

		if acquiring {
			// pace to the larger of exposure and period, minus the
			// time already spent computing; a new start command
			// cuts the wait short but never skips the frame just
			// delivered
			delay := texp
			if period > delay {
				delay = period
			}
			delay -= time.Since(frameStart).Seconds()
			if delay > 0 {
				timer := time.NewTimer(time.Duration(delay * float64(time.Second)))
				select {
				case <-c.start:
					timer.Stop()
				case <-timer.C:
				}
			}
		}
	}
}
