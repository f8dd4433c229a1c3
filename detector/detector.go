/*Package detector implements a simulated area detector.

Each camera instance owns a parameter table, a pair of frame buffers (raw
full-sensor and processed output), and a background acquisition task that
synthesizes frames on a timed cadence.  Exposure, gains, region of interest,
binning and pixel type can all be reconfigured while acquisition runs;
every boundary operation and the task itself serialize on the per-camera
lock, so parameter changes land strictly between frame computations.

Cameras are created once by Setup/Configure and live for the process
lifetime; there is deliberately no teardown path.
*/
package detector

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/detlab/simcam/params"
	"github.com/detlab/simcam/pixel"
)

// FrameCallback receives each completed frame, live or loaded from a
// snapshot.  The buffer reference is only valid for the duration of the
// call; it is reused for the next frame.
type FrameCallback func(kind pixel.Kind, width, height int, frame pixel.Buffer)

// Camera is one simulated detector instance
type Camera struct {
	index int

	// mu guards the parameter table, both frame buffers, and
	// framesRemaining.  The acquisition task releases it across its
	// idle and pacing waits so callers are never blocked for the sleep
	// duration.
	mu sync.Mutex

	// start wakes the task from both the idle wait and the pacing wait
	start chan struct{}

	params *params.Store

	// raw holds the full-sensor synthesis, img the processed output.
	// Both are allocated at max geometry for simplicity; the processed
	// image after binning is never larger.
	raw      pixel.Buffer
	img      pixel.Buffer
	bufKind  pixel.Kind
	bufBytes int

	// framesRemaining: -1 unbounded, 0 none left, N>0 more to go
	framesRemaining int

	frameCb FrameCallback

	log *log.Logger
}

// process-wide camera registry; sized once by Setup, slots filled by
// Configure, never torn down
var cameras []*Camera

// Setup allocates the registry for n cameras.  Call once at startup,
// before Configure.
func Setup(n int) error {
	if n < 1 {
		return fmt.Errorf("detector: Setup requires at least one camera, got %d", n)
	}
	cameras = make([]*Camera, n)
	return nil
}

// Configure initializes camera index with the given maximum sensor geometry
// and initial pixel kind, applies the parameter defaults, starts the
// acquisition task, and computes the first (undelivered) frame so readbacks
// are immediately consistent.
func Configure(index, maxWidth, maxHeight int, kind pixel.Kind) (*Camera, error) {
	if len(cameras) == 0 {
		return nil, ErrNotSetUp
	}
	if index < 0 || index >= len(cameras) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrBadCamera, index, len(cameras)-1)
	}
	if maxWidth < 1 || maxHeight < 1 {
		return nil, fmt.Errorf("detector: max geometry %dx%d invalid", maxWidth, maxHeight)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("detector: pixel kind %d invalid", int(kind))
	}
	c := &Camera{
		index:  index,
		start:  make(chan struct{}, 1),
		params: params.New(paramDefs),
		log:    log.New(os.Stderr, fmt.Sprintf("simcam%d ", index), log.LstdFlags),
	}

	var status error
	sets := func(k params.Key, v string) { accum(&status, c.params.SetString(k, v)) }
	seti := func(k params.Key, v int) { accum(&status, c.params.SetInt(k, v)) }
	setf := func(k params.Key, v float64) { accum(&status, c.params.SetFloat(k, v)) }
	sets(KeyManufacturer, "Simulated detector")
	sets(KeyModel, "Basic simulator")
	sets(KeyFileTemplate, "%s%s_%3.3d")
	seti(KeyMaxSizeX, maxWidth)
	seti(KeyMaxSizeY, maxHeight)
	seti(KeySizeX, maxWidth)
	seti(KeySizeY, maxHeight)
	seti(KeyImageSizeX, maxWidth)
	seti(KeyImageSizeY, maxHeight)
	seti(KeyBinX, 1)
	seti(KeyBinY, 1)
	seti(KeyDataType, int(kind))
	seti(KeyFrameMode, FrameContinuous)
	seti(KeyNumFrames, 100)
	seti(KeyAutoIncrement, 1)
	setf(KeyAcquireTime, .001)
	setf(KeyAcquirePeriod, .005)
	setf(KeyGain, 1)
	setf(KeyGainX, 1)
	setf(KeyGainY, 1)
	seti(KeyResetImage, 1)
	if status != nil {
		return nil, fmt.Errorf("detector: setting camera defaults: %w", status)
	}
	c.bufKind = kind

	cameras[index] = c
	go c.run()

	// compute the first frame so geometry readbacks are populated; it is
	// not delivered
	c.mu.Lock()
	err := c.compute()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Open returns the configured camera at index
func Open(index int) (*Camera, error) {
	if len(cameras) == 0 {
		return nil, ErrNotSetUp
	}
	if index < 0 || index >= len(cameras) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrBadCamera, index, len(cameras)-1)
	}
	if cameras[index] == nil {
		return nil, ErrNotConfigured
	}
	return cameras[index], nil
}

// signalStart wakes the acquisition task without blocking; the event is
// level-like, a second signal before the task wakes is a no-op
func (c *Camera) signalStart() {
	select {
	case c.start <- struct{}{}:
	default:
	}
}

// OnFrame registers the delivery callback invoked once per completed frame.
// There is a single slot; registering replaces any previous callback.
func (c *Camera) OnFrame(cb FrameCallback) {
	c.mu.Lock()
	c.frameCb = cb
	c.mu.Unlock()
}

// OnInt registers the change callback for integer parameters, delivered
// during flushes
func (c *Camera) OnInt(fn func(params.Key, int)) {
	c.mu.Lock()
	c.params.OnInt(fn)
	c.mu.Unlock()
}

// OnFloat registers the change callback for float parameters
func (c *Camera) OnFloat(fn func(params.Key, float64)) {
	c.mu.Lock()
	c.params.OnFloat(fn)
	c.mu.Unlock()
}

// OnString registers the change callback for string parameters
func (c *Camera) OnString(fn func(params.Key, string)) {
	c.mu.Lock()
	c.params.OnString(fn)
	c.mu.Unlock()
}

// FindParam resolves an operator-console command string to a key
func (c *Camera) FindParam(name string) (params.Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Find(name)
}

// KindOf returns the value kind of a key
func (c *Camera) KindOf(key params.Key) (params.Kind, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.KindOf(key)
}

// GetInt reads an integer parameter.  Readbacks are updated whenever
// anything could change them, so this is a plain table read.
func (c *Camera) GetInt(key params.Key) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.params.GetInt(key)
	if err != nil {
		c.log.Printf("GetInt key=%d error: %v", int(key), err)
	}
	return v, err
}

// GetFloat reads a float parameter
func (c *Camera) GetFloat(key params.Key) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.params.GetFloat(key)
	if err != nil {
		c.log.Printf("GetFloat key=%d error: %v", int(key), err)
	}
	return v, err
}

// GetString reads a string parameter
func (c *Camera) GetString(key params.Key) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.params.GetString(key)
	if err != nil {
		c.log.Printf("GetString key=%d error: %v", int(key), err)
	}
	return v, err
}

// SetInt writes an integer parameter and performs the side effects a real
// detector would push to hardware: start/stop, frame accounting, geometry
// staleness, and snapshot triggers.  The returned status aggregates every
// sub-step; a failed sub-step does not roll back the others.
func (c *Camera) SetInt(key params.Key, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var status error
	// the table write may be corrected by the consistency pass below;
	// readbacks win
	accum(&status, c.params.SetInt(key, value))

	reset := false
	switch key {
	case KeyAcquire:
		if value != 0 {
			// latch how many frames this start command owes before
			// the task wakes; it cannot begin until we release the
			// lock
			mode, err := c.params.GetInt(KeyFrameMode)
			accum(&status, err)
			n, err := c.params.GetInt(KeyNumFrames)
			accum(&status, err)
			c.framesRemaining = framesFor(mode, n)
			reset = true
			c.signalStart()
		}
	case KeyBinX, KeyBinY, KeyMinX, KeyMinY, KeySizeX, KeySizeY, KeyDataType:
		reset = true
	case KeyResetImage:
		if value != 0 {
			reset = true
		}
	case KeyFrameMode:
		// the mode may change mid-acquisition; re-derive the debt
		n, err := c.params.GetInt(KeyNumFrames)
		accum(&status, err)
		c.framesRemaining = framesFor(value, n)
	case KeyWriteFile:
		accum(&status, c.writeFile())
	case KeyReadFile:
		accum(&status, c.readFile())
	}

	if reset {
		accum(&status, c.params.SetInt(KeyResetImage, 1))
		// recompute now so readbacks stay consistent; nothing is
		// delivered.  A start command skips this, the task computes
		// next.
		if key != KeyAcquire {
			accum(&status, c.compute())
		}
	}

	accum(&status, c.params.Flush())
	if status != nil {
		c.log.Printf("SetInt key=%d value=%d error: %v", int(key), value, status)
	}
	return status
}

// SetFloat writes a float parameter.  Exposure and gain changes mark the
// frame stale and recompute immediately, without delivery.
func (c *Camera) SetFloat(key params.Key, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var status error
	accum(&status, c.params.SetFloat(key, value))
	switch key {
	case KeyAcquireTime, KeyGain, KeyGainX, KeyGainY:
		accum(&status, c.params.SetInt(KeyResetImage, 1))
		accum(&status, c.compute())
	}
	accum(&status, c.params.Flush())
	if status != nil {
		c.log.Printf("SetFloat key=%d value=%f error: %v", int(key), value, status)
	}
	return status
}

// SetString writes a string parameter
func (c *Camera) SetString(key params.Key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var status error
	accum(&status, c.params.SetString(key, value))
	accum(&status, c.params.Flush())
	if status != nil {
		c.log.Printf("SetString key=%d value=%q error: %v", int(key), value, status)
	}
	return status
}

// ReadImage copies the current processed frame into dst, up to len(dst)
// bytes, and returns the count copied.  A frame larger than dst is silently
// truncated.
func (c *Camera) ReadImage(dst []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.params.GetInt(KeyImageSize)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	if b := c.img.Bytes(); n > len(b) {
		n = len(b)
	}
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst, c.img.Bytes()[:n])
	return n, nil
}

// FrameCopy returns a copy of the current processed frame and its
// dimensions.  Unlike the delivery callback's buffer, the copy is the
// caller's to keep; export paths use it so encoding happens outside the
// camera lock.
func (c *Camera) FrameCopy() (pixel.Buffer, int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var status error
	w, err := c.params.GetInt(KeyImageSizeX)
	accum(&status, err)
	h, err := c.params.GetInt(KeyImageSizeY)
	accum(&status, err)
	if status != nil {
		return nil, 0, 0, status
	}
	kind := c.img.Kind()
	out := pixel.New(kind, w*h)
	copy(out.Bytes(), c.img.Bytes()[:w*h*kind.Size()])
	return out, w, h, nil
}

// Index returns the camera's registry index
func (c *Camera) Index() int { return c.index }

// WriteImage is not supported by the simulated detector
func (c *Camera) WriteImage(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Printf("WriteImage not supported")
	return ErrWriteNotSupported
}

// framesFor maps a frame mode to the initial frames-remaining count
func framesFor(mode, numFrames int) int {
	switch mode {
	case FrameSingle:
		return 1
	case FrameMultiple:
		return numFrames
	case FrameContinuous:
		return -1
	}
	return 0
}

// Report prints a human-readable summary of every configured camera to w.
// Higher levels include more detail; level > 5 dumps the parameter tables.
func Report(w io.Writer, level int) {
	for i, c := range cameras {
		if c == nil {
			fmt.Fprintf(w, "camera %d: not configured\n", i)
			continue
		}
		c.mu.Lock()
		fmt.Fprintf(w, "camera %d\n", i)
		if level > 0 {
			nx, _ := c.params.GetInt(KeySizeX)
			ny, _ := c.params.GetInt(KeySizeY)
			dt, _ := c.params.GetInt(KeyDataType)
			fmt.Fprintf(w, "  NX, NY:    %d  %d\n", nx, ny)
			fmt.Fprintf(w, "  data type: %v\n", pixel.Kind(dt))
		}
		if level > 5 {
			fmt.Fprintf(w, "  parameters: %v\n", c.params.Dump())
		}
		c.mu.Unlock()
	}
}
