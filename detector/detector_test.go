package detector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/detlab/simcam/params"
	"github.com/detlab/simcam/pixel"
)

func newCamera(t *testing.T, maxW, maxH int, kind pixel.Kind) *Camera {
	t.Helper()
	if err := Setup(1); err != nil {
		t.Fatal(err)
	}
	c, err := Configure(0, maxW, maxH, kind)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func geti(t *testing.T, c *Camera, key params.Key) int {
	t.Helper()
	v, err := c.GetInt(key)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestConfigureDefaults(t *testing.T) {
	c := newCamera(t, 32, 32, pixel.UInt16)
	if got := geti(t, c, KeySizeX); got != 32 {
		t.Errorf("SizeX got %d expected 32", got)
	}
	if got := geti(t, c, KeyImageSize); got != 32*32*2 {
		t.Errorf("ImageSize got %d expected %d", got, 32*32*2)
	}
	// the first frame is computed at configure time, which consumes the
	// initial reset flag
	if got := geti(t, c, KeyResetImage); got != 0 {
		t.Errorf("ResetImage got %d expected 0", got)
	}
	g, err := c.GetFloat(KeyGain)
	if err != nil {
		t.Fatal(err)
	}
	if g != 1 {
		t.Errorf("Gain got %v expected 1", g)
	}
	m, err := c.GetString(KeyManufacturer)
	if err != nil {
		t.Fatal(err)
	}
	if m != "Simulated detector" {
		t.Errorf("Manufacturer got %q", m)
	}
}

func TestOpen(t *testing.T) {
	if err := Setup(2); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(1); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v expected ErrNotConfigured", err)
	}
	if _, err := Open(5); !errors.Is(err, ErrBadCamera) {
		t.Errorf("got %v expected ErrBadCamera", err)
	}
	if _, err := Configure(0, 16, 16, pixel.UInt8); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(0); err != nil {
		t.Errorf("open of a configured camera failed: %v", err)
	}
}

func TestGeometryCorrections(t *testing.T) {
	c := newCamera(t, 32, 32, pixel.UInt16)
	// zero binning is corrected to 1 on the next computation
	if err := c.SetInt(KeyBinX, 0); err != nil {
		t.Fatal(err)
	}
	if got := geti(t, c, KeyBinX); got != 1 {
		t.Errorf("BinX got %d expected 1", got)
	}
	// an offset past the sensor edge drags the size down with it
	if err := c.SetInt(KeyMinX, 100); err != nil {
		t.Fatal(err)
	}
	if got := geti(t, c, KeyMinX); got != 31 {
		t.Errorf("MinX got %d expected 31", got)
	}
	if got := geti(t, c, KeySizeX); got != 1 {
		t.Errorf("SizeX got %d expected 1", got)
	}
	if got := geti(t, c, KeyImageSizeX); got != 1 {
		t.Errorf("ImageSizeX got %d expected 1", got)
	}
}

func TestBinningShrinksReadbacks(t *testing.T) {
	c := newCamera(t, 32, 32, pixel.UInt16)
	if err := c.SetInt(KeyBinX, 2); err != nil {
		t.Fatal(err)
	}
	if got := geti(t, c, KeyImageSizeX); got != 16 {
		t.Errorf("ImageSizeX got %d expected 16", got)
	}
	if got := geti(t, c, KeyImageSize); got != 16*32*2 {
		t.Errorf("ImageSize got %d expected %d", got, 16*32*2)
	}
}

func TestBufferReuseOnUnchangedGeometry(t *testing.T) {
	c := newCamera(t, 16, 16, pixel.UInt16)
	c.mu.Lock()
	rawBefore := &c.raw.Bytes()[0]
	imgBefore := &c.img.Bytes()[0]
	c.mu.Unlock()
	// gain changes recompute but leave the implied buffer size alone;
	// both buffers must be reused, not reallocated
	if err := c.SetFloat(KeyGain, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFloat(KeyGain, 3); err != nil {
		t.Fatal(err)
	}
	c.mu.Lock()
	rawAfter := &c.raw.Bytes()[0]
	imgAfter := &c.img.Bytes()[0]
	c.mu.Unlock()
	if rawBefore != rawAfter {
		t.Error("raw buffer was reallocated with unchanged geometry")
	}
	if imgBefore != imgAfter {
		t.Error("processed buffer was reallocated with unchanged geometry")
	}
	// a kind change implies new typed storage
	if err := c.SetInt(KeyDataType, int(pixel.UInt8)); err != nil {
		t.Fatal(err)
	}
	c.mu.Lock()
	kind := c.img.Kind()
	c.mu.Unlock()
	if kind != pixel.UInt8 {
		t.Errorf("got kind %v expected uint8 after data type change", kind)
	}
}

func TestDataTypeChange(t *testing.T) {
	c := newCamera(t, 16, 16, pixel.UInt8)
	if err := c.SetInt(KeyDataType, int(pixel.Float32)); err != nil {
		t.Fatal(err)
	}
	if got := geti(t, c, KeyImageSize); got != 16*16*4 {
		t.Errorf("ImageSize got %d expected %d", got, 16*16*4)
	}
	img, _, _, err := c.FrameCopy()
	if err != nil {
		t.Fatal(err)
	}
	if img.Kind() != pixel.Float32 {
		t.Errorf("frame kind got %v expected float32", img.Kind())
	}
	// an out-of-range type reports an error and the readback snaps back
	if err := c.SetInt(KeyDataType, 99); err == nil {
		t.Error("expected an error for an invalid data type")
	}
	if got := geti(t, c, KeyDataType); got != int(pixel.Float32) {
		t.Errorf("DataType got %d expected %d", got, int(pixel.Float32))
	}
}

func TestSynthesizedFrameContents(t *testing.T) {
	c := newCamera(t, 16, 16, pixel.UInt16)
	// pixel (i,j) = j*gainX + i*gainY + gain*texp*1000 with the defaults
	// gainX=gainY=gain=1, texp=1ms
	img, w, h, err := c.FrameCopy()
	if err != nil {
		t.Fatal(err)
	}
	if w != 16 || h != 16 {
		t.Fatalf("got %dx%d expected 16x16", w, h)
	}
	if got := img.Float64(0); got != 1 {
		t.Errorf("pixel (0,0) got %v expected 1", got)
	}
	if got := img.Float64(2*16 + 3); got != 6 {
		t.Errorf("pixel (2,3) got %v expected 6", got)
	}
}

func TestSingleFrameAcquisition(t *testing.T) {
	c := newCamera(t, 16, 16, pixel.UInt16)
	frames := make(chan int, 16)
	c.OnFrame(func(kind pixel.Kind, width, height int, frame pixel.Buffer) {
		frames <- width
	})
	if err := c.SetInt(KeyFrameMode, FrameSingle); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInt(KeyAcquire, 1); err != nil {
		t.Fatal(err)
	}
	select {
	case w := <-frames:
		if w != 16 {
			t.Errorf("delivered width %d expected 16", w)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame delivered")
	}
	// single mode self-stops after the one frame
	deadline := time.Now().Add(5 * time.Second)
	for geti(t, c, KeyAcquire) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("acquisition did not stop after a single frame")
		}
		time.Sleep(time.Millisecond)
	}
	if got := geti(t, c, KeyStatus); got != StatusIdle {
		t.Errorf("Status got %d expected idle", got)
	}
	select {
	case <-frames:
		t.Error("a second frame was delivered in single mode")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRepeatedSingleFrames(t *testing.T) {
	// each start command leaves a token in the wake channel that can
	// outlive the acquisition it started; none of them may produce a
	// frame the acquire flag did not authorize
	c := newCamera(t, 16, 16, pixel.UInt16)
	frames := make(chan struct{}, 16)
	c.OnFrame(func(pixel.Kind, int, int, pixel.Buffer) {
		frames <- struct{}{}
	})
	if err := c.SetInt(KeyFrameMode, FrameSingle); err != nil {
		t.Fatal(err)
	}
	for cycle := 0; cycle < 5; cycle++ {
		if err := c.SetInt(KeyAcquire, 1); err != nil {
			t.Fatal(err)
		}
		select {
		case <-frames:
		case <-time.After(5 * time.Second):
			t.Fatalf("cycle %d: no frame delivered", cycle)
		}
		deadline := time.Now().Add(5 * time.Second)
		for geti(t, c, KeyAcquire) != 0 {
			if time.Now().After(deadline) {
				t.Fatalf("cycle %d: acquisition did not stop", cycle)
			}
			time.Sleep(time.Millisecond)
		}
		select {
		case <-frames:
			t.Fatalf("cycle %d: an unauthorized extra frame was delivered", cycle)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestWriteImageNotSupported(t *testing.T) {
	c := newCamera(t, 8, 8, pixel.UInt8)
	if err := c.WriteImage(make([]byte, 64)); !errors.Is(err, ErrWriteNotSupported) {
		t.Errorf("got %v expected ErrWriteNotSupported", err)
	}
}

func TestReadImageTruncates(t *testing.T) {
	c := newCamera(t, 8, 8, pixel.UInt8)
	dst := make([]byte, 10)
	n, err := c.ReadImage(dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("got %d bytes expected 10", n)
	}
	full := make([]byte, 64)
	n, err = c.ReadImage(full)
	if err != nil {
		t.Fatal(err)
	}
	if n != 64 {
		t.Errorf("got %d bytes expected 64", n)
	}
}

func TestSnapshotWriteReadCycle(t *testing.T) {
	c := newCamera(t, 8, 8, pixel.UInt16)
	dir := t.TempDir()
	if err := c.SetString(KeyFilePath, dir+string(os.PathSeparator)); err != nil {
		t.Fatal(err)
	}
	if err := c.SetString(KeyFileName, "img"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInt(KeyFileNumber, 7); err != nil {
		t.Fatal(err)
	}

	before, _, _, err := c.FrameCopy()
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetInt(KeyWriteFile, 1); err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(dir, "img_007")
	if _, err := os.Stat(fn); err != nil {
		t.Fatalf("expected %s on disk: %v", fn, err)
	}
	full, err := c.GetString(KeyFullFileName)
	if err != nil {
		t.Fatal(err)
	}
	if full != dir+string(os.PathSeparator)+"img_007" {
		t.Errorf("FullFileName got %q", full)
	}
	// auto increment advanced the number on success
	if got := geti(t, c, KeyFileNumber); got != 8 {
		t.Errorf("FileNumber got %d expected 8", got)
	}

	frames := make(chan pixel.Kind, 1)
	c.OnFrame(func(kind pixel.Kind, width, height int, frame pixel.Buffer) {
		frames <- kind
	})
	if err := c.SetInt(KeyFileNumber, 7); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInt(KeyReadFile, 1); err != nil {
		t.Fatal(err)
	}
	select {
	case kind := <-frames:
		if kind != pixel.UInt16 {
			t.Errorf("loaded kind %v expected uint16", kind)
		}
	default:
		t.Fatal("loading a snapshot did not deliver a frame")
	}
	after, _, _, err := c.FrameCopy()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 64; i++ {
		if before.Float64(i) != after.Float64(i) {
			t.Fatalf("pixel %d: got %v expected %v", i, after.Float64(i), before.Float64(i))
		}
	}
}

func TestWriteFileFailureLeavesNumberAlone(t *testing.T) {
	c := newCamera(t, 8, 8, pixel.UInt8)
	if err := c.SetString(KeyFilePath, "/nonexistent-folder/"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInt(KeyFileNumber, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInt(KeyWriteFile, 1); err == nil {
		t.Error("expected an error writing to a nonexistent folder")
	}
	if got := geti(t, c, KeyFileNumber); got != 3 {
		t.Errorf("FileNumber got %d expected 3, failure must not advance it", got)
	}
	if full, _ := c.GetString(KeyFullFileName); full != "" {
		t.Errorf("FullFileName got %q expected empty, failure must not update it", full)
	}
}
