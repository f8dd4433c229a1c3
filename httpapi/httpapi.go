/*Package httpapi wraps a simulated camera in an HTTP interface.

The routes expose the parameter table by command string, acquisition
start/stop, the current frame as png/jpg/fits, and snapshot write/read
triggers.  This is an operator-console surface; the engine itself knows
nothing about HTTP.
*/
package httpapi

import (
	"encoding/json"
	"fmt"
	"go/types"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/astrogo/fitsio"
	"goji.io/pat"

	"github.com/detlab/simcam/detector"
	"github.com/detlab/simcam/params"
	"github.com/detlab/simcam/pixel"
	"github.com/detlab/simcam/server"
	"github.com/detlab/simcam/snapshot"
)

// HTTPCamera wraps a camera and a frame recorder in a route table
type HTTPCamera struct {
	cam *detector.Camera

	// rec, when enabled, tees fits downloads to disk with incrementing
	// file numbers
	rec *snapshot.Recorder

	rt server.RouteTable
}

// New returns an HTTP wrapper around cam.  rec may be nil to disable
// recording.  The wrapper installs the camera's delivery callback for
// instrumentation; hosts embedding the engine directly should register
// their own callback instead of using this wrapper.
func New(cam *detector.Camera, rec *snapshot.Recorder) *HTTPCamera {
	h := &HTTPCamera{cam: cam, rec: rec}
	label := strconv.Itoa(cam.Index())
	cam.OnFrame(func(kind pixel.Kind, width, height int, frame pixel.Buffer) {
		framesDelivered.WithLabelValues(label).Inc()
	})
	h.rt = server.RouteTable{
		pat.Get("/param/:name"):    h.GetParam,
		pat.Post("/param/:name"):   h.SetParam,
		pat.Get("/exposure-time"):  h.GetExposureTime,
		pat.Post("/exposure-time"): h.SetExposureTime,
		pat.Get("/acquire"):        h.GetAcquire,
		pat.Post("/acquire"):       h.SetAcquire,
		pat.Get("/frame"):          h.GetFrame,
		pat.Post("/snapshot/write"): h.WriteSnapshot,
		pat.Post("/snapshot/read"):  h.ReadSnapshot,
	}
	return h
}

// RT returns the route table for binding
func (h *HTTPCamera) RT() server.RouteTable { return h.rt }

// GetParam reads a parameter by command string, e.g. GET /param/sim_gainx,
// responding with the JSON shape for the parameter's kind
func (h *HTTPCamera) GetParam(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	key, err := h.cam.FindParam(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	kind, err := h.cam.KindOf(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	switch kind {
	case params.Integer:
		v, err := h.cam.GetInt(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		server.HumanPayload{T: types.Int, Int: v}.EncodeAndRespond(w, r)
	case params.Float:
		v, err := h.cam.GetFloat(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		server.HumanPayload{T: types.Float64, Float: v}.EncodeAndRespond(w, r)
	case params.String:
		v, err := h.cam.GetString(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		server.HumanPayload{T: types.String, String: v}.EncodeAndRespond(w, r)
	}
}

// SetParam writes a parameter by command string.  The body is the JSON
// shape for the parameter's kind ({"int": ...}, {"f64": ...} or
// {"str": ...}).  A failed write still responds with the aggregate error
// so consoles see partial-update outcomes.
func (h *HTTPCamera) SetParam(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	key, err := h.cam.FindParam(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	kind, err := h.cam.KindOf(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()
	switch kind {
	case params.Integer:
		v := server.IntT{}
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.cam.SetInt(key, v.Int)
	case params.Float:
		v := server.FloatT{}
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.cam.SetFloat(key, v.F64)
	case params.String:
		v := server.StrT{}
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.cam.SetString(key, v.Str)
	}
	paramWrites.WithLabelValues(strconv.Itoa(h.cam.Index())).Inc()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetExposureTime gets the exposure time in seconds on a GET request
func (h *HTTPCamera) GetExposureTime(w http.ResponseWriter, r *http.Request) {
	f, err := h.cam.GetFloat(detector.KeyAcquireTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.HumanPayload{T: types.Float64, Float: f}.EncodeAndRespond(w, r)
}

// SetExposureTime sets the exposure time on a POST request.  It can be
// provided either as a query parameter exposureTime, parseable by
// time.ParseDuration, or a JSON payload with key f64 holding seconds.
func (h *HTTPCamera) SetExposureTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	var secs float64
	if texp == "" {
		f := server.FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		secs = f.F64
	} else {
		d, err := time.ParseDuration(texp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		secs = d.Seconds()
	}
	if err := h.cam.SetFloat(detector.KeyAcquireTime, secs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetAcquire reports whether acquisition is running
func (h *HTTPCamera) GetAcquire(w http.ResponseWriter, r *http.Request) {
	v, err := h.cam.GetInt(detector.KeyAcquire)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.HumanPayload{T: types.Bool, Bool: v != 0}.EncodeAndRespond(w, r)
}

// SetAcquire starts or stops acquisition from a JSON body {"bool": ...}
func (h *HTTPCamera) SetAcquire(w http.ResponseWriter, r *http.Request) {
	b := server.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&b)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v := 0
	if b.Bool {
		v = 1
	}
	if err := h.cam.SetInt(detector.KeyAcquire, v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetFrame returns the current processed frame on a GET request.  The
// format may be given in the fmt query parameter: png, jpg (default), or
// fits.  png and jpg are linearly scaled to 8 bits; fits carries the data
// widened to float64 and is teed to the recorder when enabled.
func (h *HTTPCamera) GetFrame(w http.ResponseWriter, r *http.Request) {
	img, width, height, err := h.cam.FrameCopy()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	format := r.URL.Query().Get("fmt")
	if format == "" {
		format = "jpg"
	}
	switch format {
	case "jpg":
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		jpeg.Encode(w, grayScaled(img, width, height), nil)
	case "png":
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		png.Encode(w, grayScaled(img, width, height))
	case "fits":
		var w2 io.Writer = w
		if h.rec != nil && h.rec.Enabled && h.rec.Root != "" {
			w2 = io.MultiWriter(w, h.rec)
			defer h.rec.Incr()
		}
		cards := h.headerCards(img.Kind(), width, height)
		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		if err := snapshot.WriteFITS(w2, cards, img, width, height); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown image format %q", format), http.StatusBadRequest)
	}
}

// headerCards collects the camera identity and timing metadata for fits
// downloads
func (h *HTTPCamera) headerCards(kind pixel.Kind, width, height int) []fitsio.Card {
	manufacturer, _ := h.cam.GetString(detector.KeyManufacturer)
	model, _ := h.cam.GetString(detector.KeyModel)
	texp, _ := h.cam.GetFloat(detector.KeyAcquireTime)
	gain, _ := h.cam.GetFloat(detector.KeyGain)
	return []fitsio.Card{
		{Name: "INSTRUME", Value: manufacturer + " " + model},
		{Name: "EXPTIME", Value: texp, Comment: "exposure time, seconds"},
		{Name: "GAIN", Value: gain, Comment: "overall gain"},
		{Name: "PIXKIND", Value: kind.String(), Comment: "native pixel type"},
		{Name: "NAXIS1V", Value: width},
		{Name: "NAXIS2V", Value: height},
	}
}

// WriteSnapshot triggers a snapshot write through the same parameter the
// console path uses
func (h *HTTPCamera) WriteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.cam.SetInt(detector.KeyWriteFile, 1); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ReadSnapshot triggers a snapshot load; the loaded frame becomes current
// and is delivered through the frame callback
func (h *HTTPCamera) ReadSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.cam.SetInt(detector.KeyReadFile, 1); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// grayScaled maps the frame onto an 8-bit grayscale image, scaling
// min..max to 0..255 so every pixel kind displays sensibly
func grayScaled(img pixel.Buffer, width, height int) *image.Gray {
	n := width * height
	lo, hi := 0., 0.
	if n > 0 {
		lo, hi = img.Float64(0), img.Float64(0)
	}
	for i := 1; i < n; i++ {
		v := img.Float64(i)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := 0.
	if hi > lo {
		scale = 255. / (hi - lo)
	}
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = byte((img.Float64(i) - lo) * scale)
	}
	return &image.Gray{Pix: buf, Stride: width, Rect: image.Rect(0, 0, width, height)}
}
