package snapshot

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

// Recorder writes exported frames to disk with incrementing filenames in
// yyyy-mm-dd subfolders.  It implements io.Writer so it can sit behind an
// io.MultiWriter next to an HTTP response.  It is not thread safe; callers
// serialize access.
type Recorder struct {
	// counter is the internally incrementing file number
	counter int

	// Root is the root folder exports are written under
	Root string

	// Prefix is the filename prefix
	Prefix string

	// Enabled allows consumers to turn the recorder off without
	// unplumbing it
	Enabled bool
}

// dir computes today's subfolder, creates it if needed, and returns it
func (r *Recorder) dir() (string, error) {
	now := time.Now()
	fldr := path.Join(r.Root, fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day()))
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Write appends p to the current numbered file, creating it if needed
func (r *Recorder) Write(p []byte) (int, error) {
	fldr, err := r.dir()
	if err != nil {
		return 0, err
	}
	fn := path.Join(fldr, fmt.Sprintf("%s%06d.fits", r.Prefix, r.counter))
	fid, err := os.OpenFile(fn, os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil && os.IsNotExist(err) {
		fid, err = os.Create(fn)
	}
	if err != nil {
		return 0, err
	}
	defer fid.Close()
	return fid.Write(p)
}

// Incr advances the filename counter past any files already on disk.  If
// the folder cannot be scanned the counter is left alone.
func (r *Recorder) Incr() {
	dn, _ := r.dir()
	entries, err := os.ReadDir(dn)
	if err != nil {
		return
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := entry.Name()
		if !strings.HasSuffix(fn, ".fits") || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ".fits")
		n, err := strconv.Atoi(bit)
		if err != nil {
			return
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}
