package detector

import "errors"

var (
	// ErrWriteNotSupported is generated by WriteImage; the simulated
	// detector does not accept downloaded image data
	ErrWriteNotSupported = errors.New("detector: image write is not supported")

	// ErrAllocation is generated when the frame buffers cannot be sized
	// for the requested geometry.  The affected frame is skipped; the
	// task retries on the next iteration.
	ErrAllocation = errors.New("detector: frame buffer allocation failed")

	// ErrBadCamera is generated for a camera index outside the range
	// created by Setup
	ErrBadCamera = errors.New("detector: camera index out of range")

	// ErrNotSetUp is generated when Configure or Open is called before
	// Setup
	ErrNotSetUp = errors.New("detector: no cameras allocated, call Setup first")

	// ErrNotConfigured is generated when a camera slot exists but
	// Configure has not been called on it
	ErrNotConfigured = errors.New("detector: camera not configured")
)

// accum folds err into *status, preserving any earlier failures.  Compound
// operations aggregate every sub-step's status this way so the caller
// learns whether anything failed; partially applied updates are not rolled
// back.
func accum(status *error, err error) {
	if err != nil {
		*status = errors.Join(*status, err)
	}
}
