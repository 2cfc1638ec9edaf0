package runner

import "errors"

// ErrRunAborted is returned by RunMatrix when the run produced no results:
// nothing to evaluate (no targets, no variants, no resolved probes) or
// cancellation before the first cell completed. It is the only error
// RunMatrix returns; individual cell failures travel inside the MatrixResult.
var ErrRunAborted = errors.New("run aborted before any cell completed")
