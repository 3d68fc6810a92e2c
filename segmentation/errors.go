package segmentation

import "github.com/pkg/errors"

// Sentinel errors for caller misuse. Recoverable data problems (a single
// malformed batch) are not represented here: those are logged and skipped so
// that one bad batch cannot abort an evaluation run spanning many batches.
var (
	// ErrInvalidClassCount is returned when a metric or confusion matrix is
	// constructed with a non-positive number of classes.
	ErrInvalidClassCount = errors.New("segmentation: number of classes must be positive")

	// ErrInvalidIgnoreIndex is returned when an ignore index lies outside
	// [0, numClasses).
	ErrInvalidIgnoreIndex = errors.New("segmentation: ignore index out of range")

	// ErrShape is returned by Add when the predicted and target tensors have
	// mismatched batch counts or a rank outside {3, 4}.
	ErrShape = errors.New("segmentation: predicted and target shapes are incompatible")

	// ErrUnsupportedDtype is returned when a label tensor is backed by an
	// element type that cannot be interpreted as class indices.
	ErrUnsupportedDtype = errors.New("segmentation: unsupported tensor element type")
)
