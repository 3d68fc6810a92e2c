package segmentation

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// IoUMetric computes per-class intersection-over-union and mean IoU (mIoU)
// for a semantic segmentation problem. Predictions are accumulated in a
// confusion matrix and the IoU is derived from it as
//
//	IoU = true_positive / (true_positive + false_positive + false_negative).
//
// Classes listed in the ignore set have their row and column zeroed before
// derivation, removing their contribution to every class's statistics; their
// own IoU comes out NaN and is excluded from the mean.
type IoUMetric struct {
	conf   *ConfusionMatrix
	ignore map[int]struct{}
}

var _ SegmentationMetric = (*IoUMetric)(nil)

// NewIoUMetric creates an IoU metric for numClasses classes.
//
// Arguments:
//   - numClasses: Number of classes; must be positive.
//   - normalized: Whether ConfusionMatrix exposes row-normalized fractions
//     instead of raw counts. The IoU arithmetic always uses raw counts.
//   - ignore: Optional class indices to exclude from IoU computation. Each
//     must lie in [0, numClasses).
//
// Returns:
//   - *IoUMetric: The empty metric.
//   - error: ErrInvalidClassCount or ErrInvalidIgnoreIndex on bad arguments.
func NewIoUMetric(numClasses int, normalized bool, ignore ...int) (*IoUMetric, error) {
	conf, err := NewConfusionMatrix(numClasses, normalized)
	if err != nil {
		return nil, err
	}
	ignoreSet := make(map[int]struct{}, len(ignore))
	for _, idx := range ignore {
		if idx < 0 || idx >= numClasses {
			return nil, errors.Wrapf(ErrInvalidIgnoreIndex, "index %d with %d classes", idx, numClasses)
		}
		ignoreSet[idx] = struct{}{}
	}
	return &IoUMetric{conf: conf, ignore: ignoreSet}, nil
}

// Reset clears all accumulated counts.
func (m *IoUMetric) Reset() { m.conf.Reset() }

// ConfusionMatrix exposes the underlying accumulator, e.g. for inspection
// or custom derived statistics.
func (m *IoUMetric) ConfusionMatrix() *ConfusionMatrix { return m.conf }

// Add folds one batch of predicted and target label maps into the metric.
//
// Arguments:
//   - predicted: Rank-4 (N, K, H, W) per-class scores or rank-3 (N, H, W)
//     integer labels for N examples and K classes.
//   - target: Same accepted shapes as predicted.
//
// Returns:
//   - error: A wrapped ErrShape on batch-count or rank violations,
//     ErrUnsupportedDtype on an unusable backing type. A flattened-length
//     mismatch between the two inputs is not an error: the batch is logged
//     and skipped.
func (m *IoUMetric) Add(predicted, target tensor.Tensor) error {
	return accumulate(m.conf, predicted, target)
}

// Merge adds other's accumulated counts into m. The ignore set is a
// derivation-time property and is not merged.
func (m *IoUMetric) Merge(other *IoUMetric) error {
	return m.conf.Merge(other.conf)
}

// Value derives per-class IoU and mean IoU from the accumulated counts.
// Pure read; the metric is unchanged.
func (m *IoUMetric) Value() Result {
	iou := deriveIoU(m.conf.snapshot(m.ignore), m.conf.NumClasses())
	return Result{
		IoU:          iou,
		MeanIoU:      nanMean(iou),
		MeanAccuracy: math.NaN(),
	}
}
