package segmentation

import "gorgonia.org/tensor"

// IoUWithAccuracyMetric computes per-class IoU plus per-class pixel
// accuracy (the fraction of each class's ground-truth pixels that were
// predicted correctly). It has no ignore support.
//
// The accuracy denominator is floored at one, so a class that never appears
// as ground truth scores 0 rather than NaN. That asymmetry with the IoU NaN
// policy is intentional: it mirrors the two conventions this metric pair
// descends from.
type IoUWithAccuracyMetric struct {
	conf *ConfusionMatrix
}

var _ SegmentationMetric = (*IoUWithAccuracyMetric)(nil)

// NewIoUWithAccuracyMetric creates the combined metric for numClasses
// classes. Returns ErrInvalidClassCount if numClasses < 1.
func NewIoUWithAccuracyMetric(numClasses int) (*IoUWithAccuracyMetric, error) {
	conf, err := NewConfusionMatrix(numClasses, false)
	if err != nil {
		return nil, err
	}
	return &IoUWithAccuracyMetric{conf: conf}, nil
}

// Reset clears all accumulated counts.
func (m *IoUWithAccuracyMetric) Reset() { m.conf.Reset() }

// ConfusionMatrix exposes the underlying accumulator.
func (m *IoUWithAccuracyMetric) ConfusionMatrix() *ConfusionMatrix { return m.conf }

// Add folds one batch of predicted and target label maps into the metric.
// Input contract and skip policy are the same as IoUMetric.Add.
func (m *IoUWithAccuracyMetric) Add(predicted, target tensor.Tensor) error {
	return accumulate(m.conf, predicted, target)
}

// Merge adds other's accumulated counts into m.
func (m *IoUWithAccuracyMetric) Merge(other *IoUWithAccuracyMetric) error {
	return m.conf.Merge(other.conf)
}

// Value derives per-class IoU, mean IoU, per-class pixel accuracy and mean
// pixel accuracy from the accumulated counts. Pure read.
func (m *IoUWithAccuracyMetric) Value() Result {
	n := m.conf.NumClasses()
	snap := m.conf.snapshot(nil)
	iou := deriveIoU(snap, n)

	acc := make([]float64, n)
	for c := 0; c < n; c++ {
		var rowSum float64
		for k := 0; k < n; k++ {
			rowSum += snap[c*n+k]
		}
		if rowSum < 1 {
			rowSum = 1
		}
		acc[c] = snap[c*n+c] / rowSum
	}

	return Result{
		IoU:          iou,
		MeanIoU:      nanMean(iou),
		Accuracy:     acc,
		MeanAccuracy: nanMean(acc),
	}
}
