package segmentation

import (
	"log"
	"math"

	"gorgonia.org/tensor"
)

// SegmentationMetric is the accumulate/query contract shared by the metric
// variants in this package: Reset clears history, Add folds in one batch of
// predicted/target label maps, Value derives statistics from everything
// accumulated so far.
//
// Metrics are not safe for concurrent use; shard one metric per worker and
// Merge at the end (see ConfusionMatrix).
type SegmentationMetric interface {
	Reset()
	Add(predicted, target tensor.Tensor) error
	Value() Result
}

// Result holds the statistics derived from an accumulated confusion matrix.
type Result struct {
	// IoU is the per-class intersection-over-union. Classes absent from
	// both predictions and targets are NaN: scoring a class nobody
	// mentioned is meaningless, and NaN keeps it out of the mean, where a
	// zero would drag the mean down.
	IoU []float64
	// MeanIoU is the arithmetic mean of IoU excluding NaN entries, or NaN
	// when every class is undefined (e.g. a freshly reset metric).
	MeanIoU float64
	// Accuracy is the per-class pixel accuracy, populated only by
	// IoUWithAccuracyMetric; nil otherwise. Its denominator is floored at
	// one, so an absent ground-truth class scores 0 rather than NaN.
	Accuracy []float64
	// MeanAccuracy is the NaN-excluding mean of Accuracy, or NaN when
	// Accuracy is nil.
	MeanAccuracy float64
}

// accumulate runs the shared Add pipeline: validate and decode the tensor
// pair, then fold it into conf. A flattened-length mismatch is the one
// recoverable failure: the batch is logged and dropped so that a single
// corrupted batch cannot abort an evaluation loop over many batches, and
// accumulation resumes on the next call.
func accumulate(conf *ConfusionMatrix, predicted, target tensor.Tensor) error {
	pred, tgt, err := decodeLabelPair(predicted, target)
	if err != nil {
		return err
	}
	if len(pred) != len(tgt) {
		log.Printf("segmentation: skipping batch: len(target)=%d, len(predicted)=%d", len(tgt), len(pred))
		return nil
	}
	conf.Add(pred, tgt)
	return nil
}

// deriveIoU computes per-class IoU from a row-major n×n count snapshot:
// tp = diagonal, fp = column sum - tp, fn = row sum - tp,
// iou = tp / (tp + fp + fn), with 0/0 defined as NaN. The NaN policy is
// scoped to this loop; no global floating-point error mode is touched.
func deriveIoU(m []float64, n int) []float64 {
	iou := make([]float64, n)
	for c := 0; c < n; c++ {
		tp := m[c*n+c]
		var rowSum, colSum float64
		for k := 0; k < n; k++ {
			rowSum += m[c*n+k]
			colSum += m[k*n+c]
		}
		union := rowSum + colSum - tp
		if union == 0 {
			iou[c] = math.NaN()
		} else {
			iou[c] = tp / union
		}
	}
	return iou
}

// nanMean is the arithmetic mean of xs excluding NaN entries; NaN when no
// entry is finite.
func nanMean(xs []float64) float64 {
	var sum float64
	var n int
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
