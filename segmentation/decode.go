package segmentation

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// classAxis is the axis holding per-class scores in rank-4 (batch, classes,
// height, width) tensors.
const classAxis = 1

// decodeLabelPair validates a predicted/target tensor pair and reduces both
// to flat class-index slices.
//
// Each input must be rank 3 (batch, height, width) dense labels or rank 4
// (batch, classes, height, width) per-class scores; rank-4 inputs are
// argmax-decoded over the class axis into hard labels first. Batch counts
// must match. The two returned slices may still differ in length — the
// caller decides how to handle that (see the skip policy on the metrics).
func decodeLabelPair(predicted, target tensor.Tensor) ([]int, []int, error) {
	if predicted.Dims() != 3 && predicted.Dims() != 4 {
		return nil, nil, errors.Wrapf(ErrShape,
			"predictions must be rank 3 (N,H,W) or rank 4 (N,K,H,W), got rank %d", predicted.Dims())
	}
	if target.Dims() != 3 && target.Dims() != 4 {
		return nil, nil, errors.Wrapf(ErrShape,
			"targets must be rank 3 (N,H,W) or rank 4 (N,K,H,W), got rank %d", target.Dims())
	}
	if predicted.Shape()[0] != target.Shape()[0] {
		return nil, nil, errors.Wrapf(ErrShape,
			"batch counts differ: %d predicted vs %d target",
			predicted.Shape()[0], target.Shape()[0])
	}

	pred, err := flattenLabels(predicted)
	if err != nil {
		return nil, nil, errors.Wrap(err, "predicted")
	}
	tgt, err := flattenLabels(target)
	if err != nil {
		return nil, nil, errors.Wrap(err, "target")
	}
	return pred, tgt, nil
}

// flattenLabels reduces a label tensor to a flat []int of class indices,
// argmax-decoding rank-4 score tensors first.
func flattenLabels(t tensor.Tensor) ([]int, error) {
	if t.Dims() == 4 {
		decoded, err := tensor.Argmax(t, classAxis)
		if err != nil {
			return nil, errors.Wrap(err, "argmax over class axis")
		}
		t = decoded
	}
	d, ok := t.(*tensor.Dense)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedDtype, "%T is not a dense tensor", t)
	}
	return asIndexSlice(d.Data())
}

// asIndexSlice converts a tensor backing slice to class indices. Float
// backings are truncated; labels stored as floats are whole numbers in
// practice, and out-of-range garbage is excluded later by the confusion
// update's bounds mask anyway.
func asIndexSlice(data interface{}) ([]int, error) {
	switch v := data.(type) {
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, nil
	case []int32:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []int64:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []uint8:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []float32:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []float64:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDtype, "%T", data)
	}
}
