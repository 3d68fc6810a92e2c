// Package segmentation - Confusion-matrix based evaluation metrics for
// semantic segmentation models.
package segmentation

import "github.com/pkg/errors"

// ConfusionMatrix accumulates per-pixel classification counts for an
// N-class segmentation problem. Entry (t, p) counts the elements whose true
// class is t and predicted class is p. Counts only ever grow between calls
// to Reset.
//
// A ConfusionMatrix is not safe for concurrent use. Callers ingesting
// batches in parallel should give each worker its own matrix and combine
// them with Merge afterwards; elementwise addition is associative and
// commutative, so partial matrices can be merged in any order.
type ConfusionMatrix struct {
	numClasses int
	normalized bool
	// Row-major N×N counts, counts[t*numClasses+p]. float64 so a single
	// matrix survives billions of pixels without overflow concerns.
	counts []float64
}

// NewConfusionMatrix creates an all-zero numClasses×numClasses matrix.
//
// Arguments:
//   - numClasses: Number of classes in the problem; must be positive.
//   - normalized: When true, Value reports each row as fractions of that
//     row's total instead of raw counts. Normalization affects only the
//     exposed view; internal accumulation always uses raw counts.
//
// Returns:
//   - *ConfusionMatrix: The empty accumulator.
//   - error: ErrInvalidClassCount if numClasses < 1.
func NewConfusionMatrix(numClasses int, normalized bool) (*ConfusionMatrix, error) {
	if numClasses < 1 {
		return nil, errors.Wrapf(ErrInvalidClassCount, "got %d", numClasses)
	}
	return &ConfusionMatrix{
		numClasses: numClasses,
		normalized: normalized,
		counts:     make([]float64, numClasses*numClasses),
	}, nil
}

// NumClasses returns the fixed class count N.
func (c *ConfusionMatrix) NumClasses() int { return c.numClasses }

// Reset zeroes every count. Safe to call at any time, including on a
// freshly constructed matrix.
func (c *ConfusionMatrix) Reset() {
	for i := range c.counts {
		c.counts[i] = 0
	}
}

// Add folds one batch of flattened label pairs into the matrix. It is the
// bincount formulation of the confusion update: positions whose true and
// predicted indices both lie in [0, N) increment counts[t*N+p]; everything
// else is silently excluded, matching the masked-bincount semantics of the
// usual vectorized implementation. One pass over the input, no per-pixel
// allocation, so multi-megapixel batches are fine.
//
// predicted and target must be the same length; Add assumes the caller
// (the metric layer) has already reconciled lengths.
func (c *ConfusionMatrix) Add(predicted, target []int) {
	n := c.numClasses
	for i, t := range target {
		if t < 0 || t >= n {
			continue
		}
		p := predicted[i]
		if p < 0 || p >= n {
			continue
		}
		c.counts[t*n+p]++
	}
}

// Merge adds other's counts into c elementwise. Both matrices must have
// been built for the same class count.
func (c *ConfusionMatrix) Merge(other *ConfusionMatrix) error {
	if other.numClasses != c.numClasses {
		return errors.Wrapf(ErrShape, "cannot merge %d-class matrix into %d-class matrix",
			other.numClasses, c.numClasses)
	}
	for i, v := range other.counts {
		c.counts[i] += v
	}
	return nil
}

// Value returns a copy of the accumulated matrix as rows of float64. When
// the matrix was constructed with normalized=true each row is divided by
// its total; all-zero rows stay zero. The returned slices are owned by the
// caller and never alias internal state.
func (c *ConfusionMatrix) Value() [][]float64 {
	n := c.numClasses
	out := make([][]float64, n)
	for t := 0; t < n; t++ {
		row := make([]float64, n)
		copy(row, c.counts[t*n:(t+1)*n])
		if c.normalized {
			var total float64
			for _, v := range row {
				total += v
			}
			if total > 0 {
				for p := range row {
					row[p] /= total
				}
			}
		}
		out[t] = row
	}
	return out
}

// snapshot copies the raw counts, zeroing the row and column of every
// ignored class so that ignored classes contribute to neither true-positive
// nor false-positive/negative sums.
func (c *ConfusionMatrix) snapshot(ignore map[int]struct{}) []float64 {
	n := c.numClasses
	m := make([]float64, len(c.counts))
	copy(m, c.counts)
	for idx := range ignore {
		for k := 0; k < n; k++ {
			m[idx*n+k] = 0
			m[k*n+idx] = 0
		}
	}
	return m
}
