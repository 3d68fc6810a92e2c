// Package labelmap - Utilities for turning annotation masks and raw model
// score planes into the class-index label tensors consumed by the
// segmentation metrics.
package labelmap

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrScoreLayout is returned when a score buffer's length does not match
// the layout it was declared with.
var ErrScoreLayout = errors.New("labelmap: score buffer does not match the declared layout")

// FromGray decodes a grayscale annotation mask into a rank-3 (1, H, W)
// integer label tensor, one batch element, pixel value = class index.
// 8-bit masks with the class index stored directly in the gray channel are
// the common ground-truth encoding for segmentation datasets.
func FromGray(img image.Image) *tensor.Dense {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	backing := make([]int, h*w)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			// RGBA is 16-bit; masks are 8-bit class indices.
			backing[i] = int(r >> 8)
			i++
		}
	}
	return tensor.New(tensor.WithShape(1, h, w), tensor.WithBacking(backing))
}

// ArgmaxScores reduces class-major float32 score planes (CHW-style layout:
// numClasses planes of pixels values each) to hard labels, one class index
// per pixel.
//
// NaN scores never win the argmax. A pixel whose scores are all NaN decodes
// to -1, which the confusion-matrix bounds mask excludes downstream.
//
// Arguments:
//   - scores: Flat buffer of length numClasses*pixels.
//   - numClasses: Number of score planes; must be positive.
//   - pixels: Elements per plane.
//
// Returns:
//   - []int: One class index per pixel.
//   - error: ErrScoreLayout on a length/plane mismatch.
func ArgmaxScores(scores []float32, numClasses, pixels int) ([]int, error) {
	if numClasses < 1 {
		return nil, errors.Wrapf(ErrScoreLayout, "numClasses=%d", numClasses)
	}
	if len(scores) != numClasses*pixels {
		return nil, errors.Wrapf(ErrScoreLayout, "len=%d, want %d*%d", len(scores), numClasses, pixels)
	}

	out := make([]int, pixels)
	for i := 0; i < pixels; i++ {
		best := -1
		var bestScore float32
		for c := 0; c < numClasses; c++ {
			s := scores[c*pixels+i]
			if math32.IsNaN(s) {
				continue
			}
			if best < 0 || s > bestScore {
				best = c
				bestScore = s
			}
		}
		out[i] = best
	}
	return out, nil
}

// FromScores wraps a raw batched model output buffer (batch × numClasses ×
// h × w, class-major within each batch element) into a rank-3 (batch, h, w)
// label tensor by per-pixel argmax.
func FromScores(scores []float32, batch, numClasses, h, w int) (*tensor.Dense, error) {
	pixels := h * w
	if batch < 1 || len(scores) != batch*numClasses*pixels {
		return nil, errors.Wrapf(ErrScoreLayout, "len=%d, want %d*%d*%d*%d", len(scores), batch, numClasses, h, w)
	}

	backing := make([]int, batch*pixels)
	for n := 0; n < batch; n++ {
		plane := scores[n*numClasses*pixels : (n+1)*numClasses*pixels]
		decoded, err := ArgmaxScores(plane, numClasses, pixels)
		if err != nil {
			return nil, err
		}
		copy(backing[n*pixels:], decoded)
	}
	return tensor.New(tensor.WithShape(batch, h, w), tensor.WithBacking(backing)), nil
}
