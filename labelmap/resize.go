package labelmap

import (
	"image"

	"github.com/nfnt/resize"
)

// ResizeNearest resizes a label mask to width×height using nearest-neighbor
// sampling. Labels are categorical: any interpolating kernel would invent
// class indices that exist in neither source pixel, so nearest neighbor is
// the only valid resampler for masks.
func ResizeNearest(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)
}

// FitTo resizes mask to ref's dimensions when they differ, returning mask
// unchanged otherwise. Convenient when predictions come out of a model at a
// fixed resolution and ground truth is stored at native resolution.
func FitTo(mask, ref image.Image) image.Image {
	mb, rb := mask.Bounds(), ref.Bounds()
	if mb.Dx() == rb.Dx() && mb.Dy() == rb.Dy() {
		return mask
	}
	return ResizeNearest(mask, rb.Dx(), rb.Dy())
}
