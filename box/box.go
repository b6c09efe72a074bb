// Package box - axis-aligned bounding box geometry.
//
// Box sets are flat []float32 slices holding four coordinates per box,
// either in corner form (x1, y1, x2, y2) or in center form (cx, cy, w, h).
// The flat layout matches the raw output buffers produced by detection
// models, so sets can be sliced straight out of an inference result
// without copying.
package box

import (
	"github.com/pkg/errors"
)

// Stride is the number of coordinates per box.
const Stride = 4

// Count validates that data holds a whole number of boxes and returns
// how many it holds.
func Count(data []float32) (int, error) {
	if len(data)%Stride != 0 {
		return 0, errors.Errorf("box set of %d floats is not a multiple of %d", len(data), Stride)
	}
	return len(data) / Stride, nil
}

// At returns box i of a set as a 4-element subslice. It performs no
// bounds validation beyond what slicing itself enforces.
func At(data []float32, i int) []float32 {
	return data[i*Stride : i*Stride+Stride]
}

// ToCorner converts center-form boxes (cx, cy, w, h) to corner form
// (x1, y1, x2, y2).
func ToCorner(centers []float32) ([]float32, error) {
	n, err := Count(centers)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(centers))
	for i := 0; i < n; i++ {
		cx, cy := centers[i*Stride], centers[i*Stride+1]
		w, h := centers[i*Stride+2], centers[i*Stride+3]
		out[i*Stride+0] = cx - w/2
		out[i*Stride+1] = cy - h/2
		out[i*Stride+2] = cx + w/2
		out[i*Stride+3] = cy + h/2
	}
	return out, nil
}

// ToCenter converts corner-form boxes (x1, y1, x2, y2) to center form
// (cx, cy, w, h). Inverse of ToCorner up to floating-point rounding.
func ToCenter(corners []float32) ([]float32, error) {
	n, err := Count(corners)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(corners))
	for i := 0; i < n; i++ {
		x1, y1 := corners[i*Stride], corners[i*Stride+1]
		x2, y2 := corners[i*Stride+2], corners[i*Stride+3]
		out[i*Stride+0] = (x1 + x2) / 2
		out[i*Stride+1] = (y1 + y2) / 2
		out[i*Stride+2] = x2 - x1
		out[i*Stride+3] = y2 - y1
	}
	return out, nil
}

// Area returns the area of a single corner-form box (a 4-element slice).
func Area(b []float32) float32 {
	return (b[2] - b[0]) * (b[3] - b[1])
}

// PairIoU computes the Intersection over Union of two corner-form boxes
// (4-element slices each). Returns 0 when the union is empty, so
// degenerate zero-area boxes never produce NaN.
func PairIoU(a, b []float32) float32 {
	ix1 := max(a[0], b[0])
	iy1 := max(a[1], b[1])
	ix2 := min(a[2], b[2])
	iy2 := min(a[3], b[3])

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih

	union := Area(a) + Area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
