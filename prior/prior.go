// Package prior - fixed anchor boxes and the offset codec used to regress
// predictions against them.
//
// A detector predicts each object as an offset from one of a fixed grid of
// prior (anchor) boxes. Encode turns an absolute box into that offset;
// Decode inverts it. Both are scaled by a Variances pair that controls the
// dynamic range of the regression targets.
package prior

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ssd/box"
)

// Variances scale the encoded offsets. Conventional values are 0.1 for
// the center terms and 0.2 for the size terms.
type Variances struct {
	Center float32
	Size   float32
}

// Priors is an immutable set of anchor boxes in center form. The corner
// form is computed once at construction, so both views can be read
// concurrently for the lifetime of the model.
type Priors struct {
	centers []float32
	corners []float32
}

// New builds a prior set from center-form boxes (cx, cy, w, h). The input
// is copied; every prior must have strictly positive width and height,
// since the codec takes logarithms of size ratios.
func New(centers []float32) (*Priors, error) {
	n, err := box.Count(centers)
	if err != nil {
		return nil, errors.Wrap(err, "prior set")
	}
	if n == 0 {
		return nil, errors.New("prior set is empty")
	}
	for i := 0; i < n; i++ {
		if centers[i*box.Stride+2] <= 0 || centers[i*box.Stride+3] <= 0 {
			return nil, errors.Errorf("prior %d has non-positive size (%g x %g)",
				i, centers[i*box.Stride+2], centers[i*box.Stride+3])
		}
	}

	owned := make([]float32, len(centers))
	copy(owned, centers)
	corners, err := box.ToCorner(owned)
	if err != nil {
		return nil, err
	}
	return &Priors{centers: owned, corners: corners}, nil
}

// Len returns the number of priors in the set.
func (p *Priors) Len() int {
	return len(p.centers) / box.Stride
}

// CenterForm returns the priors as (cx, cy, w, h). The slice is shared;
// callers must treat it as read-only.
func (p *Priors) CenterForm() []float32 {
	return p.centers
}

// CornerForm returns the priors as (x1, y1, x2, y2). The slice is shared;
// callers must treat it as read-only.
func (p *Priors) CornerForm() []float32 {
	return p.corners
}
