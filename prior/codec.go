package prior

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ssd/box"
)

// Encode converts one corner-form box per prior into the normalized
// offset form the regression head is trained against:
//
//	offset center = (box center - prior center) / (v.Center * prior size)
//	offset size   = log(box size / prior size) / v.Size
//
// Every matched box must have strictly positive width and height; the
// matcher guarantees this by construction since ground-truth boxes are
// non-degenerate.
//
// Arguments:
//   - matched: Corner-form box set, one box per prior.
//   - p: The prior set.
//   - v: Variance scaling pair.
//
// Returns:
//   - Encoded offsets, four per prior.
//   - An error if the set is malformed or its size differs from the priors.
func Encode(matched []float32, p *Priors, v Variances) ([]float32, error) {
	n, err := box.Count(matched)
	if err != nil {
		return nil, errors.Wrap(err, "matched boxes")
	}
	if n != p.Len() {
		return nil, errors.Errorf("matched %d boxes against %d priors", n, p.Len())
	}

	pr := p.centers
	out := make([]float32, len(matched))
	for i := 0; i < n; i++ {
		x1, y1 := matched[i*box.Stride], matched[i*box.Stride+1]
		x2, y2 := matched[i*box.Stride+2], matched[i*box.Stride+3]
		pcx, pcy := pr[i*box.Stride], pr[i*box.Stride+1]
		pw, ph := pr[i*box.Stride+2], pr[i*box.Stride+3]

		out[i*box.Stride+0] = ((x1+x2)/2 - pcx) / (v.Center * pw)
		out[i*box.Stride+1] = ((y1+y2)/2 - pcy) / (v.Center * ph)
		out[i*box.Stride+2] = math32.Log((x2-x1)/pw) / v.Size
		out[i*box.Stride+3] = math32.Log((y2-y1)/ph) / v.Size
	}
	return out, nil
}

// Decode is the exact inverse of Encode: it turns predicted offsets back
// into corner-form boxes.
//
//	box center = prior center + offset center * v.Center * prior size
//	box size   = prior size * exp(offset size * v.Size)
//
// Arguments:
//   - loc: Predicted offsets, four per prior.
//   - p: The prior set.
//   - v: Variance scaling pair.
//
// Returns:
//   - Corner-form boxes, one per prior.
//   - An error if loc is malformed or its size differs from the priors.
func Decode(loc []float32, p *Priors, v Variances) ([]float32, error) {
	n, err := box.Count(loc)
	if err != nil {
		return nil, errors.Wrap(err, "location offsets")
	}
	if n != p.Len() {
		return nil, errors.Errorf("decoding %d offsets against %d priors", n, p.Len())
	}

	pr := p.centers
	out := make([]float32, len(loc))
	for i := 0; i < n; i++ {
		pcx, pcy := pr[i*box.Stride], pr[i*box.Stride+1]
		pw, ph := pr[i*box.Stride+2], pr[i*box.Stride+3]

		cx := pcx + loc[i*box.Stride+0]*v.Center*pw
		cy := pcy + loc[i*box.Stride+1]*v.Center*ph
		w := pw * math32.Exp(loc[i*box.Stride+2]*v.Size)
		h := ph * math32.Exp(loc[i*box.Stride+3]*v.Size)

		out[i*box.Stride+0] = cx - w/2
		out[i*box.Stride+1] = cy - h/2
		out[i*box.Stride+2] = cx + w/2
		out[i*box.Stride+3] = cy + h/2
	}
	return out, nil
}
