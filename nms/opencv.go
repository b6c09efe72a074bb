package nms

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-ssd/box"
)

// opencvGrid is the fixed-point scale applied before converting float
// coordinates to integer rectangles. Decoded detection boxes are
// normalized to [0, 1]; truncating those straight to int would collapse
// every candidate to a zero or unit rectangle. Scaling onto a 1<<13 grid
// keeps IoU intact to rounding for normalized and pixel-magnitude
// coordinates alike.
const opencvGrid = 1 << 13

// suppressOpenCV hands the sorted, truncated candidate set to OpenCV's
// NMSBoxes and maps the returned local indices back through the sort
// permutation. A zero score threshold is passed so score filtering stays
// the caller's responsibility, same as the other policies.
func suppressOpenCV(boxes, scores []float32, order []int, threshold float32) ([]int, int, error) {
	rects := make([]image.Rectangle, len(order))
	confs := make([]float32, len(order))
	for i, oi := range order {
		b := box.At(boxes, oi)
		rects[i] = image.Rect(
			int(math32.Round(b[0]*opencvGrid)),
			int(math32.Round(b[1]*opencvGrid)),
			int(math32.Round(b[2]*opencvGrid)),
			int(math32.Round(b[3]*opencvGrid)),
		)
		confs[i] = scores[oi]
	}

	local := gocv.NMSBoxes(rects, confs, 0, threshold)
	kept := make([]int, 0, len(local))
	for _, li := range local {
		if li < 0 || li >= len(order) {
			return nil, 0, errors.Errorf("NMSBoxes returned index %d for %d candidates", li, len(order))
		}
		kept = append(kept, order[li])
	}
	return kept, len(kept), nil
}
