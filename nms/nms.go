// Package nms - greedy suppression of redundant overlapping detections.
//
// All policies share the same shape: sort candidates by descending score,
// cap them at TopK, then repeatedly keep the best remaining candidate and
// drop everything too similar to it. The policies differ only in the
// similarity test (plain IoU, IoU with a center-distance penalty) or in
// who runs the loop (OpenCV's optimized routine).
package nms

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ssd/box"
)

// Method selects the suppression policy.
type Method int

const (
	// Greedy drops any candidate whose plain IoU with a kept box exceeds
	// the threshold.
	Greedy Method = iota
	// OpenCV delegates the same greedy algorithm to gocv.NMSBoxes.
	// Functionally equivalent to Greedy; coordinates are scaled onto a
	// fixed integer grid on the way in, so tie handling near the
	// threshold can differ by a candidate.
	OpenCV
	// DIoU subtracts the squared center distance, normalized by the
	// squared enclosing-box diagonal, from the IoU before thresholding.
	// Spatially distant candidates survive overlaps that Greedy would
	// suppress.
	DIoU
)

// Options configure a suppression pass.
type Options struct {
	// Threshold is the retention cutoff; candidates scoring above it
	// against a kept box are dropped. Commonly 0.2–0.5.
	Threshold float32
	// TopK caps how many of the highest-scoring candidates are
	// considered at all. Zero or negative means no cap. Commonly 200.
	TopK int
	// Method is the suppression policy. Zero value is Greedy.
	Method Method
}

// Suppress filters a single class's candidate detections.
//
// Arguments:
//   - boxes: Corner-form candidate boxes, stride 4.
//   - scores: One confidence score per candidate.
//   - opts: Threshold, candidate cap, and policy.
//
// Returns:
//   - Kept indices into the original sets, in selection order (highest
//     score first).
//   - The number of kept indices.
//   - An error if the inputs are malformed.
func Suppress(boxes, scores []float32, opts Options) ([]int, int, error) {
	n, err := box.Count(boxes)
	if err != nil {
		return nil, 0, errors.Wrap(err, "candidate boxes")
	}
	if len(scores) != n {
		return nil, 0, errors.Errorf("%d scores for %d boxes", len(scores), n)
	}
	if n == 0 {
		return nil, 0, nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Stable so equal scores keep their input order.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if opts.TopK > 0 && len(order) > opts.TopK {
		order = order[:opts.TopK]
	}

	switch opts.Method {
	case OpenCV:
		return suppressOpenCV(boxes, scores, order, opts.Threshold)
	case DIoU:
		return suppressGreedy(boxes, order, opts.Threshold, distancePenalizedIoU)
	default:
		return suppressGreedy(boxes, order, opts.Threshold, box.PairIoU)
	}
}

// suppressGreedy runs the shared greedy loop with a pluggable retention
// score. A lone final survivor is kept, not dropped: once nothing is left
// to compare it against, there is no ground to suppress it on.
func suppressGreedy(boxes []float32, order []int, threshold float32, score func(a, b []float32) float32) ([]int, int, error) {
	kept := make([]int, 0, len(order))
	suppressed := make([]bool, len(order))
	for i := range order {
		if suppressed[i] {
			continue
		}
		kept = append(kept, order[i])
		a := box.At(boxes, order[i])
		for j := i + 1; j < len(order); j++ {
			if suppressed[j] {
				continue
			}
			if score(a, box.At(boxes, order[j])) > threshold {
				suppressed[j] = true
			}
		}
	}
	return kept, len(kept), nil
}

// distancePenalizedIoU is the DIoU retention score: plain IoU minus the
// squared distance between box centers over the squared diagonal of the
// smallest box enclosing both. Degenerate coincident zero-size boxes
// (zero diagonal) are a caller contract violation and not handled.
func distancePenalizedIoU(a, b []float32) float32 {
	iou := box.PairIoU(a, b)

	dx := (a[0]+a[2])/2 - (b[0]+b[2])/2
	dy := (a[1]+a[3])/2 - (b[1]+b[3])/2

	ew := max(a[2], b[2]) - min(a[0], b[0])
	eh := max(a[3], b[3]) - min(a[1], b[1])

	return iou - (dx*dx+dy*dy)/(ew*ew+eh*eh)
}
