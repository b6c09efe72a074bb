// Package match - assignment of ground-truth boxes to priors, producing
// the per-prior supervision targets a detection loss trains against.
package match

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-ssd/box"
	"github.com/nvr-ai/go-ssd/prior"
)

// Background is the class id reserved for unmatched priors. Ground-truth
// labels are shifted up by one when written into the confidence targets.
const Background = 0

// Targets holds the supervision buffers for a whole training batch:
// encoded location offsets and confidence class ids, one row per image.
// Rows are disjoint, so Match may be called concurrently for different
// batch indices.
type Targets struct {
	// Loc has shape (batch, priors, 4), Float32.
	Loc *tensor.Dense
	// Conf has shape (batch, priors), Int. Zero means background.
	Conf *tensor.Dense
}

// NewTargets allocates zeroed target buffers for a batch.
func NewTargets(batchSize, numPriors int) *Targets {
	return &Targets{
		Loc:  tensor.New(tensor.WithShape(batchSize, numPriors, box.Stride), tensor.Of(tensor.Float32)),
		Conf: tensor.New(tensor.WithShape(batchSize, numPriors), tensor.Of(tensor.Int)),
	}
}

// rows returns the loc and conf slices for one batch index, validating
// the buffer shapes against the prior count.
func (t *Targets) rows(idx, numPriors int) ([]float32, []int, error) {
	ls := t.Loc.Shape()
	cs := t.Conf.Shape()
	if len(ls) != 3 || ls[1] != numPriors || ls[2] != box.Stride {
		return nil, nil, errors.Errorf("location targets have shape %v, want (batch, %d, %d)", ls, numPriors, box.Stride)
	}
	if len(cs) != 2 || cs[1] != numPriors {
		return nil, nil, errors.Errorf("confidence targets have shape %v, want (batch, %d)", cs, numPriors)
	}
	if ls[0] != cs[0] {
		return nil, nil, errors.Errorf("target batch sizes disagree: %d vs %d", ls[0], cs[0])
	}
	if idx < 0 || idx >= ls[0] {
		return nil, nil, errors.Errorf("batch index %d out of range [0, %d)", idx, ls[0])
	}
	loc := t.Loc.Data().([]float32)[idx*numPriors*box.Stride : (idx+1)*numPriors*box.Stride]
	conf := t.Conf.Data().([]int)[idx*numPriors : (idx+1)*numPriors]
	return loc, conf, nil
}

// Match assigns each prior to the ground-truth box it overlaps best,
// encodes the assigned boxes against the priors, and writes the results
// into the batch slot idx of out.
//
// The assignment is overlap-maximizing with forced reciprocity: every
// ground truth claims its best prior even when that prior overlaps some
// other truth more. When two truths share a best prior, the later truth
// (higher index) wins; iteration order over the ground truths is always
// ascending so the result is reproducible. Priors whose best overlap
// falls below threshold are labeled Background, but a claimed prior is
// never demoted, since claiming lifts its recorded overlap above any
// threshold in [0, 1].
//
// An empty ground-truth set is legal and yields an all-background row.
//
// Arguments:
//   - threshold: Minimum IoU for a prior to keep a class label.
//   - truths: Ground-truth boxes in corner form, stride 4.
//   - labels: Ground-truth class ids (>= 0), one per truth.
//   - priors: The prior set.
//   - v: Variance scaling pair for encoding.
//   - out: Batch target buffers to write into.
//   - idx: Batch slot to fill.
//
// Returns:
//   - An error if any input shape is malformed; nil otherwise.
func Match(threshold float32, truths []float32, labels []int, priors *prior.Priors, v prior.Variances, out *Targets, idx int) error {
	g, err := box.Count(truths)
	if err != nil {
		return errors.Wrap(err, "ground truth boxes")
	}
	if len(labels) != g {
		return errors.Errorf("%d labels for %d ground truth boxes", len(labels), g)
	}
	p := priors.Len()
	locRow, confRow, err := out.rows(idx, p)
	if err != nil {
		return err
	}

	if g == 0 {
		for i := range locRow {
			locRow[i] = 0
		}
		for i := range confRow {
			confRow[i] = Background
		}
		return nil
	}

	overlaps, err := box.IoU(truths, priors.CornerForm())
	if err != nil {
		return err
	}
	ov := overlaps.Data().([]float32) // g rows of p, row-major

	// Best prior per truth and best truth per prior. Ties resolve to the
	// lowest index, matching a first-encounter argmax scan.
	bestPriorIdx := make([]int, g)
	for gi := 0; gi < g; gi++ {
		row := ov[gi*p : (gi+1)*p]
		best := 0
		for pi := 1; pi < p; pi++ {
			if row[pi] > row[best] {
				best = pi
			}
		}
		bestPriorIdx[gi] = best
	}

	bestTruthIdx := make([]int, p)
	bestTruthOverlap := make([]float32, p)
	for pi := 0; pi < p; pi++ {
		best := 0
		bestOv := ov[pi]
		for gi := 1; gi < g; gi++ {
			if o := ov[gi*p+pi]; o > bestOv {
				best = gi
				bestOv = o
			}
		}
		bestTruthIdx[pi] = best
		bestTruthOverlap[pi] = bestOv
	}

	// Forced reciprocity: every truth keeps its best prior. The recorded
	// overlap is lifted to 2 so the threshold test below cannot demote it.
	// Ascending order makes "last truth wins" the tie break when two
	// truths claim the same prior.
	for gi := 0; gi < g; gi++ {
		pi := bestPriorIdx[gi]
		bestTruthOverlap[pi] = 2
		bestTruthIdx[pi] = gi
	}

	matched := make([]float32, p*box.Stride)
	for pi := 0; pi < p; pi++ {
		gi := bestTruthIdx[pi]
		copy(matched[pi*box.Stride:(pi+1)*box.Stride], box.At(truths, gi))
		if bestTruthOverlap[pi] < threshold {
			confRow[pi] = Background
		} else {
			confRow[pi] = labels[gi] + 1
		}
	}

	enc, err := prior.Encode(matched, priors, v)
	if err != nil {
		return err
	}
	copy(locRow, enc)
	return nil
}
