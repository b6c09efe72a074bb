// Package detect - turns raw SSD network outputs into final detections:
// decode location offsets against the priors, score the classes, then
// suppress duplicates per class.
package detect

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ssd/box"
	"github.com/nvr-ai/go-ssd/nms"
	"github.com/nvr-ai/go-ssd/prior"
)

// Config defines the post-processing parameters for one model.
type Config struct {
	// NumClasses includes the background class at index 0.
	NumClasses int
	// ScoreThreshold is the minimum class score for a prior to become a
	// suppression candidate.
	ScoreThreshold float32
	// NMSThreshold is the overlap cutoff passed to suppression.
	NMSThreshold float32
	// TopK caps the per-class candidates considered by suppression.
	TopK int
	// KeepTopK caps the final detections across all classes. Zero means
	// no cap.
	KeepTopK int
	// Method is the suppression policy.
	Method nms.Method
	// Variances must match the values the model was trained with.
	Variances prior.Variances
}

// Detection is one final detected object.
type Detection struct {
	// Class is the object class id (background excluded, so always >= 1).
	Class int
	// Score is the class confidence.
	Score float32
	// Box is the corner-form location.
	Box [4]float32
}

// PostProcess converts one image's raw model outputs into detections.
//
// Arguments:
//   - loc: Predicted location offsets, four per prior.
//   - conf: Class scores, prior-major: conf[i*NumClasses+c] is the score
//     of class c at prior i. Scores, not logits; run Softmax first if the
//     model emits logits.
//   - priors: The prior set the model was trained against.
//   - cfg: Post-processing parameters.
//
// Returns:
//   - Detections sorted by descending score, truncated to KeepTopK.
//   - An error if the output shapes disagree with the priors.
func PostProcess(loc, conf []float32, priors *prior.Priors, cfg Config) ([]Detection, error) {
	p := priors.Len()
	if len(loc) != p*box.Stride {
		return nil, errors.Errorf("%d location floats for %d priors", len(loc), p)
	}
	if cfg.NumClasses < 2 {
		return nil, errors.Errorf("%d classes, need background plus at least one", cfg.NumClasses)
	}
	if len(conf) != p*cfg.NumClasses {
		return nil, errors.Errorf("%d confidence floats for %d priors x %d classes", len(conf), p, cfg.NumClasses)
	}

	decoded, err := prior.Decode(loc, priors, cfg.Variances)
	if err != nil {
		return nil, err
	}

	var detections []Detection
	candBoxes := make([]float32, 0, p*box.Stride)
	candScores := make([]float32, 0, p)

	// Class 0 is background and never emitted.
	for c := 1; c < cfg.NumClasses; c++ {
		candBoxes = candBoxes[:0]
		candScores = candScores[:0]
		for i := 0; i < p; i++ {
			s := conf[i*cfg.NumClasses+c]
			if s < cfg.ScoreThreshold {
				continue
			}
			candBoxes = append(candBoxes, box.At(decoded, i)...)
			candScores = append(candScores, s)
		}
		if len(candScores) == 0 {
			continue
		}

		keep, _, err := nms.Suppress(candBoxes, candScores, nms.Options{
			Threshold: cfg.NMSThreshold,
			TopK:      cfg.TopK,
			Method:    cfg.Method,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "suppressing class %d", c)
		}
		for _, k := range keep {
			b := box.At(candBoxes, k)
			detections = append(detections, Detection{
				Class: c,
				Score: candScores[k],
				Box:   [4]float32{b[0], b[1], b[2], b[3]},
			})
		}
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})
	if cfg.KeepTopK > 0 && len(detections) > cfg.KeepTopK {
		detections = detections[:cfg.KeepTopK]
	}
	return detections, nil
}
