package match

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ssd/prior"
)

// Image is the ground truth for one training image.
type Image struct {
	// Boxes are corner-form ground-truth boxes, stride 4.
	Boxes []float32
	// Labels are class ids (>= 0), one per box.
	Labels []int
}

// Batch runs Match for every image in the batch, one goroutine per image.
// Each image writes only its own slot of out, and the prior set is
// read-only, so the calls are independent.
//
// Arguments:
//   - threshold: Minimum IoU for a prior to keep a class label.
//   - images: Per-image ground truth; image i fills batch slot i.
//   - priors: The prior set.
//   - v: Variance scaling pair for encoding.
//   - out: Batch target buffers; the batch dimension must cover len(images).
//
// Returns:
//   - The first per-image error in batch order, or nil.
func Batch(threshold float32, images []Image, priors *prior.Priors, v prior.Variances, out *Targets) error {
	if b := out.Conf.Shape()[0]; len(images) > b {
		return errors.Errorf("%d images for a batch of %d", len(images), b)
	}

	errs := make([]error, len(images))
	var wg sync.WaitGroup
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = Match(threshold, images[i].Boxes, images[i].Labels, priors, v, out, i)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "image %d", i)
		}
	}
	return nil
}
