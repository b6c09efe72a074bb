package detect

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Softmax converts prior-major class logits into scores, per prior. Each
// row of numClasses logits is shifted by its maximum before
// exponentiating, so extreme logits stay finite.
func Softmax(logits []float32, numClasses int) ([]float32, error) {
	if numClasses < 1 {
		return nil, errors.Errorf("softmax over %d classes", numClasses)
	}
	if len(logits)%numClasses != 0 {
		return nil, errors.Errorf("%d logits is not a multiple of %d classes", len(logits), numClasses)
	}

	out := make([]float32, len(logits))
	for r := 0; r < len(logits)/numClasses; r++ {
		row := logits[r*numClasses : (r+1)*numClasses]
		dst := out[r*numClasses : (r+1)*numClasses]

		m := row[0]
		for _, v := range row[1:] {
			if v > m {
				m = v
			}
		}
		var sum float32
		for i, v := range row {
			dst[i] = math32.Exp(v - m)
			sum += dst[i]
		}
		for i := range dst {
			dst[i] /= sum
		}
	}
	return out, nil
}
