package nms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppressGreedy(t *testing.T) {
	// Box 1 overlaps box 0 at IoU ≈ 0.68 and is suppressed by it;
	// box 2 is disjoint and survives as the final lone candidate.
	boxes := []float32{
		0, 0, 10, 10,
		1, 1, 11, 11,
		50, 50, 60, 60,
	}
	scores := []float32{0.9, 0.8, 0.7}

	keep, count, err := Suppress(boxes, scores, Options{Threshold: 0.5, TopK: 200})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, keep)
	assert.Equal(t, 2, count)
}

func TestSuppressTwoBoxes(t *testing.T) {
	overlapping := []float32{
		0, 0, 10, 10,
		1, 1, 11, 11, // IoU ≈ 0.68
	}
	disjointish := []float32{
		0, 0, 10, 10,
		8, 8, 18, 18, // IoU = 4/196 ≈ 0.02
	}
	scores := []float32{0.6, 0.9}

	// Above the threshold only the higher-scoring box survives, and it
	// is selected first regardless of input order.
	keep, count, err := Suppress(overlapping, scores, Options{Threshold: 0.5, TopK: 200})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, keep)
	assert.Equal(t, 1, count)

	// Below the threshold both survive, highest score first.
	keep, count, err = Suppress(disjointish, scores, Options{Threshold: 0.5, TopK: 200})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, keep)
	assert.Equal(t, 2, count)
}

func TestSuppressTopK(t *testing.T) {
	// Three disjoint boxes, but only the two best scores are considered.
	boxes := []float32{
		0, 0, 10, 10,
		100, 100, 110, 110,
		200, 200, 210, 210,
	}
	scores := []float32{0.5, 0.9, 0.7}

	keep, count, err := Suppress(boxes, scores, Options{Threshold: 0.5, TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, keep)
	assert.Equal(t, 2, count)
}

func TestSuppressDistancePenalized(t *testing.T) {
	// Both pairs overlap at plain IoU 0.64. The concentric pair has no
	// center distance, so its DIoU score stays 0.64 and it is suppressed
	// at threshold 0.63. The laterally shifted pair has the same overlap but a
	// real center distance; the penalty drops its score to ≈ 0.612 and
	// both boxes survive.
	clustered := []float32{
		0, 0, 10, 10,
		1, 1, 9, 9,
	}
	separated := []float32{
		0, 0, 20, 10,
		4.3902439, 0, 24.3902439, 10,
	}
	scores := []float32{0.9, 0.8}
	opts := Options{Threshold: 0.63, TopK: 200, Method: DIoU}

	keep, count, err := Suppress(clustered, scores, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, keep)
	assert.Equal(t, 1, count)

	keep, count, err = Suppress(separated, scores, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, keep)
	assert.Equal(t, 2, count)

	// Plain overlap suppresses both pairs at the same threshold.
	opts.Method = Greedy
	keep, _, err = Suppress(separated, scores, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, keep)
}

func TestSuppressOpenCV(t *testing.T) {
	// Normalized [0, 1] coordinates, the form the detection layer feeds
	// in, with scores out of input order. Box 0 overlaps box 1 at
	// IoU = 0.875 and loses to its higher score; box 2 is disjoint and
	// survives; box 3 has the lowest score and falls to the TopK cut
	// before suppression even sees it. Kept indices must come back in
	// original-set terms, mapped through the sort permutation.
	boxes := []float32{
		0.1, 0.1, 0.4, 0.5,
		0.12, 0.1, 0.42, 0.5,
		0.6, 0.6, 0.9, 0.9,
		0.61, 0.6, 0.91, 0.9,
	}
	scores := []float32{0.6, 0.9, 0.7, 0.3}

	keep, count, err := Suppress(boxes, scores, Options{Threshold: 0.5, TopK: 3, Method: OpenCV})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, keep)
	assert.Equal(t, 2, count)

	// Same inputs, same answer from the in-process greedy policy.
	keep, count, err = Suppress(boxes, scores, Options{Threshold: 0.5, TopK: 3, Method: Greedy})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, keep)
	assert.Equal(t, 2, count)
}

func TestSuppressEmptyAndValidation(t *testing.T) {
	keep, count, err := Suppress(nil, nil, Options{Threshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, keep)
	assert.Zero(t, count)

	_, _, err = Suppress(make([]float32, 6), make([]float32, 1), Options{Threshold: 0.5})
	assert.Error(t, err, "boxes not a multiple of 4")

	_, _, err = Suppress(make([]float32, 8), make([]float32, 1), Options{Threshold: 0.5})
	assert.Error(t, err, "score count mismatch")
}

func TestSuppressSelectionOrder(t *testing.T) {
	// Kept indices come back in descending score order, not input order.
	boxes := []float32{
		0, 0, 10, 10,
		100, 0, 110, 10,
		0, 100, 10, 110,
	}
	scores := []float32{0.2, 0.9, 0.5}

	keep, _, err := Suppress(boxes, scores, Options{Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, keep)
}
