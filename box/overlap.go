package box

import (
	"gorgonia.org/tensor"
)

// Intersection computes the pairwise intersection area of two corner-form
// box sets. The result is an M×N Float32 matrix where entry (i, j) is the
// overlap area of box i from a and box j from b. The sets do not need to
// be the same size.
//
// Arguments:
//   - a: Corner-form box set of M boxes.
//   - b: Corner-form box set of N boxes.
//
// Returns:
//   - An M×N *tensor.Dense of intersection areas.
//   - An error if either set is malformed.
func Intersection(a, b []float32) (*tensor.Dense, error) {
	m, err := Count(a)
	if err != nil {
		return nil, err
	}
	n, err := Count(b)
	if err != nil {
		return nil, err
	}

	backing := make([]float32, m*n)
	for i := 0; i < m; i++ {
		ax1, ay1 := a[i*Stride], a[i*Stride+1]
		ax2, ay2 := a[i*Stride+2], a[i*Stride+3]
		row := backing[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			iw := min(ax2, b[j*Stride+2]) - max(ax1, b[j*Stride])
			ih := min(ay2, b[j*Stride+3]) - max(ay1, b[j*Stride+1])
			if iw <= 0 || ih <= 0 {
				continue
			}
			row[j] = iw * ih
		}
	}
	return tensor.New(tensor.WithShape(m, n), tensor.WithBacking(backing)), nil
}

// IoU computes the pairwise Intersection over Union of two corner-form
// box sets:
//
//	IoU(i, j) = inter(i, j) / (area(a_i) + area(b_j) - inter(i, j))
//
// Entries where the union is empty are 0 rather than NaN.
//
// Arguments:
//   - a: Corner-form box set of M boxes.
//   - b: Corner-form box set of N boxes.
//
// Returns:
//   - An M×N *tensor.Dense of IoU values in [0, 1].
//   - An error if either set is malformed.
func IoU(a, b []float32) (*tensor.Dense, error) {
	inter, err := Intersection(a, b)
	if err != nil {
		return nil, err
	}
	m, _ := Count(a)
	n, _ := Count(b)

	areaB := make([]float32, n)
	for j := 0; j < n; j++ {
		areaB[j] = Area(At(b, j))
	}

	data := inter.Data().([]float32)
	for i := 0; i < m; i++ {
		areaA := Area(At(a, i))
		row := data[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			union := areaA + areaB[j] - row[j]
			if union <= 0 {
				row[j] = 0
				continue
			}
			row[j] /= union
		}
	}
	return inter, nil
}
