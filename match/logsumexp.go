package match

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// LogSumExp computes log(sum(exp(x))) along the last axis of a 2-D
// Float32 tensor, returning a (rows, 1) tensor. Each row is shifted by
// its own maximum before exponentiating, so large confidence logits
// (e.g. around 1000) reduce to a finite value instead of overflowing:
//
//	log(sum(exp(x - max(x)))) + max(x)
//
// This is the stable form the confidence loss uses to normalize raw
// class scores.
func LogSumExp(x *tensor.Dense) (*tensor.Dense, error) {
	shape := x.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("log-sum-exp expects a 2-D tensor, got shape %v", shape)
	}
	data, ok := x.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("log-sum-exp expects Float32, got %v", x.Dtype())
	}

	rows, cols := shape[0], shape[1]
	if cols == 0 {
		return nil, errors.New("log-sum-exp over zero columns")
	}
	out := make([]float32, rows)
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		m := row[0]
		for _, v := range row[1:] {
			if v > m {
				m = v
			}
		}
		var sum float32
		for _, v := range row {
			sum += math32.Exp(v - m)
		}
		out[r] = math32.Log(sum) + m
	}
	return tensor.New(tensor.WithShape(rows, 1), tensor.WithBacking(out)), nil
}
