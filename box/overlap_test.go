package box

import (
	"math"
	"testing"
)

func TestIntersectionMatrix(t *testing.T) {
	a := []float32{
		0, 0, 10, 10,
		5, 5, 15, 15,
	}
	b := []float32{
		0, 0, 10, 10,
		20, 20, 30, 30,
		8, 8, 12, 12,
	}

	inter, err := Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if s := inter.Shape(); s[0] != 2 || s[1] != 3 {
		t.Fatalf("Intersection() shape = %v, want (2, 3)", s)
	}

	want := []float32{
		100, 0, 4, // [0,0,10,10] vs each of b
		25, 0, 16, // [5,5,15,15] vs each of b
	}
	got := inter.Data().([]float32)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-5 {
			t.Errorf("Intersection()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIoUMatrix(t *testing.T) {
	a := []float32{
		0, 0, 10, 10,
		5, 5, 15, 15,
	}
	b := []float32{
		0, 0, 10, 10,
		5, 5, 15, 15,
	}

	iou, err := IoU(a, b)
	if err != nil {
		t.Fatalf("IoU() error: %v", err)
	}
	got := iou.Data().([]float32)

	// Self-IoU on the diagonal is exactly 1.
	if got[0] != 1 || got[3] != 1 {
		t.Errorf("diagonal = %v, %v, want 1, 1", got[0], got[3])
	}
	// Off-diagonal: 25 / (100 + 100 - 25).
	want := float32(25.0 / 175.0)
	if math.Abs(float64(got[1]-want)) > 1e-5 {
		t.Errorf("IoU[0,1] = %v, want %v", got[1], want)
	}
	if math.Abs(float64(got[2]-want)) > 1e-5 {
		t.Errorf("IoU[1,0] = %v, want %v", got[2], want)
	}

	// All entries stay in [0, 1].
	for i, v := range got {
		if v < 0 || v > 1 {
			t.Errorf("IoU[%d] = %v outside [0, 1]", i, v)
		}
	}
}

func TestIoURectangularShapes(t *testing.T) {
	// One-to-many comparison must not assume square inputs.
	a := []float32{0, 0, 10, 10}
	b := []float32{
		0, 0, 10, 10,
		1, 1, 11, 11,
		50, 50, 60, 60,
	}
	iou, err := IoU(a, b)
	if err != nil {
		t.Fatalf("IoU() error: %v", err)
	}
	if s := iou.Shape(); s[0] != 1 || s[1] != 3 {
		t.Fatalf("IoU() shape = %v, want (1, 3)", s)
	}
	got := iou.Data().([]float32)
	if got[0] != 1 {
		t.Errorf("IoU[0,0] = %v, want 1", got[0])
	}
	if want := float32(81.0 / 119.0); math.Abs(float64(got[1]-want)) > 1e-4 {
		t.Errorf("IoU[0,1] = %v, want %v", got[1], want)
	}
	if got[2] != 0 {
		t.Errorf("IoU[0,2] = %v, want 0", got[2])
	}
}

func TestIoUDegenerateUnion(t *testing.T) {
	// Zero-area against zero-area is defined as 0, never NaN.
	a := []float32{5, 5, 5, 5}
	iou, err := IoU(a, a)
	if err != nil {
		t.Fatalf("IoU() error: %v", err)
	}
	got := iou.Data().([]float32)[0]
	if math.IsNaN(float64(got)) || got != 0 {
		t.Errorf("IoU of zero-area boxes = %v, want 0", got)
	}
}

func TestOverlapRejectsMalformedSets(t *testing.T) {
	if _, err := Intersection(make([]float32, 6), make([]float32, 4)); err == nil {
		t.Error("Intersection() accepted a malformed first set")
	}
	if _, err := IoU(make([]float32, 4), make([]float32, 9)); err == nil {
		t.Error("IoU() accepted a malformed second set")
	}
}
