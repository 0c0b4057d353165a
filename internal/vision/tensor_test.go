package vision

import (
	"errors"
	"math"
	"testing"
)

func TestPackTensor_ChannelMajorScaled(t *testing.T) {
	const size = 4
	img := NewRasterImage(size, size)
	for i := range img.Pix {
		img.Pix[i] = byte(i * 5)
	}

	tensor, err := PackTensor(img, size)
	if err != nil {
		t.Fatalf("PackTensor failed: %v", err)
	}
	if len(tensor.Data) != 3*size*size {
		t.Fatalf("Expected %d values, got %d", 3*size*size, len(tensor.Data))
	}
	shape := tensor.Shape()
	if shape[0] != 1 || shape[1] != 3 || shape[2] != size || shape[3] != size {
		t.Errorf("Shape = %v", shape)
	}

	for c := 0; c < 3; c++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				want := float64(img.Pix[(y*size+x)*3+c]) / 255.0
				got := float64(tensor.Data[c*size*size+y*size+x])
				if math.Abs(got-want) > 1e-6 {
					t.Fatalf("tensor[%d,%d,%d] = %v, expected %v", c, y, x, got, want)
				}
			}
		}
	}
}

func TestPackTensor_RangeIsUnit(t *testing.T) {
	img := uniformRaster(8, 8, 255, 0, 128)
	tensor, err := PackTensor(img, 8)
	if err != nil {
		t.Fatalf("PackTensor failed: %v", err)
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %v", i, v)
		}
	}
}

func TestPackTensor_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		img  RasterImage
	}{
		{"not square target", NewRasterImage(8, 4)},
		{"short buffer", RasterImage{Width: 8, Height: 8, Pix: make([]byte, 8)}},
		{"empty", RasterImage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PackTensor(tt.img, 8)
			var sme *ShapeMismatchError
			if !errors.As(err, &sme) {
				t.Fatalf("Expected ShapeMismatchError, got %v", err)
			}
		})
	}
}
