package vision

import (
	"errors"
	"math"
	"testing"
)

func uniformRaster(w, h int, r, g, b byte) RasterImage {
	img := NewRasterImage(w, h)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
	}
	return img
}

func TestLetterboxPlan(t *testing.T) {
	tests := []struct {
		name               string
		w, h               int
		scale              float64
		contentW, contentH int
		offX, offY         float64
	}{
		{"landscape 720p", 1280, 720, 0.5, 640, 360, 0, 140},
		{"portrait 720p", 720, 1280, 0.5, 360, 640, 140, 0},
		{"square native", 640, 640, 1, 640, 640, 0, 0},
		{"square upscale", 100, 100, 6.4, 640, 640, 0, 0},
		{"vga", 640, 480, 1, 640, 480, 0, 80},
		{"thin strip", 1000, 3, 0.64, 640, 2, 0, 319},
	}

	r := NewLetterboxResizer(DefaultInputSize)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb := r.Plan(tt.w, tt.h)
			if math.Abs(lb.Scale-tt.scale) > 1e-9 {
				t.Errorf("Scale = %v, expected %v", lb.Scale, tt.scale)
			}
			if lb.ContentWidth != tt.contentW || lb.ContentHeight != tt.contentH {
				t.Errorf("content = %dx%d, expected %dx%d", lb.ContentWidth, lb.ContentHeight, tt.contentW, tt.contentH)
			}
			if lb.OffsetX != tt.offX || lb.OffsetY != tt.offY {
				t.Errorf("offset = (%v,%v), expected (%v,%v)", lb.OffsetX, lb.OffsetY, tt.offX, tt.offY)
			}
		})
	}
}

func TestLetterboxPlan_Invariants(t *testing.T) {
	r := NewLetterboxResizer(DefaultInputSize)
	for w := 1; w <= 2000; w += 137 {
		for h := 1; h <= 2000; h += 211 {
			lb := r.Plan(w, h)
			s := float64(lb.TargetSize)

			if got := lb.Scale * float64(max(w, h)); math.Abs(got-s) > 1e-6 {
				t.Fatalf("%dx%d: scale*max = %v, expected %v", w, h, got, s)
			}
			if lb.OffsetX < 0 || lb.OffsetY < 0 {
				t.Fatalf("%dx%d: negative offset (%v,%v)", w, h, lb.OffsetX, lb.OffsetY)
			}
			if math.Abs(lb.OffsetX*2+lb.Scale*float64(w)-s) > 2 {
				t.Fatalf("%dx%d: horizontal padding not centered: %+v", w, h, lb)
			}
			if math.Abs(lb.OffsetY*2+lb.Scale*float64(h)-s) > 2 {
				t.Fatalf("%dx%d: vertical padding not centered: %+v", w, h, lb)
			}
			if int(lb.OffsetX)+lb.ContentWidth > lb.TargetSize || int(lb.OffsetY)+lb.ContentHeight > lb.TargetSize {
				t.Fatalf("%dx%d: content overflows canvas: %+v", w, h, lb)
			}
		}
	}
}

func TestLetterboxResize_ContentRegion(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"landscape downscale", 1280, 720},
		{"portrait downscale", 360, 480},
		{"upscale", 64, 48},
		{"square", 320, 320},
	}

	rz := NewLetterboxResizer(DefaultInputSize)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := uniformRaster(tt.w, tt.h, 10, 200, 30)
			out, lb, err := rz.Resize(src)
			if err != nil {
				t.Fatalf("Resize failed: %v", err)
			}
			if out.Width != DefaultInputSize || out.Height != DefaultInputSize {
				t.Fatalf("output is %dx%d", out.Width, out.Height)
			}

			x0, y0 := int(lb.OffsetX), int(lb.OffsetY)
			x1, y1 := x0+lb.ContentWidth, y0+lb.ContentHeight
			for y := 0; y < out.Height; y++ {
				for x := 0; x < out.Width; x++ {
					r, g, b := out.At(x, y)
					inside := x >= x0 && x < x1 && y >= y0 && y < y1
					if inside && (r != 10 || g != 200 || b != 30) {
						t.Fatalf("content pixel (%d,%d) = (%d,%d,%d)", x, y, r, g, b)
					}
					if !inside && (r != 0 || g != 0 || b != 0) {
						t.Fatalf("padding pixel (%d,%d) = (%d,%d,%d)", x, y, r, g, b)
					}
				}
			}
		})
	}
}

func TestLetterboxResize_SquareSymmetricOffsets(t *testing.T) {
	r := NewLetterboxResizer(320)
	_, lb, err := r.Resize(uniformRaster(100, 100, 1, 2, 3))
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if lb.OffsetX != lb.OffsetY {
		t.Errorf("Expected equal offsets, got (%v,%v)", lb.OffsetX, lb.OffsetY)
	}
}

func TestLetterboxResize_RejectsMalformedRaster(t *testing.T) {
	r := NewLetterboxResizer(DefaultInputSize)
	_, _, err := r.Resize(RasterImage{Width: 10, Height: 10, Pix: make([]byte, 10)})
	var sme *ShapeMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("Expected ShapeMismatchError, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	// 3x2 raster, each pixel tagged with its index.
	src := NewRasterImage(3, 2)
	for i := 0; i < 6; i++ {
		src.Pix[i*3] = byte(i + 1)
	}

	same, err := Rotate(src, Rotate0)
	if err != nil || same.Width != 3 {
		t.Fatalf("Rotate0 failed: %v", err)
	}

	r180, err := Rotate(src, Rotate180)
	if err != nil {
		t.Fatalf("Rotate180 failed: %v", err)
	}
	if r, _, _ := r180.At(0, 0); r != 6 {
		t.Errorf("Rotate180 top-left = %d, expected 6", r)
	}

	r90, err := Rotate(src, Rotate90)
	if err != nil {
		t.Fatalf("Rotate90 failed: %v", err)
	}
	if r90.Width != 2 || r90.Height != 3 {
		t.Fatalf("Rotate90 size = %dx%d", r90.Width, r90.Height)
	}
	// Clockwise: the old bottom-left corner becomes the top-left.
	if r, _, _ := r90.At(0, 0); r != 4 {
		t.Errorf("Rotate90 top-left = %d, expected 4", r)
	}

	if _, err := ParseRotation(45); err == nil {
		t.Error("Expected error for 45 degrees")
	}
}
