package vision

import (
	"bytes"
	"errors"
	"image/color"
	"testing"
)

// tightFrame builds an I420 frame with per-pixel luma from lumaAt and per-block
// chroma from chromaAt.
func tightFrame(w, h int, lumaAt func(x, y int) byte, chromaAt func(cx, cy int) (byte, byte)) RawFrame {
	cw, ch := chromaSize(w, h)
	yp := make([]byte, w*h)
	up := make([]byte, cw*ch)
	vp := make([]byte, cw*ch)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			yp[y*w+x] = lumaAt(x, y)
		}
	}
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			up[cy*cw+cx], vp[cy*cw+cx] = chromaAt(cx, cy)
		}
	}
	return RawFrame{
		Width: w, Height: h,
		Y: Plane{Data: yp, RowStride: w, PixelStride: 1},
		U: Plane{Data: up, RowStride: cw, PixelStride: 1},
		V: Plane{Data: vp, RowStride: cw, PixelStride: 1},
	}
}

// paddedInterleaved re-lays the tight frame the way Android delivers it: padded
// luma rows and a single interleaved UV buffer with pixel stride 2.
func paddedInterleaved(f RawFrame, rowPad int) RawFrame {
	cw, ch := chromaSize(f.Width, f.Height)
	yStride := f.Width + rowPad
	yp := make([]byte, (f.Height-1)*yStride+f.Width)
	for y := 0; y < f.Height; y++ {
		copy(yp[y*yStride:], f.Y.Data[y*f.Width:(y+1)*f.Width])
	}

	cStride := cw*2 + rowPad
	uv := make([]byte, (ch-1)*cStride+(cw-1)*2+2)
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			uv[cy*cStride+cx*2] = f.U.Data[cy*cw+cx]
			uv[cy*cStride+cx*2+1] = f.V.Data[cy*cw+cx]
		}
	}

	return RawFrame{
		Width: f.Width, Height: f.Height,
		Y: Plane{Data: yp, RowStride: yStride, PixelStride: 1},
		U: Plane{Data: uv, RowStride: cStride, PixelStride: 2},
		V: Plane{Data: uv[1:], RowStride: cStride, PixelStride: 2},
	}
}

func gradientFrame(w, h int) RawFrame {
	return tightFrame(w, h,
		func(x, y int) byte { return byte(16 + (x*7+y*13)%220) },
		func(cx, cy int) (byte, byte) { return byte(60 + cx*11%120), byte(200 - cy*9%120) },
	)
}

func TestIngestFrame_Dimensions(t *testing.T) {
	sizes := []struct{ w, h int }{
		{2, 2}, {4, 4}, {6, 2}, {5, 3}, {1, 1}, {64, 48},
	}

	for _, s := range sizes {
		f := gradientFrame(s.w, s.h)
		img, err := IngestFrame(f)
		if err != nil {
			t.Fatalf("IngestFrame(%dx%d) failed: %v", s.w, s.h, err)
		}
		if img.Width != s.w || img.Height != s.h {
			t.Errorf("IngestFrame(%dx%d) produced %dx%d", s.w, s.h, img.Width, img.Height)
		}
		if len(img.Pix) != s.w*s.h*3 {
			t.Errorf("Expected %d bytes, got %d", s.w*s.h*3, len(img.Pix))
		}
	}
}

func TestIngestFrame_NeutralChromaIsGray(t *testing.T) {
	f := tightFrame(4, 4,
		func(x, y int) byte { return 128 },
		func(cx, cy int) (byte, byte) { return 128, 128 },
	)

	img, err := IngestFrame(f)
	if err != nil {
		t.Fatalf("IngestFrame failed: %v", err)
	}
	for i, v := range img.Pix {
		if v != 128 {
			t.Fatalf("Pix[%d] = %d, expected 128", i, v)
		}
	}
}

func TestIngestFrame_ChromaSharedPerBlock(t *testing.T) {
	f := gradientFrame(6, 4)
	img, err := IngestFrame(f)
	if err != nil {
		t.Fatalf("IngestFrame failed: %v", err)
	}

	cw, _ := chromaSize(6, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			c := (y/2)*cw + x/2
			wr, wg, wb := color.YCbCrToRGB(f.Y.Data[y*6+x], f.U.Data[c], f.V.Data[c])
			r, g, b := img.At(x, y)
			if r != wr || g != wg || b != wb {
				t.Errorf("pixel (%d,%d) = (%d,%d,%d), expected (%d,%d,%d)", x, y, r, g, b, wr, wg, wb)
			}
		}
	}
}

func TestIngestFrame_StridedPlanesMatchTight(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		rowPad int
	}{
		{"even no padding", 8, 6, 0},
		{"even with padding", 8, 6, 24},
		{"odd size", 7, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tight := gradientFrame(tt.w, tt.h)
			want, err := IngestFrame(tight)
			if err != nil {
				t.Fatalf("tight ingest failed: %v", err)
			}
			got, err := IngestFrame(paddedInterleaved(tight, tt.rowPad))
			if err != nil {
				t.Fatalf("strided ingest failed: %v", err)
			}
			if !bytes.Equal(want.Pix, got.Pix) {
				t.Error("strided frame decoded differently from tightly packed frame")
			}
		})
	}
}

func TestIngestFrame_FormatErrors(t *testing.T) {
	base := func() RawFrame { return gradientFrame(4, 4) }

	tests := []struct {
		name   string
		mutate func(f *RawFrame)
	}{
		{"zero width", func(f *RawFrame) { f.Width = 0 }},
		{"negative height", func(f *RawFrame) { f.Height = -2 }},
		{"short luma", func(f *RawFrame) { f.Y.Data = f.Y.Data[:10] }},
		{"short chroma", func(f *RawFrame) { f.V.Data = f.V.Data[:3] }},
		{"zero pixel stride", func(f *RawFrame) { f.U.PixelStride = 0 }},
		{"row stride below width", func(f *RawFrame) { f.Y.RowStride = 3 }},
		{"declared larger than planes", func(f *RawFrame) { f.Width, f.Height = 8, 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base()
			tt.mutate(&f)
			_, err := IngestFrame(f)
			var ffe *FrameFormatError
			if !errors.As(err, &ffe) {
				t.Fatalf("Expected FrameFormatError, got %v", err)
			}
			if ErrorKind(err) != KindFrameFormat {
				t.Errorf("ErrorKind = %q", ErrorKind(err))
			}
		})
	}
}

func TestFrameFromRaster_IngestRoundTrip(t *testing.T) {
	img := NewRasterImage(6, 4)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 200, 40, 90
	}

	f := FrameFromRaster(img)
	if err := f.Validate(); err != nil {
		t.Fatalf("FrameFromRaster produced invalid frame: %v", err)
	}
	back, err := IngestFrame(f)
	if err != nil {
		t.Fatalf("IngestFrame failed: %v", err)
	}
	for i := range img.Pix {
		diff := int(img.Pix[i]) - int(back.Pix[i])
		if diff < -3 || diff > 3 {
			t.Fatalf("channel %d drifted: %d -> %d", i, img.Pix[i], back.Pix[i])
		}
	}
}
