package vision

import "image/color"

// Validate checks the plane geometry of a 4:2:0 frame against its declared size.
func (f RawFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return frameFormatf("invalid size %dx%d", f.Width, f.Height)
	}
	cw, ch := chromaSize(f.Width, f.Height)
	if err := checkPlane("Y", f.Y, f.Width, f.Height); err != nil {
		return err
	}
	if err := checkPlane("U", f.U, cw, ch); err != nil {
		return err
	}
	return checkPlane("V", f.V, cw, ch)
}

func chromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

func checkPlane(name string, p Plane, cols, rows int) error {
	if p.PixelStride < 1 {
		return frameFormatf("%s plane pixel stride %d", name, p.PixelStride)
	}
	rowSpan := (cols-1)*p.PixelStride + 1
	if p.RowStride < rowSpan {
		return frameFormatf("%s plane row stride %d shorter than row span %d", name, p.RowStride, rowSpan)
	}
	need := (rows-1)*p.RowStride + rowSpan
	if len(p.Data) < need {
		return frameFormatf("%s plane has %d bytes, need %d for %dx%d", name, len(p.Data), need, cols, rows)
	}
	return nil
}

// IngestFrame converts a planar 4:2:0 frame into an RGB raster at full luma
// resolution. Each luma sample is paired with the chroma sample of its 2x2 block.
// Conversion is full-range BT.601 (JFIF), the same coefficients the phone camera
// path produces.
func IngestFrame(f RawFrame) (RasterImage, error) {
	if err := f.Validate(); err != nil {
		return RasterImage{}, err
	}

	out := NewRasterImage(f.Width, f.Height)
	i := 0
	for y := 0; y < f.Height; y++ {
		yRow := y * f.Y.RowStride
		uRow := (y / 2) * f.U.RowStride
		vRow := (y / 2) * f.V.RowStride
		for x := 0; x < f.Width; x++ {
			luma := f.Y.Data[yRow+x*f.Y.PixelStride]
			cb := f.U.Data[uRow+(x/2)*f.U.PixelStride]
			cr := f.V.Data[vRow+(x/2)*f.V.PixelStride]

			r, g, b := color.YCbCrToRGB(luma, cb, cr)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			i += 3
		}
	}
	return out, nil
}

// FrameFromRaster encodes an RGB raster as a tightly packed I420 frame. Chroma is
// the rounded mean of each 2x2 block. Used to feed still images through the
// camera path.
func FrameFromRaster(img RasterImage) RawFrame {
	cw, ch := chromaSize(img.Width, img.Height)
	yPlane := make([]byte, img.Width*img.Height)
	uPlane := make([]byte, cw*ch)
	vPlane := make([]byte, cw*ch)
	uSum := make([]int, cw*ch)
	vSum := make([]int, cw*ch)
	count := make([]int, cw*ch)

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.At(x, y)
			yy, cb, cr := color.RGBToYCbCr(r, g, b)
			yPlane[y*img.Width+x] = yy
			c := (y/2)*cw + x/2
			uSum[c] += int(cb)
			vSum[c] += int(cr)
			count[c]++
		}
	}
	for c := range count {
		if count[c] == 0 {
			continue
		}
		uPlane[c] = uint8((uSum[c] + count[c]/2) / count[c])
		vPlane[c] = uint8((vSum[c] + count[c]/2) / count[c])
	}

	return RawFrame{
		Width:  img.Width,
		Height: img.Height,
		Y:      Plane{Data: yPlane, RowStride: img.Width, PixelStride: 1},
		U:      Plane{Data: uPlane, RowStride: cw, PixelStride: 1},
		V:      Plane{Data: vPlane, RowStride: cw, PixelStride: 1},
	}
}
