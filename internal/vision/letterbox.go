package vision

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// DefaultInputSize is the square model input edge used by YOLOv8-style models.
const DefaultInputSize = 640

// LetterboxResizer fits rasters into a TargetSize square without cropping,
// padding the short side with Border.
type LetterboxResizer struct {
	TargetSize int
	Border     color.RGBA
}

// NewLetterboxResizer returns a resizer with a black border.
func NewLetterboxResizer(size int) *LetterboxResizer {
	return &LetterboxResizer{TargetSize: size, Border: color.RGBA{A: 0xff}}
}

// Plan computes the transform for a source of the given size without touching
// any pixels. Content size is rounded and offsets center it (floor).
func (r *LetterboxResizer) Plan(srcW, srcH int) LetterboxTransform {
	s := r.TargetSize
	scale := float64(s) / float64(max(srcW, srcH))
	newW := clampInt(int(math.Round(float64(srcW)*scale)), 1, s)
	newH := clampInt(int(math.Round(float64(srcH)*scale)), 1, s)

	return LetterboxTransform{
		Scale:         scale,
		OffsetX:       float64((s - newW) / 2),
		OffsetY:       float64((s - newH) / 2),
		TargetSize:    s,
		SourceWidth:   srcW,
		SourceHeight:  srcH,
		ContentWidth:  newW,
		ContentHeight: newH,
	}
}

// Resize produces the TargetSize x TargetSize letterboxed raster and the
// transform that placed the source in it. Scaling is bilinear.
func (r *LetterboxResizer) Resize(img RasterImage) (RasterImage, LetterboxTransform, error) {
	if err := checkRaster("letterbox source", img); err != nil {
		return RasterImage{}, LetterboxTransform{}, err
	}
	lb := r.Plan(img.Width, img.Height)

	src, err := matFromRaster(img)
	if err != nil {
		return RasterImage{}, LetterboxTransform{}, err
	}
	defer src.Close()

	content := src
	if lb.ContentWidth != img.Width || lb.ContentHeight != img.Height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, image.Pt(lb.ContentWidth, lb.ContentHeight), 0, 0, gocv.InterpolationLinear)
		content = resized
	}

	border := gocv.NewScalar(float64(r.Border.R), float64(r.Border.G), float64(r.Border.B), 0)
	canvas := gocv.NewMatWithSizeFromScalar(border, lb.TargetSize, lb.TargetSize, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	left, top := int(lb.OffsetX), int(lb.OffsetY)
	roi := canvas.Region(image.Rect(left, top, left+lb.ContentWidth, top+lb.ContentHeight))
	content.CopyTo(&roi)
	roi.Close()

	out, err := rasterFromMat(canvas)
	if err != nil {
		return RasterImage{}, LetterboxTransform{}, err
	}
	return out, lb, nil
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
