// Package render draws overlay boxes onto rasters for offline output.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/daverlon/KotlinYOLO/internal/labels"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

const (
	boxThickness = 3
	fontScale    = 0.5
	textPadding  = 2
)

var colorBlack = color.RGBA{A: 0xff}

// Annotate draws boxes (display pixels equal to raster pixels) with captions
// on a copy of img and returns it as a BGR Mat. The caller closes the Mat.
func Annotate(img vision.RasterImage, boxes []vision.RenderedBox, names *labels.Set) (gocv.Mat, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*3 {
		return gocv.Mat{}, &vision.ShapeMismatchError{
			What:     "annotate raster",
			Expected: []int{img.Height, img.Width, 3},
			Got:      []int{len(img.Pix)},
		}
	}

	rgb, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to wrap raster: %w", err)
	}
	defer rgb.Close()

	mat := gocv.NewMat()
	if err := gocv.CvtColor(rgb, &mat, gocv.ColorRGBToBGR); err != nil {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("failed to convert raster to BGR: %w", err)
	}

	for _, b := range boxes {
		if err := drawBox(&mat, b, names); err != nil {
			mat.Close()
			return gocv.Mat{}, err
		}
	}
	return mat, nil
}

func drawBox(mat *gocv.Mat, b vision.RenderedBox, names *labels.Set) error {
	// gocv colours are given as RGBA and converted to BGR internally.
	c := labels.Color(b.ClassID)
	rect := image.Rect(int(b.X), int(b.Y), int(b.X+b.W), int(b.Y+b.H))
	if err := gocv.Rectangle(mat, rect, c, boxThickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	caption := names.Caption(b.ClassID, b.Confidence)
	size := gocv.GetTextSize(caption, gocv.FontHersheySimplex, fontScale, 1)
	bg := image.Rect(rect.Min.X, rect.Min.Y-size.Y-2*textPadding, rect.Min.X+size.X+2*textPadding, rect.Min.Y)
	if err := gocv.Rectangle(mat, bg, c, -1); err != nil {
		return fmt.Errorf("failed to draw caption background: %w", err)
	}
	err := gocv.PutText(mat, caption, image.Pt(bg.Min.X+textPadding, bg.Max.Y-textPadding),
		gocv.FontHersheySimplex, fontScale, colorBlack, 1)
	if err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

// EncodeJPEG annotates img and returns the JPEG bytes.
func EncodeJPEG(img vision.RasterImage, boxes []vision.RenderedBox, names *labels.Set) ([]byte, error) {
	mat, err := Annotate(img, boxes, names)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// LoadRaster reads an image file into an RGB raster.
func LoadRaster(path string) (vision.RasterImage, error) {
	bgr := gocv.IMRead(path, gocv.IMReadColor)
	if bgr.Empty() {
		return vision.RasterImage{}, fmt.Errorf("failed to read image %s", path)
	}
	defer bgr.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB); err != nil {
		return vision.RasterImage{}, fmt.Errorf("failed to convert %s to RGB: %w", path, err)
	}

	img := vision.RasterImage{Width: rgb.Cols(), Height: rgb.Rows(), Pix: rgb.ToBytes()}
	if len(img.Pix) != img.Width*img.Height*3 {
		return vision.RasterImage{}, fmt.Errorf("unexpected pixel layout in %s", path)
	}
	return img, nil
}
