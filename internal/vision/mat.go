package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

func checkRaster(what string, img RasterImage) error {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*3 {
		return &ShapeMismatchError{
			What:     what,
			Expected: []int{img.Height, img.Width, 3},
			Got:      []int{len(img.Pix)},
		}
	}
	return nil
}

// matFromRaster wraps an RGB raster in an 8UC3 Mat. The caller closes it.
func matFromRaster(img RasterImage) (gocv.Mat, error) {
	if err := checkRaster("raster", img); err != nil {
		return gocv.Mat{}, err
	}
	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create mat: %w", err)
	}
	return mat, nil
}

// rasterFromMat copies an 8UC3 Mat out into a raster.
func rasterFromMat(mat gocv.Mat) (RasterImage, error) {
	img := RasterImage{Width: mat.Cols(), Height: mat.Rows(), Pix: mat.ToBytes()}
	if err := checkRaster("mat", img); err != nil {
		return RasterImage{}, err
	}
	return img, nil
}
