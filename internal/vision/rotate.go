package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Rotation is a clockwise sensor rotation in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// ParseRotation accepts 0, 90, 180 or 270.
func ParseRotation(deg int) (Rotation, error) {
	switch r := Rotation(deg); r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return r, nil
	}
	return Rotate0, fmt.Errorf("unsupported rotation %d", deg)
}

// Rotate turns the raster clockwise by r. Rotate0 returns img unchanged.
func Rotate(img RasterImage, r Rotation) (RasterImage, error) {
	var flag gocv.RotateFlag
	switch r {
	case Rotate0:
		return img, nil
	case Rotate90:
		flag = gocv.Rotate90Clockwise
	case Rotate180:
		flag = gocv.Rotate180Clockwise
	case Rotate270:
		flag = gocv.Rotate90CounterClockwise
	default:
		return RasterImage{}, fmt.Errorf("unsupported rotation %d", r)
	}

	src, err := matFromRaster(img)
	if err != nil {
		return RasterImage{}, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Rotate(src, &dst, flag)

	return rasterFromMat(dst)
}
