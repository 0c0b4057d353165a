package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// PackTensor converts a size x size RGB raster into a (1, 3, size, size)
// channel-major tensor with every byte scaled by 1/255.
func PackTensor(img RasterImage, size int) (InputTensor, error) {
	if img.Width != size || img.Height != size || len(img.Pix) != size*size*3 {
		return InputTensor{}, &ShapeMismatchError{
			What:     "tensor source raster",
			Expected: []int{size, size, 3},
			Got:      []int{img.Height, img.Width, len(img.Pix)},
		}
	}

	mat, err := matFromRaster(img)
	if err != nil {
		return InputTensor{}, err
	}
	defer mat.Close()

	// The raster is already RGB, so no channel swap.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return InputTensor{}, fmt.Errorf("failed to read blob: %w", err)
	}
	if len(data) != 3*size*size {
		return InputTensor{}, &ShapeMismatchError{
			What:     "input tensor",
			Expected: []int{1, 3, size, size},
			Got:      blob.Size(),
		}
	}

	out := make([]float32, len(data))
	copy(out, data)
	return InputTensor{Size: size, Data: out}, nil
}
