// Package vision holds the per-frame detection core: sensor frame ingest,
// letterbox resize, tensor packing, prediction decoding, suppression and
// remapping into display space.
package vision

import "time"

// Plane is one image plane of a camera frame. Sample (row, col) lives at
// Data[row*RowStride + col*PixelStride].
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// RawFrame is a planar 4:2:0 camera frame as delivered by the camera boundary.
// Release, when set, hands the underlying buffers back to the producer and is
// called exactly once, either after ingest or when the frame is dropped.
type RawFrame struct {
	Width     int
	Height    int
	Y         Plane
	U         Plane
	V         Plane
	Seq       uint64
	Timestamp time.Time
	Release   func()
}

// RasterImage is an interleaved RGB raster, row-major, 3 bytes per pixel.
type RasterImage struct {
	Width  int
	Height int
	Pix    []byte
}

// NewRasterImage allocates a zeroed (black) raster.
func NewRasterImage(width, height int) RasterImage {
	return RasterImage{Width: width, Height: height, Pix: make([]byte, width*height*3)}
}

// At returns the RGB triple at (x, y).
func (r RasterImage) At(x, y int) (uint8, uint8, uint8) {
	i := (y*r.Width + x) * 3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// LetterboxTransform describes how a source raster was placed inside the
// square model input: content = source*Scale, pasted at (OffsetX, OffsetY).
type LetterboxTransform struct {
	Scale         float64 `json:"scale"`
	OffsetX       float64 `json:"offsetX"`
	OffsetY       float64 `json:"offsetY"`
	TargetSize    int     `json:"targetSize"`
	SourceWidth   int     `json:"sourceWidth"`
	SourceHeight  int     `json:"sourceHeight"`
	ContentWidth  int     `json:"contentWidth"`
	ContentHeight int     `json:"contentHeight"`
}

// InputTensor is a channel-major float tensor of logical shape (1, 3, Size, Size)
// with values in [0, 1].
type InputTensor struct {
	Size int
	Data []float32
}

// Shape returns the logical NCHW shape.
func (t InputTensor) Shape() []int {
	return []int{1, 3, t.Size, t.Size}
}

// RawPrediction is the engine output of logical shape (1, 4+numClasses, anchors),
// attribute-major: Data[attr*anchors + anchor].
type RawPrediction struct {
	Shape []int
	Data  []float32
}

// Detection is a center-form box in model input pixels.
type Detection struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	W          float32 `json:"w"`
	H          float32 `json:"h"`
	Confidence float32 `json:"confidence"`
	ClassID    int     `json:"classId"`
}

// Corners returns the (left, top, right, bottom) form of the box.
func (d Detection) Corners() (x1, y1, x2, y2 float32) {
	return d.X - d.W/2, d.Y - d.H/2, d.X + d.W/2, d.Y + d.H/2
}

// RenderedBox is a top-left form box in display pixels.
type RenderedBox struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	W          float32 `json:"w"`
	H          float32 `json:"h"`
	Confidence float32 `json:"confidence"`
	ClassID    int     `json:"classId"`
}
