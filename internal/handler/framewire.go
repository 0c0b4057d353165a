package handler

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// Camera frames travel as one binary websocket message, little endian:
//
//	magic "YUV1" | width u32 | height u32 | seq u64 | timestamp unix-nanos i64
//	then for Y, U, V: rowStride u32 | pixelStride u32 | length u32 | bytes
const (
	frameMagic        = "YUV1"
	frameHeaderSize   = 4 + 4 + 4 + 8 + 8
	planeHeaderSize   = 4 + 4 + 4
	maxFrameDimension = 1 << 14
)

// EncodeFrame serializes f in the camera wire format.
func EncodeFrame(f vision.RawFrame) []byte {
	size := frameHeaderSize
	for _, p := range []vision.Plane{f.Y, f.U, f.V} {
		size += planeHeaderSize + len(p.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, frameMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.Width))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.Height))
	buf = binary.LittleEndian.AppendUint64(buf, f.Seq)
	var ts int64
	if !f.Timestamp.IsZero() {
		ts = f.Timestamp.UnixNano()
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(ts))

	for _, p := range []vision.Plane{f.Y, f.U, f.V} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.RowStride))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.PixelStride))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Data)))
		buf = append(buf, p.Data...)
	}
	return buf
}

// DecodeFrame parses one wire message. Plane data aliases msg. The plane
// geometry itself is checked later by ingest.
func DecodeFrame(msg []byte) (vision.RawFrame, error) {
	if len(msg) < frameHeaderSize {
		return vision.RawFrame{}, wireError("message too short: %d bytes", len(msg))
	}
	if string(msg[:4]) != frameMagic {
		return vision.RawFrame{}, wireError("bad magic %q", msg[:4])
	}

	le := binary.LittleEndian
	f := vision.RawFrame{
		Width:  int(le.Uint32(msg[4:])),
		Height: int(le.Uint32(msg[8:])),
		Seq:    le.Uint64(msg[12:]),
	}
	if ts := int64(le.Uint64(msg[20:])); ts != 0 {
		f.Timestamp = time.Unix(0, ts)
	}
	if f.Width > maxFrameDimension || f.Height > maxFrameDimension {
		return vision.RawFrame{}, wireError("frame %dx%d exceeds %d", f.Width, f.Height, maxFrameDimension)
	}

	rest := msg[frameHeaderSize:]
	planes := []*vision.Plane{&f.Y, &f.U, &f.V}
	for i, p := range planes {
		if len(rest) < planeHeaderSize {
			return vision.RawFrame{}, wireError("plane %d header truncated", i)
		}
		p.RowStride = int(le.Uint32(rest[0:]))
		p.PixelStride = int(le.Uint32(rest[4:]))
		n := int(le.Uint32(rest[8:]))
		rest = rest[planeHeaderSize:]
		if n > len(rest) {
			return vision.RawFrame{}, wireError("plane %d declares %d bytes, %d left", i, n, len(rest))
		}
		p.Data = rest[:n:n]
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return vision.RawFrame{}, wireError("%d trailing bytes", len(rest))
	}
	return f, nil
}

func wireError(format string, args ...interface{}) error {
	return &vision.FrameFormatError{Reason: "wire: " + fmt.Sprintf(format, args...)}
}
