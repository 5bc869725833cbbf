package opd

import (
	"encoding/binary"
	"math"
)

// CentroidRecordSize is the size of one centroid record: u32 parent id plus three f32 coordinates
const CentroidRecordSize = 16

type Centroid struct {
	// ParentID indexes the centroid hierarchy; cycles are not checked
	ParentID uint32
	// Offset is relative to the origin defined in the header
	Offset Point
}

// Position returns the centroid offset translated by origin
func (c Centroid) Position(origin Point) Point {
	return Point{
		X: origin.X + c.Offset.X,
		Y: origin.Y + c.Offset.Y,
		Z: origin.Z + c.Offset.Z,
	}
}

// DecodeCentroids reads exactly count centroid records from the start of buf.
//
// It returns the records in input order and the remainder of buf, which is the frame-data origin
func DecodeCentroids(buf []byte, count int) ([]Centroid, []byte, error) {
	if count < 0 || count > len(buf)/CentroidRecordSize {
		return nil, nil, truncatedError(0, count*CentroidRecordSize, len(buf), "centroid block")
	}
	size := count * CentroidRecordSize
	result := make([]Centroid, 0, count)
	for i := 0; i < count; i++ {
		base := i * CentroidRecordSize
		result = append(result, Centroid{
			ParentID: binary.BigEndian.Uint32(buf[base : base+4]),
			Offset: Point{
				X: math.Float32frombits(binary.BigEndian.Uint32(buf[base+4 : base+8])),
				Y: math.Float32frombits(binary.BigEndian.Uint32(buf[base+8 : base+12])),
				Z: math.Float32frombits(binary.BigEndian.Uint32(buf[base+12 : base+16])),
			},
		})
	}
	return result, buf[size:], nil
}
