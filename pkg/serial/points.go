// pkg/serial/points.go - Delta-coded point serialization
package serial

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"maptile-reader/pkg/geo"
)

// CodingParams fixes the grid precision and the delta base point for a
// point run. Points are quantized onto a 2^CoordBits x 2^CoordBits grid
// covering the mercator square.
type CodingParams struct {
	coordBits uint
	baseU     uint64
	baseV     uint64
}

// NewCodingParams creates params with the given precision and base point.
func NewCodingParams(coordBits uint, base orb.Point) CodingParams {
	cp := CodingParams{coordBits: coordBits}
	cp.SetBasePoint(base)
	return cp
}

// CoordBits returns the grid precision in bits per axis.
func (cp CodingParams) CoordBits() uint { return cp.coordBits }

// BasePoint returns the base point, rounded to the grid.
func (cp CodingParams) BasePoint() orb.Point {
	return gridToPoint(cp.baseU, cp.baseV, cp.coordBits)
}

// SetBasePoint rebinds the delta base to p.
func (cp *CodingParams) SetBasePoint(p orb.Point) {
	cp.baseU, cp.baseV = pointToGrid(p, cp.coordBits)
}

func gridScale(coordBits uint) float64 {
	return float64(uint64(1)<<coordBits-1) / geo.Range
}

func pointToGrid(p orb.Point, coordBits uint) (uint64, uint64) {
	scale := gridScale(coordBits)
	u := math.Round((p[0] - geo.MinX) * scale)
	v := math.Round((p[1] - geo.MinY) * scale)
	max := float64(uint64(1)<<coordBits - 1)
	return uint64(math.Min(math.Max(u, 0), max)), uint64(math.Min(math.Max(v, 0), max))
}

func gridToPoint(u, v uint64, coordBits uint) orb.Point {
	scale := gridScale(coordBits)
	return orb.Point{geo.MinX + float64(u)/scale, geo.MinY + float64(v)/scale}
}

// LoadPoint reads one point delta-coded against the params base point.
func LoadPoint(src *ByteSource, cp CodingParams) (orb.Point, error) {
	du, err := src.ReadVarInt()
	if err != nil {
		return orb.Point{}, err
	}
	dv, err := src.ReadVarInt()
	if err != nil {
		return orb.Point{}, err
	}
	u := uint64(int64(cp.baseU) + du)
	v := uint64(int64(cp.baseV) + dv)
	return gridToPoint(u, v, cp.coordBits), nil
}

// LoadPointRun reads count points forming a delta chain: the first point is
// coded against the params base, each subsequent one against its
// predecessor.
func LoadPointRun(src *ByteSource, count int, cp CodingParams) ([]orb.Point, error) {
	points := make([]orb.Point, 0, count)
	u, v := cp.baseU, cp.baseV
	for i := 0; i < count; i++ {
		du, err := src.ReadVarInt()
		if err != nil {
			return nil, fmt.Errorf("point %d of %d: %w", i, count, err)
		}
		dv, err := src.ReadVarInt()
		if err != nil {
			return nil, fmt.Errorf("point %d of %d: %w", i, count, err)
		}
		u = uint64(int64(u) + du)
		v = uint64(int64(v) + dv)
		points = append(points, gridToPoint(u, v, cp.coordBits))
	}
	return points, nil
}

// LoadOuterRun reads a varint point count followed by a delta chain coded
// against the params base point.
func LoadOuterRun(src *ByteSource, cp CodingParams) ([]orb.Point, error) {
	count, err := src.ReadVarUint()
	if err != nil {
		return nil, err
	}
	return LoadPointRun(src, int(count), cp)
}

// AppendPoint appends one point delta-coded against the params base and
// returns the params rebound to the written point, for chaining.
func AppendPoint(buf []byte, p orb.Point, cp CodingParams) ([]byte, CodingParams) {
	u, v := pointToGrid(p, cp.coordBits)
	buf = binary.AppendUvarint(buf, EncodeZigZag(int64(u)-int64(cp.baseU)))
	buf = binary.AppendUvarint(buf, EncodeZigZag(int64(v)-int64(cp.baseV)))
	cp.baseU, cp.baseV = u, v
	return buf, cp
}

// AppendPointRun appends a delta chain of points against the params base.
func AppendPointRun(buf []byte, points []orb.Point, cp CodingParams) []byte {
	for _, p := range points {
		buf, cp = AppendPoint(buf, p, cp)
	}
	return buf
}

// AppendOuterRun appends a varint point count followed by the delta chain.
func AppendOuterRun(buf []byte, points []orb.Point, cp CodingParams) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(points)))
	return AppendPointRun(buf, points, cp)
}

// AppendString appends a varint length prefix and the string bytes.
func AppendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}
