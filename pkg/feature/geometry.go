// pkg/feature/geometry.go - Geometry stages of the feature decoder
package feature

import (
	"fmt"

	"github.com/paulmach/orb"

	"maptile-reader/pkg/container"
	"maptile-reader/pkg/serial"
)

// ParseHeader2 reads the bit-packed geometry prefix: inner geometry inline
// or the per-scale outer geometry offset table.
func (f *Feature) ParseHeader2() error {
	if f.parsed.header2 {
		return nil
	}
	if err := f.ParseCommon(); err != nil {
		return err
	}

	geomType := f.GeomType()
	if geomType == GeomPoint {
		f.parsed.header2 = true
		return nil
	}

	src := serial.NewByteSource(f.data)
	if err := src.Skip(f.offsets.header2); err != nil {
		return fmt.Errorf("feature %d header2: %w", f.id, err)
	}
	bits := serial.NewBitSource(src)

	count, err := bits.Read(4)
	if err != nil {
		return fmt.Errorf("feature %d header2: %w", f.id, err)
	}
	var mask uint8
	if count == 0 {
		if mask, err = bits.Read(4); err != nil {
			return fmt.Errorf("feature %d header2: %w", f.id, err)
		}
	}
	bits.Align()

	cp := f.cont.DefaultCodingParams()

	switch geomType {
	case GeomLine:
		if count > 0 {
			if count < 2 {
				return fmt.Errorf("feature %d: inner line of %d points", f.id, count)
			}
			// Four 2-bit scale markers per mask byte, for the
			// intermediate points only.
			maskBytes := (int(count) - 2 + 3) / 4
			for i := 0; i < maskBytes; i++ {
				b, err := src.ReadByte()
				if err != nil {
					return fmt.Errorf("feature %d simplification mask: %w", f.id, err)
				}
				f.ptsSimpMask |= uint32(b) << (i * 8)
			}
			start := src.Pos()
			if f.points, err = serial.LoadPointRun(src, int(count), cp); err != nil {
				return fmt.Errorf("feature %d inner line: %w", f.id, err)
			}
			f.inner.points = src.Pos() - start
		} else {
			// Outer geometry: the first point of the polyline is
			// stored in the record.
			first, err := serial.LoadPoint(src, cp)
			if err != nil {
				return fmt.Errorf("feature %d outer line start: %w", f.id, err)
			}
			f.points = append(f.points, first)
			if f.ptsOffsets, err = f.readOffsets(src, mask); err != nil {
				return fmt.Errorf("feature %d line offsets: %w", f.id, err)
			}
		}

	case GeomArea:
		if count > 0 {
			strip := int(count) + 2
			start := src.Pos()
			if f.triangles, err = serial.LoadPointRun(src, strip, cp); err != nil {
				return fmt.Errorf("feature %d inner strip: %w", f.id, err)
			}
			f.inner.strips = src.Pos() - start
		} else {
			if f.trgOffsets, err = f.readOffsets(src, mask); err != nil {
				return fmt.Errorf("feature %d triangle offsets: %w", f.id, err)
			}
		}
	}

	f.inner.size = src.Pos() - f.offsets.header2
	f.parsed.header2 = true
	return nil
}

// readOffsets reads one varint per set mask bit, LSB first, into a table
// sized to the container's scales count.
func (f *Feature) readOffsets(src *serial.ByteSource, mask uint8) ([]uint32, error) {
	if mask == 0 {
		return nil, fmt.Errorf("empty outer geometry mask")
	}
	count := f.cont.ScalesCount()
	offsets := make([]uint32, count)
	for i := range offsets {
		offsets[i] = invalidOffset
	}

	ind := 0
	for mask > 0 {
		if mask&0x01 != 0 {
			if ind >= count {
				return nil, fmt.Errorf("offset mask bit %d beyond %d scales", ind, count)
			}
			v, err := src.ReadVarUint()
			if err != nil {
				return nil, err
			}
			offsets[ind] = uint32(v)
		}
		ind++
		mask >>= 1
	}
	return offsets, nil
}

// ResetGeometry rolls back the geometry stages so a different scale can be
// parsed without redoing types and common fields.
func (f *Feature) ResetGeometry() {
	f.points = nil
	f.triangles = nil

	if f.GeomType() != GeomPoint {
		f.limitRect = orb.Bound{}
		f.hasLimitRect = false
	}

	f.parsed.header2 = false
	f.parsed.points = false
	f.parsed.triangles = false
	f.ptsOffsets = nil
	f.trgOffsets = nil
	f.ptsSimpMask = 0
}

// ParseGeometry materialises the polyline of a Line feature at the
// requested scale: filtering inner geometry through the simplification
// mask, or decoding the per-scale outer stream, falling back to the
// coarsest populated level when the requested one is absent. Returns the
// number of outer stream bytes consumed.
func (f *Feature) ParseGeometry(scale int) (int, error) {
	if f.parsed.points {
		return 0, nil
	}
	if err := f.ParseHeader2(); err != nil {
		return 0, err
	}

	size := 0
	if f.GeomType() == GeomLine {
		if len(f.points) < 2 {
			n, err := f.loadOuterLine(scale)
			if err != nil {
				return 0, err
			}
			size = n
		} else {
			f.filterInnerLine(scale)
		}
		if len(f.points) > 0 {
			f.setLimitRectFromPoints(f.points)
		}
	}
	f.parsed.points = true
	return size, nil
}

func (f *Feature) loadOuterLine(scale int) (int, error) {
	ind := scaleIndexForOffsets(f.cont, scale, f.ptsOffsets)
	// No geometry at the requested scale: fall back to the coarsest
	// populated level.
	if ind < 0 {
		ind = scaleIndexForOffsets(f.cont, WorstGeometry, f.ptsOffsets)
	}
	if ind < 0 {
		f.points = nil
		return 0, nil
	}

	data, err := f.cont.GeometryData(ind)
	if err != nil {
		return 0, fmt.Errorf("feature %d geometry stream %d: %w", f.id, ind, err)
	}
	src := serial.NewByteSource(data)
	if err := src.Skip(int(f.ptsOffsets[ind])); err != nil {
		return 0, fmt.Errorf("feature %d geometry offset %d: %w", f.id, f.ptsOffsets[ind], err)
	}

	cp := f.cont.CodingParams(ind)
	cp.SetBasePoint(f.points[0])
	rest, err := serial.LoadOuterRun(src, cp)
	if err != nil {
		return 0, fmt.Errorf("feature %d outer line: %w", f.id, err)
	}
	f.points = append(f.points, rest...)
	return src.Pos() - int(f.ptsOffsets[ind]), nil
}

// filterInnerLine keeps the endpoints plus every intermediate point whose
// 2-bit marker is visible at the scale. If only the endpoints survive, the
// points at the minimum observed marker are re-included so extreme
// simplifications keep the coarsest available shape.
func (f *Feature) filterInnerLine(scale int) {
	count := len(f.points)
	points := make([]orb.Point, 0, count)

	scaleIndex := scaleIndexForContainer(f.cont, scale)

	points = append(points, f.points[0])
	minMarker := f.cont.ScalesCount() - 1
	for i := 1; i+1 < count; i++ {
		marker := int(f.ptsSimpMask >> (2 * (i - 1)) & 0x3)
		if marker <= scaleIndex {
			points = append(points, f.points[i])
		} else if len(points) == 1 && minMarker > marker {
			minMarker = marker
		}
	}
	if len(points) == 1 {
		for i := 1; i+1 < count; i++ {
			if int(f.ptsSimpMask>>(2*(i-1))&0x3) == minMarker {
				points = append(points, f.points[i])
			}
		}
	}
	points = append(points, f.points[count-1])

	f.points = points
}

// ParseTriangles materialises the triangle strip of an Area feature at the
// requested scale. Returns the number of outer stream bytes consumed.
func (f *Feature) ParseTriangles(scale int) (int, error) {
	if f.parsed.triangles {
		return 0, nil
	}
	if err := f.ParseHeader2(); err != nil {
		return 0, err
	}

	size := 0
	if f.GeomType() == GeomArea {
		if len(f.triangles) == 0 {
			ind := scaleIndexForOffsets(f.cont, scale, f.trgOffsets)
			if ind >= 0 {
				data, err := f.cont.TrianglesData(ind)
				if err != nil {
					return 0, fmt.Errorf("feature %d triangles stream %d: %w", f.id, ind, err)
				}
				src := serial.NewByteSource(data)
				if err := src.Skip(int(f.trgOffsets[ind])); err != nil {
					return 0, fmt.Errorf("feature %d triangles offset %d: %w", f.id, f.trgOffsets[ind], err)
				}
				if f.triangles, err = serial.LoadOuterRun(src, f.cont.CodingParams(ind)); err != nil {
					return 0, fmt.Errorf("feature %d outer triangles: %w", f.id, err)
				}
				size = src.Pos() - int(f.trgOffsets[ind])
			}
		}
		if len(f.triangles) > 0 {
			f.setLimitRectFromPoints(f.triangles)
		}
	}
	f.parsed.triangles = true
	return size, nil
}

// ParseGeometryAndTriangles drives both geometry stages for the scale.
func (f *Feature) ParseGeometryAndTriangles(scale int) error {
	if _, err := f.ParseGeometry(scale); err != nil {
		return err
	}
	_, err := f.ParseTriangles(scale)
	return err
}

// LimitRect returns the bounding rect of the geometry parsed at the scale.
// A Line/Area feature with no geometry at that scale yields a zero-area
// rect so visibility checks treat it as invisible.
func (f *Feature) LimitRect(scale int) (orb.Bound, error) {
	if err := f.ParseGeometryAndTriangles(scale); err != nil {
		return orb.Bound{}, err
	}
	if len(f.points) == 0 && len(f.triangles) == 0 && f.GeomType() != GeomPoint {
		f.limitRect = orb.Bound{}
		f.hasLimitRect = true
	}
	return f.limitRect, nil
}

// IsEmptyGeometry reports whether the feature produced no geometry at the
// scale.
func (f *Feature) IsEmptyGeometry(scale int) (bool, error) {
	if err := f.ParseGeometryAndTriangles(scale); err != nil {
		return false, err
	}
	switch f.GeomType() {
	case GeomArea:
		return len(f.triangles) == 0, nil
	case GeomLine:
		return len(f.points) == 0, nil
	default:
		return false, nil
	}
}

// PointsCount returns the number of polyline points parsed so far.
func (f *Feature) PointsCount() int { return len(f.points) }

// Point returns polyline point i.
func (f *Feature) Point(i int) orb.Point { return f.points[i] }

// Points returns the parsed polyline.
func (f *Feature) Points() []orb.Point { return f.points }

// TrianglesAsPoints returns the triangle strip points at the scale.
func (f *Feature) TrianglesAsPoints(scale int) ([]orb.Point, error) {
	if _, err := f.ParseTriangles(scale); err != nil {
		return nil, err
	}
	return f.triangles, nil
}

// GeometrySize returns the polyline stats at the scale; for inner
// geometry the inline encoded size is reported.
func (f *Feature) GeometrySize(scale int) (GeomStat, error) {
	size, err := f.ParseGeometry(scale)
	if err != nil {
		return GeomStat{}, err
	}
	if size == 0 && len(f.points) > 0 {
		size = f.inner.points
	}
	return GeomStat{Size: size, Points: len(f.points)}, nil
}

// TrianglesSize returns the strip stats at the scale.
func (f *Feature) TrianglesSize(scale int) (GeomStat, error) {
	size, err := f.ParseTriangles(scale)
	if err != nil {
		return GeomStat{}, err
	}
	if size == 0 && len(f.triangles) > 0 {
		size = f.inner.strips
	}
	return GeomStat{Size: size, Points: len(f.triangles)}, nil
}

// scaleIndexForContainer maps a scale to the container's level index,
// honouring the sentinels and clamping to the last scale.
func scaleIndexForContainer(cont container.Container, scale int) int {
	count := cont.ScalesCount()
	if scale > cont.LastScale() {
		scale = cont.LastScale()
	}
	switch scale {
	case WorstGeometry:
		return 0
	case BestGeometry:
		return count - 1
	default:
		for i := 0; i < count; i++ {
			if scale <= cont.Scale(i) {
				return i
			}
		}
		return -1
	}
}

// scaleIndexForOffsets maps a scale to a populated entry of a per-feature
// offset table, or -1 when the level is absent.
func scaleIndexForOffsets(cont container.Container, scale int, offsets []uint32) int {
	count := len(offsets)
	if count == 0 {
		return -1
	}
	if scale > cont.LastScale() {
		scale = cont.LastScale()
	}

	switch scale {
	case BestGeometry:
		for ind := count - 1; ind >= 0; ind-- {
			if offsets[ind] != invalidOffset {
				return ind
			}
		}
	case WorstGeometry:
		for ind := 0; ind < count; ind++ {
			if offsets[ind] != invalidOffset {
				return ind
			}
		}
	default:
		for i := 0; i < cont.ScalesCount(); i++ {
			if scale <= cont.Scale(i) {
				if i < count && offsets[i] != invalidOffset {
					return i
				}
				return -1
			}
		}
	}
	return -1
}
