// pkg/container/builder.go - Feature record encoder
package container

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"maptile-reader/pkg/serial"
)

// Record header layout, byte 0 of every feature record.
const (
	HeaderMaskGeomType   = 0x03 // bits 0-1: geometry kind
	HeaderMaskTypesCount = 0x1c // bits 2-4: types count - 1
	HeaderTypesShift     = 2
	HeaderMaskHasName    = 0x20
	HeaderMaskHasLayer   = 0x40
	HeaderMaskHasAddinfo = 0x80
)

// Addendum sub-flags, first byte of the addendum section.
const (
	AddinfoMaskHouse = 0x01
	AddinfoMaskRef   = 0x02
	AddinfoMaskRank  = 0x04
)

// Geometry kind values inside HeaderMaskGeomType.
const (
	GeomKindPoint = 0
	GeomKindLine  = 1
	GeomKindArea  = 2
)

// MaxTypesCount bounds the type indices of one feature; the header carries
// count-1 in three bits.
const MaxTypesCount = 8

// MaxInnerPoints bounds inner geometry runs; counts are stored in four
// bits.
const MaxInnerPoints = 15

type builderGeometry int

const (
	geomNone builderGeometry = iota
	geomCenter
	geomInnerLine
	geomOuterLine
	geomInnerArea
	geomOuterArea
)

// RecordBuilder encodes one feature record in the container's byte format.
// Exactly one geometry call must be made before Build.
type RecordBuilder struct {
	params serial.CodingParams

	typeIndices []uint32
	names       map[uint8]string
	langs       []uint8
	layer       int8
	hasLayer    bool
	house       string
	hasHouse    bool
	ref         string
	hasRef      bool
	rank        uint8
	hasRank     bool

	geom       builderGeometry
	center     orb.Point
	points     []orb.Point
	markers    []uint8
	firstPoint orb.Point
	offsets    map[int]uint32
}

// NewRecordBuilder creates a builder coding points with the container's
// default params.
func NewRecordBuilder(params serial.CodingParams) *RecordBuilder {
	return &RecordBuilder{
		params: params,
		names:  make(map[uint8]string),
	}
}

// SetTypes sets the classificator indices, between 1 and MaxTypesCount.
func (b *RecordBuilder) SetTypes(indices ...uint32) *RecordBuilder {
	b.typeIndices = append([]uint32(nil), indices...)
	return b
}

// SetName adds one localised name.
func (b *RecordBuilder) SetName(lang uint8, name string) *RecordBuilder {
	if _, ok := b.names[lang]; !ok {
		b.langs = append(b.langs, lang)
	}
	b.names[lang] = name
	return b
}

// SetLayer sets the optional layer.
func (b *RecordBuilder) SetLayer(layer int8) *RecordBuilder {
	b.layer = layer
	b.hasLayer = true
	return b
}

// SetHouse sets the optional house number.
func (b *RecordBuilder) SetHouse(house string) *RecordBuilder {
	b.house = house
	b.hasHouse = true
	return b
}

// SetRef sets the optional reference.
func (b *RecordBuilder) SetRef(ref string) *RecordBuilder {
	b.ref = ref
	b.hasRef = true
	return b
}

// SetRank sets the optional rank.
func (b *RecordBuilder) SetRank(rank uint8) *RecordBuilder {
	b.rank = rank
	b.hasRank = true
	return b
}

// Point makes the record a Point feature centered at p.
func (b *RecordBuilder) Point(p orb.Point) *RecordBuilder {
	b.geom = geomCenter
	b.center = p
	return b
}

// InnerLine makes the record a Line feature with inline geometry. markers
// holds one 2-bit simplification marker per intermediate point, so
// len(markers) == len(points)-2.
func (b *RecordBuilder) InnerLine(points []orb.Point, markers []uint8) *RecordBuilder {
	b.geom = geomInnerLine
	b.points = append([]orb.Point(nil), points...)
	b.markers = append([]uint8(nil), markers...)
	return b
}

// OuterLine makes the record a Line feature whose geometry lives in the
// per-scale streams. first is the polyline start point stored in the
// record; offsets maps scale index to the stream offset of the rest of the
// run.
func (b *RecordBuilder) OuterLine(first orb.Point, offsets map[int]uint32) *RecordBuilder {
	b.geom = geomOuterLine
	b.firstPoint = first
	b.offsets = offsets
	return b
}

// InnerArea makes the record an Area feature with an inline triangle
// strip.
func (b *RecordBuilder) InnerArea(strip []orb.Point) *RecordBuilder {
	b.geom = geomInnerArea
	b.points = append([]orb.Point(nil), strip...)
	return b
}

// OuterArea makes the record an Area feature with per-scale triangle
// streams.
func (b *RecordBuilder) OuterArea(offsets map[int]uint32) *RecordBuilder {
	b.geom = geomOuterArea
	b.offsets = offsets
	return b
}

// Build encodes the record.
func (b *RecordBuilder) Build() ([]byte, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	buf := []byte{b.header()}

	for _, index := range b.typeIndices {
		buf = binary.AppendUvarint(buf, uint64(index))
	}

	if len(b.langs) > 0 {
		var body []byte
		for _, lang := range b.langs {
			body = append(body, lang)
			body = serial.AppendString(body, b.names[lang])
		}
		buf = binary.AppendUvarint(buf, uint64(len(body)))
		buf = append(buf, body...)
	}

	if b.hasLayer {
		buf = binary.AppendUvarint(buf, serial.EncodeZigZag(int64(b.layer)))
	}

	if b.hasAddinfo() {
		var flags byte
		if b.hasHouse {
			flags |= AddinfoMaskHouse
		}
		if b.hasRef {
			flags |= AddinfoMaskRef
		}
		if b.hasRank {
			flags |= AddinfoMaskRank
		}
		buf = append(buf, flags)
		if b.hasHouse {
			buf = serial.AppendString(buf, b.house)
		}
		if b.hasRef {
			buf = serial.AppendString(buf, b.ref)
		}
		if b.hasRank {
			buf = append(buf, b.rank)
		}
	}

	switch b.geom {
	case geomCenter:
		buf, _ = serial.AppendPoint(buf, b.center, b.params)

	case geomInnerLine:
		buf = append(buf, byte(len(b.points)))
		maskBytes := (len(b.markers) + 3) / 4
		for i := 0; i < maskBytes; i++ {
			var m byte
			for j := 0; j < 4 && i*4+j < len(b.markers); j++ {
				m |= b.markers[i*4+j] << (2 * j)
			}
			buf = append(buf, m)
		}
		buf = serial.AppendPointRun(buf, b.points, b.params)

	case geomOuterLine:
		buf = append(buf, b.offsetsMask()<<4)
		buf, _ = serial.AppendPoint(buf, b.firstPoint, b.params)
		buf = b.appendOffsets(buf)

	case geomInnerArea:
		buf = append(buf, byte(len(b.points)-2))
		buf = serial.AppendPointRun(buf, b.points, b.params)

	case geomOuterArea:
		buf = append(buf, b.offsetsMask()<<4)
		buf = b.appendOffsets(buf)
	}

	return buf, nil
}

func (b *RecordBuilder) header() byte {
	h := byte(len(b.typeIndices)-1) << HeaderTypesShift
	switch b.geom {
	case geomInnerLine, geomOuterLine:
		h |= GeomKindLine
	case geomInnerArea, geomOuterArea:
		h |= GeomKindArea
	}
	if len(b.langs) > 0 {
		h |= HeaderMaskHasName
	}
	if b.hasLayer {
		h |= HeaderMaskHasLayer
	}
	if b.hasAddinfo() {
		h |= HeaderMaskHasAddinfo
	}
	return h
}

func (b *RecordBuilder) hasAddinfo() bool {
	return b.hasHouse || b.hasRef || b.hasRank
}

func (b *RecordBuilder) offsetsMask() byte {
	var mask byte
	for index := range b.offsets {
		mask |= 1 << index
	}
	return mask
}

func (b *RecordBuilder) appendOffsets(buf []byte) []byte {
	indices := make([]int, 0, len(b.offsets))
	for index := range b.offsets {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	for _, index := range indices {
		buf = binary.AppendUvarint(buf, uint64(b.offsets[index]))
	}
	return buf
}

func (b *RecordBuilder) validate() error {
	if len(b.typeIndices) == 0 || len(b.typeIndices) > MaxTypesCount {
		return fmt.Errorf("record needs between 1 and %d types, got %d", MaxTypesCount, len(b.typeIndices))
	}
	switch b.geom {
	case geomNone:
		return fmt.Errorf("record has no geometry")
	case geomInnerLine:
		if len(b.points) < 2 || len(b.points) > MaxInnerPoints {
			return fmt.Errorf("inner line needs between 2 and %d points, got %d", MaxInnerPoints, len(b.points))
		}
		if len(b.markers) != len(b.points)-2 {
			return fmt.Errorf("inner line with %d points needs %d markers, got %d",
				len(b.points), len(b.points)-2, len(b.markers))
		}
		for _, m := range b.markers {
			if m > 3 {
				return fmt.Errorf("simplification marker %d does not fit 2 bits", m)
			}
		}
	case geomInnerArea:
		if len(b.points) < 3 || len(b.points) > MaxInnerPoints+2 {
			return fmt.Errorf("inner strip needs between 3 and %d points, got %d", MaxInnerPoints+2, len(b.points))
		}
	case geomOuterLine, geomOuterArea:
		if len(b.offsets) == 0 {
			return fmt.Errorf("outer geometry needs at least one scale offset")
		}
		for index := range b.offsets {
			if index < 0 || index >= MaxScalesCount {
				return fmt.Errorf("scale index %d outside the %d-bit presence mask", index, MaxScalesCount)
			}
		}
	}
	return nil
}
