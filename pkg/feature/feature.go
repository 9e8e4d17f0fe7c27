// pkg/feature/feature.go - Staged lazy feature decoder
package feature

import (
	"fmt"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"maptile-reader/pkg/container"
	"maptile-reader/pkg/serial"
)

// GeomType is the geometry kind of a feature.
type GeomType uint8

const (
	GeomPoint GeomType = iota
	GeomLine
	GeomArea
)

// String returns the geometry kind name.
func (g GeomType) String() string {
	switch g {
	case GeomLine:
		return "line"
	case GeomArea:
		return "area"
	default:
		return "point"
	}
}

// Scale sentinels accepted by the geometry parsing stages.
const (
	// BestGeometry selects the finest populated geometry level.
	BestGeometry = -1
	// WorstGeometry selects the coarsest populated geometry level.
	WorstGeometry = -2
)

// DefaultLang is the language code preferred by ReadableName.
const DefaultLang uint8 = 0

const invalidOffset = ^uint32(0)

// parsedState marks which decoding stages have run. Flags are monotonic
// per feature except for the geometry rollback in ResetGeometry.
type parsedState struct {
	types     bool
	common    bool
	header2   bool
	points    bool
	triangles bool
	metadata  bool
	metaIDs   bool
}

type recordOffsets struct {
	common  int
	header2 int
}

type innerStats struct {
	points int
	strips int
	size   int
}

// GeomStat describes the decoded geometry of one stage: its encoded size
// in bytes and the number of points produced.
type GeomStat struct {
	Size   int
	Points int
}

// Feature decodes one feature record lazily. Stages form a chain
// types -> common -> header2 -> points/triangles with independent metadata
// branches; each Parse method drives its predecessors and is idempotent.
// A Feature is not safe for concurrent use.
type Feature struct {
	id      uint32
	data    []byte
	cont    container.Container
	classif container.Classificator
	meta    container.MetadataDeserializer

	header  byte
	parsed  parsedState
	offsets recordOffsets
	inner   innerStats

	types []uint32
	names map[uint8]string
	langs []uint8
	layer int8
	rank  uint8
	house string
	ref   string

	center      orb.Point
	points      []orb.Point
	triangles   []orb.Point
	ptsOffsets  []uint32
	trgOffsets  []uint32
	ptsSimpMask uint32

	limitRect    orb.Bound
	hasLimitRect bool

	metadata container.Metadata
	metaIDs  []container.MetaID
}

// New creates a decoder over one feature record. cont, classif and meta
// must be non-nil: a feature without its load context cannot be parsed and
// passing nil is a caller-side contract breach.
func New(id uint32, data []byte, cont container.Container, classif container.Classificator,
	meta container.MetadataDeserializer) (*Feature, error) {
	if cont == nil || classif == nil || meta == nil {
		return nil, fmt.Errorf("feature %d: nil load context", id)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("feature %d: empty record", id)
	}
	if data[0]&container.HeaderMaskGeomType == 0x03 {
		return nil, fmt.Errorf("feature %d: reserved geometry kind in header 0x%02x", id, data[0])
	}
	return &Feature{
		id:      id,
		data:    data,
		cont:    cont,
		classif: classif,
		meta:    meta,
		header:  data[0],
	}, nil
}

// ID returns the feature id the record was handed over with.
func (f *Feature) ID() uint32 { return f.id }

// GeomType returns the geometry kind from the header byte.
func (f *Feature) GeomType() GeomType {
	switch f.header & container.HeaderMaskGeomType {
	case container.GeomKindLine:
		return GeomLine
	case container.GeomKindArea:
		return GeomArea
	default:
		return GeomPoint
	}
}

// TypesCount returns the number of type indices from the header byte.
func (f *Feature) TypesCount() int {
	return int((f.header&container.HeaderMaskTypesCount)>>container.HeaderTypesShift) + 1
}

func (f *Feature) hasName() bool    { return f.header&container.HeaderMaskHasName != 0 }
func (f *Feature) hasLayer() bool   { return f.header&container.HeaderMaskHasLayer != 0 }
func (f *Feature) hasAddinfo() bool { return f.header&container.HeaderMaskHasAddinfo != 0 }

// ParseTypes resolves the type indices through the classificator. An index
// unknown to the catalogue is replaced by the stub type and logged; the
// feature is kept.
func (f *Feature) ParseTypes() error {
	if f.parsed.types {
		return nil
	}

	src := serial.NewByteSource(f.data)
	if err := src.Skip(1); err != nil {
		return fmt.Errorf("feature %d types: %w", f.id, err)
	}

	count := f.TypesCount()
	f.types = make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		index, err := src.ReadVarUint()
		if err != nil {
			return fmt.Errorf("feature %d type %d: %w", f.id, i, err)
		}
		typ, ok := f.classif.TypeForIndex(uint32(index))
		if !ok {
			// Possible for newer containers with added types.
			log.WithFields(log.Fields{
				"feature": f.id,
				"index":   index,
			}).Warn("unknown type index, substituting stub type")
			typ = f.classif.StubType()
		}
		f.types = append(f.types, typ)
	}

	f.offsets.common = src.Pos()
	f.parsed.types = true
	return nil
}

// Types returns the resolved type identifiers.
func (f *Feature) Types() ([]uint32, error) {
	if err := f.ParseTypes(); err != nil {
		return nil, err
	}
	return f.types, nil
}

// ParseCommon reads the name blob, the optional layer and addendum fields
// and, for Point features, the center point.
func (f *Feature) ParseCommon() error {
	if f.parsed.common {
		return nil
	}
	if err := f.ParseTypes(); err != nil {
		return err
	}

	src := serial.NewByteSource(f.data)
	if err := src.Skip(f.offsets.common); err != nil {
		return fmt.Errorf("feature %d common: %w", f.id, err)
	}

	if f.hasName() {
		if err := f.readNames(src); err != nil {
			return fmt.Errorf("feature %d names: %w", f.id, err)
		}
	}
	if f.hasLayer() {
		v, err := src.ReadVarInt()
		if err != nil {
			return fmt.Errorf("feature %d layer: %w", f.id, err)
		}
		f.layer = int8(v)
	}
	if f.hasAddinfo() {
		if err := f.readAddinfo(src); err != nil {
			return fmt.Errorf("feature %d addendum: %w", f.id, err)
		}
	}

	if f.GeomType() == GeomPoint {
		center, err := serial.LoadPoint(src, f.cont.DefaultCodingParams())
		if err != nil {
			return fmt.Errorf("feature %d center: %w", f.id, err)
		}
		f.center = center
		f.extendLimitRect(center)
	}

	f.offsets.header2 = src.Pos()
	f.parsed.common = true
	return nil
}

func (f *Feature) readNames(src *serial.ByteSource) error {
	blobLen, err := src.ReadVarUint()
	if err != nil {
		return err
	}
	end := src.Pos() + int(blobLen)
	if end > src.Pos()+src.Remaining() {
		return serial.ErrTruncated
	}
	f.names = make(map[uint8]string)
	for src.Pos() < end {
		lang, err := src.ReadByte()
		if err != nil {
			return err
		}
		name, err := src.ReadString()
		if err != nil {
			return err
		}
		if _, ok := f.names[lang]; !ok {
			f.langs = append(f.langs, lang)
		}
		f.names[lang] = name
	}
	if src.Pos() != end {
		return fmt.Errorf("name blob overruns its length prefix")
	}
	return nil
}

func (f *Feature) readAddinfo(src *serial.ByteSource) error {
	flags, err := src.ReadByte()
	if err != nil {
		return err
	}
	if flags&container.AddinfoMaskHouse != 0 {
		if f.house, err = src.ReadString(); err != nil {
			return err
		}
	}
	if flags&container.AddinfoMaskRef != 0 {
		if f.ref, err = src.ReadString(); err != nil {
			return err
		}
	}
	if flags&container.AddinfoMaskRank != 0 {
		if f.rank, err = src.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

// Center returns the center of a Point feature.
func (f *Feature) Center() (orb.Point, error) {
	if err := f.ParseCommon(); err != nil {
		return orb.Point{}, err
	}
	return f.center, nil
}

// Layer returns the feature layer, zero when the header carries none.
func (f *Feature) Layer() (int8, error) {
	if !f.hasLayer() {
		return 0, nil
	}
	if err := f.ParseCommon(); err != nil {
		return 0, err
	}
	return f.layer, nil
}

// Rank returns the feature rank, zero when absent.
func (f *Feature) Rank() (uint8, error) {
	if err := f.ParseCommon(); err != nil {
		return 0, err
	}
	return f.rank, nil
}

// HouseNumber returns the house number, empty when absent.
func (f *Feature) HouseNumber() (string, error) {
	if err := f.ParseCommon(); err != nil {
		return "", err
	}
	return f.house, nil
}

// RoadNumber returns the road reference, empty when absent.
func (f *Feature) RoadNumber() (string, error) {
	if err := f.ParseCommon(); err != nil {
		return "", err
	}
	return f.ref, nil
}

// Name returns the name in the given language.
func (f *Feature) Name(lang uint8) (string, bool, error) {
	if !f.hasName() {
		return "", false, nil
	}
	if err := f.ParseCommon(); err != nil {
		return "", false, err
	}
	name, ok := f.names[lang]
	return name, ok, nil
}

// ReadableName returns the default-language name, falling back to the
// first language stored in the record.
func (f *Feature) ReadableName() (string, error) {
	if !f.hasName() {
		return "", nil
	}
	if err := f.ParseCommon(); err != nil {
		return "", err
	}
	if name, ok := f.names[DefaultLang]; ok {
		return name, nil
	}
	if len(f.langs) > 0 {
		return f.names[f.langs[0]], nil
	}
	return "", nil
}

func (f *Feature) extendLimitRect(p orb.Point) {
	if !f.hasLimitRect {
		f.limitRect = orb.Bound{Min: p, Max: p}
		f.hasLimitRect = true
		return
	}
	f.limitRect = f.limitRect.Extend(p)
}

func (f *Feature) setLimitRectFromPoints(points []orb.Point) {
	for _, p := range points {
		f.extendLimitRect(p)
	}
}
