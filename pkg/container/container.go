// pkg/container/container.go - Map container and classificator contracts
package container

import "maptile-reader/pkg/serial"

// Container exposes the parts of an on-disk map container the feature
// decoder needs: the default geometry coding params, the scales table, and
// the per-scale outer geometry and triangle streams.
type Container interface {
	// DefaultCodingParams returns the coding params used for Point centers
	// and inner geometry.
	DefaultCodingParams() serial.CodingParams

	// CodingParams returns the coding params of the per-scale streams at
	// the given scale index.
	CodingParams(scaleIndex int) serial.CodingParams

	// ScalesCount returns the number of geometry levels, at most
	// MaxScalesCount.
	ScalesCount() int

	// Scale returns the coded scale value of the given level.
	Scale(scaleIndex int) int

	// LastScale returns the scale used to clamp oversized scale requests,
	// e.g. for coastline layers.
	LastScale() int

	// GeometryData returns the outer line geometry stream of a level.
	GeometryData(scaleIndex int) ([]byte, error)

	// TrianglesData returns the outer triangle stream of a level.
	TrianglesData(scaleIndex int) ([]byte, error)
}

// MaxScalesCount is the most geometry levels a container can carry; the
// outer geometry presence mask in the feature record is 4 bits wide.
const MaxScalesCount = 4

// Classificator maps feature-type indices from the record stream to typed
// identifiers.
type Classificator interface {
	// TypeForIndex resolves an index; ok is false for indices unknown to
	// this catalogue.
	TypeForIndex(index uint32) (typ uint32, ok bool)

	// StubType returns the well-known replacement for unresolvable
	// indices.
	StubType() uint32
}

// SimpleClassificator resolves indices below MaxIndex to index+1, keeping
// zero as the invalid type. Used by tools and tests.
type SimpleClassificator struct {
	MaxIndex uint32
}

// TypeForIndex implements Classificator.
func (c SimpleClassificator) TypeForIndex(index uint32) (uint32, bool) {
	if index >= c.MaxIndex {
		return 0, false
	}
	return index + 1, true
}

// StubType implements Classificator.
func (c SimpleClassificator) StubType() uint32 { return c.MaxIndex + 1 }
