// pkg/geo/mercator.go - Mercator plane bounds and rectangle helpers
package geo

import "github.com/paulmach/orb"

// Bounds of the mercator projection plane. The plane is square; tile grids
// at every scale subdivide this range uniformly.
const (
	MinX = -180.0
	MaxX = 180.0
	MinY = -180.0
	MaxY = 180.0

	// Range is the side length of the mercator square, equal for x and y.
	Range = MaxX - MinX
)

// PointsBound computes the axis-aligned bound of a point run.
// The second return value is false for an empty run.
func PointsBound(points []orb.Point) (orb.Bound, bool) {
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	b := orb.Bound{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b, true
}
