// pkg/geo/viewport.go - Rotated viewport rectangle on the mercator plane
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Viewport is a camera projection onto the mercator plane: a rectangle of
// halfWidth x halfHeight around center, rotated by angle radians. The zero
// value is the empty viewport.
type Viewport struct {
	center     orb.Point
	halfWidth  float64
	halfHeight float64
	angle      float64
}

// NewViewport creates a viewport centered at center with the given full
// width and height, rotated counter-clockwise by angle radians.
func NewViewport(center orb.Point, width, height, angle float64) Viewport {
	return Viewport{
		center:     center,
		halfWidth:  width / 2,
		halfHeight: height / 2,
		angle:      angle,
	}
}

// IsEmpty reports whether the viewport covers no area.
func (v Viewport) IsEmpty() bool {
	return v.halfWidth <= 0 || v.halfHeight <= 0
}

// Center returns the viewport center.
func (v Viewport) Center() orb.Point { return v.center }

// Width returns the full (unrotated) viewport width.
func (v Viewport) Width() float64 { return 2 * v.halfWidth }

// Height returns the full (unrotated) viewport height.
func (v Viewport) Height() float64 { return 2 * v.halfHeight }

// Angle returns the rotation in radians.
func (v Viewport) Angle() float64 { return v.angle }

// Equal reports whether two viewports describe the same projection.
func (v Viewport) Equal(o Viewport) bool {
	return v.center == o.center &&
		v.halfWidth == o.halfWidth &&
		v.halfHeight == o.halfHeight &&
		v.angle == o.angle
}

// Polygon returns the four corners of the rotated rectangle in
// counter-clockwise order.
func (v Viewport) Polygon() [4]orb.Point {
	sin, cos := math.Sincos(v.angle)
	ax := orb.Point{cos * v.halfWidth, sin * v.halfWidth}
	ay := orb.Point{-sin * v.halfHeight, cos * v.halfHeight}
	return [4]orb.Point{
		{v.center[0] - ax[0] - ay[0], v.center[1] - ax[1] - ay[1]},
		{v.center[0] + ax[0] - ay[0], v.center[1] + ax[1] - ay[1]},
		{v.center[0] + ax[0] + ay[0], v.center[1] + ax[1] + ay[1]},
		{v.center[0] - ax[0] + ay[0], v.center[1] - ax[1] + ay[1]},
	}
}

// ClipRect returns the axis-aligned bound of the rotated polygon.
func (v Viewport) ClipRect() orb.Bound {
	corners := v.Polygon()
	b := orb.Bound{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		b = b.Extend(c)
	}
	return b
}

// Intersects reports whether the rotated polygons of two viewports overlap.
func (v Viewport) Intersects(o Viewport) bool {
	if v.IsEmpty() || o.IsEmpty() {
		return false
	}
	a := v.Polygon()
	b := o.Polygon()
	return !separated(a[:], b[:], v.axes()) && !separated(a[:], b[:], o.axes())
}

// IntersectsBound reports whether the rotated polygon overlaps an
// axis-aligned rectangle.
func (v Viewport) IntersectsBound(bound orb.Bound) bool {
	if v.IsEmpty() {
		return false
	}
	corners := v.Polygon()
	box := [4]orb.Point{
		bound.Min,
		{bound.Max[0], bound.Min[1]},
		bound.Max,
		{bound.Min[0], bound.Max[1]},
	}
	axisAligned := [2]orb.Point{{1, 0}, {0, 1}}
	return !separated(corners[:], box[:], axisAligned) && !separated(corners[:], box[:], v.axes())
}

// axes returns the two edge normals of the rotated rectangle.
func (v Viewport) axes() [2]orb.Point {
	sin, cos := math.Sincos(v.angle)
	return [2]orb.Point{{cos, sin}, {-sin, cos}}
}

// separated reports whether any of the given axes separates the two convex
// point sets (the separating axis test).
func separated(a, b []orb.Point, axes [2]orb.Point) bool {
	for _, axis := range axes {
		aMin, aMax := project(a, axis)
		bMin, bMax := project(b, axis)
		if aMax < bMin || bMax < aMin {
			return true
		}
	}
	return false
}

func project(points []orb.Point, axis orb.Point) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, p := range points {
		d := p[0]*axis[0] + p[1]*axis[1]
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}
