// pkg/scales/scales.go - Viewport to tile-scale and tile-set mapping
package scales

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"maptile-reader/pkg/geo"
	"maptile-reader/pkg/tile"
)

// MaxTileScale bounds the tile grid depth.
const MaxTileScale = 19

// TileScale maps a viewport to the scale level whose cell size best
// matches the viewport extent: halving the viewport raises the scale by
// one.
func TileScale(v geo.Viewport) int {
	if v.IsEmpty() {
		return 0
	}
	clip := v.ClipRect()
	ext := math.Max(clip.Max[0]-clip.Min[0], clip.Max[1]-clip.Min[1])
	if ext <= 0 {
		return 0
	}
	z := int(math.Round(math.Log2(geo.Range / ext)))
	if z < 0 {
		return 0
	}
	if z > MaxTileScale {
		return MaxTileScale
	}
	return z
}

// CellSize returns the side length of one grid cell at the scale, equal
// for x and y.
func CellSize(scale int) float64 {
	return geo.Range / float64(uint64(1)<<scale)
}

// TileRect returns the mercator rectangle of a tile.
func TileRect(k tile.Key) orb.Bound {
	r := CellSize(k.Z)
	left := float64(k.X) * r
	top := float64(k.Y) * r
	return orb.Bound{
		Min: orb.Point{left, top},
		Max: orb.Point{left + r, top + r},
	}
}

// TileSetForViewport enumerates the tiles at the viewport's scale whose
// cell rect intersects the rotated viewport polygon, ordered by key.
func TileSetForViewport(v geo.Viewport) []tile.Key {
	if v.IsEmpty() {
		return nil
	}

	scale := TileScale(v)
	r := CellSize(scale)
	clip := v.ClipRect()

	minTileX := int(math.Floor(clip.Min[0] / r))
	maxTileX := int(math.Ceil(clip.Max[0] / r))
	minTileY := int(math.Floor(clip.Min[1] / r))
	maxTileY := int(math.Ceil(clip.Max[1] / r))

	var keys []tile.Key
	for tileY := minTileY; tileY < maxTileY; tileY++ {
		for tileX := minTileX; tileX < maxTileX; tileX++ {
			key := tile.Key{X: tileX, Y: tileY, Z: scale}
			if v.IntersectsBound(TileRect(key)) {
				keys = append(keys, key)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// MustDropAll is the full-reset predicate: the live tile set is discarded
// rather than diffed when the scale changes or the viewports do not
// overlap.
func MustDropAll(old, next geo.Viewport) bool {
	if old.IsEmpty() {
		return true
	}
	return TileScale(old) != TileScale(next) || !old.Intersects(next)
}
