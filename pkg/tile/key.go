// pkg/tile/key.go - Tile key type for the quadtree grid
package tile

import "fmt"

// Key identifies one cell of the quadtree grid: x/y cell indices at scale
// level Z. Keys are ordered lexicographically by (Z, X, Y).
type Key struct {
	X int
	Y int
	Z int
}

// Less reports whether k orders before o.
func (k Key) Less(o Key) bool {
	if k.Z != o.Z {
		return k.Z < o.Z
	}
	if k.X != o.X {
		return k.X < o.X
	}
	return k.Y < o.Y
}

// String returns the key in z/x/y form.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}
