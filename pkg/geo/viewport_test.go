// pkg/geo/viewport_test.go - Unit tests for viewport geometry
package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestViewportEmpty(t *testing.T) {
	var zero Viewport
	if !zero.IsEmpty() {
		t.Error("zero viewport should be empty")
	}

	v := NewViewport(orb.Point{0, 0}, 10, 10, 0)
	if v.IsEmpty() {
		t.Error("sized viewport should not be empty")
	}
	if zero.Intersects(v) {
		t.Error("empty viewport should intersect nothing")
	}
}

func TestViewportEqual(t *testing.T) {
	a := NewViewport(orb.Point{1, 2}, 10, 8, 0.5)
	b := NewViewport(orb.Point{1, 2}, 10, 8, 0.5)
	c := NewViewport(orb.Point{1, 2}, 10, 8, 0.6)

	if !a.Equal(b) {
		t.Error("identical viewports should be equal")
	}
	if a.Equal(c) {
		t.Error("rotated copy should not be equal")
	}
}

func TestViewportClipRect(t *testing.T) {
	// A unit square rotated 45 degrees has a clip rect of side sqrt(2).
	v := NewViewport(orb.Point{0, 0}, 1, 1, math.Pi/4)
	clip := v.ClipRect()

	half := math.Sqrt2 / 2
	tolerance := 1e-9
	if math.Abs(clip.Min[0]+half) > tolerance || math.Abs(clip.Max[0]-half) > tolerance ||
		math.Abs(clip.Min[1]+half) > tolerance || math.Abs(clip.Max[1]-half) > tolerance {
		t.Errorf("ClipRect() = %v, want +-%g square", clip, half)
	}
}

func TestViewportIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Viewport
		want bool
	}{
		{
			name: "overlapping axis-aligned",
			a:    NewViewport(orb.Point{0, 0}, 10, 10, 0),
			b:    NewViewport(orb.Point{5, 0}, 10, 10, 0),
			want: true,
		},
		{
			name: "disjoint axis-aligned",
			a:    NewViewport(orb.Point{0, 0}, 10, 10, 0),
			b:    NewViewport(orb.Point{20, 0}, 8, 8, 0),
			want: false,
		},
		{
			name: "clip rects overlap but rotated rects do not",
			a:    NewViewport(orb.Point{0, 0}, 20, 0.5, math.Pi / 4),
			b:    NewViewport(orb.Point{-6, 6}, 0.5, 0.5, 0),
			want: false,
		},
		{
			name: "rotated through the corner gap",
			a:    NewViewport(orb.Point{0, 0}, 20, 0.5, math.Pi / 4),
			b:    NewViewport(orb.Point{6, 6}, 2, 2, 0),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Intersects(tt.a); got != tt.want {
				t.Errorf("Intersects() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewportIntersectsBound(t *testing.T) {
	// Diagonal strip: its clip rect covers the whole +-7 square but the
	// strip itself misses the off-diagonal corners.
	v := NewViewport(orb.Point{0, 0}, 20, 0.5, math.Pi/4)

	onDiagonal := orb.Bound{Min: orb.Point{4, 4}, Max: orb.Point{6, 6}}
	if !v.IntersectsBound(onDiagonal) {
		t.Error("bound on the strip diagonal should intersect")
	}

	offDiagonal := orb.Bound{Min: orb.Point{-6, 4}, Max: orb.Point{-4, 6}}
	if v.IntersectsBound(offDiagonal) {
		t.Error("bound in the clip-rect corner should not intersect the strip")
	}
}

func TestPointsBound(t *testing.T) {
	if _, ok := PointsBound(nil); ok {
		t.Error("PointsBound(nil) should report no bound")
	}

	b, ok := PointsBound([]orb.Point{{1, 5}, {-2, 3}, {0, 7}})
	if !ok {
		t.Fatal("PointsBound() should report a bound")
	}
	want := orb.Bound{Min: orb.Point{-2, 3}, Max: orb.Point{1, 7}}
	if b != want {
		t.Errorf("PointsBound() = %v, want %v", b, want)
	}
}
