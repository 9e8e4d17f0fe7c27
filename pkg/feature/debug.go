// pkg/feature/debug.go - Human-readable feature dump
package feature

import (
	"fmt"
	"strings"
)

// DebugString renders the feature at the scale for investigation output.
func (f *Feature) DebugString(scale int) (string, error) {
	if err := f.ParseCommon(); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "feature %d %s types %v", f.id, f.GeomType(), f.types)
	if name, err := f.ReadableName(); err == nil && name != "" {
		fmt.Fprintf(&sb, " name %q", name)
	}
	if f.house != "" {
		fmt.Fprintf(&sb, " house %q", f.house)
	}
	if f.ref != "" {
		fmt.Fprintf(&sb, " ref %q", f.ref)
	}

	if err := f.ParseGeometryAndTriangles(scale); err != nil {
		return "", err
	}
	switch f.GeomType() {
	case GeomPoint:
		fmt.Fprintf(&sb, " center %v", f.center)
	case GeomLine:
		fmt.Fprintf(&sb, " points %d", len(f.points))
	case GeomArea:
		fmt.Fprintf(&sb, " strip %d", len(f.triangles))
	}
	return sb.String(), nil
}
