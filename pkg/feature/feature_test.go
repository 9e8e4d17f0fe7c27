// pkg/feature/feature_test.go - Unit tests for the staged feature decoder
package feature

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"maptile-reader/pkg/container"
	"maptile-reader/pkg/serial"
)

const coordBits = 30

// tolerance is two grid cells of the test coding precision.
var tolerance = 2 * 360.0 / float64(uint64(1)<<coordBits-1)

func testContainer(t *testing.T) *container.MemContainer {
	t.Helper()
	params := serial.NewCodingParams(coordBits, orb.Point{0, 0})
	cont, err := container.NewMemContainer(params, []int{10, 13, 16, 19})
	if err != nil {
		t.Fatalf("NewMemContainer() error = %v", err)
	}
	return cont
}

func testClassif() container.Classificator {
	return container.SimpleClassificator{MaxIndex: 64}
}

func decode(t *testing.T, id uint32, data []byte, cont container.Container, meta container.MetadataDeserializer) *Feature {
	t.Helper()
	if meta == nil {
		meta = container.NewMemMetadata()
	}
	f, err := New(id, data, cont, testClassif(), meta)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func requirePointNear(t *testing.T, got, want orb.Point) {
	t.Helper()
	if math.Abs(got[0]-want[0]) > tolerance || math.Abs(got[1]-want[1]) > tolerance {
		t.Errorf("point = %v, want %v within %g", got, want, tolerance)
	}
}

func requirePointsNear(t *testing.T, got, want []orb.Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		requirePointNear(t, got[i], want[i])
	}
}

func TestNewValidation(t *testing.T) {
	cont := testContainer(t)
	meta := container.NewMemMetadata()

	if _, err := New(1, nil, cont, testClassif(), meta); err == nil {
		t.Error("New() with empty record should fail")
	}
	if _, err := New(1, []byte{0x04}, nil, testClassif(), meta); err == nil {
		t.Error("New() with nil container should fail")
	}
	if _, err := New(1, []byte{0x03}, cont, testClassif(), meta); err == nil {
		t.Error("New() with reserved geometry kind should fail")
	}
}

func TestPointRoundTrip(t *testing.T) {
	cont := testContainer(t)
	center := orb.Point{12.5, -33.25}

	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(4, 7).
		SetName(DefaultLang, "Main Square").
		SetName(3, "Hauptplatz").
		SetLayer(-2).
		SetHouse("12a").
		SetRank(9).
		Point(center).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	f := decode(t, 1, data, cont, nil)
	if f.GeomType() != GeomPoint {
		t.Fatalf("GeomType() = %v, want point", f.GeomType())
	}

	got, err := f.Center()
	if err != nil {
		t.Fatalf("Center() error = %v", err)
	}
	requirePointNear(t, got, center)

	types, err := f.Types()
	if err != nil {
		t.Fatalf("Types() error = %v", err)
	}
	if len(types) != 2 || types[0] != 5 || types[1] != 8 {
		t.Errorf("Types() = %v, want [5 8]", types)
	}

	name, err := f.ReadableName()
	if err != nil || name != "Main Square" {
		t.Errorf("ReadableName() = %q, %v, want Main Square", name, err)
	}
	localized, ok, err := f.Name(3)
	if err != nil || !ok || localized != "Hauptplatz" {
		t.Errorf("Name(3) = %q, %v, %v, want Hauptplatz", localized, ok, err)
	}

	if layer, _ := f.Layer(); layer != -2 {
		t.Errorf("Layer() = %d, want -2", layer)
	}
	if house, _ := f.HouseNumber(); house != "12a" {
		t.Errorf("HouseNumber() = %q, want 12a", house)
	}
	if rank, _ := f.Rank(); rank != 9 {
		t.Errorf("Rank() = %d, want 9", rank)
	}

	rect, err := f.LimitRect(BestGeometry)
	if err != nil {
		t.Fatalf("LimitRect() error = %v", err)
	}
	requirePointNear(t, rect.Min, center)
	requirePointNear(t, rect.Max, center)
}

func TestStubTypeSubstitution(t *testing.T) {
	cont := testContainer(t)

	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(2, 999).
		Point(orb.Point{0, 0}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	f := decode(t, 1, data, cont, nil)
	types, err := f.Types()
	if err != nil {
		t.Fatalf("Types() error = %v", err)
	}
	stub := testClassif().StubType()
	if types[0] != 3 || types[1] != stub {
		t.Errorf("Types() = %v, want [3 %d]", types, stub)
	}
}

func innerLineRecord(t *testing.T, cont *container.MemContainer, points []orb.Point, markers []uint8) []byte {
	t.Helper()
	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(1).
		SetRef("E55").
		InnerLine(points, markers).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return data
}

func TestInnerLineRoundTrip(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	markers := []uint8{0, 3, 1}

	f := decode(t, 1, innerLineRecord(t, cont, points, markers), cont, nil)

	// The finest scale keeps every point.
	if _, err := f.ParseGeometry(BestGeometry); err != nil {
		t.Fatalf("ParseGeometry() error = %v", err)
	}
	requirePointsNear(t, f.Points(), points)

	if ref, _ := f.RoadNumber(); ref != "E55" {
		t.Errorf("RoadNumber() = %q, want E55", ref)
	}
}

func TestInnerLineSimplification(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	markers := []uint8{0, 3, 1}

	tests := []struct {
		name       string
		scale      int
		wantPoints []orb.Point
	}{
		{
			// Scale 10 is level 0: only marker-0 intermediates stay.
			name:       "coarsest level",
			scale:      10,
			wantPoints: []orb.Point{{0, 0}, {0.5, 0.1}, {2, 0}},
		},
		{
			// Scale 13 is level 1: markers 0 and 1 stay.
			name:       "middle level",
			scale:      13,
			wantPoints: []orb.Point{{0, 0}, {0.5, 0.1}, {1.5, 0.2}, {2, 0}},
		},
		{
			// Scale 19 is the finest level: everything stays.
			name:       "finest level",
			scale:      19,
			wantPoints: points,
		},
		{
			// Oversized scales clamp to the container's last scale.
			name:       "clamped past last scale",
			scale:      25,
			wantPoints: points,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := decode(t, 1, innerLineRecord(t, cont, points, markers), cont, nil)
			if _, err := f.ParseGeometry(tt.scale); err != nil {
				t.Fatalf("ParseGeometry(%d) error = %v", tt.scale, err)
			}
			requirePointsNear(t, f.Points(), tt.wantPoints)
		})
	}
}

func TestInnerLineMonotonicDetail(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	markers := []uint8{2, 1, 3}

	prev := 0
	for _, scale := range []int{10, 13, 16, 19} {
		f := decode(t, 1, innerLineRecord(t, cont, points, markers), cont, nil)
		if _, err := f.ParseGeometry(scale); err != nil {
			t.Fatalf("ParseGeometry(%d) error = %v", scale, err)
		}
		if f.PointsCount() < prev {
			t.Errorf("scale %d yields %d points, fewer than the coarser %d", scale, f.PointsCount(), prev)
		}
		prev = f.PointsCount()
	}
}

func TestInnerLineFallbackToMinimumMarker(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	// No intermediate is visible at level 0; the minimum marker is 2.
	markers := []uint8{2, 3, 2}

	f := decode(t, 1, innerLineRecord(t, cont, points, markers), cont, nil)
	if _, err := f.ParseGeometry(10); err != nil {
		t.Fatalf("ParseGeometry() error = %v", err)
	}

	want := []orb.Point{{0, 0}, {0.5, 0.1}, {1.5, 0.2}, {2, 0}}
	requirePointsNear(t, f.Points(), want)
}

func TestParseGeometryIdempotent(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	markers := []uint8{0, 3, 1}

	f := decode(t, 1, innerLineRecord(t, cont, points, markers), cont, nil)
	if _, err := f.ParseGeometry(10); err != nil {
		t.Fatalf("ParseGeometry() error = %v", err)
	}
	first := append([]orb.Point(nil), f.Points()...)

	// Re-parsing at any scale is a no-op once the stage ran.
	if _, err := f.ParseGeometry(10); err != nil {
		t.Fatalf("second ParseGeometry() error = %v", err)
	}
	requirePointsNear(t, f.Points(), first)

	if _, err := f.ParseGeometry(19); err != nil {
		t.Fatalf("ParseGeometry() at another scale error = %v", err)
	}
	requirePointsNear(t, f.Points(), first)
}

func TestResetGeometry(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	markers := []uint8{0, 3, 1}

	f := decode(t, 1, innerLineRecord(t, cont, points, markers), cont, nil)
	if _, err := f.ParseGeometry(10); err != nil {
		t.Fatalf("ParseGeometry() error = %v", err)
	}
	coarse := f.PointsCount()

	f.ResetGeometry()
	if _, err := f.ParseGeometry(19); err != nil {
		t.Fatalf("ParseGeometry() after reset error = %v", err)
	}
	if f.PointsCount() <= coarse {
		t.Errorf("after reset the finest scale yields %d points, want more than %d", f.PointsCount(), coarse)
	}

	// The common stage survived the reset.
	if ref, err := f.RoadNumber(); err != nil || ref != "E55" {
		t.Errorf("RoadNumber() after reset = %q, %v", ref, err)
	}
}

func outerLineRecord(t *testing.T, cont *container.MemContainer, points []orb.Point, levels []int) []byte {
	t.Helper()
	offsets := make(map[int]uint32, len(levels))
	for _, level := range levels {
		offset, err := cont.AddOuterLine(level, points)
		if err != nil {
			t.Fatalf("AddOuterLine() error = %v", err)
		}
		offsets[level] = offset
	}
	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(1).
		OuterLine(points[0], offsets).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return data
}

func TestOuterLineRoundTrip(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{10, 10}, {10.5, 10.2}, {11, 10.6}, {11.5, 10.4}}

	f := decode(t, 1, outerLineRecord(t, cont, points, []int{1, 3}), cont, nil)

	// Scale 13 maps to level 1, which is populated.
	if _, err := f.ParseGeometry(13); err != nil {
		t.Fatalf("ParseGeometry() error = %v", err)
	}
	requirePointsNear(t, f.Points(), points)
}

func TestOuterLineFallbackToCoarsestPopulated(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{10, 10}, {10.5, 10.2}, {11, 10.6}, {11.5, 10.4}}

	// Level 0 is absent: scale 10 falls back to the coarsest populated
	// level instead of erroring.
	f := decode(t, 1, outerLineRecord(t, cont, points, []int{1, 3}), cont, nil)
	if _, err := f.ParseGeometry(10); err != nil {
		t.Fatalf("ParseGeometry() error = %v", err)
	}
	requirePointsNear(t, f.Points(), points)

	empty, err := f.IsEmptyGeometry(10)
	if err != nil {
		t.Fatalf("IsEmptyGeometry() error = %v", err)
	}
	if empty {
		t.Error("fallback geometry should not be empty")
	}
}

func TestOuterLineScaleClamping(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{10, 10}, {10.5, 10.2}, {11, 10.6}, {11.5, 10.4}}

	f := decode(t, 1, outerLineRecord(t, cont, points, []int{3}), cont, nil)
	if _, err := f.ParseGeometry(25); err != nil {
		t.Fatalf("ParseGeometry() past last scale error = %v", err)
	}
	requirePointsNear(t, f.Points(), points)
}

func TestInnerAreaRoundTrip(t *testing.T) {
	cont := testContainer(t)
	strip := []orb.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(1).
		InnerArea(strip).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	f := decode(t, 1, data, cont, nil)
	if f.GeomType() != GeomArea {
		t.Fatalf("GeomType() = %v, want area", f.GeomType())
	}

	got, err := f.TrianglesAsPoints(10)
	if err != nil {
		t.Fatalf("TrianglesAsPoints() error = %v", err)
	}
	requirePointsNear(t, got, strip)
}

func TestOuterArea(t *testing.T) {
	cont := testContainer(t)
	strip := []orb.Point{{5, 5}, {6, 5}, {5, 6}, {6, 6}}

	offset, err := cont.AddOuterTriangles(2, strip)
	if err != nil {
		t.Fatalf("AddOuterTriangles() error = %v", err)
	}
	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(1).
		OuterArea(map[int]uint32{2: offset}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Scale 16 maps to the populated level 2.
	f := decode(t, 1, data, cont, nil)
	got, err := f.TrianglesAsPoints(16)
	if err != nil {
		t.Fatalf("TrianglesAsPoints() error = %v", err)
	}
	requirePointsNear(t, got, strip)
}

func TestOuterAreaAbsentLevel(t *testing.T) {
	cont := testContainer(t)
	strip := []orb.Point{{5, 5}, {6, 5}, {5, 6}, {6, 6}}

	offset, err := cont.AddOuterTriangles(2, strip)
	if err != nil {
		t.Fatalf("AddOuterTriangles() error = %v", err)
	}
	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(1).
		OuterArea(map[int]uint32{2: offset}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Areas do not fall back to other levels: scale 10 yields nothing.
	f := decode(t, 1, data, cont, nil)
	empty, err := f.IsEmptyGeometry(10)
	if err != nil {
		t.Fatalf("IsEmptyGeometry() error = %v", err)
	}
	if !empty {
		t.Error("area without a level-0 strip should be empty at scale 10")
	}

	rect, err := f.LimitRect(10)
	if err != nil {
		t.Fatalf("LimitRect() error = %v", err)
	}
	if rect != (orb.Bound{}) {
		t.Errorf("LimitRect() = %v, want the zero rect", rect)
	}
}

func TestTruncatedRecord(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}
	data := innerLineRecord(t, cont, points, []uint8{0, 3, 1})

	f := decode(t, 1, data[:len(data)/2], cont, nil)
	if _, err := f.ParseGeometry(10); err == nil {
		t.Error("ParseGeometry() on a truncated record should fail")
	}
}

func TestMetadataBranches(t *testing.T) {
	cont := testContainer(t)
	meta := container.NewMemMetadata()
	meta.Put(7, 1, 100, "wikipedia")
	meta.Put(7, 2, 101, "+123456")

	data, err := container.NewRecordBuilder(cont.DefaultCodingParams()).
		SetTypes(1).
		Point(orb.Point{1, 1}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// The index branch hydrates single records on demand.
	f := decode(t, 7, data, cont, meta)
	if !f.HasMetadata(1) {
		t.Error("HasMetadata(1) = false, want true")
	}
	if f.HasMetadata(9) {
		t.Error("HasMetadata(9) = true, want false")
	}
	if got := f.MetadataValue(1); got != "wikipedia" {
		t.Errorf("MetadataValue(1) = %q, want wikipedia", got)
	}
	if got := f.MetadataValue(9); got != "" {
		t.Errorf("MetadataValue(9) = %q, want empty", got)
	}

	// The full branch materialises everything at once.
	g := decode(t, 7, data, cont, meta)
	md := g.Metadata()
	if md.Size() != 2 || md.Get(2) != "+123456" {
		t.Errorf("Metadata() = %v", md)
	}
}

func TestGeometrySizeStats(t *testing.T) {
	cont := testContainer(t)
	points := []orb.Point{{0, 0}, {0.5, 0.1}, {1, 0.3}, {1.5, 0.2}, {2, 0}}

	f := decode(t, 1, innerLineRecord(t, cont, points, []uint8{0, 0, 0}), cont, nil)
	stat, err := f.GeometrySize(19)
	if err != nil {
		t.Fatalf("GeometrySize() error = %v", err)
	}
	if stat.Points != len(points) {
		t.Errorf("GeometrySize().Points = %d, want %d", stat.Points, len(points))
	}
	if stat.Size == 0 {
		t.Error("GeometrySize().Size should report the inline encoded size")
	}
}
