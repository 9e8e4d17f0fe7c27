// pkg/container/mem.go - In-memory container, feature model and metadata
package container

import (
	"fmt"

	"github.com/paulmach/orb"

	"maptile-reader/pkg/serial"
)

// MemContainer is an in-memory Container. It backs tests and the
// inspection tools; per-scale streams grow as outer geometry is appended.
type MemContainer struct {
	params    serial.CodingParams
	scales    []int
	geometry  [][]byte
	triangles [][]byte
}

// NewMemContainer creates a container with the given coding params and
// coded scale table, one geometry level per scale.
func NewMemContainer(params serial.CodingParams, scales []int) (*MemContainer, error) {
	if len(scales) == 0 || len(scales) > MaxScalesCount {
		return nil, fmt.Errorf("container must carry between 1 and %d scales, got %d", MaxScalesCount, len(scales))
	}
	for i := 1; i < len(scales); i++ {
		if scales[i] <= scales[i-1] {
			return nil, fmt.Errorf("scale table must be strictly increasing, got %v", scales)
		}
	}
	return &MemContainer{
		params:    params,
		scales:    append([]int(nil), scales...),
		geometry:  make([][]byte, len(scales)),
		triangles: make([][]byte, len(scales)),
	}, nil
}

// DefaultCodingParams implements Container.
func (c *MemContainer) DefaultCodingParams() serial.CodingParams { return c.params }

// CodingParams implements Container. All levels of an in-memory container
// share the default params.
func (c *MemContainer) CodingParams(scaleIndex int) serial.CodingParams { return c.params }

// ScalesCount implements Container.
func (c *MemContainer) ScalesCount() int { return len(c.scales) }

// Scale implements Container.
func (c *MemContainer) Scale(scaleIndex int) int { return c.scales[scaleIndex] }

// LastScale implements Container.
func (c *MemContainer) LastScale() int { return c.scales[len(c.scales)-1] }

// GeometryData implements Container.
func (c *MemContainer) GeometryData(scaleIndex int) ([]byte, error) {
	if scaleIndex < 0 || scaleIndex >= len(c.geometry) {
		return nil, fmt.Errorf("geometry stream %d of %d", scaleIndex, len(c.geometry))
	}
	return c.geometry[scaleIndex], nil
}

// TrianglesData implements Container.
func (c *MemContainer) TrianglesData(scaleIndex int) ([]byte, error) {
	if scaleIndex < 0 || scaleIndex >= len(c.triangles) {
		return nil, fmt.Errorf("triangles stream %d of %d", scaleIndex, len(c.triangles))
	}
	return c.triangles[scaleIndex], nil
}

// AddOuterLine appends an outer line run to a level's geometry stream. The
// first point of the polyline is the base the run is coded against; it is
// stored in the feature record, not in the stream. The returned offset goes
// into the record's offset table.
func (c *MemContainer) AddOuterLine(scaleIndex int, points []orb.Point) (uint32, error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("outer line needs at least 2 points, got %d", len(points))
	}
	offset := uint32(len(c.geometry[scaleIndex]))
	cp := c.params
	cp.SetBasePoint(points[0])
	c.geometry[scaleIndex] = serial.AppendOuterRun(c.geometry[scaleIndex], points[1:], cp)
	return offset, nil
}

// AddOuterTriangles appends a triangle strip to a level's triangle stream
// and returns its offset.
func (c *MemContainer) AddOuterTriangles(scaleIndex int, points []orb.Point) (uint32, error) {
	if len(points) < 3 {
		return 0, fmt.Errorf("triangle strip needs at least 3 points, got %d", len(points))
	}
	offset := uint32(len(c.triangles[scaleIndex]))
	c.triangles[scaleIndex] = serial.AppendOuterRun(c.triangles[scaleIndex], points, c.params)
	return offset, nil
}

// Record is one feature record handed to the read task by a feature model:
// the raw bytes plus the limit rect the model indexes it under.
type Record struct {
	ID        uint32
	Data      []byte
	LimitRect orb.Bound
}

// MemModel is a slice-backed feature model: ForEachFeature yields every
// record whose limit rect intersects the query rect. Scale filtering keeps
// records whose minimum visible scale is not above the query scale.
type MemModel struct {
	records   []Record
	minScales []int
}

// Add registers a record visible from minScale upward.
func (m *MemModel) Add(rec Record, minScale int) {
	m.records = append(m.records, rec)
	m.minScales = append(m.minScales, minScale)
}

// Len returns the number of registered records.
func (m *MemModel) Len() int { return len(m.records) }

// ForEachFeature invokes fn for every record overlapping rect at the given
// scale, in registration order. A non-nil error from fn stops the
// iteration and is returned.
func (m *MemModel) ForEachFeature(rect orb.Bound, scale int, fn func(Record) error) error {
	for i, rec := range m.records {
		if m.minScales[i] > scale {
			continue
		}
		if !rect.Intersects(rec.LimitRect) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// MemMetadata is a map-backed MetadataDeserializer.
type MemMetadata struct {
	blobs   map[uint32]map[uint8]string
	ids     map[uint32][]MetaID
	records map[uint32]string
}

// NewMemMetadata creates an empty metadata store.
func NewMemMetadata() *MemMetadata {
	return &MemMetadata{
		blobs:   make(map[uint32]map[uint8]string),
		ids:     make(map[uint32][]MetaID),
		records: make(map[uint32]string),
	}
}

// Put stores one metadata value for a feature and indexes it under the
// given record id.
func (m *MemMetadata) Put(featureID uint32, typ uint8, recordID uint32, value string) {
	blob := m.blobs[featureID]
	if blob == nil {
		blob = make(map[uint8]string)
		m.blobs[featureID] = blob
	}
	blob[typ] = value
	m.ids[featureID] = append(m.ids[featureID], MetaID{Type: typ, RecordID: recordID})
	m.records[recordID] = value
}

// Get implements MetadataDeserializer.
func (m *MemMetadata) Get(featureID uint32) (Metadata, error) {
	var md Metadata
	for typ, value := range m.blobs[featureID] {
		md.Set(typ, value)
	}
	return md, nil
}

// IDs implements MetadataDeserializer.
func (m *MemMetadata) IDs(featureID uint32) ([]MetaID, error) {
	return m.ids[featureID], nil
}

// MetaByID implements MetadataDeserializer.
func (m *MemMetadata) MetaByID(recordID uint32) (string, error) {
	value, ok := m.records[recordID]
	if !ok {
		return "", fmt.Errorf("metadata record %d not found", recordID)
	}
	return value, nil
}
