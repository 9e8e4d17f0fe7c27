// pkg/container/metadata.go - Feature metadata contracts
package container

// MetaID links a metadata type to the container record holding its value.
type MetaID struct {
	Type     uint8
	RecordID uint32
}

// Metadata holds the materialised metadata values of one feature.
type Metadata struct {
	values map[uint8]string
}

// Get returns the value for a metadata type, empty if absent.
func (m *Metadata) Get(typ uint8) string {
	return m.values[typ]
}

// Has reports whether a value for the type is materialised.
func (m *Metadata) Has(typ uint8) bool {
	_, ok := m.values[typ]
	return ok
}

// Set stores a value and returns it.
func (m *Metadata) Set(typ uint8, value string) string {
	if m.values == nil {
		m.values = make(map[uint8]string)
	}
	m.values[typ] = value
	return value
}

// Size returns the number of materialised values.
func (m *Metadata) Size() int { return len(m.values) }

// MetadataDeserializer reads feature metadata out of the container.
type MetadataDeserializer interface {
	// Get deserialises the full metadata blob of a feature.
	Get(featureID uint32) (Metadata, error)

	// IDs reads only the (type, recordID) index of a feature.
	IDs(featureID uint32) ([]MetaID, error)

	// MetaByID hydrates a single metadata record.
	MetaByID(recordID uint32) (string, error)
}
