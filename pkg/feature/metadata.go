// pkg/feature/metadata.go - Metadata branches of the feature decoder
package feature

import (
	log "github.com/sirupsen/logrus"

	"maptile-reader/pkg/container"
)

// ParseMetadata deserialises the full metadata blob. Failures are logged
// and the branch is marked parsed with an empty result.
func (f *Feature) ParseMetadata() {
	if f.parsed.metadata {
		return
	}

	md, err := f.meta.Get(f.id)
	if err != nil {
		log.WithField("feature", f.id).WithError(err).Error("error reading metadata")
	} else {
		f.metadata = md
	}
	f.parsed.metadata = true
}

// ParseMetaIDs reads only the (type, recordID) metadata index.
func (f *Feature) ParseMetaIDs() {
	if f.parsed.metaIDs {
		return
	}

	ids, err := f.meta.IDs(f.id)
	if err != nil {
		log.WithField("feature", f.id).WithError(err).Error("error reading metadata index")
	} else {
		f.metaIDs = ids
	}
	f.parsed.metaIDs = true
}

// Metadata returns the full materialised metadata.
func (f *Feature) Metadata() *container.Metadata {
	f.ParseMetadata()
	return &f.metadata
}

// MetadataValue returns the value of one metadata type, preferring the
// already-materialised blob and hydrating a single record through the
// index otherwise.
func (f *Feature) MetadataValue(typ uint8) string {
	f.ParseMetaIDs()

	if value := f.metadata.Get(typ); value != "" {
		return value
	}
	for _, id := range f.metaIDs {
		if id.Type != typ {
			continue
		}
		value, err := f.meta.MetaByID(id.RecordID)
		if err != nil {
			log.WithFields(log.Fields{
				"feature": f.id,
				"record":  id.RecordID,
			}).WithError(err).Error("error hydrating metadata record")
			return ""
		}
		return f.metadata.Set(typ, value)
	}
	return ""
}

// HasMetadata reports whether the feature carries a value for the type,
// materialised or indexed.
func (f *Feature) HasMetadata(typ uint8) bool {
	f.ParseMetaIDs()
	if f.metadata.Has(typ) {
		return true
	}
	for _, id := range f.metaIDs {
		if id.Type == typ {
			return true
		}
	}
	return false
}
