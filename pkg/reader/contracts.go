// pkg/reader/contracts.go - External collaborator contracts of the read pipeline
package reader

import (
	"github.com/paulmach/orb"

	"maptile-reader/pkg/container"
	"maptile-reader/pkg/feature"
	"maptile-reader/pkg/tile"
)

// FeatureModel yields the feature records overlapping a mercator rectangle
// at a scale.
type FeatureModel interface {
	// ForEachFeature invokes fn for every matching record. An error from
	// fn stops the iteration and is returned unchanged.
	ForEachFeature(rect orb.Bound, scale int, fn func(container.Record) error) error
}

// Context is the engine-side consumer of decoded features. Implementations
// are shared across workers and must serialise delivery internally;
// delivery must be idempotent at the (tile key, feature id) level, since a
// re-prioritised survivor tile can be read twice concurrently.
type Context interface {
	DeliverFeature(key tile.Key, f *feature.Feature)
}

// Descriptor receives the engine-side tile eviction signals of one
// coverage update.
type Descriptor interface {
	// DropAll discards every engine-side tile artefact.
	DropAll()

	// DropTiles discards the artefacts of exactly the given tiles.
	DropTiles(keys []tile.Key)
}

// Ticket is a tile's share of a shared memory-pressure index. Release is
// idempotent.
type Ticket interface {
	Release()
}

// MemoryIndex accounts per-tile memory across workers.
type MemoryIndex interface {
	Acquire(key tile.Key) Ticket
}

// NopMemoryIndex is a MemoryIndex that accounts nothing.
type NopMemoryIndex struct{}

type nopTicket struct{}

func (nopTicket) Release() {}

// Acquire implements MemoryIndex.
func (NopMemoryIndex) Acquire(tile.Key) Ticket { return nopTicket{} }

// Env bundles the external collaborators a read manager drives tasks
// against.
type Env struct {
	Model         FeatureModel
	Container     container.Container
	Classificator container.Classificator
	Metadata      container.MetadataDeserializer
	MemoryIndex   MemoryIndex
}
