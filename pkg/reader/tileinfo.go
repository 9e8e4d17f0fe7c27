// pkg/reader/tileinfo.go - Per-tile work handle with cooperative cancellation
package reader

import (
	"sync"
	"sync/atomic"

	"maptile-reader/pkg/tile"
)

// TileInfo is the shared handle to in-flight or completed work for one
// tile. The read manager holds it in the live set; every reader task for
// the tile polls its cancellation flag. The flag is monotonic: once set it
// is never cleared.
type TileInfo struct {
	key       tile.Key
	cancelled atomic.Bool

	ticketOnce sync.Once
	ticket     Ticket
}

// NewTileInfo creates the handle and acquires the tile's memory ticket.
func NewTileInfo(key tile.Key, index MemoryIndex) *TileInfo {
	return &TileInfo{
		key:    key,
		ticket: index.Acquire(key),
	}
}

// Key returns the tile key. Immutable after construction.
func (t *TileInfo) Key() tile.Key { return t.key }

// Cancel sets the cancellation flag and releases the memory ticket. Safe
// to call from any goroutine, any number of times.
func (t *TileInfo) Cancel() {
	t.cancelled.Store(true)
	t.ticketOnce.Do(t.ticket.Release)
}

// Cancelled reports whether the tile was cancelled.
func (t *TileInfo) Cancelled() bool {
	return t.cancelled.Load()
}
