// pkg/reader/manager.go - Viewport-driven tile read coordination
package reader

import (
	"runtime"

	"github.com/google/btree"
	log "github.com/sirupsen/logrus"

	"maptile-reader/internal/metrics"
	"maptile-reader/pkg/geo"
	"maptile-reader/pkg/scales"
	"maptile-reader/pkg/tile"
)

const liveTreeDegree = 8

// ReadManager maintains the live set of tiles being read for the current
// viewport. UpdateCoverage and Stop must be called from a single control
// thread; only the cancellation flags inside TileInfo are shared with the
// workers.
type ReadManager struct {
	engine Context
	env    Env
	pool   *Pool

	current geo.Viewport
	live    *btree.BTreeG[*TileInfo]
}

// NewReadManager creates a manager with workers pool threads; workers <= 0
// selects the default of max(NumCPU-2, 1).
func NewReadManager(engine Context, env Env, workers int) *ReadManager {
	if env.MemoryIndex == nil {
		env.MemoryIndex = NopMemoryIndex{}
	}
	if workers <= 0 {
		workers = defaultReadCount()
	}
	return &ReadManager{
		engine: engine,
		env:    env,
		pool:   NewPool(workers, nil),
		live: btree.NewG(liveTreeDegree, func(a, b *TileInfo) bool {
			return a.key.Less(b.key)
		}),
	}
}

func defaultReadCount() int {
	n := runtime.NumCPU() - 2
	if n < 1 {
		return 1
	}
	return n
}

// UpdateCoverage diffs the tile set of the new viewport against the live
// set: outdated tiles are cancelled and dropped, survivors are
// re-prioritised to the front of the queue, incoming tiles are enqueued at
// the back. A scale change or a viewport jump resets everything.
func (m *ReadManager) UpdateCoverage(v geo.Viewport, descr Descriptor) {
	if v.Equal(m.current) {
		return
	}

	keys := scales.TileSetForViewport(v)

	if scales.MustDropAll(m.current, v) {
		m.cancelAll()
		for _, key := range keys {
			m.pushTaskBack(key)
		}
		descr.DropAll()
	} else {
		covered := make(map[tile.Key]struct{}, len(keys))
		for _, key := range keys {
			covered[key] = struct{}{}
		}

		// Tiles that went out of the viewport.
		var outdated []*TileInfo
		m.live.Ascend(func(info *TileInfo) bool {
			if _, ok := covered[info.key]; !ok {
				outdated = append(outdated, info)
			}
			return true
		})

		outdatedKeys := make([]tile.Key, 0, len(outdated))
		for _, info := range outdated {
			m.cancelTileInfo(info)
			m.live.Delete(info)
			outdatedKeys = append(outdatedKeys, info.key)
		}
		descr.DropTiles(outdatedKeys)

		// Survivors are re-read ahead of incoming work so in-view
		// tiles preempt tiles the pan just pulled in.
		m.live.Ascend(func(info *TileInfo) bool {
			m.pushTaskFront(info)
			return true
		})

		// Tiles that came into the viewport.
		for _, key := range keys {
			if _, ok := m.lookup(key); !ok {
				m.pushTaskBack(key)
			}
		}
	}

	m.current = v
	metrics.LiveTiles.Set(float64(m.live.Len()))
	log.WithFields(log.Fields{
		"scale": scales.TileScale(v),
		"tiles": m.live.Len(),
	}).Debug("coverage updated")
}

// Stop cancels every live tile and joins the worker pool, discarding
// queued tasks.
func (m *ReadManager) Stop() {
	m.cancelAll()
	m.pool.Stop()
	metrics.LiveTiles.Set(0)
}

// LiveTiles returns the keys of the live set, ordered.
func (m *ReadManager) LiveTiles() []tile.Key {
	keys := make([]tile.Key, 0, m.live.Len())
	m.live.Ascend(func(info *TileInfo) bool {
		keys = append(keys, info.key)
		return true
	})
	return keys
}

func (m *ReadManager) lookup(key tile.Key) (*TileInfo, bool) {
	return m.live.Get(&TileInfo{key: key})
}

func (m *ReadManager) pushTaskBack(key tile.Key) {
	info := NewTileInfo(key, m.env.MemoryIndex)
	m.live.ReplaceOrInsert(info)
	m.pool.PushBack(newReadTileTask(info, m.env, m.engine))
	metrics.TilesScheduled.WithLabelValues("back").Inc()
}

func (m *ReadManager) pushTaskFront(info *TileInfo) {
	m.pool.PushFront(newReadTileTask(info, m.env, m.engine))
	metrics.TilesScheduled.WithLabelValues("front").Inc()
}

func (m *ReadManager) cancelTileInfo(info *TileInfo) {
	info.Cancel()
	metrics.TilesCancelled.Inc()
}

func (m *ReadManager) cancelAll() {
	m.live.Ascend(func(info *TileInfo) bool {
		m.cancelTileInfo(info)
		return true
	})
	m.live.Clear(false)
}
