// pkg/reader/task.go - Reader task for one tile
package reader

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"maptile-reader/internal/metrics"
	"maptile-reader/pkg/container"
	"maptile-reader/pkg/feature"
	"maptile-reader/pkg/scales"
)

// errCancelled stops the feature iteration of a cancelled tile. It never
// escapes the task.
var errCancelled = errors.New("tile read cancelled")

// readTileTask reads every feature overlapping one tile, decodes it to the
// stage its geometry kind needs and delivers it to the engine context.
// Cancellation is checked between features and between decode stages; a
// read in progress finishes before the check.
type readTileTask struct {
	info   *TileInfo
	env    Env
	engine Context
}

func newReadTileTask(info *TileInfo, env Env, engine Context) *readTileTask {
	return &readTileTask{info: info, env: env, engine: engine}
}

// Do implements Routine.
func (t *readTileTask) Do() {
	if t.info.Cancelled() {
		return
	}

	key := t.info.Key()
	rect := scales.TileRect(key)

	err := t.env.Model.ForEachFeature(rect, key.Z, func(rec container.Record) error {
		if t.info.Cancelled() {
			return errCancelled
		}
		t.readFeature(rec)
		return nil
	})

	switch {
	case errors.Is(err, errCancelled):
		// Counted by the manager when it cancels the TileInfo.
	case err != nil:
		// I/O failure: the tile is left read-attempted, the next
		// viewport change re-enqueues it if still visible.
		log.WithField("tile", key).WithError(err).Error("tile read aborted")
	default:
		metrics.TilesRead.Inc()
	}
}

// readFeature decodes one record and hands it to the engine. Corrupt
// records are logged and skipped; the tile read continues.
func (t *readTileTask) readFeature(rec container.Record) {
	key := t.info.Key()

	f, err := feature.New(rec.ID, rec.Data, t.env.Container, t.env.Classificator, t.env.Metadata)
	if err != nil {
		t.skipFeature(rec.ID, err)
		return
	}

	if err := f.ParseCommon(); err != nil {
		t.skipFeature(rec.ID, err)
		return
	}
	if t.info.Cancelled() {
		return
	}

	if f.GeomType() != feature.GeomPoint {
		if err := f.ParseGeometryAndTriangles(key.Z); err != nil {
			t.skipFeature(rec.ID, err)
			return
		}
		if t.info.Cancelled() {
			return
		}
		empty, err := f.IsEmptyGeometry(key.Z)
		if err != nil {
			t.skipFeature(rec.ID, err)
			return
		}
		if empty {
			return
		}
	}

	t.engine.DeliverFeature(key, f)
	metrics.FeaturesDecoded.Inc()
}

func (t *readTileTask) skipFeature(id uint32, err error) {
	metrics.DecodeErrors.Inc()
	log.WithFields(log.Fields{
		"tile":    t.info.Key(),
		"feature": id,
	}).WithError(err).Warn("skipping corrupt feature record")
}
