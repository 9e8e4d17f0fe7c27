// cmd/simulate.go - Viewport simulation over a synthetic container
package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"maptile-reader/internal"
	"maptile-reader/internal/config"
	"maptile-reader/pkg/container"
	"maptile-reader/pkg/feature"
	"maptile-reader/pkg/geo"
	"maptile-reader/pkg/reader"
	"maptile-reader/pkg/scales"
	"maptile-reader/pkg/tile"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive the read manager through a viewport script",
	Long: `Build a seeded synthetic container, then pan and zoom a viewport across
it while the read manager schedules tile reads on its worker pool.

Prints a per-step scheduling report and a final delivery summary.

Examples:
  # Pan 12 steps across 2000 random features
  tileread simulate --features 2000 --seed 42 --steps 12

  # Stress the survivor re-prioritisation with a single worker
  tileread simulate --steps 30 --concurrency 1`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Int("steps", 8, "number of pan steps")
	simulateCmd.Flags().Int("features", 0, "number of synthetic features (overrides config)")
	simulateCmd.Flags().Int64("seed", 0, "random seed (overrides config)")
}

// countingContext is the engine side of the simulation: it records
// deliveries per tile and filters nothing, so duplicate deliveries from
// re-prioritised survivor tiles stay visible in the report.
type countingContext struct {
	mu       sync.Mutex
	perTile  map[tile.Key]int
	features int
}

func newCountingContext() *countingContext {
	return &countingContext{perTile: make(map[tile.Key]int)}
}

// DeliverFeature implements reader.Context.
func (c *countingContext) DeliverFeature(key tile.Key, f *feature.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perTile[key]++
	c.features++
}

// recordingDescriptor counts the engine-side drop signals of one run.
type recordingDescriptor struct {
	dropAll   int
	dropTiles int
}

// DropAll implements reader.Descriptor.
func (d *recordingDescriptor) DropAll() { d.dropAll++ }

// DropTiles implements reader.Descriptor.
func (d *recordingDescriptor) DropTiles(keys []tile.Key) { d.dropTiles += len(keys) }

type simulateReport struct {
	Steps          int `json:"steps"`
	Features       int `json:"features"`
	TilesVisited   int `json:"tiles_visited"`
	DeliveredTotal int `json:"delivered_total"`
	DropAllCalls   int `json:"drop_all_calls"`
	DroppedTiles   int `json:"dropped_tiles"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("features"); v > 0 {
		cfg.Simulate.Features = v
	}
	if v, _ := cmd.Flags().GetInt64("seed"); v != 0 {
		cfg.Simulate.Seed = v
	}
	steps, _ := cmd.Flags().GetInt("steps")

	cont, err := simulateContainer(&cfg.Simulate)
	if err != nil {
		return err
	}
	model, err := populateModel(cont, &cfg.Simulate)
	if err != nil {
		return err
	}

	engine := newCountingContext()
	descr := &recordingDescriptor{}
	mgr := reader.NewReadManager(engine, reader.Env{
		Model:         model,
		Container:     cont,
		Classificator: container.SimpleClassificator{MaxIndex: uint32(cfg.Simulate.Types)},
		Metadata:      container.NewMemMetadata(),
	}, cfg.Reader.Concurrency)

	// Start over the container center, pan east one third of the
	// viewport per step, then zoom in for a full reset pass.
	width, height := geo.Range/64, geo.Range/64
	center := orb.Point{geo.MinX + geo.Range/2, geo.MinY + geo.Range/2}

	for step := 0; step < steps; step++ {
		v := geo.NewViewport(center, width, height, 0)
		mgr.UpdateCoverage(v, descr)
		log.WithFields(log.Fields{
			"step":  step,
			"scale": scales.TileScale(v),
			"live":  len(mgr.LiveTiles()),
		}).Info("viewport updated")
		center[0] += width / 3
	}
	mgr.UpdateCoverage(geo.NewViewport(center, width/2, height/2, 0), descr)

	mgr.Stop()

	report := simulateReport{
		Steps:          steps + 1,
		Features:       model.Len(),
		TilesVisited:   len(engine.perTile),
		DeliveredTotal: engine.features,
		DropAllCalls:   descr.dropAll,
		DroppedTiles:   descr.dropTiles,
	}
	rendered, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return internal.NewError(internal.ErrorCodeDecode, "report rendering failed", err)
	}
	fmt.Fprintln(os.Stdout, string(rendered))
	return nil
}

// populateModel fills a feature model with seeded random point, line and
// area features clustered around the container center.
func populateModel(cont *container.MemContainer, cfg *config.SimulateConfig) (*container.MemModel, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	model := &container.MemModel{}

	cluster := geo.Range / 32
	cx := geo.MinX + geo.Range/2
	cy := geo.MinY + geo.Range/2

	randPoint := func() orb.Point {
		return orb.Point{cx + (rng.Float64()-0.5)*cluster, cy + (rng.Float64()-0.5)*cluster}
	}

	for id := uint32(0); int(id) < cfg.Features; id++ {
		b := container.NewRecordBuilder(cont.DefaultCodingParams())
		b.SetTypes(uint32(rng.Intn(cfg.Types)))
		if rng.Intn(3) == 0 {
			b.SetName(feature.DefaultLang, fmt.Sprintf("feature-%d", id))
		}

		switch rng.Intn(3) {
		case 0:
			b.Point(randPoint())

		case 1:
			n := 3 + rng.Intn(8)
			points := make([]orb.Point, n)
			points[0] = randPoint()
			for i := 1; i < n; i++ {
				points[i] = orb.Point{
					points[i-1][0] + rng.Float64()*cluster/64,
					points[i-1][1] + rng.Float64()*cluster/64,
				}
			}
			markers := make([]uint8, n-2)
			for i := range markers {
				markers[i] = uint8(rng.Intn(cont.ScalesCount()))
			}
			b.InnerLine(points, markers)

		default:
			base := randPoint()
			strip := []orb.Point{
				base,
				{base[0] + cluster/128, base[1]},
				{base[0], base[1] + cluster/128},
				{base[0] + cluster/128, base[1] + cluster/128},
			}
			b.InnerArea(strip)
		}

		data, err := b.Build()
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, "synthetic record failed", err)
		}

		f, err := feature.New(id, data, cont,
			container.SimpleClassificator{MaxIndex: uint32(cfg.Types)},
			container.NewMemMetadata())
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, "synthetic record invalid", err)
		}
		rect, err := f.LimitRect(feature.BestGeometry)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, "synthetic record rect failed", err)
		}

		model.Add(container.Record{ID: id, Data: data, LimitRect: rect}, 0)
	}
	return model, nil
}
