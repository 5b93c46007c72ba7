package matrix

import (
	"context"

	"github.com/lintang-b-s/go-osm-routing/pkg/concurrent"
	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/engine/routing"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"go.uber.org/zap"
)

// Engine computes travel time matrices. Every row is one one-to-many
// Dijkstra from a source, rows run in parallel on a worker pool.
type Engine struct {
	search   *routing.SearchEngine
	logger   *zap.Logger
	maxCells int
	workers  int
}

func NewEngine(search *routing.SearchEngine, logger *zap.Logger, cfg *util.Config) *Engine {
	return &Engine{
		search:   search,
		logger:   logger,
		maxCells: cfg.MatrixMaxCells,
		workers:  cfg.MatrixWorkers,
	}
}

type matrixJob struct {
	row    int
	source da.SnappedPoint
}

type matrixRow struct {
	row   int
	cells []da.MatrixCell
	err   error
}

// Matrix computes travel time and distance from every source to every
// target. Cell (i, j) belongs to sources[i] and targets[j] no matter which
// worker computed the row. Unreachable pairs come back with Reachable false.
// A request over the configured cell limit fails with ErrMatrixTooLarge
// before any search runs.
func (me *Engine) Matrix(ctx context.Context, sources, targets []da.SnappedPoint) (*da.Matrix[da.MatrixCell], error) {
	cells := len(sources) * len(targets)
	if cells > me.maxCells {
		return nil, util.WrapErrorf(nil, util.ErrMatrixTooLarge,
			"%dx%d matrix needs %d cells, the engine allows %d",
			len(sources), len(targets), cells, me.maxCells)
	}

	me.logger.Debug("computing travel time matrix",
		zap.Int("sources", len(sources)), zap.Int("targets", len(targets)))

	// one buffered slot per row, so no worker ever blocks on the results
	// channel before the pool is drained
	wp := concurrent.NewWorkerPool[matrixJob, matrixRow](util.MaxG(me.workers, 1), len(sources))
	wp.Start(func(job matrixJob) matrixRow {
		return me.computeRow(ctx, job, targets)
	})
	for i, src := range sources {
		wp.AddJob(matrixJob{row: i, source: src})
	}
	wp.Close()
	wp.Wait()

	result := da.NewMatrix[da.MatrixCell](len(sources), len(targets))
	rowErrs := make([]error, len(sources))
	for row := range wp.CollectResults() {
		if row.err != nil {
			rowErrs[row.row] = row.err
			continue
		}
		result.SetRow(row.row, row.cells)
	}
	// rows finish in arbitrary order, report the error of the first row
	for _, err := range rowErrs {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (me *Engine) computeRow(ctx context.Context, job matrixJob, targets []da.SnappedPoint) matrixRow {
	routes, err := me.search.RouteToAll(ctx, job.source, targets)
	if err != nil {
		return matrixRow{row: job.row, err: err}
	}

	cells := make([]da.MatrixCell, len(targets))
	for j, r := range routes {
		if r == nil {
			cells[j] = da.NewMatrixCell(0, 0, false)
			continue
		}
		cells[j] = da.NewMatrixCell(r.TravelTime, r.Distance, true)
	}
	return matrixRow{row: job.row, cells: cells}
}
