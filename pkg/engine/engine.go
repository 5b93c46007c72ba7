package engine

import (
	"context"

	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/engine/mapmatcher"
	"github.com/lintang-b-s/go-osm-routing/pkg/engine/matrix"
	"github.com/lintang-b-s/go-osm-routing/pkg/engine/routing"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/spatialindex"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"go.uber.org/zap"
)

// Engine is the query surface of the routing core: snap, route, one to
// many, matrix and map matching over one immutable graph and spatial index.
// Every query owns its transient search state, so a single Engine serves
// unbounded concurrent callers.
type Engine struct {
	graph      *da.Graph
	index      *spatialindex.Rtree
	search     *routing.SearchEngine
	matrix     *matrix.Engine
	matcher    *mapmatcher.HiddenMarkovMatcher
	logger     *zap.Logger
	snapRadius float64
	maxCells   int
}

func NewEngine(graph *da.Graph, index *spatialindex.Rtree, logger *zap.Logger, cfg *util.Config) *Engine {
	search := routing.NewSearchEngine(graph, logger)
	return &Engine{
		graph:      graph,
		index:      index,
		search:     search,
		matrix:     matrix.NewEngine(search, logger, cfg),
		matcher:    mapmatcher.NewHiddenMarkovMatcher(search, index, logger, cfg),
		logger:     logger,
		snapRadius: cfg.SnapRadiusMeter,
		maxCells:   cfg.MatrixMaxCells,
	}
}

// NewEngineFromFile loads a compiled graph file, builds the spatial index
// over it and wires the query engines.
func NewEngineFromFile(graphPath string, logger *zap.Logger, cfg *util.Config) (*Engine, error) {
	logger.Info("starting road network query engine...")

	logger.Info("reading graph", zap.String("path", graphPath))
	graph, err := da.LoadGraph(graphPath)
	if err != nil {
		return nil, err
	}

	index := spatialindex.NewRtree()
	index.Build(graph, logger)

	logger.Info("query engine ready",
		zap.Int("vertices", graph.NumberOfVertices()),
		zap.Int("edges", graph.NumberOfEdges()))
	return NewEngine(graph, index, logger, cfg), nil
}

func (e *Engine) GetGraph() *da.Graph {
	return e.graph
}

func (e *Engine) GetSearchEngine() *routing.SearchEngine {
	return e.search
}

// Snap projects a coordinate onto the closest road within the configured
// snap radius. ErrNotFound when no road is near enough.
func (e *Engine) Snap(lat, lon float64) (da.SnappedPoint, error) {
	hits := e.index.Nearest(lat, lon, e.snapRadius, 1)
	if len(hits) == 0 {
		return da.SnappedPoint{}, util.WrapErrorf(nil, util.ErrNotFound,
			"no road segment within %.0f meter of (%f, %f)", e.snapRadius, lat, lon)
	}
	return hits[0], nil
}

// Route snaps both coordinates and computes the fastest path. ErrNotFound
// when either coordinate has no road nearby, ErrNoPath when the network
// does not connect them.
func (e *Engine) Route(ctx context.Context, origin, destination geo.Coordinate) (*da.Route, error) {
	snappedOrigin, err := e.Snap(origin.GetLat(), origin.GetLon())
	if err != nil {
		return nil, err
	}
	snappedDestination, err := e.Snap(destination.GetLat(), destination.GetLon())
	if err != nil {
		return nil, err
	}
	return e.search.Route(ctx, snappedOrigin, snappedDestination)
}

// RouteToAll computes the fastest path from one origin to every target.
// The result slice is parallel to targets; a target that is unreachable or
// too far from any road stays nil.
func (e *Engine) RouteToAll(ctx context.Context, origin geo.Coordinate, targets []geo.Coordinate) ([]*da.Route, error) {
	snappedOrigin, err := e.Snap(origin.GetLat(), origin.GetLon())
	if err != nil {
		return nil, err
	}

	validIdx, snappedTargets := e.snapAll(targets)
	partial, err := e.search.RouteToAll(ctx, snappedOrigin, snappedTargets)
	if err != nil {
		return nil, err
	}

	routes := make([]*da.Route, len(targets))
	for k, i := range validIdx {
		routes[i] = partial[k]
	}
	return routes, nil
}

// Matrix computes the travel time and distance between every source and
// target coordinate. Oversized requests fail with ErrMatrixTooLarge before
// anything is snapped or searched; sources and targets without a road
// nearby keep their whole row or column unreachable.
func (e *Engine) Matrix(ctx context.Context, sources, targets []geo.Coordinate) (*da.Matrix[da.MatrixCell], error) {
	if cells := len(sources) * len(targets); cells > e.maxCells {
		return nil, util.WrapErrorf(nil, util.ErrMatrixTooLarge,
			"%dx%d matrix needs %d cells, the engine allows %d",
			len(sources), len(targets), cells, e.maxCells)
	}

	srcIdx, snappedSources := e.snapAll(sources)
	tgtIdx, snappedTargets := e.snapAll(targets)

	sub, err := e.matrix.Matrix(ctx, snappedSources, snappedTargets)
	if err != nil {
		return nil, err
	}

	// zero value cells keep Reachable false, which covers the rows and
	// columns that failed to snap
	out := da.NewMatrix[da.MatrixCell](len(sources), len(targets))
	for si, i := range srcIdx {
		for tj, j := range tgtIdx {
			out.Set(i, j, sub.Get(si, tj))
		}
	}
	return out, nil
}

// Match decodes the most plausible road positions for a gps trace.
func (e *Engine) Match(ctx context.Context, trace []geo.Coordinate) (*da.MatchResult, error) {
	return e.matcher.Match(ctx, trace)
}

func (e *Engine) snapAll(points []geo.Coordinate) ([]int, []da.SnappedPoint) {
	idx := make([]int, 0, len(points))
	snappedPoints := make([]da.SnappedPoint, 0, len(points))
	for i, p := range points {
		sp, err := e.Snap(p.GetLat(), p.GetLon())
		if err != nil {
			continue
		}
		idx = append(idx, i)
		snappedPoints = append(snappedPoints, sp)
	}
	return idx, snappedPoints
}
