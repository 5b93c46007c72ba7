package engine

import (
	"context"
	"testing"

	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/spatialindex"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// the query network: a bidirectional chain v0-v1-v2 with a faster detour
// over v3, a oneway v2->v4->v0 loop and a detached island v5=v6. weights in
// seconds, lengths in meters.
func buildQueryGraph(t *testing.T) *da.Graph {
	t.Helper()

	vertices := []*da.Vertex{
		da.NewVertex(0, 0, 0),
		da.NewVertex(0, 0.001, 1),
		da.NewVertex(0, 0.002, 2),
		da.NewVertex(0.001, 0.0015, 3),
		da.NewVertex(0, 0.003, 4),
		da.NewVertex(0.002, 0, 5),
		da.NewVertex(0.002, 0.001, 6),
	}
	edges := []*da.Edge{
		da.NewEdgeComplete(0, 0, 1, 1, 10, 100, 5, 0, 0),
		da.NewEdgeComplete(1, 1, 0, 0, 10, 100, 5, 0, 0),
		da.NewEdgeComplete(2, 1, 2, 4, 50, 200, 5, 0, 0),
		da.NewEdgeComplete(3, 1, 3, 7, 20, 150, 5, 0, 0),
		da.NewEdgeComplete(4, 2, 1, 2, 50, 200, 5, 0, 0),
		da.NewEdgeComplete(5, 2, 3, 8, 20, 150, 5, 0, 0),
		da.NewEdgeComplete(6, 2, 4, da.INVALID_EDGE_ID, 10, 100, 5, 0, 0),
		da.NewEdgeComplete(7, 3, 1, 3, 20, 150, 5, 0, 0),
		da.NewEdgeComplete(8, 3, 2, 5, 20, 150, 5, 0, 0),
		da.NewEdgeComplete(9, 4, 0, da.INVALID_EDGE_ID, 10, 100, 5, 0, 0),
		da.NewEdgeComplete(10, 5, 6, 11, 10, 100, 5, 0, 0),
		da.NewEdgeComplete(11, 6, 5, 10, 10, 100, 5, 0, 0),
	}

	g, err := da.NewGraph(vertices, edges, nil)
	require.NoError(t, err)
	return g
}

func newQueryEngine(t *testing.T, cfg *util.Config) *Engine {
	t.Helper()
	g := buildQueryGraph(t)
	index := spatialindex.NewRtree()
	index.Build(g, zap.NewNop())
	return NewEngine(g, index, zap.NewNop(), cfg)
}

func TestEngineSnap(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())

	sp, err := e.Snap(0.00002, 0.0002)
	require.NoError(t, err)
	assert.Equal(t, da.Index(0), sp.EdgeID)
	assert.InDelta(t, 0.2, sp.Fraction, 1e-3)
	assert.InDelta(t, 2.22, sp.Distance, 0.1)

	_, err = e.Snap(30, 30)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestEngineRoute(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())

	route, err := e.Route(context.Background(),
		geo.NewCoordinate(0.00002, 0.0002), geo.NewCoordinate(0.00002, 0.0025))
	require.NoError(t, err)

	assert.Equal(t, []da.Index{0, 3, 8, 6}, route.Edges)
	assert.InDelta(t, 53.0, route.TravelTime, 0.01)
	assert.InDelta(t, 430.0, route.Distance, 0.1)
}

func TestEngineRouteOffNetwork(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())
	ctx := context.Background()

	_, err := e.Route(ctx, geo.NewCoordinate(30, 30), geo.NewCoordinate(0.00002, 0.0025))
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = e.Route(ctx, geo.NewCoordinate(0.00002, 0.0002), geo.NewCoordinate(30, 30))
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestEngineRouteNoPath(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())

	// the island near v5 snaps fine but nothing connects it
	_, err := e.Route(context.Background(),
		geo.NewCoordinate(0.00002, 0.0002), geo.NewCoordinate(0.0019, 0.0002))
	assert.ErrorIs(t, err, util.ErrNoPath)
}

func TestEngineRouteToAll(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())

	routes, err := e.RouteToAll(context.Background(), geo.NewCoordinate(0.00002, 0.0002),
		[]geo.Coordinate{
			geo.NewCoordinate(0.00002, 0.0025), // reachable
			geo.NewCoordinate(30, 30),          // off the network
			geo.NewCoordinate(0.0019, 0.0002),  // island
		})
	require.NoError(t, err)
	require.Len(t, routes, 3)

	require.NotNil(t, routes[0])
	assert.InDelta(t, 53.0, routes[0].TravelTime, 0.01)
	assert.Nil(t, routes[1])
	assert.Nil(t, routes[2])
}

func TestEngineMatrix(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())

	m, err := e.Matrix(context.Background(),
		[]geo.Coordinate{geo.NewCoordinate(0.00002, 0.0002)},
		[]geo.Coordinate{geo.NewCoordinate(0.00002, 0.0025), geo.NewCoordinate(30, 30)})
	require.NoError(t, err)
	require.Equal(t, 1, m.Rows())
	require.Equal(t, 2, m.Cols())

	c := m.Get(0, 0)
	assert.True(t, c.Reachable)
	assert.InDelta(t, 53.0, c.TravelTime, 0.01)
	assert.InDelta(t, 430.0, c.Distance, 0.1)

	assert.False(t, m.Get(0, 1).Reachable)
}

func TestEngineMatrixTooLarge(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.MatrixMaxCells = 1
	e := newQueryEngine(t, cfg)

	_, err := e.Matrix(context.Background(),
		[]geo.Coordinate{geo.NewCoordinate(0.00002, 0.0002)},
		[]geo.Coordinate{geo.NewCoordinate(0.00002, 0.0025), geo.NewCoordinate(30, 30)})
	assert.ErrorIs(t, err, util.ErrMatrixTooLarge)
}

func TestEngineMatch(t *testing.T) {
	e := newQueryEngine(t, util.DefaultConfig())

	result, err := e.Match(context.Background(), []geo.Coordinate{
		geo.NewCoordinate(0.00002, 0.0002),
		geo.NewCoordinate(0.00002, 0.0008),
	})
	require.NoError(t, err)

	require.Len(t, result.MatchedPoints, 2)
	assert.Equal(t, da.Index(0), result.MatchedPoints[0].EdgeID)
	assert.Equal(t, da.Index(0), result.MatchedPoints[1].EdgeID)

	require.Len(t, result.Legs, 1)
	assert.Equal(t, []da.Index{0}, result.Legs[0].Edges)
	assert.InDelta(t, 6.0, result.Legs[0].TravelTime, 0.02)
}
