package mapmatcher

import (
	"context"
	"testing"

	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/engine/routing"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/spatialindex"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// buildParallelRoads compiles two straight bidirectional roads about 33
// meter apart with no connection between them:
//
//	road B:  v4 ==== v5 ==== v6 ==== v7    lat 0.0003
//	road A:  v0 ==== v1 ==== v2 ==== v3    lat 0
//
// segments span 0.001 degree of longitude, about 111 meter. traces along
// road A keep every road B candidate unreachable, which is exactly the
// ambiguity the matcher has to resolve.
func buildParallelRoads(t *testing.T) *da.Graph {
	t.Helper()

	vertices := []*da.Vertex{
		da.NewVertex(0, 0, 0),
		da.NewVertex(0, 0.001, 1),
		da.NewVertex(0, 0.002, 2),
		da.NewVertex(0, 0.003, 3),
		da.NewVertex(0.0003, 0, 4),
		da.NewVertex(0.0003, 0.001, 5),
		da.NewVertex(0.0003, 0.002, 6),
		da.NewVertex(0.0003, 0.003, 7),
	}
	edges := []*da.Edge{
		da.NewEdgeComplete(0, 0, 1, 1, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(1, 1, 0, 0, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(2, 1, 2, 3, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(3, 2, 1, 2, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(4, 2, 3, 5, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(5, 3, 2, 4, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(6, 4, 5, 7, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(7, 5, 4, 6, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(8, 5, 6, 9, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(9, 6, 5, 8, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(10, 6, 7, 11, 11.12, 111.19, 5, 0, 0),
		da.NewEdgeComplete(11, 7, 6, 10, 11.12, 111.19, 5, 0, 0),
	}

	g, err := da.NewGraph(vertices, edges, nil)
	require.NoError(t, err)
	return g
}

func newTestMatcher(t *testing.T, cfg *util.Config) *HiddenMarkovMatcher {
	t.Helper()
	g := buildParallelRoads(t)
	search := routing.NewSearchEngine(g, zap.NewNop())
	index := spatialindex.NewRtree()
	index.Build(g, zap.NewNop())
	return NewHiddenMarkovMatcher(search, index, zap.NewNop(), cfg)
}

func TestMatchStaysOnCoherentRoad(t *testing.T) {
	hm := newTestMatcher(t, util.DefaultConfig())

	// all observations hug road A except the third, which sits closer to
	// road B. the nearest edge alone would put it on B, but B cannot be
	// reached from A, so the decoded sequence has to keep it on A.
	trace := []geo.Coordinate{
		geo.NewCoordinate(0.00005, 0.0005),
		geo.NewCoordinate(0.00005, 0.0015),
		geo.NewCoordinate(0.00025, 0.0025),
		geo.NewCoordinate(0.00005, 0.0028),
	}

	result, err := hm.Match(context.Background(), trace)
	require.NoError(t, err)
	require.Len(t, result.MatchedPoints, 4)

	assert.Equal(t, da.Index(0), result.MatchedPoints[0].EdgeID)
	assert.Equal(t, da.Index(2), result.MatchedPoints[1].EdgeID)
	assert.Equal(t, da.Index(4), result.MatchedPoints[2].EdgeID)
	assert.Equal(t, da.Index(4), result.MatchedPoints[3].EdgeID)

	assert.InDelta(t, 0.5, result.MatchedPoints[0].Fraction, 0.02)
	assert.InDelta(t, 0.5, result.MatchedPoints[2].Fraction, 0.02)
	assert.InDelta(t, 0.8, result.MatchedPoints[3].Fraction, 0.02)

	require.Len(t, result.Legs, 3)
	assert.Equal(t, []da.Index{0, 2}, result.Legs[0].Edges)
	assert.Equal(t, []da.Index{2, 4}, result.Legs[1].Edges)
	assert.Equal(t, []da.Index{4}, result.Legs[2].Edges)

	// merged geometry runs along road A from the first to the last match
	require.NotEmpty(t, result.Coordinates)
	first := result.Coordinates[0]
	last := result.Coordinates[len(result.Coordinates)-1]
	assert.InDelta(t, 0.0, first.GetLat(), 1e-6)
	assert.InDelta(t, 0.0005, first.GetLon(), 1e-4)
	assert.InDelta(t, 0.0028, last.GetLon(), 1e-4)
	assert.NotEmpty(t, result.Polyline)
}

func TestMatchNoRoadNearObservation(t *testing.T) {
	hm := newTestMatcher(t, util.DefaultConfig())

	trace := []geo.Coordinate{
		geo.NewCoordinate(0.00005, 0.0005),
		geo.NewCoordinate(0.01, 0.0005), // over a kilometer off the network
	}

	_, err := hm.Match(context.Background(), trace)
	assert.ErrorIs(t, err, util.ErrNoMatch)
}

func TestMatchUnreachableTransition(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.MatcherRadiusMeter = 20
	hm := newTestMatcher(t, cfg)

	// with a 20 meter radius the first observation only sees road A and the
	// second only road B. no finite transition connects them.
	trace := []geo.Coordinate{
		geo.NewCoordinate(0.00005, 0.0005),
		geo.NewCoordinate(0.00025, 0.0015),
	}

	_, err := hm.Match(context.Background(), trace)
	assert.ErrorIs(t, err, util.ErrNoMatch)
}

func TestMatchSingleObservation(t *testing.T) {
	hm := newTestMatcher(t, util.DefaultConfig())

	result, err := hm.Match(context.Background(),
		[]geo.Coordinate{geo.NewCoordinate(0.00005, 0.0005)})
	require.NoError(t, err)

	require.Len(t, result.MatchedPoints, 1)
	assert.Equal(t, da.Index(0), result.MatchedPoints[0].EdgeID)
	assert.Empty(t, result.Legs)
	require.Len(t, result.Coordinates, 1)
	assert.InDelta(t, 0.0005, result.Coordinates[0].GetLon(), 1e-4)
}

func TestMatchEmptyTrace(t *testing.T) {
	hm := newTestMatcher(t, util.DefaultConfig())

	_, err := hm.Match(context.Background(), nil)
	assert.ErrorIs(t, err, util.ErrBadParamInput)
}

func TestMatchCanceledContext(t *testing.T) {
	hm := newTestMatcher(t, util.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trace := []geo.Coordinate{
		geo.NewCoordinate(0.00005, 0.0005),
		geo.NewCoordinate(0.00005, 0.0015),
	}

	_, err := hm.Match(ctx, trace)
	assert.ErrorIs(t, err, util.ErrInternalServerError)
}

func TestMatchBackwardOnBidirectionalRoad(t *testing.T) {
	hm := newTestMatcher(t, util.DefaultConfig())

	// the trace runs east to west, against the forward direction of the
	// canonical candidate edges. legs ride the twin edges.
	trace := []geo.Coordinate{
		geo.NewCoordinate(0.00005, 0.0028),
		geo.NewCoordinate(0.00005, 0.0015),
		geo.NewCoordinate(0.00005, 0.0005),
	}

	result, err := hm.Match(context.Background(), trace)
	require.NoError(t, err)
	require.Len(t, result.Legs, 2)

	// longitudes of the merged geometry decrease monotonically
	coords := result.Coordinates
	require.True(t, len(coords) >= 2)
	for i := 1; i < len(coords); i++ {
		assert.LessOrEqual(t, coords[i].GetLon(), coords[i-1].GetLon()+1e-9)
	}
	assert.InDelta(t, 0.0028, coords[0].GetLon(), 1e-4)
	assert.InDelta(t, 0.0005, coords[len(coords)-1].GetLon(), 1e-4)
}
