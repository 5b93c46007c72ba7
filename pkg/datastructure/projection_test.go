package datastructure

import (
	"testing"

	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectOntoEdge(t *testing.T) {
	g := buildTestGraph(t)

	// edge 3 runs along the equator from (0, 0.001) to (0, 0.002). a query
	// slightly north of its middle projects onto the middle.
	proj, dist, fraction := g.ProjectOntoEdge(3, geo.NewCoordinate(0.00005, 0.0015))
	assert.InDelta(t, 0.0, proj.GetLat(), 1e-7)
	assert.InDelta(t, 0.0015, proj.GetLon(), 1e-5)
	assert.InDelta(t, 5.56, dist, 0.2)
	assert.InDelta(t, 0.5, fraction, 1e-2)
}

func TestProjectOntoEdgeClampsToEndpoints(t *testing.T) {
	g := buildTestGraph(t)

	// beyond the head of edge 3
	proj, _, fraction := g.ProjectOntoEdge(3, geo.NewCoordinate(0, 0.01))
	assert.InDelta(t, 0.002, proj.GetLon(), 1e-6)
	assert.InDelta(t, 1.0, fraction, 1e-6)

	// before the tail of edge 3
	proj, _, fraction = g.ProjectOntoEdge(3, geo.NewCoordinate(0, 0.0))
	assert.InDelta(t, 0.001, proj.GetLon(), 1e-6)
	assert.InDelta(t, 0.0, fraction, 1e-6)
}

func TestProjectOntoEdgeWithInteriorPoints(t *testing.T) {
	g := buildTestGraph(t)

	// edge 0 has an interior shape point at (0, 0.0005). projecting the
	// shape point itself gives zero distance at fraction 0.5.
	proj, dist, fraction := g.ProjectOntoEdge(0, geo.NewCoordinate(0, 0.0005))
	assert.InDelta(t, 0.0005, proj.GetLon(), 1e-7)
	assert.InDelta(t, 0.0, dist, 1e-6)
	assert.InDelta(t, 0.5, fraction, 1e-3)
}

func TestEdgeGeometryBetween(t *testing.T) {
	g := buildTestGraph(t)

	// middle half of edge 3
	cut := g.EdgeGeometryBetween(3, 0.25, 0.75)
	require.Len(t, cut, 2)
	assert.InDelta(t, 0.00125, cut[0].GetLon(), 1e-6)
	assert.InDelta(t, 0.00175, cut[1].GetLon(), 1e-6)

	// full range keeps the interior shape point of edge 0
	cut = g.EdgeGeometryBetween(0, 0, 1)
	require.Len(t, cut, 3)
	assert.InDelta(t, 0.0005, cut[1].GetLon(), 1e-9)

	// cut starting past the interior point drops it
	cut = g.EdgeGeometryBetween(0, 0.75, 1)
	require.Len(t, cut, 2)
	assert.InDelta(t, 0.00075, cut[0].GetLon(), 1e-6)
	assert.InDelta(t, 0.001, cut[1].GetLon(), 1e-6)
}
