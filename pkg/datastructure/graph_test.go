package datastructure

import (
	"testing"

	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestGraph builds a small star shaped network.
//
//	      v2 (0.001, 0.001)
//	       |
//	v0 -- v1 -- v3
//
// every road is bidirectional, weights 10s, lengths ~111m. edge 0 carries
// one interior shape point.
func buildTestGraph(t *testing.T) *Graph {
	t.Helper()

	vertices := []*Vertex{
		NewVertex(0, 0, 0),
		NewVertex(0, 0.001, 1),
		NewVertex(0.001, 0.001, 2),
		NewVertex(0, 0.002, 3),
	}

	// sorted by (tail, head), ids equal to position
	edges := []*Edge{
		NewEdgeComplete(0, 0, 1, 1, 10, 111.19, 0, 0, 1),
		NewEdgeComplete(1, 1, 0, 0, 10, 111.19, 0, 0, 1),
		NewEdgeComplete(2, 1, 2, 4, 10, 111.19, 0, 0, 0),
		NewEdgeComplete(3, 1, 3, 5, 10, 111.19, 0, 0, 0),
		NewEdgeComplete(4, 2, 1, 2, 10, 111.19, 0, 0, 0),
		NewEdgeComplete(5, 3, 1, 3, 10, 111.19, 0, 0, 0),
	}

	geometry := []geo.Coordinate{geo.NewCoordinate(0, 0.0005)}

	g, err := NewGraph(vertices, edges, geometry)
	require.NoError(t, err)
	return g
}

func TestNewGraphOffsets(t *testing.T) {
	g := buildTestGraph(t)

	assert.Equal(t, 4, g.NumberOfVertices())
	assert.Equal(t, 6, g.NumberOfEdges())

	assert.Equal(t, Index(1), g.GetOutDegree(0))
	assert.Equal(t, Index(3), g.GetOutDegree(1))
	assert.Equal(t, Index(1), g.GetOutDegree(2))
	assert.Equal(t, Index(1), g.GetOutDegree(3))

	assert.Equal(t, Index(1), g.GetInDegree(0))
	assert.Equal(t, Index(3), g.GetInDegree(1))
	assert.Equal(t, Index(1), g.GetInDegree(2))
	assert.Equal(t, Index(1), g.GetInDegree(3))

	heads := []Index{}
	g.ForOutEdgesOf(1, func(e *Edge) {
		heads = append(heads, e.GetHead())
	})
	assert.Equal(t, []Index{0, 2, 3}, heads)

	inIds := []Index{}
	g.ForInEdgesOf(1, func(e *Edge) {
		assert.Equal(t, Index(1), e.GetHead())
		inIds = append(inIds, e.GetEdgeId())
	})
	assert.Equal(t, []Index{0, 4, 5}, inIds)
}

func TestGraphFindEdgeAndReverse(t *testing.T) {
	g := buildTestGraph(t)

	e, ok := g.FindEdge(1, 3)
	require.True(t, ok)
	assert.Equal(t, Index(3), e.GetEdgeId())
	require.True(t, e.HasReverse())

	twin := g.GetEdge(e.GetReverse())
	assert.Equal(t, e.GetTail(), twin.GetHead())
	assert.Equal(t, e.GetHead(), twin.GetTail())
	assert.Equal(t, e.GetEdgeId(), twin.GetReverse())

	_, ok = g.FindEdge(0, 3)
	assert.False(t, ok)
}

func TestGraphEdgeGeometry(t *testing.T) {
	g := buildTestGraph(t)

	coords := g.GetEdgeGeometry(0)
	require.Len(t, coords, 3)
	assert.Equal(t, geo.NewCoordinate(0, 0), coords[0])
	assert.Equal(t, geo.NewCoordinate(0, 0.0005), coords[1])
	assert.Equal(t, geo.NewCoordinate(0, 0.001), coords[2])

	// edge without interior points is just its endpoints
	coords = g.GetEdgeGeometry(3)
	require.Len(t, coords, 2)
}

func TestGraphBoundingBox(t *testing.T) {
	g := buildTestGraph(t)

	bb := g.GetBoundingBox()
	assert.Equal(t, 0.0, bb.GetMinLat())
	assert.Equal(t, 0.0, bb.GetMinLon())
	assert.Equal(t, 0.001, bb.GetMaxLat())
	assert.Equal(t, 0.002, bb.GetMaxLon())
	assert.True(t, bb.Contains(0.0005, 0.001))
	assert.False(t, bb.Contains(0.5, 0.001))
}

func TestNewGraphRejectsUnsortedEdges(t *testing.T) {
	vertices := []*Vertex{
		NewVertex(0, 0, 0),
		NewVertex(0, 0.001, 1),
	}
	edges := []*Edge{
		NewEdgeComplete(0, 1, 0, INVALID_EDGE_ID, 10, 111.19, 0, 0, 0),
		NewEdgeComplete(1, 0, 1, INVALID_EDGE_ID, 10, 111.19, 0, 0, 0),
	}

	_, err := NewGraph(vertices, edges, nil)
	require.Error(t, err)
}

func TestNewGraphRejectsBrokenReverseLink(t *testing.T) {
	vertices := []*Vertex{
		NewVertex(0, 0, 0),
		NewVertex(0, 0.001, 1),
	}
	// edge 1 claims edge 0 as twin but edge 0 does not point back
	edges := []*Edge{
		NewEdgeComplete(0, 0, 1, INVALID_EDGE_ID, 10, 111.19, 0, 0, 0),
		NewEdgeComplete(1, 1, 0, 0, 10, 111.19, 0, 0, 0),
	}

	_, err := NewGraph(vertices, edges, nil)
	require.Error(t, err)
}

func TestNewGraphRejectsNonPositiveWeight(t *testing.T) {
	vertices := []*Vertex{
		NewVertex(0, 0, 0),
		NewVertex(0, 0.001, 1),
	}
	edges := []*Edge{
		NewEdgeComplete(0, 0, 1, INVALID_EDGE_ID, 0, 111.19, 0, 0, 0),
	}

	_, err := NewGraph(vertices, edges, nil)
	require.Error(t, err)
}

func TestNewGraphRejectsEmpty(t *testing.T) {
	_, err := NewGraph(nil, nil, nil)
	require.Error(t, err)

	_, err = NewGraph([]*Vertex{NewVertex(0, 0, 0)}, nil, nil)
	require.Error(t, err)
}
