package datastructure

import (
	"fmt"
	"math"

	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
)

type Index uint32

const (
	INVALID_VERTEX_ID Index = math.MaxUint32
	INVALID_EDGE_ID   Index = math.MaxUint32
)

type Vertex struct {
	lat      float64
	lon      float64
	firstOut Index // index of the first outEdge of this vertex in the flattened graph.outEdges array
	firstIn  Index // index of the first inEdge ref of this vertex in the flattened graph.inEdgeRefs array
	id       Index
}

func NewVertex(lat, lon float64, id Index) *Vertex {
	return &Vertex{
		lat: lat,
		lon: lon,
		id:  id,
	}
}

func (v *Vertex) SetFirstOut(firstOut Index) {
	v.firstOut = firstOut
}

func (v *Vertex) SetFirstIn(firstIn Index) {
	v.firstIn = firstIn
}

func (v *Vertex) SetId(id Index) {
	v.id = id
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetLat() float64 {
	return v.lat
}

func (v *Vertex) GetLon() float64 {
	return v.lon
}

func (v *Vertex) GetFirstOut() Index {
	return v.firstOut
}

func (v *Vertex) GetFirstIn() Index {
	return v.firstIn
}

// Edge is one directed road segment between two adjacent graph vertices.
// A bidirectional road contributes two edges that point at each other
// through the reverse field.
type Edge struct {
	weight    float64 // seconds
	dist      float64 // meter
	id        Index
	tail      Index
	head      Index
	reverse   Index // edge id of the opposite direction, INVALID_EDGE_ID for oneway
	geomFirst Index // offset of the first interior shape point in graph.geometry
	geomCount Index
	roadClass uint8
}

func NewEdge(tail, head Index, weight, dist float64, roadClass uint8) *Edge {
	return &Edge{
		tail:      tail,
		head:      head,
		weight:    weight,
		dist:      dist,
		roadClass: roadClass,
		id:        INVALID_EDGE_ID,
		reverse:   INVALID_EDGE_ID,
	}
}

func NewEdgeComplete(id, tail, head, reverse Index, weight, dist float64,
	roadClass uint8, geomFirst, geomCount Index) *Edge {
	return &Edge{
		id:        id,
		tail:      tail,
		head:      head,
		reverse:   reverse,
		weight:    weight,
		dist:      dist,
		roadClass: roadClass,
		geomFirst: geomFirst,
		geomCount: geomCount,
	}
}

func (e *Edge) GetEdgeId() Index {
	return e.id
}

func (e *Edge) SetEdgeId(id Index) {
	e.id = id
}

func (e *Edge) GetTail() Index {
	return e.tail
}

func (e *Edge) GetHead() Index {
	return e.head
}

func (e *Edge) GetWeight() float64 {
	return e.weight
}

func (e *Edge) SetWeight(travelTime float64) {
	e.weight = travelTime
}

func (e *Edge) GetLength() float64 {
	return e.dist
}

func (e *Edge) GetEdgeSpeed() float64 {
	if e.weight == 0 {
		return 0
	}
	return e.dist / e.weight
}

func (e *Edge) GetReverse() Index {
	return e.reverse
}

func (e *Edge) SetReverse(reverse Index) {
	e.reverse = reverse
}

func (e *Edge) HasReverse() bool {
	return e.reverse != INVALID_EDGE_ID
}

func (e *Edge) GetRoadClass() uint8 {
	return e.roadClass
}

func (e *Edge) SetGeometry(first, count Index) {
	e.geomFirst = first
	e.geomCount = count
}

func (e *Edge) GetGeomFirst() Index {
	return e.geomFirst
}

func (e *Edge) GetGeomCount() Index {
	return e.geomCount
}

// main routing graph in compressed sparse row form. static (i.e. can't add
// new edges). outEdges is sorted by (tail, head); the reverse adjacency is
// a permutation of edge ids grouped by head vertex, so every edge exists
// exactly once and both search directions see identical weights.
type Graph struct {
	vertices   []*Vertex // one extra sentinel vertex at the end for the degree computation
	outEdges   []*Edge
	inEdgeRefs []Index          // edge ids grouped by head vertex, indexed via vertices[v].firstIn
	geometry   []geo.Coordinate // interior shape points of all edges, referenced by geomFirst/geomCount

	boundingBox *BoundingBox
}

// NewGraph builds the immutable graph from compiled vertices (without
// sentinel, id equal to slice position) and edges already sorted by
// (tail, head) with ids equal to slice position. It derives the forward
// and reverse offset arrays and the bounding box, and validates the result.
func NewGraph(vertices []*Vertex, outEdges []*Edge, geometry []geo.Coordinate) (*Graph, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("graph has no vertices")
	}
	if len(outEdges) == 0 {
		return nil, fmt.Errorf("graph has no edges")
	}

	n := len(vertices)

	withSentinel := make([]*Vertex, 0, n+1)
	withSentinel = append(withSentinel, vertices...)
	withSentinel = append(withSentinel, NewVertex(0, 0, Index(n)))

	g := &Graph{
		vertices: withSentinel,
		outEdges: outEdges,
		geometry: geometry,
	}

	g.buildOffsets()
	g.buildBoundingBox()

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) buildOffsets() {
	n := g.NumberOfVertices()
	m := len(g.outEdges)

	outDeg := make([]Index, n)
	inDeg := make([]Index, n)
	for _, e := range g.outEdges {
		outDeg[e.tail]++
		inDeg[e.head]++
	}

	var outOffset, inOffset Index
	for v := 0; v < n; v++ {
		g.vertices[v].SetFirstOut(outOffset)
		g.vertices[v].SetFirstIn(inOffset)
		outOffset += outDeg[v]
		inOffset += inDeg[v]
	}
	g.vertices[n].SetFirstOut(Index(m))
	g.vertices[n].SetFirstIn(Index(m))

	// reverse adjacency: counting sort of edge ids by head vertex. within a
	// bucket the ids stay ascending, so the layout is deterministic.
	g.inEdgeRefs = make([]Index, m)
	next := make([]Index, n)
	for v := 0; v < n; v++ {
		next[v] = g.vertices[v].firstIn
	}
	for _, e := range g.outEdges {
		g.inEdgeRefs[next[e.head]] = e.id
		next[e.head]++
	}
}

func (g *Graph) buildBoundingBox() {
	first := g.vertices[0]
	bb := NewBoundingBox(first.lat, first.lon, first.lat, first.lon)
	for _, v := range g.vertices[:g.NumberOfVertices()] {
		bb.Extend(v.lat, v.lon)
	}
	for _, c := range g.geometry {
		bb.Extend(c.GetLat(), c.GetLon())
	}
	g.boundingBox = bb
}

// Validate checks the structural invariants of the compiled graph. It is
// called after compilation and after loading a graph file.
func (g *Graph) Validate() error {
	n := g.NumberOfVertices()
	m := len(g.outEdges)
	if n < 1 || len(g.vertices) != n+1 {
		return fmt.Errorf("graph vertex array is malformed")
	}

	for v := 0; v < n; v++ {
		if g.vertices[v].id != Index(v) {
			return fmt.Errorf("vertex %d has id %d", v, g.vertices[v].id)
		}
		if math.Abs(g.vertices[v].lat) > 90 || math.Abs(g.vertices[v].lon) > 180 {
			return fmt.Errorf("vertex %d coordinate out of range", v)
		}
		if g.vertices[v].firstOut > g.vertices[v+1].firstOut {
			return fmt.Errorf("out offset of vertex %d is not monotone", v)
		}
		if g.vertices[v].firstIn > g.vertices[v+1].firstIn {
			return fmt.Errorf("in offset of vertex %d is not monotone", v)
		}
	}
	if g.vertices[0].firstOut != 0 || g.vertices[n].firstOut != Index(m) ||
		g.vertices[0].firstIn != 0 || g.vertices[n].firstIn != Index(m) {
		return fmt.Errorf("offset array does not cover the edge array")
	}

	for i, e := range g.outEdges {
		if e.id != Index(i) {
			return fmt.Errorf("edge %d has id %d", i, e.id)
		}
		if int(e.tail) >= n || int(e.head) >= n {
			return fmt.Errorf("edge %d endpoint out of range", i)
		}
		if e.weight <= 0 {
			return fmt.Errorf("edge %d has non positive weight %f", i, e.weight)
		}
		if e.dist < 0 {
			return fmt.Errorf("edge %d has negative length", i)
		}
		if i > 0 {
			prev := g.outEdges[i-1]
			if prev.tail > e.tail || (prev.tail == e.tail && prev.head > e.head) {
				return fmt.Errorf("edge array is not sorted at %d", i)
			}
		}
		if e.id < g.vertices[e.tail].firstOut || e.id >= g.vertices[e.tail+1].firstOut {
			return fmt.Errorf("edge %d lies outside the bucket of its tail", i)
		}
		if e.reverse != INVALID_EDGE_ID {
			if int(e.reverse) >= m {
				return fmt.Errorf("edge %d reverse link out of range", i)
			}
			twin := g.outEdges[e.reverse]
			if twin.reverse != e.id || twin.tail != e.head || twin.head != e.tail {
				return fmt.Errorf("edge %d reverse link is not symmetric", i)
			}
		}
		if int(e.geomFirst)+int(e.geomCount) > len(g.geometry) {
			return fmt.Errorf("edge %d geometry reference out of range", i)
		}
	}

	if len(g.inEdgeRefs) != m {
		return fmt.Errorf("reverse adjacency is not a permutation of the edge array")
	}
	for v := 0; v < n; v++ {
		for i := g.vertices[v].firstIn; i < g.vertices[v+1].firstIn; i++ {
			ref := g.inEdgeRefs[i]
			if int(ref) >= m {
				return fmt.Errorf("reverse adjacency ref out of range at %d", i)
			}
			if g.outEdges[ref].head != Index(v) {
				return fmt.Errorf("reverse adjacency of vertex %d holds foreign edge %d", v, ref)
			}
		}
	}
	return nil
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices) - 1
}

func (g *Graph) NumberOfEdges() int {
	return len(g.outEdges)
}

func (g *Graph) GetOutDegree(u Index) Index {
	return g.vertices[u+1].firstOut - g.vertices[u].firstOut
}

func (g *Graph) GetInDegree(u Index) Index {
	return g.vertices[u+1].firstIn - g.vertices[u].firstIn
}

func (g *Graph) GetEdge(e Index) *Edge {
	return g.outEdges[e]
}

func (g *Graph) GetVertex(u Index) *Vertex {
	return g.vertices[u]
}

func (g *Graph) GetVertexCoordinates(u Index) (float64, float64) {
	v := g.vertices[u]
	return v.lat, v.lon
}

func (g *Graph) GetVertices() []*Vertex {
	return g.vertices[:g.NumberOfVertices()]
}

func (g *Graph) GetOutEdges() []*Edge {
	return g.outEdges
}

// ForOutEdgesOf calls handle for every edge leaving u, ascending head order.
func (g *Graph) ForOutEdgesOf(u Index, handle func(e *Edge)) {
	for i := g.vertices[u].firstOut; i < g.vertices[u+1].firstOut; i++ {
		handle(g.outEdges[i])
	}
}

// ForInEdgesOf calls handle for every edge entering v, ascending edge id order.
func (g *Graph) ForInEdgesOf(v Index, handle func(e *Edge)) {
	for i := g.vertices[v].firstIn; i < g.vertices[v+1].firstIn; i++ {
		handle(g.outEdges[g.inEdgeRefs[i]])
	}
}

// FindEdge returns the first edge from u to v if one exists.
func (g *Graph) FindEdge(u, v Index) (*Edge, bool) {
	for i := g.vertices[u].firstOut; i < g.vertices[u+1].firstOut; i++ {
		if g.outEdges[i].head == v {
			return g.outEdges[i], true
		}
	}
	return nil, false
}

func (g *Graph) GetHaversineDistanceFromUtoV(u, v Index) float64 {
	uvertex := g.GetVertex(u)
	vvertex := g.GetVertex(v)
	return geo.CalculateHaversineDistance(uvertex.lat, uvertex.lon, vvertex.lat, vvertex.lon)
}

func (g *Graph) GetBoundingBox() *BoundingBox {
	return g.boundingBox
}

// GetEdgeGeometry returns the full polyline of edge e, tail and head
// coordinates included.
func (g *Graph) GetEdgeGeometry(e Index) []geo.Coordinate {
	edge := g.outEdges[e]
	coords := make([]geo.Coordinate, 0, edge.geomCount+2)

	tail := g.vertices[edge.tail]
	coords = append(coords, geo.NewCoordinate(tail.lat, tail.lon))
	coords = append(coords, g.geometry[edge.geomFirst:edge.geomFirst+edge.geomCount]...)
	head := g.vertices[edge.head]
	coords = append(coords, geo.NewCoordinate(head.lat, head.lon))
	return coords
}
