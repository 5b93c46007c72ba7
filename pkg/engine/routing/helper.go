package routing

import (
	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
)

// targetEntry is one vertex from which the snapped destination is reached
// directly, with the cost of the final partial edge piece.
type targetEntry struct {
	vertex  da.Index
	cost    float64
	dist    float64
	viaEdge da.Index
}

// applyForwardSeeds labels the vertices a snapped origin reaches without
// leaving its edge: the head of the edge with the weight remaining after the
// snap fraction and, when the road is bidirectional, the tail through the
// twin edge.
func (se *SearchEngine) applyForwardSeeds(ss *searchState, origin da.SnappedPoint) {
	e := se.graph.GetEdge(origin.EdgeID)
	ss.improve(e.GetHead(), (1-origin.Fraction)*e.GetWeight(), (1-origin.Fraction)*e.GetLength(),
		0, da.INVALID_VERTEX_ID, e.GetEdgeId())

	if e.HasReverse() {
		twin := se.graph.GetEdge(e.GetReverse())
		ss.improve(twin.GetHead(), origin.Fraction*twin.GetWeight(), origin.Fraction*twin.GetLength(),
			0, da.INVALID_VERTEX_ID, twin.GetEdgeId())
	}
}

// targetEntries mirrors applyForwardSeeds for the destination side: the tail
// of the snapped edge reaches the destination over the fraction already
// covered, the head over the twin when one exists.
func (se *SearchEngine) targetEntries(dest da.SnappedPoint) []targetEntry {
	e := se.graph.GetEdge(dest.EdgeID)
	entries := []targetEntry{{
		vertex:  e.GetTail(),
		cost:    dest.Fraction * e.GetWeight(),
		dist:    dest.Fraction * e.GetLength(),
		viaEdge: e.GetEdgeId(),
	}}

	if e.HasReverse() {
		twin := se.graph.GetEdge(e.GetReverse())
		entries = append(entries, targetEntry{
			vertex:  twin.GetTail(),
			cost:    (1 - dest.Fraction) * twin.GetWeight(),
			dist:    (1 - dest.Fraction) * twin.GetLength(),
			viaEdge: twin.GetEdgeId(),
		})
	}
	return entries
}

// assembleRoute flattens an edge id path into a Route. the first and last
// edges are cut at the snap fractions; interior edges contribute their full
// weight and geometry. a single edge carries both cuts, which covers the
// origin and destination sharing a road.
func (se *SearchEngine) assembleRoute(edges []da.Index, origin, dest da.SnappedPoint) da.Route {
	g := se.graph

	startFraction := origin.Fraction
	if edges[0] != origin.EdgeID {
		startFraction = 1 - origin.Fraction
	}
	endFraction := dest.Fraction
	if edges[len(edges)-1] != dest.EdgeID {
		endFraction = 1 - dest.Fraction
	}

	if len(edges) == 1 {
		e := g.GetEdge(edges[0])
		frac := endFraction - startFraction
		coords := g.EdgeGeometryBetween(edges[0], startFraction, endFraction)
		return da.NewRoute(frac*e.GetWeight(), frac*e.GetLength(), coords, edges)
	}

	first := g.GetEdge(edges[0])
	travelTime := (1 - startFraction) * first.GetWeight()
	distance := (1 - startFraction) * first.GetLength()
	coords := g.EdgeGeometryBetween(edges[0], startFraction, 1)

	for _, eid := range edges[1 : len(edges)-1] {
		e := g.GetEdge(eid)
		travelTime += e.GetWeight()
		distance += e.GetLength()

		ec := g.GetEdgeGeometry(eid)
		coords = append(coords, ec[1:]...)
	}

	last := g.GetEdge(edges[len(edges)-1])
	travelTime += endFraction * last.GetWeight()
	distance += endFraction * last.GetLength()

	lc := g.EdgeGeometryBetween(edges[len(edges)-1], 0, endFraction)
	coords = append(coords, lc[1:]...)

	return da.NewRoute(travelTime, distance, coords, edges)
}

func (se *SearchEngine) checkSnapped(p da.SnappedPoint) error {
	if int(p.EdgeID) >= se.graph.NumberOfEdges() {
		return util.WrapErrorf(nil, util.ErrBadParamInput,
			"snapped point references edge %d outside the graph", p.EdgeID)
	}
	if p.Fraction < 0 || p.Fraction > 1 {
		return util.WrapErrorf(nil, util.ErrBadParamInput,
			"snap fraction %f outside [0,1]", p.Fraction)
	}
	return nil
}
