package mapmatcher

import (
	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
)

// transitionKey addresses the cached routed distance in meters between two
// graph vertices.
type transitionKey struct {
	from da.Index
	to   da.Index
}

// endpoint is a vertex through which a snapped point leaves or enters its
// edge, with the partial edge meters covered on the way.
type endpoint struct {
	vertex da.Index
	dist   float64
}

// exitPoints lists the vertices a snapped position can leave its edge over:
// the head of the edge and, on a bidirectional road, the head of the twin.
func (hm *HiddenMarkovMatcher) exitPoints(p da.SnappedPoint) []endpoint {
	e := hm.graph.GetEdge(p.EdgeID)
	exits := []endpoint{{vertex: e.GetHead(), dist: (1 - p.Fraction) * e.GetLength()}}
	if e.HasReverse() {
		twin := hm.graph.GetEdge(e.GetReverse())
		exits = append(exits, endpoint{vertex: twin.GetHead(), dist: p.Fraction * twin.GetLength()})
	}
	return exits
}

// entryPoints mirrors exitPoints for the arriving side.
func (hm *HiddenMarkovMatcher) entryPoints(p da.SnappedPoint) []endpoint {
	e := hm.graph.GetEdge(p.EdgeID)
	entries := []endpoint{{vertex: e.GetTail(), dist: p.Fraction * e.GetLength()}}
	if e.HasReverse() {
		twin := hm.graph.GetEdge(e.GetReverse())
		entries = append(entries, endpoint{vertex: twin.GetTail(), dist: (1 - p.Fraction) * twin.GetLength()})
	}
	return entries
}
