package routing

import (
	"context"
	"math"

	"github.com/lintang-b-s/go-osm-routing/pkg"
	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
)

// RouteToAll computes the fastest path from one origin to every target with
// a single forward Dijkstra. the result slice is parallel to targets; nil
// marks a target the origin cannot reach.
func (se *SearchEngine) RouteToAll(ctx context.Context, origin da.SnappedPoint,
	targets []da.SnappedPoint) ([]*da.Route, error) {
	if err := se.checkSnapped(origin); err != nil {
		return nil, err
	}
	for _, t := range targets {
		if err := se.checkSnapped(t); err != nil {
			return nil, err
		}
	}

	routes := make([]*da.Route, len(targets))

	// targets on the origin edge resolve exactly like the one-to-one query,
	// so matrix rows agree with point-to-point results
	searchTargets := make([]int, 0, len(targets))
	for j, tp := range targets {
		if tp.EdgeID == origin.EdgeID {
			e := se.graph.GetEdge(origin.EdgeID)
			if da.Le(origin.Fraction, tp.Fraction) {
				r := se.assembleRoute([]da.Index{e.GetEdgeId()}, origin, tp)
				routes[j] = &r
				continue
			}
			if e.HasReverse() {
				r := se.assembleRoute([]da.Index{e.GetReverse()}, origin, tp)
				routes[j] = &r
				continue
			}
		}
		searchTargets = append(searchTargets, j)
	}
	if len(searchTargets) == 0 {
		return routes, nil
	}

	ss := newSearchState()
	se.applyForwardSeeds(ss, origin)

	entriesByTarget := make([][]targetEntry, len(targets))
	neededVertices := make(map[da.Index]struct{})
	for _, j := range searchTargets {
		entriesByTarget[j] = se.targetEntries(targets[j])
		for _, entry := range entriesByTarget[j] {
			neededVertices[entry.vertex] = struct{}{}
		}
	}

	// run until every entry vertex is settled or the reachable part of the
	// graph is exhausted
	remaining := len(neededVertices)
	for ss.pq.Size() > 0 && remaining > 0 {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrInternalServerError, "route query canceled")
		}

		u, uLbl, ok := ss.settleNext()
		if !ok {
			break
		}
		if _, need := neededVertices[u]; need {
			delete(neededVertices, u)
			remaining--
		}

		se.graph.ForOutEdgesOf(u, func(e *da.Edge) {
			ss.improve(e.GetHead(), uLbl.cost+e.GetWeight(), uLbl.dist+e.GetLength(),
				uLbl.hops+1, u, e.GetEdgeId())
		})
	}

	for _, j := range searchTargets {
		routes[j] = se.assembleTarget(ss, entriesByTarget[j], origin, targets[j])
	}
	return routes, nil
}

// assembleTarget picks the cheapest entry vertex of one target and unwinds
// the route through it. ties resolve by hops, then entry vertex id.
func (se *SearchEngine) assembleTarget(ss *searchState, entries []targetEntry,
	origin, target da.SnappedPoint) *da.Route {
	bestCost := 2 * pkg.INF_WEIGHT
	var bestHops int32
	bestVertex := da.INVALID_VERTEX_ID
	var bestVia da.Index
	found := false

	for _, entry := range entries {
		lbl, ok := ss.info[entry.vertex]
		if !ok || !lbl.settled {
			continue
		}
		total := lbl.cost + entry.cost
		if !found || da.Lt(total, bestCost) ||
			(da.Eq(total, bestCost) && (lbl.hops < bestHops ||
				(lbl.hops == bestHops && entry.vertex < bestVertex))) {
			if total < bestCost {
				bestCost = total
			}
			bestHops = lbl.hops
			bestVertex = entry.vertex
			bestVia = entry.viaEdge
			found = true
		}
	}
	if !found {
		return nil
	}

	edges := append(util.ReverseG(ss.unwind(bestVertex)), bestVia)
	route := se.assembleRoute(edges, origin, target)
	return &route
}

// VertexDistances runs one Dijkstra from source and reports the length in
// meters of the fastest path to every target vertex, +Inf where no path
// exists. the map matcher feeds these into its transition scores.
func (se *SearchEngine) VertexDistances(ctx context.Context, source da.Index,
	targets []da.Index) ([]float64, error) {
	if int(source) >= se.graph.NumberOfVertices() {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "vertex %d outside the graph", source)
	}

	neededVertices := make(map[da.Index]struct{}, len(targets))
	for _, t := range targets {
		if int(t) >= se.graph.NumberOfVertices() {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "vertex %d outside the graph", t)
		}
		neededVertices[t] = struct{}{}
	}

	ss := newSearchState()
	ss.improve(source, 0, 0, 0, da.INVALID_VERTEX_ID, da.INVALID_EDGE_ID)

	remaining := len(neededVertices)
	for ss.pq.Size() > 0 && remaining > 0 {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrInternalServerError, "distance query canceled")
		}

		u, uLbl, ok := ss.settleNext()
		if !ok {
			break
		}
		if _, need := neededVertices[u]; need {
			delete(neededVertices, u)
			remaining--
		}

		se.graph.ForOutEdgesOf(u, func(e *da.Edge) {
			ss.improve(e.GetHead(), uLbl.cost+e.GetWeight(), uLbl.dist+e.GetLength(),
				uLbl.hops+1, u, e.GetEdgeId())
		})
	}

	dists := make([]float64, len(targets))
	for i, t := range targets {
		lbl, ok := ss.info[t]
		if !ok || !lbl.settled {
			dists[i] = math.Inf(1)
			continue
		}
		dists[i] = lbl.dist
	}
	return dists, nil
}
