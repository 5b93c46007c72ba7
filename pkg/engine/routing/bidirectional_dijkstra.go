package routing

import (
	"context"

	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
)

// bidirectionalSearch runs Dijkstra from both ends at once: forward over the
// out adjacency from the origin, backward over the in adjacency from the
// destination. expansion alternates toward the smaller heap top and stops
// once the two frontiers together cannot beat the best meeting point.
type bidirectionalSearch struct {
	engine   *SearchEngine
	forward  *searchState
	backward *searchState
	best     meetCandidate
}

func newBidirectionalSearch(engine *SearchEngine) *bidirectionalSearch {
	return &bidirectionalSearch{
		engine:   engine,
		forward:  newSearchState(),
		backward: newSearchState(),
		best:     newMeetCandidate(),
	}
}

// Route computes the fastest path between two snapped points.
func (se *SearchEngine) Route(ctx context.Context, origin, destination da.SnappedPoint) (*da.Route, error) {
	if err := se.checkSnapped(origin); err != nil {
		return nil, err
	}
	if err := se.checkSnapped(destination); err != nil {
		return nil, err
	}

	if origin.EdgeID == destination.EdgeID {
		e := se.graph.GetEdge(origin.EdgeID)
		if da.Le(origin.Fraction, destination.Fraction) {
			r := se.assembleRoute([]da.Index{e.GetEdgeId()}, origin, destination)
			return &r, nil
		}
		if e.HasReverse() {
			// same road against the edge direction: ride the twin
			r := se.assembleRoute([]da.Index{e.GetReverse()}, origin, destination)
			return &r, nil
		}
		// oneway edge with the destination behind the origin. the search
		// has to leave the edge and come back.
	}

	bs := newBidirectionalSearch(se)
	bs.seed(origin, destination)

	for bs.forward.pq.Size() > 0 && bs.backward.pq.Size() > 0 {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrInternalServerError, "route query canceled")
		}
		if da.Ge(bs.forward.pq.GetMinrank()+bs.backward.pq.GetMinrank(), bs.best.cost) {
			break
		}

		if bs.forward.pq.GetMinrank() <= bs.backward.pq.GetMinrank() {
			bs.expandForward()
		} else {
			bs.expandBackward()
		}
	}

	if !bs.best.valid {
		return nil, util.WrapErrorf(nil, util.ErrNoPath,
			"no path between origin and destination")
	}

	edges := append(util.ReverseG(bs.forward.unwind(bs.best.vertex)),
		bs.backward.unwind(bs.best.vertex)...)
	route := se.assembleRoute(edges, origin, destination)
	return &route, nil
}

func (bs *bidirectionalSearch) seed(origin, destination da.SnappedPoint) {
	bs.engine.applyForwardSeeds(bs.forward, origin)

	// backward seeds go second so a vertex shared by both seed sets counts
	// as a meeting point right away
	for _, entry := range bs.engine.targetEntries(destination) {
		if lbl := bs.backward.improve(entry.vertex, entry.cost, entry.dist, 0,
			da.INVALID_VERTEX_ID, entry.viaEdge); lbl != nil {
			bs.tryMeet(entry.vertex, lbl, bs.forward)
		}
	}
}

func (bs *bidirectionalSearch) expandForward() {
	u, uLbl, ok := bs.forward.settleNext()
	if !ok {
		return
	}

	bs.engine.graph.ForOutEdgesOf(u, func(e *da.Edge) {
		v := e.GetHead()
		if lbl := bs.forward.improve(v, uLbl.cost+e.GetWeight(), uLbl.dist+e.GetLength(),
			uLbl.hops+1, u, e.GetEdgeId()); lbl != nil {
			bs.tryMeet(v, lbl, bs.backward)
		}
	})
}

func (bs *bidirectionalSearch) expandBackward() {
	u, uLbl, ok := bs.backward.settleNext()
	if !ok {
		return
	}

	bs.engine.graph.ForInEdgesOf(u, func(e *da.Edge) {
		v := e.GetTail()
		if lbl := bs.backward.improve(v, uLbl.cost+e.GetWeight(), uLbl.dist+e.GetLength(),
			uLbl.hops+1, u, e.GetEdgeId()); lbl != nil {
			bs.tryMeet(v, lbl, bs.forward)
		}
	})
}

// tryMeet records v as a meeting point if the opposite frontier has labeled
// it. labels only ever improve, so whichever side updates last combines with
// the final value of the other.
func (bs *bidirectionalSearch) tryMeet(v da.Index, own *vertexLabel, other *searchState) {
	otherLbl, ok := other.info[v]
	if !ok {
		return
	}
	bs.best.update(own.cost+otherLbl.cost, own.hops+otherLbl.hops, v)
}
