package routing

import (
	"github.com/lintang-b-s/go-osm-routing/pkg"
	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
)

// vertexLabel is the search state of one vertex in one direction of one
// query. cost ranks the heap; hops breaks cost ties so that equal cost
// paths resolve identically on every run.
type vertexLabel struct {
	cost         float64 // seconds from the search origin
	dist         float64 // meters from the search origin
	hops         int32
	parentVertex da.Index // INVALID_VERTEX_ID marks a seed label
	parentEdge   da.Index // edge traversed into this vertex (seed: the partial edge)
	heapNode     *da.PriorityQueueNode[da.Index]
	settled      bool
}

// searchState is the transient state of one search direction, built fresh
// per query so the shared graph stays untouched.
type searchState struct {
	info map[da.Index]*vertexLabel
	pq   *da.MinHeap[da.Index]
}

func newSearchState() *searchState {
	return &searchState{
		info: make(map[da.Index]*vertexLabel),
		pq:   da.NewFourAryHeap[da.Index](),
	}
}

// improve inserts or relaxes the label of v with the (cost, hops) pair.
// returns the label when it changed, nil when the existing label stays.
func (ss *searchState) improve(v da.Index, cost, dist float64, hops int32,
	parentVertex, parentEdge da.Index) *vertexLabel {
	cur, ok := ss.info[v]
	if !ok {
		node := da.NewPriorityQueueNode(cost, v)
		lbl := &vertexLabel{
			cost:         cost,
			dist:         dist,
			hops:         hops,
			parentVertex: parentVertex,
			parentEdge:   parentEdge,
			heapNode:     node,
		}
		ss.info[v] = lbl
		ss.pq.Insert(node)
		return lbl
	}
	if cur.settled {
		return nil
	}
	if da.Lt(cost, cur.cost) || (da.Eq(cost, cur.cost) && hops < cur.hops) {
		// the heap rank only ever goes down. on a cost tie the stored cost
		// keeps the numerically smaller value.
		if cost < cur.cost {
			cur.cost = cost
			ss.pq.DecreaseKey(cur.heapNode, cost)
		}
		cur.dist = dist
		cur.hops = hops
		cur.parentVertex = parentVertex
		cur.parentEdge = parentEdge
		return cur
	}
	return nil
}

// settleNext pops the closest labeled vertex and marks its label final.
func (ss *searchState) settleNext() (da.Index, *vertexLabel, bool) {
	node, err := ss.pq.ExtractMin()
	if err != nil {
		return 0, nil, false
	}
	v := node.GetItem()
	lbl := ss.info[v]
	lbl.settled = true
	return v, lbl, true
}

// unwind collects the parent edges from v back to the seed, nearest edge
// first (i.e. reversed travel order for a forward search).
func (ss *searchState) unwind(v da.Index) []da.Index {
	edges := make([]da.Index, 0, 8)
	for lbl := ss.info[v]; ; lbl = ss.info[lbl.parentVertex] {
		edges = append(edges, lbl.parentEdge)
		if lbl.parentVertex == da.INVALID_VERTEX_ID {
			break
		}
	}
	return edges
}

// meetCandidate tracks the best meeting point of the two search frontiers.
// ties resolve by fewer hops, then by the smaller vertex id.
type meetCandidate struct {
	cost   float64
	hops   int32
	vertex da.Index
	valid  bool
}

func newMeetCandidate() meetCandidate {
	return meetCandidate{
		cost:   2 * pkg.INF_WEIGHT,
		vertex: da.INVALID_VERTEX_ID,
	}
}

func (m *meetCandidate) update(cost float64, hops int32, vertex da.Index) {
	if !m.valid || da.Lt(cost, m.cost) ||
		(da.Eq(cost, m.cost) && (hops < m.hops || (hops == m.hops && vertex < m.vertex))) {
		if cost < m.cost {
			m.cost = cost
		}
		m.hops = hops
		m.vertex = vertex
		m.valid = true
	}
}
