package mapmatcher

import (
	"context"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	da "github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/engine/routing"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/spatialindex"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"go.uber.org/zap"
)

/*
implementation of:
Newson, P. and Krumm, J. (2009) "Hidden Markov Map Matching Through Noise
and Sparseness," Proceedings of the 17th ACM SIGSPATIAL International
Conference on Advances in Geographic Information Systems, pp. 336-343.
Available at: https://doi.org/10.1145/1653771.1653818.
*/

// HiddenMarkovMatcher snaps a gps trace onto the road network. Observations
// emit nearby edge positions, transitions favor candidate pairs whose routed
// distance stays close to the straight line distance, and viterbi decoding
// picks the jointly most plausible sequence. The matcher is immutable after
// construction and safe for concurrent use, the routed distance cache is
// shared across queries.
type HiddenMarkovMatcher struct {
	search    *routing.SearchEngine
	graph     *da.Graph
	index     *spatialindex.Rtree
	logger    *zap.Logger
	radius    float64 // candidate search radius in meter
	maxCands  int     // candidates kept per observation
	gpsStd    float64 // \sigma_z of the gaussian emission model, meter
	beta      float64 // \beta of the exponential transition model, meter
	distCache *lru.Cache[transitionKey, float64]
}

func NewHiddenMarkovMatcher(search *routing.SearchEngine, index *spatialindex.Rtree,
	logger *zap.Logger, cfg *util.Config) *HiddenMarkovMatcher {
	distCache, _ := lru.New[transitionKey, float64](cfg.MatcherCacheSize)
	return &HiddenMarkovMatcher{
		search:    search,
		graph:     search.GetGraph(),
		index:     index,
		logger:    logger,
		radius:    cfg.MatcherRadiusMeter,
		maxCands:  cfg.MatcherMaxCandidates,
		gpsStd:    cfg.MatcherGpsStdMeter,
		beta:      cfg.MatcherBeta,
		distCache: distCache,
	}
}

// Match decodes the most plausible road position per observation and the
// connecting routes between consecutive positions. ErrNoMatch when an
// observation has no road within the candidate radius or no finite score
// sequence survives the transitions.
func (hm *HiddenMarkovMatcher) Match(ctx context.Context, trace []geo.Coordinate) (*da.MatchResult, error) {
	if len(trace) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "gps trace is empty")
	}
	hm.logger.Debug("matching gps trace", zap.Int("observations", len(trace)))

	candidates := make([][]da.SnappedPoint, len(trace))
	for i, obs := range trace {
		cands := hm.index.Nearest(obs.GetLat(), obs.GetLon(), hm.radius, hm.maxCands)
		if len(cands) == 0 {
			return nil, util.WrapErrorf(nil, util.ErrNoMatch,
				"observation %d has no road within %.0f meter", i, hm.radius)
		}
		candidates[i] = cands
	}

	chosen, err := hm.decode(ctx, trace, candidates)
	if err != nil {
		return nil, err
	}
	return hm.assembleMatch(ctx, chosen)
}

// decode runs the viterbi forward pass in log space and unwinds the best
// candidate per observation through the back pointers.
func (hm *HiddenMarkovMatcher) decode(ctx context.Context, trace []geo.Coordinate,
	candidates [][]da.SnappedPoint) ([]da.SnappedPoint, error) {
	n := len(trace)
	scores := make([][]float64, n)
	parents := make([][]int, n)

	scores[0] = make([]float64, len(candidates[0]))
	parents[0] = make([]int, len(candidates[0]))
	for j, c := range candidates[0] {
		scores[0][j] = hm.logEmission(c.Distance)
		parents[0][j] = -1
	}

	for t := 1; t < n; t++ {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrInternalServerError, "map match canceled")
		}
		if err := hm.fillDistances(ctx, candidates[t-1], candidates[t]); err != nil {
			return nil, err
		}

		greatCircle := geo.CalculateHaversineDistance(trace[t-1].GetLat(), trace[t-1].GetLon(),
			trace[t].GetLat(), trace[t].GetLon()) * 1000

		scores[t] = make([]float64, len(candidates[t]))
		parents[t] = make([]int, len(candidates[t]))
		anyReachable := false
		for j, cur := range candidates[t] {
			bestScore := math.Inf(-1)
			bestParent := -1
			for i, prev := range candidates[t-1] {
				if math.IsInf(scores[t-1][i], -1) {
					continue
				}
				routed, err := hm.routedDistance(ctx, prev, cur)
				if err != nil {
					return nil, err
				}
				// strict improvement keeps the lowest candidate index on
				// ties, so repeated queries decode the same sequence
				s := scores[t-1][i] + hm.logTransition(greatCircle, routed)
				if s > bestScore {
					bestScore = s
					bestParent = i
				}
			}
			if bestParent >= 0 {
				bestScore += hm.logEmission(cur.Distance)
				anyReachable = true
			}
			scores[t][j] = bestScore
			parents[t][j] = bestParent
		}
		if !anyReachable {
			return nil, util.WrapErrorf(nil, util.ErrNoMatch,
				"no reachable transition into observation %d", t)
		}
	}

	bestLast := -1
	bestScore := math.Inf(-1)
	for j, s := range scores[n-1] {
		if s > bestScore {
			bestScore = s
			bestLast = j
		}
	}
	if bestLast < 0 {
		return nil, util.WrapErrorf(nil, util.ErrNoMatch, "no finite score sequence")
	}

	chosen := make([]da.SnappedPoint, n)
	for t, j := n-1, bestLast; t >= 0; t-- {
		chosen[t] = candidates[t][j]
		j = parents[t][j]
	}
	return chosen, nil
}

// assembleMatch routes between consecutive chosen positions and merges the
// leg geometries into one line.
func (hm *HiddenMarkovMatcher) assembleMatch(ctx context.Context, chosen []da.SnappedPoint) (*da.MatchResult, error) {
	legs := make([]da.Route, 0, len(chosen)-1)
	coordinates := make([]geo.Coordinate, 0)

	for t := 0; t+1 < len(chosen); t++ {
		leg, err := hm.search.Route(ctx, chosen[t], chosen[t+1])
		if err != nil {
			return nil, err
		}
		legs = append(legs, *leg)

		if len(coordinates) > 0 {
			// consecutive legs share the joint position
			coordinates = append(coordinates, leg.Coordinates[1:]...)
			continue
		}
		coordinates = append(coordinates, leg.Coordinates...)
	}
	if len(chosen) == 1 {
		coordinates = append(coordinates, chosen[0].Location)
	}

	return &da.MatchResult{
		MatchedPoints: chosen,
		Legs:          legs,
		Coordinates:   coordinates,
		Polyline:      da.CreatePolyline(coordinates),
	}, nil
}

// logEmission scores the projection distance of a candidate in meters.
func (hm *HiddenMarkovMatcher) logEmission(distMeter float64) float64 {
	z := distMeter / hm.gpsStd
	return -0.5 * z * z
}

// logTransition scores the gap between the straight line meters of the
// observation pair and the routed meters of the candidate pair. Detours and
// backtracking widen the gap and lose score, an unreachable pair is out.
func (hm *HiddenMarkovMatcher) logTransition(greatCircle, routed float64) float64 {
	if math.IsInf(routed, 1) {
		return math.Inf(-1)
	}
	return -math.Abs(greatCircle-routed) / hm.beta
}

// routedDistance is the network distance in meters between two snapped
// positions: the best combination of leaving the first edge, the cached
// vertex to vertex distance, and entering the second edge.
func (hm *HiddenMarkovMatcher) routedDistance(ctx context.Context, from, to da.SnappedPoint) (float64, error) {
	if from.EdgeID == to.EdgeID {
		e := hm.graph.GetEdge(from.EdgeID)
		if da.Le(from.Fraction, to.Fraction) {
			return (to.Fraction - from.Fraction) * e.GetLength(), nil
		}
		if e.HasReverse() {
			return (from.Fraction - to.Fraction) * e.GetLength(), nil
		}
		// oneway with the target behind, leave the edge and come back
	}

	best := math.Inf(1)
	for _, exit := range hm.exitPoints(from) {
		for _, entry := range hm.entryPoints(to) {
			between, err := hm.vertexDistance(ctx, exit.vertex, entry.vertex)
			if err != nil {
				return 0, err
			}
			if total := exit.dist + between + entry.dist; total < best {
				best = total
			}
		}
	}
	return best, nil
}

// fillDistances warms the cache with one dijkstra per exit vertex of the
// previous candidate set, covering every entry vertex of the current one.
func (hm *HiddenMarkovMatcher) fillDistances(ctx context.Context, prev, cur []da.SnappedPoint) error {
	entryVertices := make([]da.Index, 0, 2*len(cur))
	entrySeen := make(map[da.Index]struct{})
	for _, c := range cur {
		for _, entry := range hm.entryPoints(c) {
			if _, ok := entrySeen[entry.vertex]; ok {
				continue
			}
			entrySeen[entry.vertex] = struct{}{}
			entryVertices = append(entryVertices, entry.vertex)
		}
	}

	exitSeen := make(map[da.Index]struct{})
	for _, p := range prev {
		for _, exit := range hm.exitPoints(p) {
			if _, ok := exitSeen[exit.vertex]; ok {
				continue
			}
			exitSeen[exit.vertex] = struct{}{}

			missing := make([]da.Index, 0, len(entryVertices))
			for _, to := range entryVertices {
				if _, ok := hm.distCache.Get(transitionKey{from: exit.vertex, to: to}); !ok {
					missing = append(missing, to)
				}
			}
			if len(missing) == 0 {
				continue
			}

			dists, err := hm.search.VertexDistances(ctx, exit.vertex, missing)
			if err != nil {
				return err
			}
			for k, to := range missing {
				hm.distCache.Add(transitionKey{from: exit.vertex, to: to}, dists[k])
			}
		}
	}
	return nil
}

// vertexDistance reads the cached meters between two vertices, running a
// single source query when the entry got evicted since fillDistances.
func (hm *HiddenMarkovMatcher) vertexDistance(ctx context.Context, from, to da.Index) (float64, error) {
	if d, ok := hm.distCache.Get(transitionKey{from: from, to: to}); ok {
		return d, nil
	}
	dists, err := hm.search.VertexDistances(ctx, from, []da.Index{to})
	if err != nil {
		return 0, err
	}
	hm.distCache.Add(transitionKey{from: from, to: to}, dists[0])
	return dists[0], nil
}
