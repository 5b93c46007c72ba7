package spatialindex

import (
	"math"
	"sort"

	"github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// initial query box half-width. doubled until the box either holds enough
// verified hits or covers the caller's maximum radius.
const initialSearchRadiusMeter = 100.0

// Rtree indexes every road segment of the graph by the bounding box of its
// full polyline. read only after Build, safe for concurrent queries.
type Rtree struct {
	tr    *rtree.RTreeG[datastructure.Index]
	graph *datastructure.Graph
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[datastructure.Index]
	return &Rtree{
		tr: &tr,
	}
}

// Build inserts one entry per road segment. a bidirectional road is indexed
// once under its canonical direction (the lower edge id of the twin pair);
// callers reach the opposite direction through Edge.GetReverse.
func (rt *Rtree) Build(graph *datastructure.Graph, log *zap.Logger) {
	log.Info("building r-tree spatial index...")
	rt.graph = graph

	inserted := 0
	for i := 0; i < graph.NumberOfEdges(); i++ {
		e := graph.GetEdge(datastructure.Index(i))
		if e.HasReverse() && e.GetReverse() < e.GetEdgeId() {
			continue
		}

		coords := graph.GetEdgeGeometry(e.GetEdgeId())
		minLat, minLon := math.MaxFloat64, math.MaxFloat64
		maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64
		for _, c := range coords {
			minLat = math.Min(minLat, c.GetLat())
			minLon = math.Min(minLon, c.GetLon())
			maxLat = math.Max(maxLat, c.GetLat())
			maxLon = math.Max(maxLon, c.GetLon())
		}

		rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, e.GetEdgeId())
		inserted++
	}

	log.Info("r-tree spatial index built.", zap.Int("segments", inserted))
}

// Nearest returns up to maxResults road segments within maxRadiusMeter of the
// query point, ordered by (projected distance, edge id). every hit carries the
// projected coordinate and the arc length fraction along the edge.
func (rt *Rtree) Nearest(qLat, qLon, maxRadiusMeter float64, maxResults int) []datastructure.SnappedPoint {
	if maxResults <= 0 || maxRadiusMeter <= 0 {
		return nil
	}
	q := geo.NewCoordinate(qLat, qLon)

	radius := math.Min(maxRadiusMeter, initialSearchRadiusMeter)
	for {
		hits := rt.searchBox(q, radius)

		// only hits verified inside the current box radius prove the box is
		// big enough. a candidate between radius and maxRadiusMeter could
		// still be beaten by an edge the box has not reached yet.
		withinBox := 0
		for _, sp := range hits {
			if datastructure.Le(sp.Distance, radius) {
				withinBox++
			}
		}
		if withinBox >= maxResults || radius >= maxRadiusMeter {
			within := make([]datastructure.SnappedPoint, 0, len(hits))
			for _, sp := range hits {
				if datastructure.Le(sp.Distance, maxRadiusMeter) {
					within = append(within, sp)
				}
			}
			sort.Slice(within, func(i, j int) bool {
				if !datastructure.Eq(within[i].Distance, within[j].Distance) {
					return within[i].Distance < within[j].Distance
				}
				return within[i].EdgeID < within[j].EdgeID
			})
			if len(within) > maxResults {
				within = within[:maxResults]
			}
			return within
		}

		radius = math.Min(radius*2, maxRadiusMeter)
	}
}

func (rt *Rtree) searchBox(q geo.Coordinate, radiusMeter float64) []datastructure.SnappedPoint {
	// the corners sit radius*sqrt2 away along the diagonals, so the box
	// spans the full radius in every axis direction
	cornerKM := radiusMeter * math.Sqrt2 / 1000.0
	lowerLat, lowerLon := geo.GetDestinationPoint(q.GetLat(), q.GetLon(), 225, cornerKM)
	upperLat, upperLon := geo.GetDestinationPoint(q.GetLat(), q.GetLon(), 45, cornerKM)

	results := make([]datastructure.SnappedPoint, 0, 16)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, e datastructure.Index) bool {
			location, dist, fraction := rt.graph.ProjectOntoEdge(e, q)
			results = append(results, datastructure.NewSnappedPoint(e, fraction, location, dist))
			return true
		})
	return results
}
