package osmparser

import (
	"context"
	"sort"

	"github.com/lintang-b-s/go-osm-routing/pkg"
	"github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// directed expansion of a scanned edge. pair ties the two directions of a
// bidirectional segment together for the reverse cross-link.
type buildEdge struct {
	from, to uint32
	pair     int
	points   []geo.Coordinate
}

// BuildGraph compiles scanned edges into the static routing graph: it computes
// travel time weights, expands bidirectional segments into edge twins, sorts
// the directed edges by (tail, head) and hands them to datastructure.NewGraph.
func (p *OsmParser) BuildGraph(ctx context.Context, scannedEdges []*scannedEdge) (*datastructure.Graph, error) {
	if len(scannedEdges) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"openstreetmap extract contains no routable ways")
	}

	if err := p.computeWeights(ctx, scannedEdges); err != nil {
		return nil, err
	}

	buildEdges := make([]*buildEdge, 0, 2*len(scannedEdges))
	seen := make(map[uint64]struct{}, 2*len(scannedEdges))
	appendDirected := func(from, to uint32, pair int, points []geo.Coordinate) {
		key := uint64(from)<<32 | uint64(to)
		if _, ok := seen[key]; ok {
			// parallel segment between the same directed pair, keep the first
			return
		}
		seen[key] = struct{}{}
		buildEdges = append(buildEdges, &buildEdge{from: from, to: to, pair: pair, points: points})
	}
	for i, se := range scannedEdges {
		appendDirected(se.from, se.to, i, se.points)
		if se.bidirectional {
			appendDirected(se.to, se.from, i, util.ReverseG(se.points))
		}
	}

	sort.Slice(buildEdges, func(i, j int) bool {
		if buildEdges[i].from != buildEdges[j].from {
			return buildEdges[i].from < buildEdges[j].from
		}
		return buildEdges[i].to < buildEdges[j].to
	})

	posByKey := make(map[uint64]int, len(buildEdges))
	for i, be := range buildEdges {
		posByKey[uint64(be.from)<<32|uint64(be.to)] = i
	}

	outEdges := make([]*datastructure.Edge, len(buildEdges))
	geometry := make([]geo.Coordinate, 0)
	for i, be := range buildEdges {
		se := scannedEdges[be.pair]
		e := datastructure.NewEdge(datastructure.Index(be.from), datastructure.Index(be.to),
			se.weight, se.distance, se.roadClass)
		e.SetEdgeId(datastructure.Index(i))

		if se.bidirectional {
			// both directions survive dedup or neither gets linked, so the
			// reverse pointers always come out symmetric
			j, ok := posByKey[uint64(be.to)<<32|uint64(be.from)]
			if ok && buildEdges[j].pair == be.pair {
				e.SetReverse(datastructure.Index(j))
			}
		}

		first := datastructure.Index(len(geometry))
		if len(be.points) > 2 {
			geometry = append(geometry, be.points[1:len(be.points)-1]...)
		}
		e.SetGeometry(first, datastructure.Index(len(geometry))-first)

		outEdges[i] = e
	}

	vertices := make([]*datastructure.Vertex, len(p.vertexCoords))
	for i, c := range p.vertexCoords {
		vertices[i] = datastructure.NewVertex(c.lat, c.lon, datastructure.Index(i))
	}

	p.log.Info("compiling routing graph",
		zap.Int("vertices", len(vertices)), zap.Int("edges", len(outEdges)))

	return datastructure.NewGraph(vertices, outEdges, geometry)
}

// computeWeights fills distance and travel time of every scanned edge. the
// segments are independent, so the work is chunked across buildWorkers
// goroutines.
func (p *OsmParser) computeWeights(ctx context.Context, scannedEdges []*scannedEdge) error {
	workers := util.MaxG(p.buildWorkers, 1)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	chunkSize := (len(scannedEdges) + workers - 1) / workers
	for start := 0; start < len(scannedEdges); start += chunkSize {
		end := util.MinG(start+chunkSize, len(scannedEdges))
		chunk := scannedEdges[start:end]
		eg.Go(func() error {
			for _, se := range chunk {
				if util.StopConcurrentOperation(ctx) {
					return util.WrapErrorf(ctx.Err(), util.ErrInternalServerError,
						"graph build canceled")
				}

				dist := 0.0
				for i := 1; i < len(se.points); i++ {
					dist += geo.CalculateHaversineDistance(
						se.points[i-1].GetLat(), se.points[i-1].GetLon(),
						se.points[i].GetLat(), se.points[i].GetLon()) * 1000
				}
				se.distance = dist
				// weight is seconds of travel time at the way speed, never
				// zero even for degenerate geometry
				se.weight = util.MaxG(dist*3.6/se.speedKmh, pkg.MIN_EDGE_WEIGHT)
			}
			return nil
		})
	}
	return eg.Wait()
}
