package osmparser

import (
	"context"
	"io"
	"math"
	"os"

	"github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

type OsmParser struct {
	filter       *WayFilter
	log          *zap.Logger
	buildWorkers int

	wayNodeMap      map[int64]NodeType
	acceptedNodeMap map[int64]nodeCoord
	nodeIDMap       map[int64]uint32
	vertexCoords    []nodeCoord
	skippedWays     int
}

func NewOSMParser(filter *WayFilter, log *zap.Logger, buildWorkers int) *OsmParser {
	return &OsmParser{
		filter:          filter,
		log:             log,
		buildWorkers:    buildWorkers,
		wayNodeMap:      make(map[int64]NodeType),
		acceptedNodeMap: make(map[int64]nodeCoord),
		nodeIDMap:       make(map[int64]uint32),
	}
}

// Parse reads an openstreetmap pbf extract and compiles the routing graph.
// the file is scanned twice: the first scan classifies way nodes, the second
// collects coordinates and cuts ways into edges.
func (p *OsmParser) Parse(ctx context.Context, mapFile string) (*datastructure.Graph, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := p.scanWayNodes(ctx, f); err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	scannedEdges, err := p.scanEdges(ctx, f)
	if err != nil {
		return nil, err
	}

	return p.BuildGraph(ctx, scannedEdges)
}

func (p *OsmParser) scanWayNodes(ctx context.Context, f io.Reader) error {
	scanner := osmpbf.New(ctx, f, 0)
	// must not be parallel
	defer scanner.Close()

	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !p.filter.AcceptWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			p.log.Info("reading openstreetmap ways", zap.Int("ways", countWays+1))
		}
		countWays++

		for i, wayNode := range way.Nodes {
			if _, ok := p.wayNodeMap[int64(wayNode.ID)]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[int64(wayNode.ID)] = END_NODE
				} else {
					p.wayNodeMap[int64(wayNode.ID)] = BETWEEN_NODE
				}
			} else {
				// the node is shared with another way (or reappears in
				// this one), so it must become a graph vertex
				p.wayNodeMap[int64(wayNode.ID)] = JUNCTION_NODE
			}
		}
	}
	return scanner.Err()
}

func (p *OsmParser) scanEdges(ctx context.Context, f io.Reader) ([]*scannedEdge, error) {
	scanner := osmpbf.New(ctx, f, 0)
	// must not be parallel. nodes come before ways in the pbf stream, so the
	// coordinates of every way node are known once the ways arrive.
	defer scanner.Close()

	edgeSet := make(map[uint32]map[uint32]struct{})
	scannedEdges := make([]*scannedEdge, 0)

	countWays := 0
	countNodes := 0
	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			if (countNodes+1)%50000 == 0 {
				p.log.Info("processing openstreetmap nodes", zap.Int("nodes", countNodes+1))
			}
			countNodes++

			if _, ok := p.wayNodeMap[int64(obj.ID)]; ok {
				p.acceptedNodeMap[int64(obj.ID)] = nodeCoord{
					lat: obj.Lat,
					lon: obj.Lon,
				}
			}
		case *osm.Way:
			if !p.filter.AcceptWay(obj) {
				continue
			}
			if (countWays+1)%50000 == 0 {
				p.log.Info("processing openstreetmap ways", zap.Int("ways", countWays+1))
			}
			countWays++

			p.processWay(obj, edgeSet, &scannedEdges)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if p.skippedWays > 0 {
		p.log.Warn("skipped malformed openstreetmap ways", zap.Int("ways", p.skippedWays))
	}
	return scannedEdges, nil
}

func (p *OsmParser) processWay(way *osm.Way, edgeSet map[uint32]map[uint32]struct{},
	scannedEdges *[]*scannedEdge) {
	oneWay, forward := p.filter.WayDirection(way)
	speed := p.filter.WaySpeed(way)
	roadClass := p.filter.RoadClass(way)

	// resolve every node ref first. a way touching a node that is missing
	// from the extract or carries a bogus coordinate is dropped whole.
	wayNodes := make([]node, 0, len(way.Nodes))
	for _, wayNode := range way.Nodes {
		coord, ok := p.acceptedNodeMap[int64(wayNode.ID)]
		if !ok {
			p.skippedWays++
			p.log.Debug("way references a node missing from the extract",
				zap.Int64("way", int64(way.ID)), zap.Int64("node", int64(wayNode.ID)))
			return
		}
		if math.Abs(coord.lat) > 90 || math.Abs(coord.lon) > 180 {
			p.skippedWays++
			p.log.Debug("way has an out of range coordinate",
				zap.Int64("way", int64(way.ID)), zap.Int64("node", int64(wayNode.ID)))
			return
		}
		wayNodes = append(wayNodes, node{id: int64(wayNode.ID), coord: coord})
	}

	if !forward {
		// travel direction is against the node order, flip once here so the
		// rest of the pipeline only sees forward ways
		wayNodes = util.ReverseG(wayNodes)
	}

	waySegment := []node{}
	for _, nodeData := range wayNodes {
		if p.isJunctionNode(nodeData.id) {
			waySegment = append(waySegment, nodeData)
			p.processSegment(waySegment, oneWay, speed, roadClass, edgeSet, scannedEdges)
			waySegment = []node{}

			waySegment = append(waySegment, nodeData)
		} else {
			waySegment = append(waySegment, nodeData)
		}
	}
	if len(waySegment) > 1 {
		p.processSegment(waySegment, oneWay, speed, roadClass, edgeSet, scannedEdges)
	}
}

func (p *OsmParser) processSegment(segment []node, oneWay bool, speed float64, roadClass uint8,
	edgeSet map[uint32]map[uint32]struct{}, scannedEdges *[]*scannedEdge) {
	if len(segment) == 2 && segment[0].id == segment[1].id {
		// zero length self loop
		return
	} else if len(segment) > 2 && segment[0].id == segment[len(segment)-1].id {
		// loop way. split so both parts get distinct endpoints
		p.addEdge(segment[0:len(segment)-1], oneWay, speed, roadClass, edgeSet, scannedEdges)
		p.addEdge(segment[len(segment)-2:], oneWay, speed, roadClass, edgeSet, scannedEdges)
	} else {
		p.addEdge(segment, oneWay, speed, roadClass, edgeSet, scannedEdges)
	}
}

func (p *OsmParser) addEdge(segment []node, oneWay bool, speed float64, roadClass uint8,
	edgeSet map[uint32]map[uint32]struct{}, scannedEdges *[]*scannedEdge) {
	from := segment[0]
	to := segment[len(segment)-1]
	if from.id == to.id {
		return
	}

	fromID := p.vertexID(from)
	toID := p.vertexID(to)

	if _, ok := edgeSet[fromID]; !ok {
		edgeSet[fromID] = make(map[uint32]struct{})
	}
	if _, ok := edgeSet[fromID][toID]; ok {
		// duplicate segment between the same pair, keep the first
		return
	}
	edgeSet[fromID][toID] = struct{}{}
	if !oneWay {
		if _, ok := edgeSet[toID]; !ok {
			edgeSet[toID] = make(map[uint32]struct{})
		}
		edgeSet[toID][fromID] = struct{}{}
	}

	points := make([]geo.Coordinate, 0, len(segment))
	for _, nodeData := range segment {
		points = append(points, geo.NewCoordinate(nodeData.coord.lat, nodeData.coord.lon))
	}

	*scannedEdges = append(*scannedEdges, &scannedEdge{
		from:          fromID,
		to:            toID,
		speedKmh:      speed,
		roadClass:     roadClass,
		bidirectional: !oneWay,
		points:        points,
	})
}

// vertexID hands out dense vertex ids in first-seen order.
func (p *OsmParser) vertexID(n node) uint32 {
	if id, ok := p.nodeIDMap[n.id]; ok {
		return id
	}
	id := uint32(len(p.vertexCoords))
	p.nodeIDMap[n.id] = id
	p.vertexCoords = append(p.vertexCoords, n.coord)
	return id
}

func (p *OsmParser) isJunctionNode(nodeID int64) bool {
	return p.wayNodeMap[nodeID] == JUNCTION_NODE
}
