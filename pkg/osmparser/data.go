package osmparser

import "github.com/lintang-b-s/go-osm-routing/pkg/geo"

// NodeType classifies a way node during the first scan. graph vertices are
// the nodes where ways meet or end, everything else becomes edge geometry.
type NodeType int

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

type node struct {
	id    int64
	coord nodeCoord
}

type nodeCoord struct {
	lat float64
	lon float64
}

// scannedEdge is one road segment between two retained nodes, still
// undirected. distance and weight are filled in by the build phase.
type scannedEdge struct {
	from          uint32 // dense vertex id
	to            uint32
	speedKmh      float64
	roadClass     uint8
	bidirectional bool
	points        []geo.Coordinate // polyline including both endpoints
	distance      float64          // meter
	weight        float64          // seconds
}
