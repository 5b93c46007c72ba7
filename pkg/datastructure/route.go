package datastructure

import (
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/twpayne/go-polyline"
)

// SnappedPoint is a query coordinate projected onto the road network. It
// pins the projection to one directed edge and a position along it, which is
// what the query engines use to seed their searches.
type SnappedPoint struct {
	EdgeID   Index          `json:"edge_id"`
	Fraction float64        `json:"fraction"` // position along the edge polyline in [0,1]
	Location geo.Coordinate `json:"location"` // projected coordinate on the edge
	Distance float64        `json:"distance"` // meter between the query point and Location
}

func NewSnappedPoint(edgeID Index, fraction float64, location geo.Coordinate,
	distance float64) SnappedPoint {
	return SnappedPoint{
		EdgeID:   edgeID,
		Fraction: fraction,
		Location: location,
		Distance: distance,
	}
}

// Route is one path through the network.
type Route struct {
	TravelTime  float64          `json:"travel_time"` // seconds
	Distance    float64          `json:"distance"`    // meter
	Coordinates []geo.Coordinate `json:"coordinates"`
	Polyline    string           `json:"polyline"`
	Edges       []Index          `json:"edges"` // traversed directed edge ids in travel order, first and last may be partial
}

func NewRoute(travelTime, distance float64, coordinates []geo.Coordinate, edges []Index) Route {
	return Route{
		TravelTime:  travelTime,
		Distance:    distance,
		Coordinates: coordinates,
		Polyline:    CreatePolyline(coordinates),
		Edges:       edges,
	}
}

// MatchResult is the outcome of matching a gps trace onto the network.
type MatchResult struct {
	MatchedPoints []SnappedPoint   `json:"matched_points"` // one per observation
	Legs          []Route          `json:"legs"`           // route between consecutive matched points
	Coordinates   []geo.Coordinate `json:"coordinates"`    // merged leg geometry
	Polyline      string           `json:"polyline"`
}

func CreatePolyline(path []geo.Coordinate) string {
	s := ""
	coords := make([][]float64, 0)
	for _, p := range path {
		pT := p
		coords = append(coords, []float64{pT.Lat, pT.Lon})
	}
	s = string(polyline.EncodeCoords(coords))
	return s
}
