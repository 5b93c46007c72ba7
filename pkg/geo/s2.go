package geo

import (
	"github.com/golang/geo/s2"
)

// ProjectPointToLineCoord projects point p onto the geodesic segment a-b and
// returns the projected coordinate. If the perpendicular foot falls outside
// the segment the closest endpoint is returned.
func ProjectPointToLineCoord(a, b, p Coordinate) Coordinate {
	aS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(a.GetLat(), a.GetLon()))
	bS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.GetLat(), b.GetLon()))
	pS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(p.GetLat(), p.GetLon()))

	projection := s2.Project(pS2, aS2, bS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// PointLinePerpendicularDistance returns the distance in meters from point p
// to its projection on the segment a-b.
func PointLinePerpendicularDistance(a, b, p Coordinate) float64 {
	projection := ProjectPointToLineCoord(a, b, p)
	return CalculateHaversineDistance(projection.GetLat(), projection.GetLon(), p.GetLat(), p.GetLon()) * 1000
}
