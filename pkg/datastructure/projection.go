package datastructure

import (
	"math"

	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
)

// ProjectOntoEdge returns the closest point on the polyline of edge e to p,
// its distance to p in meters, and the position of that point along the edge
// as a fraction of the polyline arc length in [0, 1].
func (g *Graph) ProjectOntoEdge(e Index, p geo.Coordinate) (geo.Coordinate, float64, float64) {
	coords := g.GetEdgeGeometry(e)

	bestDist := math.MaxFloat64
	bestProj := coords[0]
	bestBefore := 0.0

	total := 0.0
	for i := 0; i < len(coords)-1; i++ {
		a, b := coords[i], coords[i+1]
		segLen := geo.CalculateHaversineDistance(a.GetLat(), a.GetLon(), b.GetLat(), b.GetLon()) * 1000

		var proj geo.Coordinate
		if segLen == 0 {
			proj = a
		} else {
			proj = geo.ProjectPointToLineCoord(a, b, p)
		}

		d := geo.CalculateHaversineDistance(proj.GetLat(), proj.GetLon(), p.GetLat(), p.GetLon()) * 1000
		if d < bestDist {
			bestDist = d
			bestProj = proj
			bestBefore = total + geo.CalculateHaversineDistance(a.GetLat(), a.GetLon(),
				proj.GetLat(), proj.GetLon())*1000
		}
		total += segLen
	}

	fraction := 0.0
	if total > 0 {
		fraction = bestBefore / total
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
	}
	return bestProj, bestDist, fraction
}

// EdgeGeometryBetween returns the polyline of edge e cut to the arc length
// range [fromFraction, toFraction], fromFraction <= toFraction. The cut
// points are interpolated, interior shape points strictly inside the range
// are kept.
func (g *Graph) EdgeGeometryBetween(e Index, fromFraction, toFraction float64) []geo.Coordinate {
	coords := g.GetEdgeGeometry(e)

	segLens := make([]float64, len(coords)-1)
	total := 0.0
	for i := 0; i < len(coords)-1; i++ {
		segLens[i] = geo.CalculateHaversineDistance(coords[i].GetLat(), coords[i].GetLon(),
			coords[i+1].GetLat(), coords[i+1].GetLon()) * 1000
		total += segLens[i]
	}
	if total == 0 {
		return []geo.Coordinate{coords[0], coords[len(coords)-1]}
	}

	from := fromFraction * total
	to := toFraction * total

	result := make([]geo.Coordinate, 0, len(coords))
	result = append(result, pointAlong(coords, segLens, from))

	acc := 0.0
	for i := 0; i < len(segLens); i++ {
		acc += segLens[i]
		if Gt(acc, from) && Lt(acc, to) {
			result = append(result, coords[i+1])
		}
	}

	result = append(result, pointAlong(coords, segLens, to))
	return result
}

// pointAlong interpolates the coordinate at the given arc length target.
func pointAlong(coords []geo.Coordinate, segLens []float64, target float64) geo.Coordinate {
	acc := 0.0
	for i, segLen := range segLens {
		if acc+segLen >= target && segLen > 0 {
			t := (target - acc) / segLen
			a, b := coords[i], coords[i+1]
			return geo.NewCoordinate(a.GetLat()+(b.GetLat()-a.GetLat())*t,
				a.GetLon()+(b.GetLon()-a.GetLon())*t)
		}
		acc += segLen
	}
	return coords[len(coords)-1]
}
