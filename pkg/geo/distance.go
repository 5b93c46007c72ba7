package geo

import (
	"math"

	"github.com/lintang-b-s/go-osm-routing/pkg/util"
)

const (
	earthRadiusKM = 6371
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) GetLat() float64 {
	return c.Lat
}

func (c Coordinate) GetLon() float64 {
	return c.Lon
}

// 16 byte (128bit)

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

// CalculateHaversineDistance returns the great circle distance between two
// points in kilometers.
func CalculateHaversineDistance(lat1, long1, lat2, long2 float64) float64 {
	lat1 = util.DegreeToRadians(lat1)
	long1 = util.DegreeToRadians(long1)
	lat2 = util.DegreeToRadians(lat2)
	long2 = util.DegreeToRadians(long2)

	dlat := lat2 - lat1
	dlong := long2 - long1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlong/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKM * c
}

func normalizeLongitude(lon float64) float64 {
	lonRad := lon * math.Pi / 180
	normalizedLonRad := math.Atan2(math.Sin(lonRad), math.Cos(lonRad))
	return normalizedLonRad * 180 / math.Pi
}

// GetDestinationPoint given a start point, initial bearing (degrees clockwise
// from north), and distance in km, returns the destination point travelling
// along a great circle arc.
// see: https://www.movable-type.co.uk/scripts/latlong.html
func GetDestinationPoint(lat, lon float64, bearing float64, distanceKM float64) (float64, float64) {
	delta := distanceKM / earthRadiusKM
	theta := util.DegreeToRadians(bearing)

	phiOne := util.DegreeToRadians(lat)
	lambdaOne := util.DegreeToRadians(lon)

	sinPhiTwo := math.Sin(phiOne)*math.Cos(delta) + math.Cos(phiOne)*math.Sin(delta)*math.Cos(theta)
	phiTwo := math.Asin(sinPhiTwo)
	y := math.Sin(theta) * math.Sin(delta) * math.Cos(phiOne)
	x := math.Cos(delta) - math.Sin(phiOne)*sinPhiTwo
	lambdaTwo := lambdaOne + math.Atan2(y, x)

	destLat := util.RadiansToDegree(phiTwo)
	destLon := normalizeLongitude(util.RadiansToDegree(lambdaTwo))
	return destLat, destLon
}
