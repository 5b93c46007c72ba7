package datastructure

type BoundingBox struct {
	minLat, minLon float64
	maxLat, maxLon float64
}

func NewBoundingBox(minLat, minLon, maxLat, maxLon float64) *BoundingBox {
	return &BoundingBox{minLat: minLat,
		minLon: minLon,
		maxLat: maxLat,
		maxLon: maxLon}
}

func (b *BoundingBox) GetMinCoord() (float64, float64) {
	return b.minLat, b.minLon
}

func (b *BoundingBox) GetMaxCoord() (float64, float64) {
	return b.maxLat, b.maxLon
}

func (b *BoundingBox) GetMinLat() float64 {
	return b.minLat
}

func (b *BoundingBox) GetMinLon() float64 {
	return b.minLon
}

func (b *BoundingBox) GetMaxLat() float64 {
	return b.maxLat
}

func (b *BoundingBox) GetMaxLon() float64 {
	return b.maxLon
}

// Extend grows the box to cover (lat, lon).
func (b *BoundingBox) Extend(lat, lon float64) {
	if lat < b.minLat {
		b.minLat = lat
	}
	if lat > b.maxLat {
		b.maxLat = lat
	}
	if lon < b.minLon {
		b.minLon = lon
	}
	if lon > b.maxLon {
		b.maxLon = lon
	}
}

// Contains reports whether (lat, lon) lies inside the box.
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}
