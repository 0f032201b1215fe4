package geo

import "math"

const EarthRadiusKm = 6371.0

// kmPerDegree is the approximate length of one degree of latitude.
const kmPerDegree = 111.0

type Point struct {
	Longitude float64
	Latitude  float64
}

func NewPoint(lon, lat float64) Point {
	return Point{Longitude: lon, Latitude: lat}
}

// DistanceKm returns the great-circle distance between two coordinates using
// the Haversine formula. Coordinates are not validated.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func Between(a, b Point) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func IsWithinRadius(center, p Point, radiusKm float64) bool {
	return Between(center, p) <= radiusKm
}

type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox approximates the square enclosing a circle of radiusKm around
// center. It is intended for coarse index filtering; callers re-check with
// DistanceKm.
func BoundingBox(center Point, radiusKm float64) Box {
	latDelta := radiusKm / kmPerDegree
	cosLat := math.Cos(toRadians(center.Latitude))
	lonDelta := 180.0
	if cosLat > 1e-9 {
		lonDelta = math.Min(180.0, radiusKm/(kmPerDegree*cosLat))
	}

	return Box{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLon: center.Longitude - lonDelta,
		MaxLon: center.Longitude + lonDelta,
	}
}

func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
