package utils

import "math"

const earthRadiusMeters = 6371000

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DistanceMeters returns the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether point lies within radius meters of center.
func WithinRadius(center, point Coordinate, radius float64) bool {
	return DistanceMeters(center, point) <= radius
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
