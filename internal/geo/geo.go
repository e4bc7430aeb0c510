// Package geo provides great-circle distance math and circular
// geofence containment checks.
package geo

import "math"

// EarthRadiusMeters is the spherical-Earth approximation radius.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Fence is a circular geofence.
type Fence struct {
	Center Point
	Radius float64 // meters
}

// Contains reports whether p lies within the fence. A point exactly on
// the boundary counts as inside.
func (f Fence) Contains(p Point) bool {
	return Haversine(f.Center, p) <= f.Radius
}
