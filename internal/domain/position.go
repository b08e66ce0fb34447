package domain

import (
	"fmt"
	"math"
)

// Position is a single location fix reported by a LocationProvider.
// It has no identity beyond its coordinates.
type Position struct {
	// Latitude in degrees, positive north
	Latitude float64 `json:"lat"`

	// Longitude in degrees, positive east
	Longitude float64 `json:"lon"`
}

// NewPosition creates a Position from a latitude/longitude pair.
func NewPosition(lat, lon float64) Position {
	return Position{Latitude: lat, Longitude: lon}
}

// Equal reports whether both coordinates are identical.
func (p Position) Equal(other Position) bool {
	return p.Latitude == other.Latitude && p.Longitude == other.Longitude
}

// Valid reports whether the coordinates are finite and inside the WGS84 range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// String returns "lat,lon".
func (p Position) String() string {
	return fmt.Sprintf("%g,%g", p.Latitude, p.Longitude)
}

const earthRadiusMeters = 6371000.0

// DistanceTo returns the great-circle distance to other in meters (haversine).
func (p Position) DistanceTo(other Position) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - p.Latitude) * math.Pi / 180
	dLon := (other.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
