// Package geo computes great-circle distances and gates actions on physical
// proximity to the venue.
package geo

import "math"

// earthRadiusKm per the standard haversine convention.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinate pairs
// in kilometers, via the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceM returns the same distance in meters, the unit geofence
// comparisons use.
func DistanceM(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceKm(lat1, lon1, lat2, lon2) * 1000
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
