package geo

import (
	"math"
)

const earthRadiusMeters = 6371000.0 // Earth's radius in meters

// Distance calculates the great-circle distance between two points on Earth
// in meters using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Offset displaces a coordinate by distanceMeters along bearingRadians
// (clockwise from north) and returns the destination point in degrees.
func Offset(lat, lon, distanceMeters, bearingRadians float64) (float64, float64) {
	latRad := toRadians(lat)
	lonRad := toRadians(lon)
	angular := distanceMeters / earthRadiusMeters

	destLat := math.Asin(math.Sin(latRad)*math.Cos(angular) +
		math.Cos(latRad)*math.Sin(angular)*math.Cos(bearingRadians))

	destLon := lonRad + math.Atan2(
		math.Sin(bearingRadians)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(destLat),
	)

	return toDegrees(destLat), toDegrees(destLon)
}

// RoundToNearest50 rounds distance to the nearest 50 meters for privacy
func RoundToNearest50(distance float64) int {
	return int(math.Round(distance/50.0) * 50)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func toDegrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}
