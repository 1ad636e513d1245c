package geo

import "math"

const (
	earthRadiusKM = 6371.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func radiansToDegree(angle float64) float64 {
	return angle * (180.0 / math.Pi)
}

// CalculateHaversineDistance returns the great-circle distance in kilometers.
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	longOne = degreeToRadians(longOne)
	latTwo = degreeToRadians(latTwo)
	longTwo = degreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// GetDestinationPoint returns the point reached by travelling distKm
// kilometers from (lat, lon) on the initial bearing bearingDeg.
func GetDestinationPoint(lat, lon float64, bearingDeg, distKm float64) (float64, float64) {
	latRad := degreeToRadians(lat)
	lonRad := degreeToRadians(lon)
	bearing := degreeToRadians(bearingDeg)
	angular := distKm / earthRadiusKM

	destLat := math.Asin(math.Sin(latRad)*math.Cos(angular) +
		math.Cos(latRad)*math.Sin(angular)*math.Cos(bearing))
	destLon := lonRad + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(destLat))

	return radiansToDegree(destLat), radiansToDegree(destLon)
}

func bearingRad(latOne, lonOne, latTwo, lonTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	lonOne = degreeToRadians(lonOne)
	latTwo = degreeToRadians(latTwo)
	lonTwo = degreeToRadians(lonTwo)

	y := math.Sin(lonTwo-lonOne) * math.Cos(latTwo)
	x := math.Cos(latOne)*math.Sin(latTwo) - math.Sin(latOne)*math.Cos(latTwo)*math.Cos(lonTwo-lonOne)
	return math.Atan2(y, x)
}
