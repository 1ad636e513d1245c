package geo

import (
	"container/list"
	"math"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
)

const (
	douglasPeuckerThreshold = 7.0 // meters
)

// PointLinePerpendicularDistance returns the cross-track distance in meters
// from point p to the great-circle segment (a, b).
func PointLinePerpendicularDistance(a, b, p datastructure.Coordinate) float64 {
	distAP := CalculateHaversineDistance(a.Lat, a.Lon, p.Lat, p.Lon) / earthRadiusKM
	bearingAP := bearingRad(a.Lat, a.Lon, p.Lat, p.Lon)
	bearingAB := bearingRad(a.Lat, a.Lon, b.Lat, b.Lon)

	crossTrack := math.Asin(math.Sin(distAP) * math.Sin(bearingAP-bearingAB))
	return math.Abs(crossTrack) * earthRadiusKM * 1000
}

// RamerDouglasPeucker simplifies a polyline, keeping every point whose
// perpendicular distance from the spanning segment exceeds the threshold.
// https://cartography-playground.gitlab.io/playgrounds/douglas-peucker-algorithm/
func RamerDouglasPeucker(coords []datastructure.Coordinate) []datastructure.Coordinate {
	size := len(coords)
	if size < 2 {
		return coords
	}

	kepts := make([]bool, size)
	kepts[0] = true
	kepts[size-1] = true

	stack := list.New()
	stack.PushBack([2]int{0, size - 1})

	threshold := douglasPeuckerThreshold
	for stack.Len() > 0 {
		pair := stack.Remove(stack.Back()).([2]int)
		left, right := pair[0], pair[1]
		var maxDist float64
		farthestIndex := left

		for i := left + 1; i < right; i++ {
			dist := PointLinePerpendicularDistance(coords[left], coords[right], coords[i])
			if dist > maxDist && dist > threshold {
				maxDist = dist
				farthestIndex = i
			}
		}

		if maxDist > threshold {
			kepts[farthestIndex] = true
			if left < farthestIndex {
				stack.PushBack([2]int{left, farthestIndex})
			}
			if farthestIndex < right {
				stack.PushBack([2]int{farthestIndex, right})
			}
		}
	}

	simplifiedGeometry := make([]datastructure.Coordinate, 0)
	for i, necessary := range kepts {
		if necessary {
			simplifiedGeometry = append(simplifiedGeometry, coords[i])
		}
	}
	return simplifiedGeometry
}
