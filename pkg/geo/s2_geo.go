package geo

import (
	"github.com/lintang-b-s/accessx/pkg/util"

	"github.com/golang/geo/s2"
)

type Coordinate struct {
	Lat float64
	Lon float64
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// ProjectPointToLineCoord projects snap onto the segment between the two
// street points and returns the projection.
func ProjectPointToLineCoord(nearestStPoint Coordinate, secondNearestStPoint Coordinate,
	snap Coordinate) Coordinate {
	nearestStPoint = makeSixDigitsAfterComa(nearestStPoint, 6)
	secondNearestStPoint = makeSixDigitsAfterComa(secondNearestStPoint, 6)
	snapLat := snap.Lat
	snapLon := snap.Lon
	makeSixDigitsAfterComaLatLon(&snapLat, &snapLon, 6)

	nearestStS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(nearestStPoint.Lat, nearestStPoint.Lon))
	secondNearestStS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(secondNearestStPoint.Lat, secondNearestStPoint.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snapLat, snapLon))
	projection := s2.Project(snapS2, nearestStS2, secondNearestStS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return Coordinate{projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees()}
}

func makeSixDigitsAfterComa(n Coordinate, precision int) Coordinate {
	if util.CountDecimalPlacesF64(n.Lat) != precision {
		n.Lat = util.RoundFloat(n.Lat+0.000001, 6)
	}
	if util.CountDecimalPlacesF64(n.Lon) != precision {
		n.Lon = util.RoundFloat(n.Lon+0.000001, 6)
	}
	return n
}

func makeSixDigitsAfterComaLatLon(lat, lon *float64, precision int) {
	if util.CountDecimalPlacesF64(*lat) != precision {
		*lat = util.RoundFloat(*lat+0.000001, 6)
	}
	if util.CountDecimalPlacesF64(*lon) != precision {
		*lon = util.RoundFloat(*lon+0.000001, 6)
	}
}
