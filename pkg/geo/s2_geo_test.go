package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectPointToLineCoord(t *testing.T) {
	nearest := NewCoordinate(47.667324, -122.118989)
	secondNearest := NewCoordinate(47.667338, -122.121784)
	snap := NewCoordinate(47.667347, -122.120561)

	projection := ProjectPointToLineCoord(nearest, secondNearest, snap)

	// projection lands on the segment, between the two street points
	assert.InDelta(t, 47.66733, projection.Lat, 1e-4)
	assert.GreaterOrEqual(t, projection.Lon, secondNearest.Lon)
	assert.LessOrEqual(t, projection.Lon, nearest.Lon)

	dist := CalculateHaversineDistance(snap.Lat, snap.Lon, projection.Lat, projection.Lon)
	assert.Less(t, dist*1000, 10.0)
}
