package geo

import (
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/stretchr/testify/assert"
)

func TestRamerDouglasPeuckerDropsCollinearPoints(t *testing.T) {
	lineCoords := []datastructure.Coordinate{
		{Lat: -7.565837, Lon: 110.831586},
		{Lat: -7.566063, Lon: 110.832379},
		{Lat: -7.566406, Lon: 110.833232},
	}

	simplified := RamerDouglasPeucker(lineCoords)
	assert.LessOrEqual(t, len(simplified), 2)
	assert.Equal(t, lineCoords[0], simplified[0])
	assert.Equal(t, lineCoords[len(lineCoords)-1], simplified[len(simplified)-1])
}

func TestRamerDouglasPeuckerKeepsSharpCorner(t *testing.T) {
	// detour point sits ~hundreds of meters off the spanning segment
	lineCoords := []datastructure.Coordinate{
		{Lat: -7.560000, Lon: 110.830000},
		{Lat: -7.565000, Lon: 110.840000},
		{Lat: -7.570000, Lon: 110.830000},
	}

	simplified := RamerDouglasPeucker(lineCoords)
	assert.Equal(t, 3, len(simplified))
}

func TestRamerDouglasPeuckerShortInput(t *testing.T) {
	single := []datastructure.Coordinate{{Lat: -7.56, Lon: 110.83}}
	assert.Equal(t, single, RamerDouglasPeucker(single))
}

func TestPointLinePerpendicularDistance(t *testing.T) {
	a := datastructure.NewCoordinate(-7.560000, 110.830000)
	b := datastructure.NewCoordinate(-7.560000, 110.840000)

	onLine := datastructure.NewCoordinate(-7.560000, 110.835000)
	assert.InDelta(t, 0, PointLinePerpendicularDistance(a, b, onLine), 1.0)

	// ~0.001 degrees of latitude off the segment, about 111 meters
	offLine := datastructure.NewCoordinate(-7.561000, 110.835000)
	assert.InDelta(t, 111, PointLinePerpendicularDistance(a, b, offLine), 5)
}
