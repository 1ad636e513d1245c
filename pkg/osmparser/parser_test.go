package osmparser

import (
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
)

func wayWithTags(tags map[string]string) *osm.Way {
	way := &osm.Way{}
	for k, v := range tags {
		way.Tags = append(way.Tags, osm.Tag{Key: k, Value: v})
	}
	return way
}

func TestParseMaxSpeed(t *testing.T) {
	assert.InDelta(t, 80.467, parseMaxSpeed(wayWithTags(map[string]string{"maxspeed": "50 mph"})), 1e-3)
	assert.Equal(t, 60.0, parseMaxSpeed(wayWithTags(map[string]string{"maxspeed": "60 km/h"})))
	assert.InDelta(t, 18.52, parseMaxSpeed(wayWithTags(map[string]string{"maxspeed": "10 knots"})), 1e-9)
	assert.Equal(t, 40.0, parseMaxSpeed(wayWithTags(map[string]string{"maxspeed": "40"})))

	// road-class default when no maxspeed tag
	assert.Equal(t, 30.0, parseMaxSpeed(wayWithTags(map[string]string{"highway": "residential"})))
	assert.Equal(t, 100.0, parseMaxSpeed(wayWithTags(map[string]string{"highway": "motorway"})))
}

func TestAcceptOsmWay(t *testing.T) {
	assert.True(t, acceptOsmWay(wayWithTags(map[string]string{"highway": "residential"})))
	assert.False(t, acceptOsmWay(wayWithTags(map[string]string{"highway": "footway"})))
	assert.False(t, acceptOsmWay(wayWithTags(map[string]string{"building": "yes"})))
	assert.True(t, acceptOsmWay(wayWithTags(map[string]string{"route": "road"})))
	assert.True(t, acceptOsmWay(wayWithTags(map[string]string{"junction": "roundabout"})))
}

func TestVehicleRestrictions(t *testing.T) {
	fwd, bwd := getVehicleRestrictions(wayWithTags(map[string]string{"vehicle:forward": "no"}))
	assert.True(t, fwd)
	assert.False(t, bwd)

	fwd, bwd = getVehicleRestrictions(wayWithTags(map[string]string{"motor_vehicle:backward": "private"}))
	assert.False(t, fwd)
	assert.True(t, bwd)
}

func TestAddEdgeEmitsBothDirections(t *testing.T) {
	p := NewOsmParser()
	segment := []wayNode{
		{id: 100, coord: nodeCoord{lat: -7.55, lon: 110.78}},
		{id: 101, coord: nodeCoord{lat: -7.56, lon: 110.78}},
	}

	edges := make([]datastructure.RawEdge, 0)
	p.addEdge(segment, 60, &edges, wayDirection{oneWay: false, forward: true})

	assert.Equal(t, 2, len(edges))
	assert.Equal(t, edges[0].FromNodeID, edges[1].ToNodeID)
	assert.Equal(t, edges[0].ToNodeID, edges[1].FromNodeID)
	assert.InDelta(t, 1111.9, edges[0].DistanceMeters, 10) // ~one hundredth of a degree of latitude
	assert.InDelta(t, edges[0].DistanceMeters/1000, edges[0].TravelMinutes, 1e-9)

	oneway := make([]datastructure.RawEdge, 0)
	p.addEdge(segment, 60, &oneway, wayDirection{oneWay: true, forward: false})
	assert.Equal(t, 1, len(oneway))
	assert.Equal(t, edges[1].FromNodeID, oneway[0].FromNodeID)
}
