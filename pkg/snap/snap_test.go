package snap

import (
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/stretchr/testify/assert"
)

func newTestSnapper() *NodeSnapper {
	nodes := []datastructure.CHNode{
		datastructure.NewCHNode(47.642563, -122.322375, 0, 0),
		datastructure.NewCHNode(47.642478, -122.322182, 0, 1),
		datastructure.NewCHNode(47.650000, -122.330000, 0, 2),
	}
	return NewNodeSnapper(nodes)
}

func TestSnapToNode(t *testing.T) {
	snapper := newTestSnapper()

	node, err := snapper.SnapToNode(47.64145, -122.3218167)
	assert.Nil(t, err)
	assert.Equal(t, int32(1), node.ID)

	node, err = snapper.SnapToNode(47.6501, -122.3301)
	assert.Nil(t, err)
	assert.Equal(t, int32(2), node.ID)
}

func TestSnapMany(t *testing.T) {
	snapper := newTestSnapper()

	nodeIDs, err := snapper.SnapMany([]datastructure.Coordinate{
		datastructure.NewCoordinate(47.642563, -122.322375),
		datastructure.NewCoordinate(47.650000, -122.330000),
	})
	assert.Nil(t, err)
	assert.Equal(t, []int32{0, 2}, nodeIDs)
}

func TestNearbyNodes(t *testing.T) {
	snapper := newTestSnapper()

	nearby := snapper.NearbyNodes(47.642500, -122.322300)
	assert.NotEmpty(t, nearby)

	ids := make(map[int32]struct{})
	for _, n := range nearby {
		ids[n.ID] = struct{}{}
	}
	_, ok := ids[0]
	assert.True(t, ok)
	_, ok = ids[1]
	assert.True(t, ok)
}
