package contractor

import (
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/stretchr/testify/assert"
)

// two directed cycles 0-1-2 and 3-4 joined by a one-way edge 2->3
func TestKosarajuSCC(t *testing.T) {
	chGraph := NewContractedGraph()
	nodes := make([]datastructure.CHNode, 5)
	for i := range nodes {
		nodes[i] = datastructure.NewCHNode(1, 1, 0, int32(i))
	}

	edges := []datastructure.Edge{
		datastructure.NewEdge(0, 1, 1, 1),
		datastructure.NewEdge(1, 2, 1, 1),
		datastructure.NewEdge(2, 0, 1, 1),
		datastructure.NewEdge(2, 3, 1, 1),
		datastructure.NewEdge(3, 4, 1, 1),
		datastructure.NewEdge(4, 3, 1, 1),
	}

	err := chGraph.InitGraph(nodes, edges, true)
	assert.Nil(t, err)

	assert.Equal(t, 2, chGraph.GetSCCCount())
	assert.Equal(t, int32(3), chGraph.GetLargestSCCSize())

	assert.Equal(t, chGraph.GetSCCID(0), chGraph.GetSCCID(1))
	assert.Equal(t, chGraph.GetSCCID(1), chGraph.GetSCCID(2))
	assert.Equal(t, chGraph.GetSCCID(3), chGraph.GetSCCID(4))
	assert.NotEqual(t, chGraph.GetSCCID(0), chGraph.GetSCCID(3))
}

func TestKosarajuSCCUndirectedSingleComponent(t *testing.T) {
	chGraph := NewContractedGraph()
	nodes := make([]datastructure.CHNode, 4)
	for i := range nodes {
		nodes[i] = datastructure.NewCHNode(1, 1, 0, int32(i))
	}

	edges := []datastructure.Edge{
		datastructure.NewEdge(0, 1, 1, 1),
		datastructure.NewEdge(1, 2, 1, 1),
		datastructure.NewEdge(2, 3, 1, 1),
	}

	err := chGraph.InitGraph(nodes, edges, false)
	assert.Nil(t, err)

	assert.Equal(t, 1, chGraph.GetSCCCount())
	assert.Equal(t, int32(4), chGraph.GetLargestSCCSize())
}
