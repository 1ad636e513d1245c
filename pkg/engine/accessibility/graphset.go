package accessibility

import (
	"github.com/lintang-b-s/accessx/pkg/contractor"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/engine/routingalgorithm"
	"github.com/lintang-b-s/accessx/pkg/server"
)

// Oracle is the per-variant shortest-path service the accessibility core
// queries. One instance per edge-weight variant; every call carries the
// worker slot owning the scratch state it may use.
type Oracle interface {
	Distance(src, tgt int32, slot int) (float64, error)
	Route(src, tgt int32, slot int) ([]int32, error)
	Range(src int32, maxDist float64, slot int) ([]datastructure.ReachedNode, error)

	InitPOICategory(category string, maxDist float64, maxK int) error
	RegisterPOI(category string, poiNode int32) error
	NearestPOI(category string, src int32, maxDist float64, k int, slot int) (map[int32]float64, error)
}

// GraphSet owns the node count and one Oracle per edge-weight variant.
// Variants share the node id space [0,N) but never mix in a query. The
// worker-slot pool is shared by every variant; any query goroutine checks a
// slot out before touching an Oracle and returns it afterwards.
type GraphSet struct {
	numNodes int
	variants []Oracle
	slots    *slotPool
	workers  int
}

func NewGraphSet(numNodes int, variants []Oracle, workers int) *GraphSet {
	if workers < 1 {
		workers = 1
	}
	return &GraphSet{
		numNodes: numNodes,
		variants: variants,
		slots:    newSlotPool(workers),
		workers:  workers,
	}
}

func (gs *GraphSet) NumNodes() int {
	return gs.numNodes
}

func (gs *GraphSet) NumVariants() int {
	return len(gs.variants)
}

func (gs *GraphSet) Workers() int {
	return gs.workers
}

func (gs *GraphSet) Variant(variant int) (Oracle, error) {
	if variant < 0 || variant >= len(gs.variants) {
		return nil, server.NewErrorf(server.ErrBadParamInput,
			"graph variant %d outside [0,%d)", variant, len(gs.variants))
	}
	return gs.variants[variant], nil
}

func (gs *GraphSet) validateNode(node int32) error {
	if node < 0 || int(node) >= gs.numNodes {
		return server.NewErrorf(server.ErrInvalidNode,
			"node %d outside [0,%d)", node, gs.numNodes)
	}
	return nil
}

// BuildGraphSet contracts one graph per weight variant over a shared node
// table and wraps each in a query Oracle. Every weight list must cover the
// edge list position-for-position.
func BuildGraphSet(nodes []datastructure.CHNode, edges [][2]int32,
	weightsPerVariant [][]float64, directed bool, workers int) (*GraphSet, error) {

	if len(nodes) == 0 {
		return nil, server.NewErrorf(server.ErrBadParamInput, "empty node table")
	}
	if len(weightsPerVariant) == 0 {
		return nil, server.NewErrorf(server.ErrBadParamInput, "no weight variant given")
	}

	variants := make([]Oracle, 0, len(weightsPerVariant))
	for variant, weights := range weightsPerVariant {
		if len(weights) != len(edges) {
			return nil, server.NewErrorf(server.ErrBadParamInput,
				"variant %d has %d weights for %d edges", variant, len(weights), len(edges))
		}

		variantEdges := make([]datastructure.Edge, len(edges))
		for i, e := range edges {
			variantEdges[i] = datastructure.NewEdge(e[0], e[1], weights[i], weights[i])
		}

		chGraph := contractor.NewContractedGraph()
		if err := chGraph.InitGraph(nodes, variantEdges, directed); err != nil {
			return nil, server.WrapErrorf(err, server.ErrInvalidNode,
				"building graph variant %d", variant)
		}
		if err := chGraph.Contraction(); err != nil {
			return nil, server.WrapErrorf(err, server.ErrInternalServerError,
				"contracting graph variant %d", variant)
		}

		variants = append(variants, routingalgorithm.NewRouteAlgorithm(chGraph, workers))
	}

	return NewGraphSet(len(nodes), variants, workers), nil
}

// NewGraphSetFromContracted wraps already-contracted graphs, the path used
// when the serve binary loads graph snapshots built by preprocessing.
func NewGraphSetFromContracted(graphs []*contractor.ContractedGraph, workers int) (*GraphSet, error) {
	if len(graphs) == 0 {
		return nil, server.NewErrorf(server.ErrBadParamInput, "no contracted graph given")
	}
	numNodes := graphs[0].GetNumNodes()
	variants := make([]Oracle, 0, len(graphs))
	for variant, g := range graphs {
		if g.GetNumNodes() != numNodes {
			return nil, server.NewErrorf(server.ErrBadParamInput,
				"variant %d has %d nodes, variant 0 has %d", variant, g.GetNumNodes(), numNodes)
		}
		variants = append(variants, routingalgorithm.NewRouteAlgorithm(g, workers))
	}
	return NewGraphSet(numNodes, variants, workers), nil
}
