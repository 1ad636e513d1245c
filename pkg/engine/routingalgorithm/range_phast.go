package routingalgorithm

import (
	"math"

	"github.com/lintang-b-s/accessx/pkg/contractor"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"
)

// Range returns every node whose network distance from src is at most
// maxDist, src itself included with distance zero. Bounded PHAST: an upward
// Dijkstra pruned at maxDist, then one linear sweep over the downward arcs
// in descending order of the tail's contraction order, so each tail is final
// before its arcs are scanned.
func (rt *RouteAlgorithm) Range(src int32, maxDist float64, slot int) ([]datastructure.ReachedNode, error) {
	if err := rt.validateNode(src); err != nil {
		return nil, err
	}
	if err := rt.validateSlot(slot); err != nil {
		return nil, err
	}
	if maxDist < 0 || math.IsNaN(maxDist) {
		return nil, server.NewErrorf(server.ErrBadParamInput,
			"range radius must be non-negative, got %f", maxDist)
	}

	rt.buildDownEdges()

	sc := rt.scratch[slot]
	df := sc.df
	visited := sc.vf
	df.reset()
	visited.reset()

	pq := contractor.NewMinHeap[int32]()
	df.set(src, 0.0)
	pq.Insert(contractor.PriorityQueueNode[int32]{Rank: 0, Item: src})

	for pq.Size() > 0 {
		node, _ := pq.ExtractMin()
		if visited.isMarked(node.Item) {
			continue
		}
		visited.mark(node.Item)

		base := df.get(node.Item)
		for _, arcID := range rt.ch.GetNodeFirstOutEdges(node.Item) {
			arc := rt.ch.GetOutEdge(arcID)
			if rt.ch.GetNode(node.Item).OrderPos >= rt.ch.GetNode(arc.ToNodeID).OrderPos {
				continue
			}

			newCost := base + arc.Weight
			if newCost > maxDist || newCost >= df.get(arc.ToNodeID) {
				continue
			}
			if math.IsInf(df.get(arc.ToNodeID), 1) {
				df.set(arc.ToNodeID, newCost)
				pq.Insert(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: arc.ToNodeID})
			} else {
				df.set(arc.ToNodeID, newCost)
				pq.DecreaseKey(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: arc.ToNodeID})
			}
		}
	}

	for _, arc := range rt.downEdges {
		from := df.get(arc.FromNodeID)
		if math.IsInf(from, 1) {
			continue
		}
		newCost := from + arc.Weight
		if newCost <= maxDist && newCost < df.get(arc.ToNodeID) {
			df.set(arc.ToNodeID, newCost)
		}
	}

	reached := make([]datastructure.ReachedNode, 0, len(df.touched))
	for _, nodeID := range df.touched {
		if d := df.get(nodeID); d <= maxDist {
			reached = append(reached, datastructure.NewReachedNode(nodeID, d))
		}
	}
	return reached, nil
}
