package contractor

import (
	"math"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
)

/*
dijkstraWitnessSearch: while contracting node v (ignoreNodeID) we search the
shortest path from u to w that avoids v. The search stops as soon as the
cheapest open node already costs more than acceptedWeight, or when a path to
the target with cost <= acceptedWeight is known — a witness that makes the
shortcut (u,w) unnecessary.

O((V+E)logV) with a binary heap, O(VlogV+E) with the fibonacci heap used here.
*/
func (ch *ContractedGraph) dijkstraWitnessSearch(fromNodeID, targetNodeID int32, ignoreNodeID int32,
	acceptedWeight float64, maxSettledNodes int, pMax float64, contracted []bool) float64 {

	visited := make(map[int32]bool)
	cost := make(map[int32]float64)
	entryMap := make(map[int32]*datastructure.Entry[int32])

	pq := datastructure.NewFibonacciHeap[int32]()
	entryMap[fromNodeID] = pq.Insert(fromNodeID, 0.0)

	cost[fromNodeID] = 0.0
	settledNodes := 0
	for settledNodes < maxSettledNodes {

		smallest := pq.GetMin()
		if pq.Size() == 0 || smallest.GetPriority() > acceptedWeight {
			return math.MaxFloat64
		}

		if targetCost, ok := cost[targetNodeID]; ok && targetCost <= acceptedWeight {
			// some path to the target is already cheap enough; a witness
			// need not be the shortest path
			return targetCost
		}

		currItem := pq.ExtractMin()

		if contracted[currItem.GetElem()] {
			continue
		}

		if currItem.GetElem() == targetNodeID {
			return cost[currItem.GetElem()]
		}

		if currItem.GetPriority() > pMax {
			// no remaining witness can beat any direct u-v-w path
			if out, ok := cost[targetNodeID]; ok {
				return out
			}
			return math.MaxFloat64
		}

		visited[currItem.GetElem()] = true
		for _, outID := range ch.ContractedFirstOutEdge[currItem.GetElem()] {
			neighbor := ch.GetOutEdge(outID)
			if visited[neighbor.ToNodeID] || neighbor.ToNodeID == ignoreNodeID ||
				contracted[neighbor.ToNodeID] {
				continue
			}

			newCost := cost[currItem.GetElem()] + neighbor.Weight

			if _, ok := cost[neighbor.ToNodeID]; !ok {
				cost[neighbor.ToNodeID] = newCost
				entryMap[neighbor.ToNodeID] = pq.Insert(neighbor.ToNodeID, newCost)
			} else if newCost < cost[neighbor.ToNodeID] {
				cost[neighbor.ToNodeID] = newCost
				pq.DecreaseKey(entryMap[neighbor.ToNodeID], newCost)
			}
		}

		settledNodes++
	}
	return math.MaxFloat64
}
