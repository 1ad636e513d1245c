package routingalgorithm

import (
	"math"
	"sort"

	"github.com/lintang-b-s/accessx/pkg/contractor"
	"github.com/lintang-b-s/accessx/pkg/server"
)

type bucketEntry struct {
	poiNode int32
	dist    float64
}

// poiBuckets holds, per graph node, the POI nodes of one category whose
// backward upward search settled that node, with the settled distance.
// A forward upward search from a query source joined against these buckets
// yields exact shortest distances to every POI within the category ceiling.
type poiBuckets struct {
	maxDist float64
	maxK    int
	buckets [][]bucketEntry
}

// InitPOICategory creates an empty bucket index for a category. Replaces any
// previous index under the same name. Registration is a setup phase: no
// query may run on the category concurrently with RegisterPOI.
func (rt *RouteAlgorithm) InitPOICategory(name string, maxDist float64, maxK int) error {
	if maxDist < 0 || math.IsNaN(maxDist) {
		return server.NewErrorf(server.ErrBadParamInput,
			"category radius ceiling must be non-negative, got %f", maxDist)
	}
	if maxK < 1 {
		return server.NewErrorf(server.ErrBadParamInput,
			"category count ceiling must be positive, got %d", maxK)
	}
	rt.poiCategories[name] = &poiBuckets{
		maxDist: maxDist,
		maxK:    maxK,
		buckets: make([][]bucketEntry, rt.ch.GetNumNodes()),
	}
	return nil
}

// RegisterPOI adds one POI node to a category: a backward upward search
// bounded at the category ceiling writes a (poiNode, dist) entry into the
// bucket of every node it settles.
func (rt *RouteAlgorithm) RegisterPOI(name string, poiNode int32) error {
	if err := rt.validateNode(poiNode); err != nil {
		return err
	}
	b, ok := rt.poiCategories[name]
	if !ok {
		return server.NewErrorf(server.ErrBadParamInput,
			"unknown poi category %q", name)
	}

	// setup phase, maps are fine here
	dist := map[int32]float64{poiNode: 0.0}
	visited := make(map[int32]struct{})

	pq := contractor.NewMinHeap[int32]()
	pq.Insert(contractor.PriorityQueueNode[int32]{Rank: 0, Item: poiNode})

	for pq.Size() > 0 {
		node, _ := pq.ExtractMin()
		if _, ok := visited[node.Item]; ok {
			continue
		}
		visited[node.Item] = struct{}{}
		b.buckets[node.Item] = append(b.buckets[node.Item],
			bucketEntry{poiNode: poiNode, dist: dist[node.Item]})

		for _, arcID := range rt.ch.GetNodeFirstInEdges(node.Item) {
			arc := rt.ch.GetInEdge(arcID)
			if rt.ch.GetNode(node.Item).OrderPos >= rt.ch.GetNode(arc.ToNodeID).OrderPos {
				continue
			}

			newCost := dist[node.Item] + arc.Weight
			if newCost > b.maxDist {
				continue
			}
			if old, seen := dist[arc.ToNodeID]; !seen || newCost < old {
				dist[arc.ToNodeID] = newCost
				if !seen {
					pq.Insert(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: arc.ToNodeID})
				} else {
					pq.DecreaseKey(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: arc.ToNodeID})
				}
			}
		}
	}
	return nil
}

// NearestPOI returns network distances from src to its k nearest POIs of a
// category, keyed by POI node, at most maxDist away. maxDist and k are
// clamped against the category ceilings with an error when exceeded.
func (rt *RouteAlgorithm) NearestPOI(name string, src int32, maxDist float64, k int, slot int) (map[int32]float64, error) {
	if err := rt.validateNode(src); err != nil {
		return nil, err
	}
	if err := rt.validateSlot(slot); err != nil {
		return nil, err
	}
	b, ok := rt.poiCategories[name]
	if !ok {
		return nil, server.NewErrorf(server.ErrBadParamInput,
			"unknown poi category %q", name)
	}
	if maxDist < 0 || maxDist > b.maxDist || math.IsNaN(maxDist) {
		return nil, server.NewErrorf(server.ErrOutOfBoundsQuery,
			"radius %f outside category ceiling %f", maxDist, b.maxDist)
	}
	if k < 1 || k > b.maxK {
		return nil, server.NewErrorf(server.ErrOutOfBoundsQuery,
			"count %d outside category ceiling %d", k, b.maxK)
	}

	sc := rt.scratch[slot]
	df := sc.df
	visited := sc.vf
	df.reset()
	visited.reset()

	pq := contractor.NewMinHeap[int32]()
	df.set(src, 0.0)
	pq.Insert(contractor.PriorityQueueNode[int32]{Rank: 0, Item: src})

	best := make(map[int32]float64)

	for pq.Size() > 0 {
		node, _ := pq.ExtractMin()
		if visited.isMarked(node.Item) {
			continue
		}
		visited.mark(node.Item)

		base := df.get(node.Item)
		for _, e := range b.buckets[node.Item] {
			total := base + e.dist
			if total > maxDist {
				continue
			}
			if old, seen := best[e.poiNode]; !seen || total < old {
				best[e.poiNode] = total
			}
		}

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

	if len(best) <= k {
		return best, nil
	}

	type candidate struct {
		poiNode int32
		dist    float64
	}
	candidates := make([]candidate, 0, len(best))
	for poiNode, d := range best {
		candidates = append(candidates, candidate{poiNode, d})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].poiNode < candidates[j].poiNode
	})

	result := make(map[int32]float64, k)
	for _, c := range candidates[:k] {
		result[c.poiNode] = c.dist
	}
	return result, nil
}
