package routingalgorithm

import (
	"math"
	"sort"
	"sync"

	"github.com/lintang-b-s/accessx/pkg/contractor"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"
)

type cameFromPair struct {
	Edge   datastructure.EdgeCH
	NodeID int32
}

// RouteAlgorithm answers shortest-path queries over one contracted graph
// variant. Query scratch lives in a pool addressed by an explicit worker
// slot passed into every call; POI-category registration is a single-writer
// setup phase, queries afterwards are read-only and freely concurrent.
type RouteAlgorithm struct {
	ch      ContractedGraph
	workers int
	scratch []*searchScratch

	downOnce  sync.Once
	downEdges []datastructure.EdgeCH

	poiCategories map[string]*poiBuckets
}

func NewRouteAlgorithm(ch ContractedGraph, workers int) *RouteAlgorithm {
	if workers < 1 {
		workers = 1
	}
	scratch := make([]*searchScratch, workers)
	for i := range scratch {
		scratch[i] = newSearchScratch(ch.GetNumNodes())
	}
	return &RouteAlgorithm{
		ch:            ch,
		workers:       workers,
		scratch:       scratch,
		poiCategories: make(map[string]*poiBuckets),
	}
}

func (rt *RouteAlgorithm) Workers() int {
	return rt.workers
}

func (rt *RouteAlgorithm) validateNode(nodeID int32) error {
	if nodeID < 0 || int(nodeID) >= rt.ch.GetNumNodes() {
		return server.NewErrorf(server.ErrInvalidNode,
			"node %d outside [0,%d)", nodeID, rt.ch.GetNumNodes())
	}
	return nil
}

func (rt *RouteAlgorithm) validateSlot(slot int) error {
	if slot < 0 || slot >= rt.workers {
		return server.NewErrorf(server.ErrBadParamInput,
			"worker slot %d outside [0,%d)", slot, rt.workers)
	}
	return nil
}

// Distance returns the shortest-path weight from src to tgt, +Inf when tgt
// is unreachable.
func (rt *RouteAlgorithm) Distance(src, tgt int32, slot int) (float64, error) {
	if err := rt.validateNode(src); err != nil {
		return 0, err
	}
	if err := rt.validateNode(tgt); err != nil {
		return 0, err
	}
	if err := rt.validateSlot(slot); err != nil {
		return 0, err
	}
	if src == tgt {
		return 0, nil
	}

	estimate, _, _, _ := rt.biDijkstra(src, tgt, slot, false)
	return estimate, nil
}

// Route returns the node sequence of the shortest path from src to tgt,
// shortcuts unpacked, empty when tgt is unreachable.
func (rt *RouteAlgorithm) Route(src, tgt int32, slot int) ([]int32, error) {
	if err := rt.validateNode(src); err != nil {
		return nil, err
	}
	if err := rt.validateNode(tgt); err != nil {
		return nil, err
	}
	if err := rt.validateSlot(slot); err != nil {
		return nil, err
	}
	if src == tgt {
		return []int32{src}, nil
	}

	estimate, commonVertex, cameFromf, cameFromb := rt.biDijkstra(src, tgt, slot, true)
	if math.IsInf(estimate, 1) {
		return []int32{}, nil
	}
	return rt.createPath(commonVertex, src, cameFromf, cameFromb), nil
}

// biDijkstra runs the bidirectional upward search: the forward frontier
// relaxes out-edges toward higher order positions, the backward frontier
// in-edges toward higher order positions; the best common vertex estimate
// prunes both sides.
func (rt *RouteAlgorithm) biDijkstra(src, tgt int32, slot int, trackPath bool) (
	float64, int32, map[int32]cameFromPair, map[int32]cameFromPair) {

	sc := rt.scratch[slot]
	df, db := sc.df, sc.db
	vf, vb := sc.vf, sc.vb
	df.reset()
	db.reset()
	vf.reset()
	vb.reset()

	forwQ := contractor.NewMinHeap[int32]()
	backQ := contractor.NewMinHeap[int32]()

	df.set(src, 0.0)
	db.set(tgt, 0.0)

	forwQ.Insert(contractor.PriorityQueueNode[int32]{Rank: 0, Item: src})
	backQ.Insert(contractor.PriorityQueueNode[int32]{Rank: 0, Item: tgt})

	estimate := math.Inf(1)
	bestCommonVertex := int32(-1)

	var cameFromf, cameFromb map[int32]cameFromPair
	if trackPath {
		cameFromf = map[int32]cameFromPair{src: {datastructure.EdgeCH{}, -1}}
		cameFromb = map[int32]cameFromPair{tgt: {datastructure.EdgeCH{}, -1}}
	}

	frontFinished := false
	backFinished := false

	frontier, otherFrontier := forwQ, backQ
	turnF := true
	for {
		if frontier.Size() == 0 {
			if turnF {
				frontFinished = true
			} else {
				backFinished = true
			}
		}
		if otherFrontier.Size() == 0 {
			if turnF {
				backFinished = true
			} else {
				frontFinished = true
			}
		}
		if frontFinished && backFinished {
			break
		}

		if frontier.Size() > 0 {
			smallest, _ := frontier.GetMin()
			if smallest.Rank >= estimate {
				// nothing on this side can improve the candidate path
				if turnF {
					frontFinished = true
				} else {
					backFinished = true
				}
			} else {
				node, _ := frontier.ExtractMin()

				if turnF {
					if !vf.isMarked(node.Item) {
						vf.mark(node.Item)
						rt.relaxForward(node.Item, df, db, frontier, cameFromf,
							&estimate, &bestCommonVertex)
					}
				} else {
					if !vb.isMarked(node.Item) {
						vb.mark(node.Item)
						rt.relaxBackward(node.Item, db, df, frontier, cameFromb,
							&estimate, &bestCommonVertex)
					}
				}
			}
		}

		otherFinished := (turnF && backFinished) || (!turnF && frontFinished)
		if !otherFinished {
			frontier, otherFrontier = otherFrontier, frontier
			turnF = !turnF
		}
	}

	return estimate, bestCommonVertex, cameFromf, cameFromb
}

func (rt *RouteAlgorithm) relaxForward(nodeID int32, df, db *distArray,
	frontier *contractor.MinHeap[int32], cameFrom map[int32]cameFromPair,
	estimate *float64, bestCommonVertex *int32) {

	base := df.get(nodeID)
	for _, arc := range rt.ch.GetNodeFirstOutEdges(nodeID) {
		edge := rt.ch.GetOutEdge(arc)
		toNID := edge.ToNodeID

		if rt.ch.GetNode(nodeID).OrderPos >= rt.ch.GetNode(toNID).OrderPos {
			continue // only the upward graph
		}

		newCost := base + edge.Weight
		if newCost < df.get(toNID) {
			if math.IsInf(df.get(toNID), 1) {
				df.set(toNID, newCost)
				frontier.Insert(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: toNID})
			} else {
				df.set(toNID, newCost)
				frontier.DecreaseKey(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: toNID})
			}
			if cameFrom != nil {
				cameFrom[toNID] = cameFromPair{edge, nodeID}
			}
		}

		if other := db.get(toNID); !math.IsInf(other, 1) {
			if pathDistance := df.get(toNID) + other; pathDistance < *estimate {
				*estimate = pathDistance
				*bestCommonVertex = toNID
			}
		}
	}
}

func (rt *RouteAlgorithm) relaxBackward(nodeID int32, db, df *distArray,
	frontier *contractor.MinHeap[int32], cameFrom map[int32]cameFromPair,
	estimate *float64, bestCommonVertex *int32) {

	base := db.get(nodeID)
	for _, arc := range rt.ch.GetNodeFirstInEdges(nodeID) {
		edge := rt.ch.GetInEdge(arc)
		toNID := edge.ToNodeID

		if rt.ch.GetNode(nodeID).OrderPos >= rt.ch.GetNode(toNID).OrderPos {
			continue
		}

		newCost := base + edge.Weight
		if newCost < db.get(toNID) {
			if math.IsInf(db.get(toNID), 1) {
				db.set(toNID, newCost)
				frontier.Insert(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: toNID})
			} else {
				db.set(toNID, newCost)
				frontier.DecreaseKey(contractor.PriorityQueueNode[int32]{Rank: newCost, Item: toNID})
			}
			if cameFrom != nil {
				cameFrom[toNID] = cameFromPair{edge, nodeID}
			}
		}

		if other := df.get(toNID); !math.IsInf(other, 1) {
			if pathDistance := db.get(toNID) + other; pathDistance < *estimate {
				*estimate = pathDistance
				*bestCommonVertex = toNID
			}
		}
	}
}

// createPath stitches the two search trees at the common vertex and unpacks
// every shortcut into its original arcs.
func (rt *RouteAlgorithm) createPath(commonVertex int32, src int32,
	cameFromf, cameFromb map[int32]cameFromPair) []int32 {

	// arcs from src to the common vertex, in real direction
	type realArc struct {
		from, to, via int32
	}

	fArcs := make([]realArc, 0)
	v := commonVertex
	for cameFromf[v].NodeID != -1 {
		pair := cameFromf[v]
		fArcs = append(fArcs, realArc{pair.NodeID, v, pair.Edge.ViaNodeID})
		v = pair.NodeID
	}
	fArcs = reverseArcs(fArcs)

	// arcs from the common vertex to tgt; backward in-edges are stored
	// reversed, the real arc runs v -> parent
	bArcs := make([]realArc, 0)
	v = commonVertex
	for cameFromb[v].NodeID != -1 {
		pair := cameFromb[v]
		bArcs = append(bArcs, realArc{v, pair.NodeID, pair.Edge.ViaNodeID})
		v = pair.NodeID
	}

	path := []int32{src}
	for _, arc := range fArcs {
		rt.appendArcNodes(arc.from, arc.to, arc.via, &path)
	}
	for _, arc := range bArcs {
		rt.appendArcNodes(arc.from, arc.to, arc.via, &path)
	}
	return path
}

func reverseArcs[T any](arr []T) []T {
	for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
		arr[i], arr[j] = arr[j], arr[i]
	}
	return arr
}

// appendArcNodes appends the node sequence of the real arc from u to v,
// exclusive of u, expanding shortcuts through their via nodes.
func (rt *RouteAlgorithm) appendArcNodes(u, v, via int32, out *[]int32) {
	if via == -1 {
		*out = append(*out, v)
		return
	}
	one := rt.findOutEdge(u, via)
	rt.appendArcNodes(u, via, one.ViaNodeID, out)
	two := rt.findOutEdge(via, v)
	rt.appendArcNodes(via, v, two.ViaNodeID, out)
}

// findOutEdge returns the cheapest arc u->v from the forward adjacency.
func (rt *RouteAlgorithm) findOutEdge(u, v int32) datastructure.EdgeCH {
	best := datastructure.EdgeCH{Weight: math.Inf(1), ViaNodeID: -1}
	for _, arcID := range rt.ch.GetNodeFirstOutEdges(u) {
		arc := rt.ch.GetOutEdge(arcID)
		if arc.ToNodeID == v && arc.Weight < best.Weight {
			best = arc
		}
	}
	return best
}

// buildDownEdges materializes every non-upward forward arc ordered by
// descending tail order position, the sweep order of the range query. Must
// run after contraction; built lazily on the first range query.
func (rt *RouteAlgorithm) buildDownEdges() {
	rt.downOnce.Do(func() {
		n := rt.ch.GetNumNodes()
		nodesByOrderDesc := make([]int32, n)
		for i := 0; i < n; i++ {
			nodesByOrderDesc[i] = int32(i)
		}
		sort.Slice(nodesByOrderDesc, func(i, j int) bool {
			return rt.ch.GetNode(nodesByOrderDesc[i]).OrderPos > rt.ch.GetNode(nodesByOrderDesc[j]).OrderPos
		})

		downEdges := make([]datastructure.EdgeCH, 0)
		for _, nodeID := range nodesByOrderDesc {
			for _, arcID := range rt.ch.GetNodeFirstOutEdges(nodeID) {
				arc := rt.ch.GetOutEdge(arcID)
				if rt.ch.GetNode(nodeID).OrderPos > rt.ch.GetNode(arc.ToNodeID).OrderPos {
					downEdges = append(downEdges, arc)
				}
			}
		}
		rt.downEdges = downEdges
	})
}
