package contractor

import (
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"
)

type Metadata struct {
	MeanDegree       float64
	ShortcutsCount   int64
	degrees          []int
	InEdgeOrigCount  []int
	OutEdgeOrigCount []int
	EdgeCount        int
	NodeCount        int
}

// ContractedGraph is one edge-weight variant of the network after (or
// before) contraction. Nodes are dense ids in [0, N); original edges carry
// ViaNodeID == -1, shortcuts carry the contracted via node.
type ContractedGraph struct {
	Metadata               Metadata
	Ready                  bool
	ContractedFirstOutEdge [][]int32
	ContractedFirstInEdge  [][]int32
	ContractedOutEdges     []datastructure.EdgeCH
	ContractedInEdges      []datastructure.EdgeCH
	ContractedNodes        []datastructure.CHNode

	SCC           []int32
	SCCNodesCount []int32
}

var maxPollFactorHeuristic = 5
var maxPollFactorContraction = 200

func NewContractedGraph() *ContractedGraph {
	return &ContractedGraph{
		ContractedOutEdges: make([]datastructure.EdgeCH, 0),
		ContractedInEdges:  make([]datastructure.EdgeCH, 0),
		ContractedNodes:    make([]datastructure.CHNode, 0),
		Ready:              false,
	}
}

// InitGraph loads the raw node and edge lists into adjacency arrays. When
// directed is false every edge also gets its reverse arc. Duplicate arcs
// between the same node pair keep the smaller weight.
func (ch *ContractedGraph) InitGraph(nodes []datastructure.CHNode, edges []datastructure.Edge,
	directed bool) error {

	gLen := len(nodes)

	for _, edge := range edges {
		if edge.FromNodeID < 0 || int(edge.FromNodeID) >= gLen ||
			edge.ToNodeID < 0 || int(edge.ToNodeID) >= gLen {
			return server.NewErrorf(server.ErrInvalidNode,
				"edge (%d,%d) references a node outside [0,%d)", edge.FromNodeID, edge.ToNodeID, gLen)
		}
	}

	ch.ContractedNodes = append(ch.ContractedNodes, nodes...)

	ch.Metadata.degrees = make([]int, gLen)
	ch.Metadata.InEdgeOrigCount = make([]int, gLen)
	ch.Metadata.OutEdgeOrigCount = make([]int, gLen)
	ch.Metadata.ShortcutsCount = 0

	ch.ContractedFirstOutEdge = make([][]int32, gLen)
	ch.ContractedFirstInEdge = make([][]int32, gLen)

	// smallest weight wins on duplicates
	smallest := make(map[int64]int32)
	key := func(from, to int32) int64 { return int64(from)<<32 | int64(uint32(to)) }

	insert := func(from, to int32, weight, dist float64) {
		if prevID, ok := smallest[key(from, to)]; ok {
			if weight < ch.ContractedOutEdges[prevID].Weight {
				ch.ContractedOutEdges[prevID].Weight = weight
				ch.ContractedOutEdges[prevID].Dist = dist
				for _, inID := range ch.ContractedFirstInEdge[to] {
					if ch.ContractedInEdges[inID].ToNodeID == from {
						ch.ContractedInEdges[inID].Weight = weight
						ch.ContractedInEdges[inID].Dist = dist
						break
					}
				}
			}
			return
		}

		outEdgeID := int32(len(ch.ContractedOutEdges))
		ch.ContractedFirstOutEdge[from] = append(ch.ContractedFirstOutEdge[from], outEdgeID)
		ch.ContractedOutEdges = append(ch.ContractedOutEdges,
			datastructure.NewEdgeCHPlain(outEdgeID, weight, dist, to, from))
		ch.Metadata.OutEdgeOrigCount[from] = len(ch.ContractedFirstOutEdge[from])

		inEdgeID := int32(len(ch.ContractedInEdges))
		ch.ContractedFirstInEdge[to] = append(ch.ContractedFirstInEdge[to], inEdgeID)
		ch.ContractedInEdges = append(ch.ContractedInEdges,
			datastructure.NewEdgeCHPlain(inEdgeID, weight, dist, from, to))
		ch.Metadata.InEdgeOrigCount[to] = len(ch.ContractedFirstInEdge[to])

		ch.Metadata.degrees[from]++
		smallest[key(from, to)] = outEdgeID
	}

	for _, edge := range edges {
		insert(edge.FromNodeID, edge.ToNodeID, edge.Weight, edge.Dist)
		if !directed {
			insert(edge.ToNodeID, edge.FromNodeID, edge.Weight, edge.Dist)
		}
	}

	ch.Metadata.EdgeCount = len(ch.ContractedOutEdges)
	ch.Metadata.NodeCount = gLen
	if gLen > 0 {
		ch.Metadata.MeanDegree = float64(len(ch.ContractedOutEdges)) / float64(gLen)
	}

	ch.kosarajuSCC()
	return nil
}

// Contraction runs the node-ordering and shortcut insertion. The graph is
// immutable afterwards; order positions drive every upward query.
func (ch *ContractedGraph) Contraction() (err error) {
	st := time.Now()
	nq := NewMinHeap[int32]()

	ch.UpdatePrioritiesOfRemainingNodes(nq)

	log.Printf("total nodes: %d", len(ch.ContractedNodes))
	log.Printf("total edges: %d", len(ch.ContractedOutEdges))

	contracted := make([]bool, ch.Metadata.NodeCount)
	orderNum := int32(0)

	var polledItem, smallestItem PriorityQueueNode[int32]
	for nq.Size() != 0 {
		smallestItem, err = nq.GetMin()
		if err != nil {
			err = server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
			return
		}

		polledItem, err = nq.ExtractMin()
		if err != nil {
			err = server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
			return
		}

		// lazy update: recompute the priority and re-queue when another
		// node became more attractive in the meantime
		priority := ch.calculatePriority(polledItem.Item, contracted)

		if nq.Size() > 0 && priority > smallestItem.Rank {
			nq.Insert(PriorityQueueNode[int32]{Item: polledItem.Item, Rank: priority})
			continue
		}

		ch.ContractedNodes[polledItem.Item].OrderPos = orderNum

		ch.contractNode(polledItem.Item, contracted[polledItem.Item], contracted)
		contracted[polledItem.Item] = true
		orderNum++

		if (orderNum+1)%10000 == 0 {
			log.Printf("contracting node: %d...", orderNum+1)
		}
	}
	log.Printf("total shortcuts: %d", ch.Metadata.ShortcutsCount)

	ch.Metadata = Metadata{}
	ch.Ready = true
	runtime.GC()
	runtime.GC()
	end := time.Since(st)
	log.Printf("time for preprocessing contraction hierarchies: %v minutes", end.Minutes())
	return
}

func (ch *ContractedGraph) contractNode(nodeID int32, isContracted bool, contracted []bool) {
	if isContracted {
		return
	}
	ch.contractNodeNow(nodeID, contracted)
}

func (ch *ContractedGraph) contractNodeNow(nodeID int32, contracted []bool) {
	degree, _, _, _ := ch.findAndHandleShortcuts(nodeID, ch.addOrUpdateShortcut,
		int(ch.Metadata.MeanDegree*float64(maxPollFactorContraction)), contracted)
	ch.Metadata.MeanDegree = (ch.Metadata.MeanDegree*2 + float64(degree)) / 3
}

/*
findAndHandleShortcuts: when contracting node v we must search the shortest
path from u to w ignoring v, for every u with (u,v) in E and every w with
(v,w) in E. If that witness path costs more than c(u,v)+c(v,w), the shortcut
edge (u,w) is required to preserve distances.
*/
func (ch *ContractedGraph) findAndHandleShortcuts(nodeID int32,
	shortcutHandler func(fromNodeID, toNodeID int32, weight float64,
		removedEdgeOne, removedEdgeTwo *datastructure.EdgeCH),
	maxVisitedNodes int, contracted []bool) (int, int, int, error) {

	degree := 0
	shortcutCount := 0
	originalEdgesCount := 0
	pMax := 0.0 // upper bound on any witness worth finding
	pInMax := 0.0
	pOutMax := 0.0

	for _, idx := range ch.ContractedFirstInEdge[nodeID] {
		inEdge := ch.ContractedInEdges[idx]
		if contracted[inEdge.ToNodeID] {
			continue
		}
		if inEdge.Weight > pInMax {
			pInMax = inEdge.Weight
		}
	}
	for _, idx := range ch.ContractedFirstOutEdge[nodeID] {
		outEdge := ch.ContractedOutEdges[idx]
		if contracted[outEdge.ToNodeID] {
			continue
		}
		if outEdge.Weight > pOutMax {
			pOutMax = outEdge.Weight
		}
	}
	pMax = pInMax + pOutMax

	for _, inIdx := range ch.ContractedFirstInEdge[nodeID] {
		inEdge := ch.ContractedInEdges[inIdx]
		fromNodeID := inEdge.ToNodeID
		if fromNodeID == nodeID {
			return 0, 0, 0, fmt.Errorf("unexpected loop-edge at node: %v", nodeID)
		}
		if contracted[fromNodeID] {
			continue
		}

		incomingEdgeWeight := inEdge.Weight
		degree++

		for _, outID := range ch.ContractedFirstOutEdge[nodeID] {
			outEdge := ch.ContractedOutEdges[outID]
			toNode := outEdge.ToNodeID
			if contracted[toNode] {
				continue
			}
			if toNode == fromNodeID {
				continue
			}

			existingDirectWeight := incomingEdgeWeight + outEdge.Weight

			maxWeight := ch.dijkstraWitnessSearch(fromNodeID, toNode, nodeID,
				existingDirectWeight, maxVisitedNodes, pMax, contracted)

			if maxWeight <= existingDirectWeight {
				// witness found, no shortcut needed
				continue
			}

			shortcutCount++
			originalEdgesCount += ch.Metadata.InEdgeOrigCount[nodeID] + ch.Metadata.OutEdgeOrigCount[nodeID]
			shortcutHandler(fromNodeID, toNode, existingDirectWeight, &inEdge, &outEdge)
		}
	}
	return degree, shortcutCount, originalEdgesCount, nil
}

func (ch *ContractedGraph) countShortcut(fromNodeID, toNodeID int32, weight float64,
	removedEdgeOne, removedEdgeTwo *datastructure.EdgeCH) {
}

func (ch *ContractedGraph) addOrUpdateShortcut(fromNodeID, toNodeID int32, weight float64,
	removedEdgeOne, removedEdgeTwo *datastructure.EdgeCH) {

	exists := false
	for _, outID := range ch.ContractedFirstOutEdge[fromNodeID] {
		edge := ch.ContractedOutEdges[outID]
		if edge.ToNodeID != toNodeID || !edge.IsShortcut() {
			continue
		}
		exists = true
		if weight < edge.Weight {
			ch.ContractedOutEdges[outID].Weight = weight
		}
	}

	for _, inID := range ch.ContractedFirstInEdge[toNodeID] {
		edge := ch.ContractedInEdges[inID]
		if edge.ToNodeID != fromNodeID || !edge.IsShortcut() {
			continue
		}
		exists = true
		if weight < edge.Weight {
			ch.ContractedInEdges[inID].Weight = weight
		}
	}

	if !exists {
		ch.addShortcut(fromNodeID, toNodeID, weight, removedEdgeOne, removedEdgeTwo)
		ch.Metadata.ShortcutsCount++
	}
}

func (ch *ContractedGraph) addShortcut(fromNodeID, toNodeID int32, weight float64,
	removedEdgeOne, removedEdgeTwo *datastructure.EdgeCH) {

	viaNode := removedEdgeOne.FromNodeID
	dist := removedEdgeOne.Dist + removedEdgeTwo.Dist

	dup := false
	for _, outID := range ch.ContractedFirstOutEdge[fromNodeID] {
		edge := ch.ContractedOutEdges[outID]
		if edge.ToNodeID == toNodeID && edge.Weight > weight {
			ch.ContractedOutEdges[outID].Weight = weight
			ch.ContractedOutEdges[outID].Dist = dist
			ch.ContractedOutEdges[outID].ViaNodeID = viaNode
			dup = true
			break
		}
	}
	if !dup {
		currEdgeID := int32(len(ch.ContractedOutEdges))
		ch.ContractedOutEdges = append(ch.ContractedOutEdges, datastructure.NewEdgeCH(
			currEdgeID, weight, dist, toNodeID, fromNodeID, viaNode))
		ch.ContractedFirstOutEdge[fromNodeID] = append(ch.ContractedFirstOutEdge[fromNodeID], currEdgeID)
		ch.Metadata.degrees[fromNodeID]++
	}

	dup = false
	for _, inID := range ch.ContractedFirstInEdge[toNodeID] {
		edge := ch.ContractedInEdges[inID]
		if edge.ToNodeID == fromNodeID && edge.Weight > weight {
			ch.ContractedInEdges[inID].Weight = weight
			ch.ContractedInEdges[inID].Dist = dist
			ch.ContractedInEdges[inID].ViaNodeID = viaNode
			dup = true
			break
		}
	}
	if !dup {
		currEdgeID := int32(len(ch.ContractedInEdges))
		ch.ContractedInEdges = append(ch.ContractedInEdges, datastructure.NewEdgeCH(
			currEdgeID, weight, dist, fromNodeID, toNodeID, viaNode))
		ch.ContractedFirstInEdge[toNodeID] = append(ch.ContractedFirstInEdge[toNodeID], currEdgeID)
		ch.Metadata.degrees[toNodeID]++
	}
}

func (ch *ContractedGraph) calculatePriority(nodeID int32, contracted []bool) float64 {

	_, shortcutsCount, originalEdgesCount, _ := ch.findAndHandleShortcuts(nodeID, ch.countShortcut,
		int(ch.Metadata.MeanDegree*float64(maxPollFactorHeuristic)), contracted)

	// |shortcuts(v)| - degree(v), scaled; fewer added edges first
	edgeDifference := shortcutsCount - ch.Metadata.degrees[nodeID]

	return float64(10*edgeDifference + 1*originalEdgesCount)
}

func (ch *ContractedGraph) UpdatePrioritiesOfRemainingNodes(nq *MinHeap[int32]) {

	contracted := make([]bool, ch.Metadata.NodeCount)

	for nodeID := range ch.ContractedNodes {
		priority := ch.calculatePriority(int32(nodeID), contracted)
		nq.Insert(PriorityQueueNode[int32]{Item: int32(nodeID), Rank: priority})

		if (nodeID+1)%10000 == 0 {
			log.Printf("updating priority of node: %d...", nodeID+1)
		}
	}
}

func (ch *ContractedGraph) IsChReady() bool {
	return ch.Ready
}

func (ch *ContractedGraph) SetCHReady() {
	ch.Ready = true
}

func (ch *ContractedGraph) GetNodeFirstOutEdges(nodeID int32) []int32 {
	return ch.ContractedFirstOutEdge[nodeID]
}

func (ch *ContractedGraph) GetNodeFirstInEdges(nodeID int32) []int32 {
	return ch.ContractedFirstInEdge[nodeID]
}

func (ch *ContractedGraph) GetOutEdge(edgeID int32) datastructure.EdgeCH {
	return ch.ContractedOutEdges[edgeID]
}

func (ch *ContractedGraph) GetInEdge(edgeID int32) datastructure.EdgeCH {
	return ch.ContractedInEdges[edgeID]
}

func (ch *ContractedGraph) GetOutEdges() []datastructure.EdgeCH {
	return ch.ContractedOutEdges
}

func (ch *ContractedGraph) GetInEdges() []datastructure.EdgeCH {
	return ch.ContractedInEdges
}

func (ch *ContractedGraph) GetNodes() []datastructure.CHNode {
	return ch.ContractedNodes
}

func (ch *ContractedGraph) GetNode(nodeID int32) datastructure.CHNode {
	return ch.ContractedNodes[nodeID]
}

func (ch *ContractedGraph) GetNumNodes() int {
	return len(ch.ContractedNodes)
}

// GetSCCID returns the strongly-connected-component id of nodeID, -1 when
// SCCs were never computed.
func (ch *ContractedGraph) GetSCCID(nodeID int32) int32 {
	if ch.SCC == nil {
		return -1
	}
	return ch.SCC[nodeID]
}

func (ch *ContractedGraph) GetSCCCount() int {
	return len(ch.SCCNodesCount)
}

func (ch *ContractedGraph) GetLargestSCCSize() int32 {
	largest := int32(0)
	for _, count := range ch.SCCNodesCount {
		if count > largest {
			largest = count
		}
	}
	return largest
}
