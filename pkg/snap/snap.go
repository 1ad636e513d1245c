package snap

import (
	"math"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/geo"
	"github.com/lintang-b-s/accessx/pkg/server"

	"github.com/dhconnelly/rtreego"
)

const (
	// leaf rects need a positive extent; one centimeter in degrees
	leafExtent = 1e-7

	searchRadiusKm   = 0.3
	searchRetries    = 2
	searchRadiusStep = 0.2

	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

type nodePoint struct {
	node datastructure.CHNode
	rect *rtreego.Rect
}

func (np *nodePoint) Bounds() *rtreego.Rect {
	return np.rect
}

// NodeSnapper is the in-memory snapping path: a 2-D rtree over the node
// table, used at registration time to bulk-snap POI/variable coordinate
// lists onto graph nodes.
type NodeSnapper struct {
	tree *rtreego.Rtree
}

func NewNodeSnapper(nodes []datastructure.CHNode) *NodeSnapper {
	tree := rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for i := range nodes {
		node := nodes[i]
		rect, err := rtreego.NewRect(
			rtreego.Point{node.Lat, node.Lon},
			[]float64{leafExtent, leafExtent},
		)
		if err != nil {
			continue
		}
		tree.Insert(&nodePoint{node: node, rect: rect})
	}
	return &NodeSnapper{tree: tree}
}

// SnapToNode returns the graph node nearest to a coordinate.
func (ns *NodeSnapper) SnapToNode(lat, lon float64) (datastructure.CHNode, error) {
	nearest := ns.tree.NearestNeighbor(rtreego.Point{lat, lon})
	if nearest == nil {
		return datastructure.CHNode{}, server.NewErrorf(server.ErrNotFound,
			"no graph node near (%f, %f)", lat, lon)
	}
	return nearest.(*nodePoint).node, nil
}

// SnapMany snaps a coordinate list, output position-for-position.
func (ns *NodeSnapper) SnapMany(coords []datastructure.Coordinate) ([]int32, error) {
	nodeIDs := make([]int32, len(coords))
	for i, c := range coords {
		node, err := ns.SnapToNode(c.Lat, c.Lon)
		if err != nil {
			return nil, err
		}
		nodeIDs[i] = node.ID
	}
	return nodeIDs, nil
}

// NearbyNodes returns every node inside a square window around a coordinate,
// widening the window a couple of times when it comes back empty.
func (ns *NodeSnapper) NearbyNodes(lat, lon float64) []datastructure.CHNode {
	radiusKm := searchRadiusKm
	for attempt := 0; attempt <= searchRetries; attempt++ {
		upperLat, upperLon := geo.GetDestinationPoint(lat, lon, 45, 2*radiusKm)
		lowerLat, lowerLon := geo.GetDestinationPoint(lat, lon, 225, 2*radiusKm)

		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{math.Min(lowerLat, upperLat), math.Min(lowerLon, upperLon)},
			rtreego.Point{math.Max(lowerLat, upperLat), math.Max(lowerLon, upperLon)},
		)
		if err != nil {
			return nil
		}

		results := ns.tree.SearchIntersect(rect)
		if len(results) > 0 {
			nodes := make([]datastructure.CHNode, 0, len(results))
			for _, r := range results {
				nodes = append(nodes, r.(*nodePoint).node)
			}
			return nodes
		}
		radiusKm += searchRadiusStep
	}
	return nil
}
