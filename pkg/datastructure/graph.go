package datastructure

// CHNode is one vertex of the routing graph. OrderPos is the node's position
// in the contraction order and is only valid after contraction has run.
type CHNode struct {
	Lat      float64
	Lon      float64
	OrderPos int32
	ID       int32
}

func NewCHNode(lat, lon float64, orderPos int32, idx int32) CHNode {
	return CHNode{
		Lat:      lat,
		Lon:      lon,
		OrderPos: orderPos,
		ID:       idx,
	}
}

// Edge is a raw weighted arc fed into graph construction, before any
// shortcuts exist. Weight is in the unit of the graph variant it belongs to,
// Dist is always meters.
type Edge struct {
	FromNodeID int32
	ToNodeID   int32
	Weight     float64
	Dist       float64
}

func NewEdge(fromNodeID, toNodeID int32, weight, dist float64) Edge {
	return Edge{
		FromNodeID: fromNodeID,
		ToNodeID:   toNodeID,
		Weight:     weight,
		Dist:       dist,
	}
}

// EdgeCH is an arc of the contracted graph. Original edges carry
// ViaNodeID == -1, shortcuts carry the node they bypass.
type EdgeCH struct {
	EdgeID     int32
	Weight     float64
	Dist       float64
	ToNodeID   int32
	FromNodeID int32
	ViaNodeID  int32
}

func NewEdgeCH(edgeID int32, weight, dist float64, toNodeID, fromNodeID, viaNodeID int32) EdgeCH {
	return EdgeCH{
		EdgeID:     edgeID,
		Weight:     weight,
		Dist:       dist,
		ToNodeID:   toNodeID,
		FromNodeID: fromNodeID,
		ViaNodeID:  viaNodeID,
	}
}

func NewEdgeCHPlain(edgeID int32, weight, dist float64, toNodeID, fromNodeID int32) EdgeCH {
	return EdgeCH{
		EdgeID:     edgeID,
		Weight:     weight,
		Dist:       dist,
		ToNodeID:   toNodeID,
		FromNodeID: fromNodeID,
		ViaNodeID:  -1,
	}
}

func (e EdgeCH) IsShortcut() bool {
	return e.ViaNodeID != -1
}

// ReachedNode is one entry of a reachable set: a node and its network
// distance from the query source.
type ReachedNode struct {
	NodeID int32   `json:"node_id"`
	Dist   float64 `json:"dist"`
}

func NewReachedNode(nodeID int32, dist float64) ReachedNode {
	return ReachedNode{
		NodeID: nodeID,
		Dist:   dist,
	}
}

// POIPair is one expanded nearest-POI result: network distance plus the POI
// sequence index assigned at category registration.
type POIPair struct {
	Dist     float64 `json:"dist"`
	POIIndex int32   `json:"poi_index"`
}

func NewPOIPair(dist float64, poiIndex int32) POIPair {
	return POIPair{
		Dist:     dist,
		POIIndex: poiIndex,
	}
}

// RawEdge is one parsed street segment carrying both weight variants.
type RawEdge struct {
	FromNodeID     int32
	ToNodeID       int32
	DistanceMeters float64
	TravelMinutes  float64
}

func NewRawEdge(fromNodeID, toNodeID int32, distanceMeters, travelMinutes float64) RawEdge {
	return RawEdge{
		FromNodeID:     fromNodeID,
		ToNodeID:       toNodeID,
		DistanceMeters: distanceMeters,
		TravelMinutes:  travelMinutes,
	}
}

// KVNode is the spatial-index record stored per h3 cell.
type KVNode struct {
	ID  int32
	Lat float64
	Lon float64
}

func NewKVNode(id int32, lat, lon float64) KVNode {
	return KVNode{
		ID:  id,
		Lat: lat,
		Lon: lon,
	}
}
