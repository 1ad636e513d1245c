package osmparser

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/geo"

	"github.com/k0kubun/go-ansi"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/schollz/progressbar/v3"
)

type NodeType int

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

type nodeCoord struct {
	lat float64
	lon float64
}

type wayNode struct {
	id    int64
	coord nodeCoord
}

// OsmParser turns an OSM PBF extract into a dense node table plus one edge
// list carrying both weight variants: metric distance in meters and travel
// time in minutes. Two passes over the file: the first classifies way-member
// nodes (end / between / junction), the second materializes accepted
// highways, splitting ways at junctions and barriers.
type OsmParser struct {
	wayNodeMap      map[int64]NodeType
	acceptedNodeMap map[int64]nodeCoord
	barrierNodes    map[int64]bool
	nodeIDMap       map[int64]int32
	acceptedWays    int
}

func NewOsmParser() *OsmParser {
	return &OsmParser{
		wayNodeMap:      make(map[int64]NodeType),
		acceptedNodeMap: make(map[int64]nodeCoord),
		barrierNodes:    make(map[int64]bool),
		nodeIDMap:       make(map[int64]int32),
	}
}

var skipHighway = map[string]struct{}{
	"footway":                {},
	"construction":           {},
	"cycleway":               {},
	"path":                   {},
	"pedestrian":             {},
	"busway":                 {},
	"steps":                  {},
	"bridleway":              {},
	"corridor":               {},
	"street_lamp":            {},
	"bus_stop":               {},
	"crossing":               {},
	"cyclist_waiting_aid":    {},
	"elevator":               {},
	"emergency_bay":          {},
	"emergency_access_point": {},
	"give_way":               {},
	"phone":                  {},
	"ladder":                 {},
	"milestone":              {},
	"passing_place":          {},
	"platform":               {},
	"speed_camera":           {},
	"track":                  {},
	"bus_guideway":           {},
	"speed_display":          {},
	"stop":                   {},
	"toll_gantry":            {},
	"traffic_mirror":         {},
	"traffic_signals":        {},
	"trailhead":              {},
}

// Parse reads the extract twice and returns the dense node table and the
// raw edge list. Node ids in the output are dense [0,N) indices.
func (p *OsmParser) Parse(mapFile string) ([]datastructure.CHNode, []datastructure.RawEdge, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	if err := p.scanWayMembers(f); err != nil {
		return nil, nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	edges, err := p.buildEdges(f)
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]datastructure.CHNode, len(p.nodeIDMap))
	for osmID, denseID := range p.nodeIDMap {
		coord := p.acceptedNodeMap[osmID]
		nodes[denseID] = datastructure.NewCHNode(coord.lat, coord.lon, 0, denseID)
	}

	log.Printf("total nodes: %d, total edges: %d", len(nodes), len(edges))
	return nodes, edges, nil
}

// scanWayMembers is pass one: mark every node of every accepted highway and
// classify it by its role in the way.
func (p *OsmParser) scanWayMembers(f *os.File) error {
	scanner := osmpbf.New(context.Background(), f, 0)
	// must not be parallel, node classification depends on scan order
	defer scanner.Close()

	countWays := 0
	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeWay {
			continue
		}

		way := o.(*osm.Way)
		if len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			log.Printf("reading openstreetmap ways: %d...", countWays+1)
		}
		countWays++

		for i, node := range way.Nodes {
			if _, ok := p.wayNodeMap[int64(node.ID)]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[int64(node.ID)] = END_NODE
				} else {
					p.wayNodeMap[int64(node.ID)] = BETWEEN_NODE
				}
			} else {
				p.wayNodeMap[int64(node.ID)] = JUNCTION_NODE
			}
		}
	}
	p.acceptedWays = countWays
	return scanner.Err()
}

// buildEdges is pass two: collect node coordinates and barrier tags, then
// split every accepted way into edges.
func (p *OsmParser) buildEdges(f *os.File) ([]datastructure.RawEdge, error) {
	scanner := osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()

	bar := progressbar.NewOptions(p.acceptedWays,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan][2/2][reset] building street graph..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	edges := make([]datastructure.RawEdge, 0)
	for scanner.Scan() {
		o := scanner.Object()

		switch o.ObjectID().Type() {
		case osm.TypeWay:
			way := o.(*osm.Way)
			if len(way.Nodes) < 2 || !acceptOsmWay(way) {
				continue
			}
			bar.Add(1)
			p.processWay(way, &edges)
		case osm.TypeNode:
			node := o.(*osm.Node)
			if _, ok := p.wayNodeMap[int64(node.ID)]; ok {
				p.acceptedNodeMap[int64(node.ID)] = nodeCoord{
					lat: node.Lat,
					lon: node.Lon,
				}
			}

			if node.Tags.Find("barrier") != "" || node.Tags.Find("ford") != "" {
				p.barrierNodes[int64(node.ID)] = true
			}
		}
	}
	return edges, scanner.Err()
}

type wayDirection struct {
	oneWay  bool
	forward bool
}

func (p *OsmParser) processWay(way *osm.Way, edges *[]datastructure.RawEdge) {
	dir := wayDirection{forward: true}
	restrictedForward, restrictedBackward := getVehicleRestrictions(way)
	if way.Tags.Find("oneway") != "" || restrictedForward || restrictedBackward {
		dir.oneWay = true
	}
	if way.Tags.Find("oneway") == "-1" || restrictedForward {
		dir.forward = false
	}

	speed := parseMaxSpeed(way)

	segment := make([]wayNode, 0, len(way.Nodes))
	for _, n := range way.Nodes {
		nodeData := wayNode{
			id:    int64(n.ID),
			coord: p.acceptedNodeMap[int64(n.ID)],
		}
		if p.wayNodeMap[nodeData.id] == JUNCTION_NODE {
			if len(segment) > 1 {
				segment = append(segment, nodeData)
				p.processSegment(segment, speed, edges, dir)
				segment = segment[:0]
			}
			segment = append(segment, nodeData)
		} else {
			segment = append(segment, nodeData)
		}
	}
	if len(segment) > 1 {
		p.processSegment(segment, speed, edges, dir)
	}
}

// parseMaxSpeed reads the way's maxspeed tag (mph, km/h, knots, or bare
// km/h) falling back to the road-class default.
func parseMaxSpeed(way *osm.Way) float64 {
	maxSpeed := 0.0
	for _, tag := range way.Tags {
		if tag.Key != "maxspeed" {
			continue
		}
		switch {
		case strings.Contains(tag.Value, "mph"):
			if v, err := strconv.ParseFloat(strings.Replace(tag.Value, " mph", "", -1), 64); err == nil {
				maxSpeed = v * 1.60934
			}
		case strings.Contains(tag.Value, "km/h"):
			if v, err := strconv.ParseFloat(strings.Replace(tag.Value, " km/h", "", -1), 64); err == nil {
				maxSpeed = v
			}
		case strings.Contains(tag.Value, "knots"):
			if v, err := strconv.ParseFloat(strings.Replace(tag.Value, " knots", "", -1), 64); err == nil {
				maxSpeed = v * 1.852
			}
		default:
			if v, err := strconv.ParseFloat(tag.Value, 64); err == nil {
				maxSpeed = v
			}
		}
	}

	if maxSpeed == 0 {
		maxSpeed = roadTypeMaxSpeed(way.Tags.Find("highway"))
	}
	if maxSpeed == 0 {
		maxSpeed = 35.0
	}
	return maxSpeed
}

// processSegment splits loops so no edge starts and ends on the same node,
// then splits at barrier nodes.
func (p *OsmParser) processSegment(segment []wayNode, speed float64,
	edges *[]datastructure.RawEdge, dir wayDirection) {
	if len(segment) == 2 && segment[0].id == segment[1].id {
		return
	}
	if segment[0].id == segment[len(segment)-1].id {
		// loop
		p.splitAtBarriers(segment[0:len(segment)-1], speed, edges, dir)
		p.splitAtBarriers(segment[len(segment)-2:], speed, edges, dir)
		return
	}
	p.splitAtBarriers(segment, speed, edges, dir)
}

func (p *OsmParser) splitAtBarriers(segment []wayNode, speed float64,
	edges *[]datastructure.RawEdge, dir wayDirection) {
	part := make([]wayNode, 0, len(segment))
	for _, nodeData := range segment {
		if p.barrierNodes[nodeData.id] {
			p.barrierNodes[nodeData.id] = false

			if len(part) != 0 {
				part = append(part, nodeData)
				p.addEdge(part, speed, edges, dir)
				part = part[:0]
			}
		}
		part = append(part, nodeData)
	}
	if len(part) > 1 {
		p.addEdge(part, speed, edges, dir)
	}
}

func (p *OsmParser) denseID(osmID int64) int32 {
	if id, ok := p.nodeIDMap[osmID]; ok {
		return id
	}
	id := int32(len(p.nodeIDMap))
	p.nodeIDMap[osmID] = id
	return id
}

// addEdge emits one edge (or a forward/backward pair for two-way streets)
// with both weight variants: meters and travel minutes at the way's speed.
func (p *OsmParser) addEdge(segment []wayNode, speed float64,
	edges *[]datastructure.RawEdge, dir wayDirection) {
	fromID := p.denseID(segment[0].id)
	toID := p.denseID(segment[len(segment)-1].id)

	distanceKm := 0.0
	for i := 1; i < len(segment); i++ {
		distanceKm += geo.CalculateHaversineDistance(
			segment[i-1].coord.lat, segment[i-1].coord.lon,
			segment[i].coord.lat, segment[i].coord.lon)
	}

	distanceMeters := distanceKm * 1000
	travelMinutes := distanceMeters / (speed * 1000 / 60)

	if dir.oneWay {
		if dir.forward {
			*edges = append(*edges, datastructure.NewRawEdge(fromID, toID, distanceMeters, travelMinutes))
		} else {
			*edges = append(*edges, datastructure.NewRawEdge(toID, fromID, distanceMeters, travelMinutes))
		}
		return
	}
	*edges = append(*edges, datastructure.NewRawEdge(fromID, toID, distanceMeters, travelMinutes))
	*edges = append(*edges, datastructure.NewRawEdge(toID, fromID, distanceMeters, travelMinutes))
}

func isRestricted(value string) bool {
	switch value {
	case "no", "restricted", "military", "emergency", "private", "permit":
		return true
	}
	return false
}

func getVehicleRestrictions(way *osm.Way) (forward bool, backward bool) {
	forward = isRestricted(way.Tags.Find("vehicle:forward")) ||
		isRestricted(way.Tags.Find("motor_vehicle:forward"))
	backward = isRestricted(way.Tags.Find("vehicle:backward")) ||
		isRestricted(way.Tags.Find("motor_vehicle:backward"))
	return forward, backward
}

func roadTypeMaxSpeed(roadType string) float64 {
	switch roadType {
	case "motorway":
		return 100
	case "trunk":
		return 70
	case "primary":
		return 65
	case "secondary":
		return 60
	case "tertiary":
		return 50
	case "unclassified":
		return 30
	case "residential":
		return 30
	case "service":
		return 20
	case "motorway_link":
		return 70
	case "trunk_link":
		return 65
	case "primary_link":
		return 60
	case "secondary_link":
		return 50
	case "tertiary_link":
		return 40
	case "living_street":
		return 10
	case "road":
		return 20
	case "track":
		return 15
	default:
		return 40
	}
}

func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	if highway != "" {
		if _, ok := skipHighway[highway]; !ok {
			return true
		}
	} else if way.Tags.Find("route") == "road" {
		return true
	} else if way.Tags.Find("junction") != "" {
		return true
	}
	return false
}
