package service

import (
	"context"
	"errors"
	"math"

	"github.com/lintang-b-s/accessx/pkg/concurrent"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/engine/accessibility"
	"github.com/lintang-b-s/accessx/pkg/geo"
	"github.com/lintang-b-s/accessx/pkg/kv"
	"github.com/lintang-b-s/accessx/pkg/server"

	"go.uber.org/zap"
)

type AccessibilityEngine interface {
	NumNodes() int
	NumVariants() int
	Workers() int

	Distance(src, tgt int32, variant int) (float64, error)
	Route(src, tgt int32, variant int) ([]int32, error)
	ReachableSet(src int32, radius float64, variant int) ([]datastructure.ReachedNode, error)

	Precompute(radius float64, variant int) error
	RangeSnapshot(variant int) ([][]datastructure.ReachedNode, float64)
	InstallRangeSnapshot(variant int, radius float64, sets [][]datastructure.ReachedNode) error

	RegisterPOICategory(name string, maxDist float64, maxK int, nodes []int32) error
	NearestPOIs(src int32, maxRadius float64, k int, category string, variant int) ([]datastructure.POIPair, error)
	AllNearestPOIs(maxRadius float64, k int, category string, variant int) ([][]datastructure.POIPair, error)

	RegisterVariable(name string, nodes []int32, values []float64) error
	Aggregate(src int32, radius float64, category, aggType, decayType string, variant int) (float64, error)
	AggregateAll(radius float64, category, aggType, decayType string, variant int) ([]float64, error)

	BatchAggregate(sources []int32, radius float64, category, aggType, decayType string, variant int) ([]accessibility.SourceScore, error)
	BatchNearestPOIs(sources []int32, maxRadius float64, k int, category string, variant int) ([]accessibility.SourcePOIRows, error)
}

// NodeLocator is the persistent h3 spatial index used for query-time
// coordinate snapping.
type NodeLocator interface {
	NearestNodeCandidates(lat, lon float64) ([]datastructure.KVNode, error)
}

// BulkSnapper is the in-memory rtree path used when registration payloads
// carry whole coordinate lists.
type BulkSnapper interface {
	SnapMany(coords []datastructure.Coordinate) ([]int32, error)
}

// RangeSnapshotStore persists precomputed reachable sets across restarts.
type RangeSnapshotStore interface {
	SaveSnapshot(variant int, radius float64, sets [][]datastructure.ReachedNode) error
	LoadSnapshot(variant int, numNodes int) (float64, [][]datastructure.ReachedNode, error)
}

// ComponentProvider reports the strongly-connected-component id of a node,
// used to keep snapped query pairs inside one component when possible.
type ComponentProvider interface {
	GetSCCID(nodeID int32) int32
}

// Location is one origin in a request: either an explicit node id or a
// coordinate that the service snaps onto the node table.
type Location struct {
	NodeID *int32
	Lat    float64
	Lon    float64
}

func NewNodeLocation(nodeID int32) Location {
	return Location{NodeID: &nodeID}
}

func NewCoordLocation(lat, lon float64) Location {
	return Location{Lat: lat, Lon: lon}
}

type AccessService struct {
	log     *zap.Logger
	engine  AccessibilityEngine
	locator NodeLocator
	snapper BulkSnapper
	store   RangeSnapshotStore
	scc     ComponentProvider
	nodes   []datastructure.CHNode
}

// NewAccessService wires the accessibility engine behind the REST surface.
// store and scc may be nil: without a store precompute persistence is
// disabled, without scc snapping skips the shared-component preference.
func NewAccessService(log *zap.Logger, engine AccessibilityEngine, locator NodeLocator,
	snapper BulkSnapper, store RangeSnapshotStore, scc ComponentProvider,
	nodes []datastructure.CHNode) *AccessService {
	return &AccessService{
		log:     log,
		engine:  engine,
		locator: locator,
		snapper: snapper,
		store:   store,
		scc:     scc,
		nodes:   nodes,
	}
}

func (s *AccessService) NumVariants() int {
	return s.engine.NumVariants()
}

// snapNearest picks the closest candidate node to a coordinate by haversine
// distance. When preferComp >= 0, candidates inside that component win over
// globally closer ones so a query pair stays routable.
func (s *AccessService) snapNearest(lat, lon float64, preferComp int32) (int32, error) {
	candidates, err := s.locator.NearestNodeCandidates(lat, lon)
	if err != nil {
		return 0, server.WrapErrorf(err, server.ErrNotFound,
			"no graph node near (%f, %f), the location is outside the loaded network", lat, lon)
	}

	best, bestInComp := int32(-1), int32(-1)
	bestDist, bestInCompDist := math.Inf(1), math.Inf(1)
	for _, c := range candidates {
		d := geo.CalculateHaversineDistance(lat, lon, c.Lat, c.Lon)
		if d < bestDist {
			best, bestDist = c.ID, d
		}
		if preferComp >= 0 && s.scc != nil && s.scc.GetSCCID(c.ID) == preferComp && d < bestInCompDist {
			bestInComp, bestInCompDist = c.ID, d
		}
	}
	if bestInComp >= 0 {
		return bestInComp, nil
	}
	return best, nil
}

func (s *AccessService) resolveLocation(loc Location) (int32, error) {
	if loc.NodeID != nil {
		return *loc.NodeID, nil
	}
	return s.snapNearest(loc.Lat, loc.Lon, -1)
}

// resolvePair resolves a src/tgt pair, steering the second snap into the
// first node's component when both are coordinates.
func (s *AccessService) resolvePair(src, tgt Location) (int32, int32, error) {
	srcNode, err := s.resolveLocation(src)
	if err != nil {
		return 0, 0, err
	}
	if tgt.NodeID != nil {
		return srcNode, *tgt.NodeID, nil
	}

	preferComp := int32(-1)
	if s.scc != nil {
		preferComp = s.scc.GetSCCID(srcNode)
	}
	tgtNode, err := s.snapNearest(tgt.Lat, tgt.Lon, preferComp)
	if err != nil {
		return 0, 0, err
	}
	return srcNode, tgtNode, nil
}

// resolveLocations resolves a registration list: explicit node ids pass
// through, coordinates bulk-snap through the rtree in one pass.
func (s *AccessService) resolveLocations(locs []Location) ([]int32, error) {
	nodeIDs := make([]int32, len(locs))
	coords := make([]datastructure.Coordinate, 0, len(locs))
	coordPos := make([]int, 0, len(locs))

	for i, loc := range locs {
		if loc.NodeID != nil {
			nodeIDs[i] = *loc.NodeID
			continue
		}
		coords = append(coords, datastructure.NewCoordinate(loc.Lat, loc.Lon))
		coordPos = append(coordPos, i)
	}

	if len(coords) > 0 {
		snapped, err := s.snapper.SnapMany(coords)
		if err != nil {
			return nil, server.WrapErrorf(err, server.ErrNotFound,
				"a registration location is outside the loaded network")
		}
		for j, pos := range coordPos {
			nodeIDs[pos] = snapped[j]
		}
	}
	return nodeIDs, nil
}

func (s *AccessService) Aggregate(ctx context.Context, origin Location, radius float64,
	category, aggType, decayType string, variant int) (float64, int32, error) {
	src, err := s.resolveLocation(origin)
	if err != nil {
		return 0, 0, err
	}
	score, err := s.engine.Aggregate(src, radius, category, aggType, decayType, variant)
	if err != nil {
		return 0, 0, err
	}
	return score, src, nil
}

func (s *AccessService) AggregateAll(ctx context.Context, radius float64,
	category, aggType, decayType string, variant int) ([]float64, error) {
	return s.engine.AggregateAll(radius, category, aggType, decayType, variant)
}

func (s *AccessService) BatchAggregate(ctx context.Context, origins []Location, radius float64,
	category, aggType, decayType string, variant int) ([]accessibility.SourceScore, []int32, error) {
	sources, err := s.resolveLocations(origins)
	if err != nil {
		return nil, nil, err
	}
	scores, err := s.engine.BatchAggregate(sources, radius, category, aggType, decayType, variant)
	if err != nil {
		return nil, nil, err
	}
	return scores, sources, nil
}

func (s *AccessService) NearestPOIs(ctx context.Context, origin Location, maxRadius float64,
	k int, category string, variant int) ([]datastructure.POIPair, int32, error) {
	src, err := s.resolveLocation(origin)
	if err != nil {
		return nil, 0, err
	}
	pois, err := s.engine.NearestPOIs(src, maxRadius, k, category, variant)
	if err != nil {
		return nil, 0, err
	}
	return pois, src, nil
}

func (s *AccessService) BatchNearestPOIs(ctx context.Context, origins []Location, maxRadius float64,
	k int, category string, variant int) ([]accessibility.SourcePOIRows, []int32, error) {
	sources, err := s.resolveLocations(origins)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.engine.BatchNearestPOIs(sources, maxRadius, k, category, variant)
	if err != nil {
		return nil, nil, err
	}
	return rows, sources, nil
}

func (s *AccessService) AllNearestPOIs(ctx context.Context, maxRadius float64,
	k int, category string, variant int) ([][]datastructure.POIPair, error) {
	return s.engine.AllNearestPOIs(maxRadius, k, category, variant)
}

func (s *AccessService) ReachableSet(ctx context.Context, origin Location, radius float64,
	variant int) ([]datastructure.ReachedNode, int32, error) {
	src, err := s.resolveLocation(origin)
	if err != nil {
		return nil, 0, err
	}
	reached, err := s.engine.ReachableSet(src, radius, variant)
	if err != nil {
		return nil, 0, err
	}
	return reached, src, nil
}

func (s *AccessService) Distance(ctx context.Context, src, tgt Location,
	variant int) (float64, int32, int32, error) {
	srcNode, tgtNode, err := s.resolvePair(src, tgt)
	if err != nil {
		return 0, 0, 0, err
	}
	dist, err := s.engine.Distance(srcNode, tgtNode, variant)
	if err != nil {
		return 0, 0, 0, err
	}
	return dist, srcNode, tgtNode, nil
}

// Route returns the node path between two origins plus a simplified encoded
// polyline of it.
func (s *AccessService) Route(ctx context.Context, src, tgt Location,
	variant int) (string, float64, []int32, error) {
	srcNode, tgtNode, err := s.resolvePair(src, tgt)
	if err != nil {
		return "", 0, nil, err
	}

	path, err := s.engine.Route(srcNode, tgtNode, variant)
	if err != nil {
		return "", 0, nil, err
	}
	if len(path) == 0 {
		return "", math.Inf(1), path, nil
	}

	dist, err := s.engine.Distance(srcNode, tgtNode, variant)
	if err != nil {
		return "", 0, nil, err
	}

	coords := make([]datastructure.Coordinate, 0, len(path))
	for _, nodeID := range path {
		node := s.nodes[nodeID]
		coords = append(coords, datastructure.NewCoordinate(node.Lat, node.Lon))
	}
	simplified := geo.RamerDouglasPeucker(coords)
	return datastructure.CreatePolyline(simplified), dist, path, nil
}

type matrixRow struct {
	idx   int
	dists []float64
	err   error
}

// DistanceMatrix computes sources x targets shortest-path weights, one
// worker-pool job per source row.
func (s *AccessService) DistanceMatrix(ctx context.Context, sources, targets []Location,
	variant int) ([][]float64, error) {
	srcNodes, err := s.resolveLocations(sources)
	if err != nil {
		return nil, err
	}
	tgtNodes, err := s.resolveLocations(targets)
	if err != nil {
		return nil, err
	}

	pool := concurrent.NewWorkerPool[concurrent.IndexedNode, matrixRow](
		s.engine.Workers(), len(srcNodes))
	for i, src := range srcNodes {
		pool.AddJob(concurrent.NewIndexedNode(i, src))
	}
	pool.Close()
	pool.Start(func(job concurrent.IndexedNode) matrixRow {
		row := make([]float64, len(tgtNodes))
		for j, tgt := range tgtNodes {
			d, derr := s.engine.Distance(job.NodeID, tgt, variant)
			if derr != nil {
				return matrixRow{idx: job.Idx, err: derr}
			}
			row[j] = d
		}
		return matrixRow{idx: job.Idx, dists: row}
	})
	pool.Wait()

	matrix := make([][]float64, len(srcNodes))
	for res := range pool.CollectResults() {
		if res.err != nil {
			return nil, res.err
		}
		matrix[res.idx] = res.dists
	}
	return matrix, nil
}

func (s *AccessService) RegisterPOICategory(ctx context.Context, name string,
	maxDist float64, maxK int, locations []Location) error {
	nodes, err := s.resolveLocations(locations)
	if err != nil {
		return err
	}
	return s.engine.RegisterPOICategory(name, maxDist, maxK, nodes)
}

func (s *AccessService) RegisterVariable(ctx context.Context, name string,
	locations []Location, values []float64) error {
	if len(locations) != len(values) {
		return server.NewErrorf(server.ErrBadParamInput,
			"%d locations for %d values", len(locations), len(values))
	}
	nodes, err := s.resolveLocations(locations)
	if err != nil {
		return err
	}
	return s.engine.RegisterVariable(name, nodes, values)
}

// Precompute swaps the range cache of one variant and optionally persists
// the computed sets so the next start can warm-load them.
func (s *AccessService) Precompute(ctx context.Context, radius float64, variant int,
	persist bool) error {
	if err := s.engine.Precompute(radius, variant); err != nil {
		return err
	}
	if !persist {
		return nil
	}
	if s.store == nil {
		return server.NewErrorf(server.ErrBadParamInput,
			"range persistence is disabled, no range store configured")
	}

	sets, cachedRadius := s.engine.RangeSnapshot(variant)
	if err := s.store.SaveSnapshot(variant, cachedRadius, sets); err != nil {
		return server.WrapErrorf(err, server.ErrInternalServerError,
			"persisting range snapshot for variant %d", variant)
	}
	s.log.Info("persisted range snapshot",
		zap.Int("variant", variant),
		zap.Float64("radius", cachedRadius))
	return nil
}

// WarmRangeCache installs every persisted range snapshot found in the store.
// Variants without a snapshot are skipped silently.
func (s *AccessService) WarmRangeCache(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	for variant := 0; variant < s.engine.NumVariants(); variant++ {
		radius, sets, err := s.store.LoadSnapshot(variant, s.engine.NumNodes())
		if errors.Is(err, kv.ErrNoRangeSnapshot) {
			continue
		}
		if err != nil {
			return server.WrapErrorf(err, server.ErrInternalServerError,
				"loading range snapshot for variant %d", variant)
		}
		if err := s.engine.InstallRangeSnapshot(variant, radius, sets); err != nil {
			return err
		}
	}
	return nil
}
