package service

import (
	"context"
	"math"
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/engine/accessibility"
	"github.com/lintang-b-s/accessx/pkg/kv"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeEngine serves canned answers over a 3-node line 0-1-2 with unit
// weights; only the methods the tests exercise are meaningful.
type fakeEngine struct {
	precomputed    []float64
	installedSets  [][]datastructure.ReachedNode
	installedRad   float64
	aggregateCalls []int32
}

func (f *fakeEngine) NumNodes() int    { return 3 }
func (f *fakeEngine) NumVariants() int { return 1 }
func (f *fakeEngine) Workers() int     { return 2 }

func (f *fakeEngine) Distance(src, tgt int32, variant int) (float64, error) {
	return math.Abs(float64(tgt - src)), nil
}

func (f *fakeEngine) Route(src, tgt int32, variant int) ([]int32, error) {
	path := []int32{}
	step := int32(1)
	if tgt < src {
		step = -1
	}
	for n := src; n != tgt; n += step {
		path = append(path, n)
	}
	return append(path, tgt), nil
}

func (f *fakeEngine) ReachableSet(src int32, radius float64, variant int) ([]datastructure.ReachedNode, error) {
	return []datastructure.ReachedNode{datastructure.NewReachedNode(src, 0)}, nil
}

func (f *fakeEngine) Precompute(radius float64, variant int) error {
	f.precomputed = append(f.precomputed, radius)
	return nil
}

func (f *fakeEngine) RangeSnapshot(variant int) ([][]datastructure.ReachedNode, float64) {
	sets := make([][]datastructure.ReachedNode, 3)
	for i := range sets {
		sets[i] = []datastructure.ReachedNode{datastructure.NewReachedNode(int32(i), 0)}
	}
	return sets, f.precomputed[len(f.precomputed)-1]
}

func (f *fakeEngine) InstallRangeSnapshot(variant int, radius float64, sets [][]datastructure.ReachedNode) error {
	f.installedRad = radius
	f.installedSets = sets
	return nil
}

func (f *fakeEngine) RegisterPOICategory(name string, maxDist float64, maxK int, nodes []int32) error {
	return nil
}

func (f *fakeEngine) NearestPOIs(src int32, maxRadius float64, k int, category string, variant int) ([]datastructure.POIPair, error) {
	return []datastructure.POIPair{datastructure.NewPOIPair(0, 0)}, nil
}

func (f *fakeEngine) AllNearestPOIs(maxRadius float64, k int, category string, variant int) ([][]datastructure.POIPair, error) {
	return nil, nil
}

func (f *fakeEngine) RegisterVariable(name string, nodes []int32, values []float64) error {
	return nil
}

func (f *fakeEngine) Aggregate(src int32, radius float64, category, aggType, decayType string, variant int) (float64, error) {
	f.aggregateCalls = append(f.aggregateCalls, src)
	return float64(src) * 10, nil
}

func (f *fakeEngine) AggregateAll(radius float64, category, aggType, decayType string, variant int) ([]float64, error) {
	return []float64{0, 10, 20}, nil
}

func (f *fakeEngine) BatchAggregate(sources []int32, radius float64, category, aggType, decayType string, variant int) ([]accessibility.SourceScore, error) {
	scores := make([]accessibility.SourceScore, len(sources))
	for i, src := range sources {
		scores[i] = accessibility.SourceScore{SourceIndex: i, Score: float64(src) * 10}
	}
	return scores, nil
}

func (f *fakeEngine) BatchNearestPOIs(sources []int32, maxRadius float64, k int, category string, variant int) ([]accessibility.SourcePOIRows, error) {
	return nil, nil
}

// fakeLocator returns a fixed candidate list for every coordinate.
type fakeLocator struct {
	candidates []datastructure.KVNode
	err        error
}

func (f *fakeLocator) NearestNodeCandidates(lat, lon float64) ([]datastructure.KVNode, error) {
	return f.candidates, f.err
}

type fakeSnapper struct{}

// SnapMany snaps every coordinate to node 1.
func (f *fakeSnapper) SnapMany(coords []datastructure.Coordinate) ([]int32, error) {
	ids := make([]int32, len(coords))
	for i := range ids {
		ids[i] = 1
	}
	return ids, nil
}

type fakeStore struct {
	saved       map[int]float64
	loadRadius  float64
	loadSets    [][]datastructure.ReachedNode
	loadMissing bool
}

func (f *fakeStore) SaveSnapshot(variant int, radius float64, sets [][]datastructure.ReachedNode) error {
	if f.saved == nil {
		f.saved = map[int]float64{}
	}
	f.saved[variant] = radius
	return nil
}

func (f *fakeStore) LoadSnapshot(variant int, numNodes int) (float64, [][]datastructure.ReachedNode, error) {
	if f.loadMissing {
		return 0, nil, kv.ErrNoRangeSnapshot
	}
	return f.loadRadius, f.loadSets, nil
}

// two components: nodes 0,1 in component 0, node 2 in component 1
type fakeSCC struct{}

func (f *fakeSCC) GetSCCID(nodeID int32) int32 {
	if nodeID <= 1 {
		return 0
	}
	return 1
}

func testNodes() []datastructure.CHNode {
	return []datastructure.CHNode{
		datastructure.NewCHNode(-7.550, 110.780, 0, 0),
		datastructure.NewCHNode(-7.551, 110.781, 0, 1),
		datastructure.NewCHNode(-7.552, 110.782, 0, 2),
	}
}

func newTestService(engine *fakeEngine, locator NodeLocator, store RangeSnapshotStore) *AccessService {
	return NewAccessService(zap.NewNop(), engine, locator, &fakeSnapper{}, store, &fakeSCC{}, testNodes())
}

func TestSnapNearestPicksClosestCandidate(t *testing.T) {
	nodes := testNodes()
	locator := &fakeLocator{candidates: []datastructure.KVNode{
		datastructure.NewKVNode(0, nodes[0].Lat, nodes[0].Lon),
		datastructure.NewKVNode(1, nodes[1].Lat, nodes[1].Lon),
		datastructure.NewKVNode(2, nodes[2].Lat, nodes[2].Lon),
	}}
	svc := newTestService(&fakeEngine{}, locator, nil)

	node, err := svc.snapNearest(-7.5511, 110.7811, -1)
	assert.Nil(t, err)
	assert.Equal(t, int32(1), node)
}

func TestSnapNearestPrefersSharedComponent(t *testing.T) {
	nodes := testNodes()
	locator := &fakeLocator{candidates: []datastructure.KVNode{
		datastructure.NewKVNode(1, nodes[1].Lat, nodes[1].Lon),
		datastructure.NewKVNode(2, nodes[2].Lat, nodes[2].Lon),
	}}
	svc := newTestService(&fakeEngine{}, locator, nil)

	// node 2 is closer but sits in component 1; preferring component 0
	// steers the snap onto node 1
	node, err := svc.snapNearest(nodes[2].Lat, nodes[2].Lon, 0)
	assert.Nil(t, err)
	assert.Equal(t, int32(1), node)

	node, err = svc.snapNearest(nodes[2].Lat, nodes[2].Lon, -1)
	assert.Nil(t, err)
	assert.Equal(t, int32(2), node)
}

func TestResolveLocationsMixesNodeIDsAndCoords(t *testing.T) {
	svc := newTestService(&fakeEngine{}, &fakeLocator{}, nil)

	nodeIDs, err := svc.resolveLocations([]Location{
		NewNodeLocation(2),
		NewCoordLocation(-7.551, 110.781),
		NewNodeLocation(0),
	})
	assert.Nil(t, err)
	assert.Equal(t, []int32{2, 1, 0}, nodeIDs)
}

func TestAggregateResolvesOrigin(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(engine, &fakeLocator{}, nil)

	score, nodeID, err := svc.Aggregate(context.Background(), NewNodeLocation(2),
		5, "jobs", "sum", "flat", 0)
	assert.Nil(t, err)
	assert.Equal(t, int32(2), nodeID)
	assert.Equal(t, 20.0, score)
	assert.Equal(t, []int32{2}, engine.aggregateCalls)
}

func TestRouteBuildsPolyline(t *testing.T) {
	svc := newTestService(&fakeEngine{}, &fakeLocator{}, nil)

	poly, dist, path, err := svc.Route(context.Background(),
		NewNodeLocation(0), NewNodeLocation(2), 0)
	assert.Nil(t, err)
	assert.Equal(t, []int32{0, 1, 2}, path)
	assert.Equal(t, 2.0, dist)
	assert.NotEmpty(t, poly)
}

func TestDistanceMatrixKeepsInputOrder(t *testing.T) {
	svc := newTestService(&fakeEngine{}, &fakeLocator{}, nil)

	matrix, err := svc.DistanceMatrix(context.Background(),
		[]Location{NewNodeLocation(0), NewNodeLocation(2)},
		[]Location{NewNodeLocation(0), NewNodeLocation(1)}, 0)
	assert.Nil(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {2, 1}}, matrix)
}

func TestPrecomputePersistsSnapshot(t *testing.T) {
	engine := &fakeEngine{}
	store := &fakeStore{}
	svc := newTestService(engine, &fakeLocator{}, store)

	assert.Nil(t, svc.Precompute(context.Background(), 4, 0, true))
	assert.Equal(t, []float64{4}, engine.precomputed)
	assert.Equal(t, 4.0, store.saved[0])
}

func TestPrecomputeWithoutStoreRejectsPersist(t *testing.T) {
	svc := newTestService(&fakeEngine{}, &fakeLocator{}, nil)

	assert.Nil(t, svc.Precompute(context.Background(), 4, 0, false))
	assert.NotNil(t, svc.Precompute(context.Background(), 4, 0, true))
}

func TestWarmRangeCacheInstallsPersistedSets(t *testing.T) {
	engine := &fakeEngine{}
	sets := [][]datastructure.ReachedNode{
		{datastructure.NewReachedNode(0, 0)},
		{datastructure.NewReachedNode(1, 0)},
		{datastructure.NewReachedNode(2, 0)},
	}
	store := &fakeStore{loadRadius: 7, loadSets: sets}
	svc := newTestService(engine, &fakeLocator{}, store)

	assert.Nil(t, svc.WarmRangeCache(context.Background()))
	assert.Equal(t, 7.0, engine.installedRad)
	assert.Equal(t, sets, engine.installedSets)
}

func TestWarmRangeCacheSkipsMissingSnapshots(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(engine, &fakeLocator{}, &fakeStore{loadMissing: true})

	assert.Nil(t, svc.WarmRangeCache(context.Background()))
	assert.Nil(t, engine.installedSets)
}
