package accessibility

import (
	"sort"
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// 0 --1-- 1 --1-- 2 --1-- 3 --1-- 4, every edge bidirectional,
// variant 1 doubles every weight
func newLineGraphSet(t *testing.T) *GraphSet {
	nodes := make([]datastructure.CHNode, 5)
	for i := range nodes {
		nodes[i] = datastructure.NewCHNode(1, 1, 0, int32(i))
	}
	edges := [][2]int32{{0, 1}, {1, 2}, {2, 3}, {3, 4}}
	weights := [][]float64{
		{1, 1, 1, 1},
		{2, 2, 2, 2},
	}

	gs, err := BuildGraphSet(nodes, edges, weights, false, 2)
	assert.Nil(t, err)
	return gs
}

func newLineEngine(t *testing.T) *Engine {
	engine, err := NewEngine(zap.NewNop(), newLineGraphSet(t))
	assert.Nil(t, err)
	return engine
}

func sortedReached(reached []datastructure.ReachedNode) []datastructure.ReachedNode {
	sort.Slice(reached, func(i, j int) bool { return reached[i].NodeID < reached[j].NodeID })
	return reached
}

func TestReachableSetLineGraph(t *testing.T) {
	engine := newLineEngine(t)

	reached, err := engine.ReachableSet(0, 2, 0)
	assert.Nil(t, err)
	assert.Equal(t, []datastructure.ReachedNode{
		datastructure.NewReachedNode(0, 0),
		datastructure.NewReachedNode(1, 1),
		datastructure.NewReachedNode(2, 2),
	}, sortedReached(reached))

	for _, r := range reached {
		assert.LessOrEqual(t, r.Dist, 2.0)
	}

	// variant 1 runs on doubled weights
	reached, err = engine.ReachableSet(0, 2, 1)
	assert.Nil(t, err)
	assert.Equal(t, []datastructure.ReachedNode{
		datastructure.NewReachedNode(0, 0),
		datastructure.NewReachedNode(1, 2),
	}, sortedReached(reached))
}

func TestRangeCacheLookupMatchesLiveOracle(t *testing.T) {
	gs := newLineGraphSet(t)
	cache := NewRangeCache(gs)

	assert.Nil(t, cache.Precompute(3, 0))
	radius, ok := cache.CachedRadius(0)
	assert.True(t, ok)
	assert.Equal(t, 3.0, radius)

	oracle, err := gs.Variant(0)
	assert.Nil(t, err)

	for node := int32(0); node < 5; node++ {
		cached, lookupErr := cache.Lookup(node, 2, 0)
		assert.Nil(t, lookupErr)

		filtered := make([]datastructure.ReachedNode, 0)
		for _, r := range cached {
			if r.Dist <= 2 {
				filtered = append(filtered, r)
			}
		}

		live, rangeErr := oracle.Range(node, 2, 0)
		assert.Nil(t, rangeErr)
		assert.Equal(t, sortedReached(live), sortedReached(filtered))
	}
}

// flakyOracle delegates to a real oracle until failRange flips.
type flakyOracle struct {
	Oracle
	failRange bool
}

func (f *flakyOracle) Range(src int32, maxDist float64, slot int) ([]datastructure.ReachedNode, error) {
	if f.failRange {
		return nil, server.NewErrorf(server.ErrInternalServerError, "injected range failure")
	}
	return f.Oracle.Range(src, maxDist, slot)
}

func TestPrecomputeFailureKeepsPreviousCache(t *testing.T) {
	real := newLineGraphSet(t)
	oracle, err := real.Variant(0)
	assert.Nil(t, err)

	flaky := &flakyOracle{Oracle: oracle}
	gs := NewGraphSet(5, []Oracle{flaky}, 2)
	cache := NewRangeCache(gs)

	assert.Nil(t, cache.Precompute(2, 0))

	flaky.failRange = true
	err = cache.Precompute(4, 0)
	assert.NotNil(t, err)
	assert.Equal(t, server.ErrPrecomputeFailed, server.GetErrorCode(err))

	radius, ok := cache.CachedRadius(0)
	assert.True(t, ok)
	assert.Equal(t, 2.0, radius)

	// cached lookups still work while the oracle is down
	reached, err := cache.Lookup(0, 2, 0)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(reached))
}

func TestNearestPOIsTwoPOIsOneNode(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterPOICategory("shop", 5, 2, []int32{2, 2}))

	pois, err := engine.NearestPOIs(0, 5, 2, "shop", 0)
	assert.Nil(t, err)
	assert.Equal(t, []datastructure.POIPair{
		datastructure.NewPOIPair(2, 0),
		datastructure.NewPOIPair(2, 1),
	}, pois)
}

func TestNearestPOIsCoLocatedPairsNotCutToK(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterPOICategory("shop", 5, 2, []int32{2, 2}))

	// k bounds the node search, not the expansion: both POIs at node 2
	// come back even with k = 1
	pois, err := engine.NearestPOIs(0, 5, 1, "shop", 0)
	assert.Nil(t, err)
	assert.Equal(t, []datastructure.POIPair{
		datastructure.NewPOIPair(2, 0),
		datastructure.NewPOIPair(2, 1),
	}, pois)
}

func TestAllNearestPOIsRowsExactlyKWide(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterPOICategory("shop", 5, 2, []int32{2, 2}))

	rows, err := engine.AllNearestPOIs(5, 1, "shop", 0)
	assert.Nil(t, err)
	for _, row := range rows {
		assert.Equal(t, 1, len(row))
	}
	// the matrix keeps the nearest expanded pair per node
	assert.Equal(t, datastructure.NewPOIPair(2, 0), rows[0][0])
	assert.Equal(t, datastructure.NewPOIPair(0, 0), rows[2][0])
}

func TestNearestPOIsExpandsEverySequenceIndex(t *testing.T) {
	engine := newLineEngine(t)
	// node 3 hosts sequence indices 3 and 7
	assert.Nil(t, engine.RegisterPOICategory("cafe", 10, 10,
		[]int32{0, 1, 2, 3, 4, 0, 1, 3}))

	pois, err := engine.NearestPOIs(4, 10, 10, "cafe", 0)
	assert.Nil(t, err)

	found := make(map[int32]float64)
	for _, p := range pois {
		found[p.POIIndex] = p.Dist
	}
	assert.Equal(t, 1.0, found[3])
	assert.Equal(t, 1.0, found[7])
}

func TestNearestPOIsUnknownCategoryIsSoft(t *testing.T) {
	engine := newLineEngine(t)

	pois, err := engine.NearestPOIs(0, 5, 2, "nonexistent-category", 0)
	assert.Nil(t, err)
	assert.Empty(t, pois)
}

func TestNearestPOIsCeilings(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterPOICategory("shop", 5, 2, []int32{2}))

	_, err := engine.NearestPOIs(0, 6, 2, "shop", 0)
	assert.Equal(t, server.ErrOutOfBoundsQuery, server.GetErrorCode(err))

	_, err = engine.NearestPOIs(0, 5, 3, "shop", 0)
	assert.Equal(t, server.ErrOutOfBoundsQuery, server.GetErrorCode(err))
}

func TestRegisterPOICategoryInvalidNodeAborts(t *testing.T) {
	engine := newLineEngine(t)

	err := engine.RegisterPOICategory("shop", 5, 2, []int32{2, 99})
	assert.Equal(t, server.ErrInvalidNode, server.GetErrorCode(err))

	// nothing half-registered
	pois, err := engine.NearestPOIs(0, 5, 2, "shop", 0)
	assert.Nil(t, err)
	assert.Empty(t, pois)
}

func TestAllNearestPOIsPadsRows(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterPOICategory("shop", 1, 3, []int32{2}))

	rows, err := engine.AllNearestPOIs(1, 3, "shop", 0)
	assert.Nil(t, err)
	assert.Equal(t, 5, len(rows))

	for _, row := range rows {
		assert.Equal(t, 3, len(row))
	}
	// node 1 reaches the POI at node 2, node 0 reaches nothing in radius 1
	assert.Equal(t, []datastructure.POIPair{
		datastructure.NewPOIPair(1, 0),
		datastructure.NewPOIPair(-1, -1),
		datastructure.NewPOIPair(-1, -1),
	}, rows[1])
	assert.Equal(t, datastructure.NewPOIPair(-1, -1), rows[0][0])
}

func newJobsEngine(t *testing.T) *Engine {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterVariable("jobs", []int32{2, 4}, []float64{10, 20}))
	return engine
}

func TestAggregateSumFlat(t *testing.T) {
	engine := newJobsEngine(t)

	score, err := engine.Aggregate(0, 10, "jobs", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 30.0, score)
}

func TestAggregateCountIgnoresDecay(t *testing.T) {
	engine := newJobsEngine(t)

	for _, decay := range []string{DecayExponential, DecayLinear, DecayFlat} {
		score, err := engine.Aggregate(0, 10, "jobs", AggCount, decay, 0)
		assert.Nil(t, err)
		assert.Equal(t, 2.0, score, "decay %s", decay)
	}
}

func TestAggregateMeanAndStd(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterVariable("v", []int32{0, 1}, []float64{2, 4}))

	mean, err := engine.Aggregate(0, 10, "v", AggMean, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 3.0, mean)

	std, err := engine.Aggregate(0, 10, "v", AggStd, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1.0, std) // values 2,4: variance 1

	// std forces flat decay whatever was asked for
	stdExp, err := engine.Aggregate(0, 10, "v", AggStd, DecayExponential, 0)
	assert.Nil(t, err)
	assert.Equal(t, std, stdExp)
}

func TestAggregateZeroCountSentinels(t *testing.T) {
	engine := newLineEngine(t)

	// unknown category attaches no values: soft, not an error
	sum, err := engine.Aggregate(0, 10, "nope", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0.0, sum)

	count, err := engine.Aggregate(0, 10, "nope", AggCount, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0.0, count)

	mean, err := engine.Aggregate(0, 10, "nope", AggMean, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, -1.0, mean)

	std, err := engine.Aggregate(0, 10, "nope", AggStd, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, -1.0, std)
}

func TestAggregateQuantiles(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterVariable("v", []int32{0, 1, 2}, []float64{5, 1, 9}))

	min, err := engine.Aggregate(0, 10, "v", AggMin, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1.0, min)

	max, err := engine.Aggregate(0, 10, "v", AggMax, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 9.0, max)

	median, err := engine.Aggregate(0, 10, "v", AggMedian, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 5.0, median) // sorted 1,5,9 -> index floor(3*0.5)=1

	// empty value sequence
	empty, err := engine.Aggregate(0, 10, "nope", AggMedian, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, -1.0, empty)
}

func TestAggregateRadiusFiltersValues(t *testing.T) {
	engine := newJobsEngine(t)

	// radius 2 reaches node 2 but not node 4
	score, err := engine.Aggregate(0, 2, "jobs", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, 10.0, score)
}

func TestAggregateFailsFastOnBadTypes(t *testing.T) {
	engine := newJobsEngine(t)

	_, err := engine.Aggregate(0, 10, "jobs", "p99", DecayFlat, 0)
	assert.Equal(t, server.ErrInvalidAggregation, server.GetErrorCode(err))

	_, err = engine.Aggregate(0, 10, "jobs", AggSum, "gaussian", 0)
	assert.Equal(t, server.ErrInvalidAggregation, server.GetErrorCode(err))
}

func TestAggregateAll(t *testing.T) {
	engine := newJobsEngine(t)

	scores, err := engine.AggregateAll(1, "jobs", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	// radius 1: each node sees only values within one hop
	assert.Equal(t, []float64{0, 10, 10, 30, 20}, scores)
}

func TestAggregateAllUnrecognizedInputIsEmpty(t *testing.T) {
	engine := newJobsEngine(t)

	scores, err := engine.AggregateAll(1, "jobs", "p99", DecayFlat, 0)
	assert.Nil(t, err)
	assert.Empty(t, scores)

	scores, err = engine.AggregateAll(1, "nope", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Empty(t, scores)
}

func assertPartition(t *testing.T, clusters [][]int, n int) {
	t.Helper()
	seen := make(map[int]int)
	for _, cluster := range clusters {
		for _, idx := range cluster {
			seen[idx]++
		}
	}
	assert.Equal(t, n, len(seen))
	for idx, times := range seen {
		assert.Equal(t, 1, times, "index %d", idx)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, n)
	}
}

func TestClusterPartitionsIndices(t *testing.T) {
	engine := newLineEngine(t)

	sources := []int32{0, 1, 4, 3, 0}
	clusters, err := engine.Cluster(sources, 1, 0)
	assert.Nil(t, err)
	assertPartition(t, clusters, len(sources))

	// 0 and 1 are one hop apart, 4 and 3 likewise; the duplicate 0 joins
	// the first cluster
	assert.Equal(t, [][]int{{0, 1, 4}, {2, 3}}, clusters)
}

func TestClusterSizeCap(t *testing.T) {
	engine := newLineEngine(t)

	sources := make([]int32, 20)
	clusters, err := engine.Cluster(sources, 100, 0)
	assert.Nil(t, err)
	assertPartition(t, clusters, len(sources))
	for _, cluster := range clusters {
		assert.LessOrEqual(t, len(cluster), maxClusterSize)
	}
	assert.Equal(t, 2, len(clusters)) // 15 + 5
}

func TestBatchAggregateMatchesSingleSource(t *testing.T) {
	engine := newJobsEngine(t)

	// radius 10 clusters everything through one shared pass
	sources := []int32{0, 1, 2, 3, 4}
	scores, err := engine.BatchAggregate(sources, 10, "jobs", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	assert.Equal(t, len(sources), len(scores))

	byIndex := make(map[int]float64)
	for _, s := range scores {
		byIndex[s.SourceIndex] = s.Score
	}
	for idx, src := range sources {
		want, aggErr := engine.Aggregate(src, 10, "jobs", AggSum, DecayFlat, 0)
		assert.Nil(t, aggErr)
		assert.Equal(t, want, byIndex[idx], "source index %d", idx)
	}

	// radius 1 keeps every cluster at size <= 2: the per-source path
	scores, err = engine.BatchAggregate(sources, 1, "jobs", AggSum, DecayFlat, 0)
	assert.Nil(t, err)
	byIndex = make(map[int]float64)
	for _, s := range scores {
		byIndex[s.SourceIndex] = s.Score
	}
	for idx, src := range sources {
		want, aggErr := engine.Aggregate(src, 1, "jobs", AggSum, DecayFlat, 0)
		assert.Nil(t, aggErr)
		assert.Equal(t, want, byIndex[idx], "source index %d", idx)
	}
}

func TestBatchAggregateRejectsQuantileAndStd(t *testing.T) {
	engine := newJobsEngine(t)

	for _, aggType := range []string{AggMedian, AggMin, AggMax, Agg25Pct, Agg75Pct, AggStd} {
		_, err := engine.BatchAggregate([]int32{0, 1}, 10, "jobs", aggType, DecayFlat, 0)
		assert.Equal(t, server.ErrInvalidAggregation, server.GetErrorCode(err), aggType)
	}
}

func TestBatchNearestPOIs(t *testing.T) {
	engine := newLineEngine(t)
	assert.Nil(t, engine.RegisterPOICategory("shop", 5, 2, []int32{2, 2}))

	sources := []int32{0, 4}
	rows, err := engine.BatchNearestPOIs(sources, 5, 2, "shop", 0)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(rows))

	byIndex := make(map[int][]datastructure.POIPair)
	for _, row := range rows {
		byIndex[row.SourceIndex] = row.POIs
	}
	for idx, src := range sources {
		want, poiErr := engine.NearestPOIs(src, 5, 2, "shop", 0)
		assert.Nil(t, poiErr)
		assert.Equal(t, want, byIndex[idx])
	}
}

func TestDistanceAndRouteAcrossVariants(t *testing.T) {
	engine := newLineEngine(t)

	dist, err := engine.Distance(0, 4, 0)
	assert.Nil(t, err)
	assert.Equal(t, 4.0, dist)

	dist, err = engine.Distance(0, 4, 1)
	assert.Nil(t, err)
	assert.Equal(t, 8.0, dist)

	path, err := engine.Route(0, 4, 0)
	assert.Nil(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, path)

	_, err = engine.Distance(0, 4, 2)
	assert.Equal(t, server.ErrBadParamInput, server.GetErrorCode(err))
}
