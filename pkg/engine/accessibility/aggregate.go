package accessibility

import (
	"math"
	"sort"

	"github.com/lintang-b-s/accessx/pkg/concurrent"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"
)

// Aggregation type and decay names accepted by Aggregate and the batch
// entry points.
const (
	AggSum    = "sum"
	AggMean   = "mean"
	AggCount  = "count"
	AggStd    = "std"
	AggMin    = "min"
	Agg25Pct  = "25pct"
	AggMedian = "median"
	Agg75Pct  = "75pct"
	AggMax    = "max"

	DecayExponential = "exp"
	DecayLinear      = "linear"
	DecayFlat        = "flat"
)

// sentinelScore marks degenerate numeric cases: mean/std over zero values,
// quantile of an empty sequence. Never NaN, never a panic.
const sentinelScore = -1.0

// aggQuantiles doubles as the aggregation-type validity check for the
// quantile path.
var aggQuantiles = map[string]float64{
	AggMin:    0.0,
	Agg25Pct:  0.25,
	AggMedian: 0.5,
	Agg75Pct:  0.75,
	AggMax:    1.0,
}

func validAggType(aggType string) bool {
	switch aggType {
	case AggSum, AggMean, AggCount, AggStd:
		return true
	}
	_, ok := aggQuantiles[aggType]
	return ok
}

func validDecayType(decayType string) bool {
	switch decayType {
	case DecayExponential, DecayLinear, DecayFlat:
		return true
	}
	return false
}

// decayWeight is the distance weighting applied to each value before the
// streaming sum. A zero radius admits only the source itself; weight 1 keeps
// that case out of 0/0 territory.
func decayWeight(decayType string, dist, radius float64) float64 {
	if radius <= 0 {
		return 1
	}
	switch decayType {
	case DecayExponential:
		return math.Exp(-dist / radius)
	case DecayLinear:
		return 1 - dist/radius
	default:
		return 1
	}
}

// Aggregator turns one origin's reachable set into a scalar accessibility
// score for a variable category, an aggregation type, and a decay.
type Aggregator struct {
	cache *RangeCache
	vars  *VariableStore
	gs    *GraphSet
}

func NewAggregator(gs *GraphSet, cache *RangeCache, vars *VariableStore) *Aggregator {
	return &Aggregator{
		cache: cache,
		vars:  vars,
		gs:    gs,
	}
}

// Aggregate scores one origin. Unrecognized aggregation or decay names fail
// fast; an unknown category stays soft and simply attaches no values, so the
// score falls out of the zero-count rules (sum 0, count 0, mean/std −1).
func (ag *Aggregator) Aggregate(src int32, radius float64, category, aggType, decayType string, variant int) (float64, error) {
	if !validAggType(aggType) {
		return 0, server.NewErrorf(server.ErrInvalidAggregation,
			"unknown aggregation type %q", aggType)
	}
	if !validDecayType(decayType) {
		return 0, server.NewErrorf(server.ErrInvalidAggregation,
			"unknown decay type %q", decayType)
	}

	reached, err := ag.cache.Lookup(src, radius, variant)
	if err != nil {
		return 0, err
	}
	return ag.scoreReachable(reached, radius, category, aggType, decayType), nil
}

// scoreReachable aggregates one already-fetched reachable set. The set may
// be a cached superset; entries beyond radius are filtered here.
func (ag *Aggregator) scoreReachable(reached []datastructure.ReachedNode, radius float64,
	category, aggType, decayType string) float64 {

	if quantile, ok := aggQuantiles[aggType]; ok {
		return ag.quantileScore(reached, radius, category, quantile)
	}
	return ag.streamingScore(reached, radius, category, aggType, decayType)
}

func (ag *Aggregator) streamingScore(reached []datastructure.ReachedNode, radius float64,
	category, aggType, decayType string) float64 {

	// std is defined on unweighted values
	if aggType == AggStd {
		decayType = DecayFlat
	}

	var sum, sumSq float64
	count := 0
	for _, r := range reached {
		if r.Dist > radius {
			continue
		}
		for _, v := range ag.vars.valuesAt(category, r.NodeID) {
			sum += decayWeight(decayType, r.Dist, radius) * v
			sumSq += v * v
			count++
		}
	}

	switch aggType {
	case AggSum:
		return sum
	case AggCount:
		return float64(count)
	case AggMean:
		if count == 0 {
			return sentinelScore
		}
		return sum / float64(count)
	default: // AggStd
		if count == 0 {
			return sentinelScore
		}
		mean := sum / float64(count)
		return math.Sqrt(sumSq/float64(count) - mean*mean)
	}
}

func (ag *Aggregator) quantileScore(reached []datastructure.ReachedNode, radius float64,
	category string, quantile float64) float64 {

	flat := make([]float64, 0)
	for _, r := range reached {
		if r.Dist > radius {
			continue
		}
		flat = append(flat, ag.vars.valuesAt(category, r.NodeID)...)
	}
	if len(flat) == 0 {
		return sentinelScore
	}
	sort.Float64s(flat)

	idx := int(math.Floor(float64(len(flat)) * quantile))
	if idx < 0 {
		idx = 0
	}
	if idx > len(flat)-1 {
		idx = len(flat) - 1
	}
	return flat[idx]
}

type aggregateAllResult struct {
	idx   int
	score float64
	err   error
}

// AggregateAll scores every node, data-parallel, output in node order.
// Category, aggregation type, and decay are validated once up front; any
// unrecognized name yields a whole-call empty result instead of N per-node
// failures.
func (ag *Aggregator) AggregateAll(radius float64, category, aggType, decayType string, variant int) ([]float64, error) {
	if _, err := ag.gs.Variant(variant); err != nil {
		return nil, err
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, server.NewErrorf(server.ErrInvalidNode,
			"radius must be non-negative, got %f", radius)
	}
	if !validAggType(aggType) || !validDecayType(decayType) || !ag.vars.Has(category) {
		return []float64{}, nil
	}

	numNodes := ag.gs.NumNodes()
	wp := concurrent.NewWorkerPool[concurrent.IndexedNode, aggregateAllResult](
		ag.gs.Workers(), numNodes)
	for i := 0; i < numNodes; i++ {
		wp.AddJob(concurrent.NewIndexedNode(i, int32(i)))
	}
	wp.Close()
	wp.Start(func(job concurrent.IndexedNode) aggregateAllResult {
		slot := ag.gs.slots.acquire()
		defer ag.gs.slots.release(slot)
		reached, lookupErr := ag.cache.lookupWithSlot(job.NodeID, radius, variant, slot)
		if lookupErr != nil {
			return aggregateAllResult{idx: job.Idx, err: lookupErr}
		}
		return aggregateAllResult{
			idx:   job.Idx,
			score: ag.scoreReachable(reached, radius, category, aggType, decayType),
		}
	})
	wp.Wait()

	scores := make([]float64, numNodes)
	for res := range wp.CollectResults() {
		if res.err != nil {
			return nil, res.err
		}
		scores[res.idx] = res.score
	}
	return scores, nil
}
