package accessibility

import (
	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"go.uber.org/zap"
)

// Engine owns every accessibility component for one GraphSet and is the
// single entry point the service layer talks to. Construction wires the
// components; all state behind it follows the registration-then-query
// lifecycle the components document.
type Engine struct {
	log       *zap.Logger
	gs        *GraphSet
	cache     *RangeCache
	poi       *POIIndex
	vars      *VariableStore
	agg       *Aggregator
	batch     *BatchAccessibilityEngine
	clusterer *BatchClusterer
}

func NewEngine(log *zap.Logger, gs *GraphSet) (*Engine, error) {
	cache := NewRangeCache(gs)
	poi := NewPOIIndex(gs)
	vars := NewVariableStore(gs)
	agg := NewAggregator(gs, cache, vars)
	clusterer, err := NewBatchClusterer(gs)
	if err != nil {
		return nil, err
	}
	batch := NewBatchAccessibilityEngine(log, gs, cache, poi, agg, clusterer)

	return &Engine{
		log:       log,
		gs:        gs,
		cache:     cache,
		poi:       poi,
		vars:      vars,
		agg:       agg,
		batch:     batch,
		clusterer: clusterer,
	}, nil
}

func (e *Engine) NumNodes() int {
	return e.gs.NumNodes()
}

func (e *Engine) NumVariants() int {
	return e.gs.NumVariants()
}

func (e *Engine) Workers() int {
	return e.gs.Workers()
}

func (e *Engine) RangeCache() *RangeCache {
	return e.cache
}

// RangeSnapshot exposes the cached reachable sets of one variant for
// persistence; nil when nothing is cached.
func (e *Engine) RangeSnapshot(variant int) ([][]datastructure.ReachedNode, float64) {
	return e.cache.Snapshot(variant)
}

// InstallRangeSnapshot warm-loads a persisted precompute result into the
// range cache without re-running the O(N) Range pass.
func (e *Engine) InstallRangeSnapshot(variant int, radius float64, sets [][]datastructure.ReachedNode) error {
	e.log.Info("installing persisted range snapshot",
		zap.Float64("radius", radius),
		zap.Int("variant", variant))
	return e.cache.Install(variant, radius, sets)
}

func (e *Engine) CachedRadius(variant int) (float64, bool) {
	return e.cache.CachedRadius(variant)
}

// Distance returns the shortest-path weight between two nodes on one
// variant, +Inf when tgt is unreachable.
func (e *Engine) Distance(src, tgt int32, variant int) (float64, error) {
	oracle, err := e.gs.Variant(variant)
	if err != nil {
		return 0, err
	}
	slot := e.gs.slots.acquire()
	defer e.gs.slots.release(slot)
	return oracle.Distance(src, tgt, slot)
}

// Route returns the node path between two nodes on one variant, empty when
// tgt is unreachable.
func (e *Engine) Route(src, tgt int32, variant int) ([]int32, error) {
	oracle, err := e.gs.Variant(variant)
	if err != nil {
		return nil, err
	}
	slot := e.gs.slots.acquire()
	defer e.gs.slots.release(slot)
	return oracle.Route(src, tgt, slot)
}

// ReachableSet returns every node within radius of src on one variant,
// served from the range cache when it covers the radius. Entries of a cached
// superset are filtered down to the requested radius here.
func (e *Engine) ReachableSet(src int32, radius float64, variant int) ([]datastructure.ReachedNode, error) {
	reached, err := e.cache.Lookup(src, radius, variant)
	if err != nil {
		return nil, err
	}
	filtered := make([]datastructure.ReachedNode, 0, len(reached))
	for _, r := range reached {
		if r.Dist <= radius {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (e *Engine) Precompute(radius float64, variant int) error {
	e.log.Info("precomputing range cache",
		zap.Float64("radius", radius),
		zap.Int("variant", variant))
	return e.cache.Precompute(radius, variant)
}

func (e *Engine) RegisterPOICategory(name string, maxDist float64, maxK int, nodes []int32) error {
	e.log.Info("registering poi category",
		zap.String("category", name),
		zap.Int("pois", len(nodes)),
		zap.Float64("max_dist", maxDist),
		zap.Int("max_k", maxK))
	return e.poi.RegisterCategory(name, maxDist, maxK, nodes)
}

func (e *Engine) NearestPOIs(src int32, maxRadius float64, k int, category string, variant int) ([]datastructure.POIPair, error) {
	return e.poi.NearestPOIs(src, maxRadius, k, category, variant)
}

func (e *Engine) AllNearestPOIs(maxRadius float64, k int, category string, variant int) ([][]datastructure.POIPair, error) {
	return e.poi.AllNearestPOIs(maxRadius, k, category, variant)
}

func (e *Engine) RegisterVariable(name string, nodes []int32, values []float64) error {
	e.log.Info("registering variable category",
		zap.String("category", name),
		zap.Int("values", len(values)))
	return e.vars.RegisterVariable(name, nodes, values)
}

func (e *Engine) Aggregate(src int32, radius float64, category, aggType, decayType string, variant int) (float64, error) {
	return e.agg.Aggregate(src, radius, category, aggType, decayType, variant)
}

func (e *Engine) AggregateAll(radius float64, category, aggType, decayType string, variant int) ([]float64, error) {
	return e.agg.AggregateAll(radius, category, aggType, decayType, variant)
}

func (e *Engine) BatchAggregate(sources []int32, radius float64, category, aggType, decayType string, variant int) ([]SourceScore, error) {
	return e.batch.BatchAggregate(sources, radius, category, aggType, decayType, variant)
}

func (e *Engine) BatchNearestPOIs(sources []int32, maxRadius float64, k int, category string, variant int) ([]SourcePOIRows, error) {
	return e.batch.BatchNearestPOIs(sources, maxRadius, k, category, variant)
}

func (e *Engine) Cluster(sources []int32, clusterRadius float64, variant int) ([][]int, error) {
	return e.clusterer.Cluster(sources, clusterRadius, variant)
}
