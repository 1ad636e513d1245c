package accessibility

import (
	"math"

	"github.com/lintang-b-s/accessx/pkg/concurrent"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// batchAggregateClusterRadiusFactor scales the query radius down for
// clustering: sources sharing a batched reachability pass should sit well
// inside each other's query disks.
const batchAggregateClusterRadiusFactor = 0.5

// batchPOIClusterRadiusFactor is finer still; POI batching only orders work.
const batchPOIClusterRadiusFactor = 0.3

// SourceScore ties a score back to its position in the caller's source list.
// Batch results come in cluster order, so the index is the only contract.
type SourceScore struct {
	SourceIndex int     `json:"source_index"`
	Score       float64 `json:"score"`
}

// SourcePOIRows is one source's nearest-POI rows, index-tagged like
// SourceScore.
type SourcePOIRows struct {
	SourceIndex int                     `json:"source_index"`
	POIs        []datastructure.POIPair `json:"pois"`
}

// BatchAccessibilityEngine fans multi-origin queries out over clusters built
// by the BatchClusterer.
type BatchAccessibilityEngine struct {
	log       *zap.Logger
	gs        *GraphSet
	cache     *RangeCache
	poi       *POIIndex
	agg       *Aggregator
	clusterer *BatchClusterer
}

func NewBatchAccessibilityEngine(log *zap.Logger, gs *GraphSet, cache *RangeCache,
	poi *POIIndex, agg *Aggregator, clusterer *BatchClusterer) *BatchAccessibilityEngine {
	return &BatchAccessibilityEngine{
		log:       log,
		gs:        gs,
		cache:     cache,
		poi:       poi,
		agg:       agg,
		clusterer: clusterer,
	}
}

type clusterRangeResult struct {
	idx     int
	reached []datastructure.ReachedNode
	err     error
}

// BatchAggregate scores every source, one (sourceIndex, score) pair per
// source, in cluster order. Only sum, count, and mean are accepted: the
// shared pass over a cluster cannot produce quantiles or std, and rejecting
// up front keeps validity independent of the data-driven cluster shapes.
func (be *BatchAccessibilityEngine) BatchAggregate(sources []int32, radius float64,
	category, aggType, decayType string, variant int) ([]SourceScore, error) {

	switch aggType {
	case AggSum, AggCount, AggMean:
	default:
		return nil, server.NewErrorf(server.ErrInvalidAggregation,
			"aggregation type %q unsupported in batch, use sum, count or mean", aggType)
	}
	if !validDecayType(decayType) {
		return nil, server.NewErrorf(server.ErrInvalidAggregation,
			"unknown decay type %q", decayType)
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, server.NewErrorf(server.ErrInvalidNode,
			"radius must be non-negative, got %f", radius)
	}

	clusters, err := be.clusterer.Cluster(sources, batchAggregateClusterRadiusFactor*radius, variant)
	if err != nil {
		return nil, err
	}
	be.log.Debug("batch aggregate clustered",
		zap.Int("sources", len(sources)),
		zap.Int("clusters", len(clusters)))

	scores := make([]SourceScore, 0, len(sources))
	for _, cluster := range clusters {
		if len(cluster) <= 2 {
			// shared pass overhead is not worth it here
			for _, srcIdx := range cluster {
				score, aggErr := be.agg.Aggregate(sources[srcIdx], radius, category, aggType, decayType, variant)
				if aggErr != nil {
					return nil, aggErr
				}
				scores = append(scores, SourceScore{SourceIndex: srcIdx, Score: score})
			}
			continue
		}

		clusterScores, clusterErr := be.aggregateCluster(cluster, sources, radius, category, aggType, decayType, variant)
		if clusterErr != nil {
			return nil, clusterErr
		}
		scores = append(scores, clusterScores...)
	}
	return scores, nil
}

// aggregateCluster runs one data-parallel Range pass over the cluster's
// sources, then aggregates each source over its own reachable set.
func (be *BatchAccessibilityEngine) aggregateCluster(cluster []int, sources []int32,
	radius float64, category, aggType, decayType string, variant int) ([]SourceScore, error) {

	wp := concurrent.NewWorkerPool[concurrent.IndexedNode, clusterRangeResult](
		be.gs.Workers(), len(cluster))
	for pos, srcIdx := range cluster {
		wp.AddJob(concurrent.NewIndexedNode(pos, sources[srcIdx]))
	}
	wp.Close()
	wp.Start(func(job concurrent.IndexedNode) clusterRangeResult {
		slot := be.gs.slots.acquire()
		defer be.gs.slots.release(slot)
		reached, lookupErr := be.cache.lookupWithSlot(job.NodeID, radius, variant, slot)
		return clusterRangeResult{idx: job.Idx, reached: reached, err: lookupErr}
	})
	wp.Wait()

	reachedByPos := make([][]datastructure.ReachedNode, len(cluster))
	for res := range wp.CollectResults() {
		if res.err != nil {
			return nil, res.err
		}
		reachedByPos[res.idx] = res.reached
	}

	scores := make([]SourceScore, 0, len(cluster))
	for pos, srcIdx := range cluster {
		scores = append(scores, SourceScore{
			SourceIndex: srcIdx,
			Score:       be.agg.scoreReachable(reachedByPos[pos], radius, category, aggType, decayType),
		})
	}
	return scores, nil
}

// BatchNearestPOIs resolves every source's nearest POIs, index-tagged, in
// cluster order. Clustering only orders the work here; every source still
// runs its own NearestPOIs call.
func (be *BatchAccessibilityEngine) BatchNearestPOIs(sources []int32, maxRadius float64,
	k int, category string, variant int) ([]SourcePOIRows, error) {

	clusters, err := be.clusterer.Cluster(sources, batchPOIClusterRadiusFactor*maxRadius, variant)
	if err != nil {
		return nil, err
	}

	ordered := lo.Flatten(clusters)
	rows := make([]SourcePOIRows, 0, len(sources))
	for _, srcIdx := range ordered {
		pois, poiErr := be.poi.NearestPOIs(sources[srcIdx], maxRadius, k, category, variant)
		if poiErr != nil {
			return nil, poiErr
		}
		rows = append(rows, SourcePOIRows{SourceIndex: srcIdx, POIs: pois})
	}
	return rows, nil
}
