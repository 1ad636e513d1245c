package accessibility

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// maxClusterSize caps how many sources one shared reachability pass covers.
const maxClusterSize = 15

type distMemoKey struct {
	variant int
	seed    int32
	cand    int32
}

// BatchClusterer partitions a source list into locality groups by real graph
// distance, so batch entry points can amortize reachable-set work. Greedy
// single pass, documented heuristic: membership is exact (seed→member
// distance ≤ clusterRadius) but the partition is not minimal. Straight-line
// pre-filtering is deliberately absent: Euclidean distance is no lower bound
// for travel-time variants, so admission always asks the Oracle; an LRU memo
// absorbs the repeated pairs that recurring batch workloads produce.
type BatchClusterer struct {
	gs   *GraphSet
	memo *lru.Cache[distMemoKey, float64]
}

func NewBatchClusterer(gs *GraphSet) (*BatchClusterer, error) {
	memo, err := lru.New[distMemoKey, float64](1 << 16)
	if err != nil {
		return nil, err
	}
	return &BatchClusterer{
		gs:   gs,
		memo: memo,
	}, nil
}

// Cluster partitions the indices [0,len(sources)) — never node ids — into
// clusters whose members lie within clusterRadius of the cluster seed. Input
// order drives seeding: the first unassigned source opens the next cluster.
// Worst case O(S²) Distance calls.
func (bc *BatchClusterer) Cluster(sources []int32, clusterRadius float64, variant int) ([][]int, error) {
	oracle, err := bc.gs.Variant(variant)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if err := bc.gs.validateNode(src); err != nil {
			return nil, err
		}
	}

	slot := bc.gs.slots.acquire()
	defer bc.gs.slots.release(slot)

	assigned := make([]bool, len(sources))
	clusters := make([][]int, 0)
	for i := range sources {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		assigned[i] = true

		for j := i + 1; j < len(sources) && len(cluster) < maxClusterSize; j++ {
			if assigned[j] {
				continue
			}
			d, distErr := bc.distance(oracle, variant, sources[i], sources[j], slot)
			if distErr != nil {
				return nil, distErr
			}
			if d <= clusterRadius {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

func (bc *BatchClusterer) distance(oracle Oracle, variant int, seed, cand int32, slot int) (float64, error) {
	key := distMemoKey{variant: variant, seed: seed, cand: cand}
	if d, ok := bc.memo.Get(key); ok {
		return d, nil
	}
	d, err := oracle.Distance(seed, cand, slot)
	if err != nil {
		return 0, err
	}
	if !math.IsInf(d, 1) {
		bc.memo.Add(key, d)
	}
	return d, nil
}
