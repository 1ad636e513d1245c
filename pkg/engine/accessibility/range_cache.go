package accessibility

import (
	"math"
	"sync/atomic"

	"github.com/lintang-b-s/accessx/pkg/concurrent"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"
)

// rangeSnapshot is one immutable precompute result: every node's reachable
// set at one radius. Swapped in whole, never mutated in place.
type rangeSnapshot struct {
	radius float64
	sets   [][]datastructure.ReachedNode
}

// RangeCache holds one precomputed radius per variant. Lookups at or below
// the cached radius return the cached set as-is; callers re-filter by their
// own radius. Anything else goes to the live Oracle.
type RangeCache struct {
	gs        *GraphSet
	snapshots []atomic.Pointer[rangeSnapshot]
}

func NewRangeCache(gs *GraphSet) *RangeCache {
	return &RangeCache{
		gs:        gs,
		snapshots: make([]atomic.Pointer[rangeSnapshot], gs.NumVariants()),
	}
}

type precomputeResult struct {
	idx int
	set []datastructure.ReachedNode
	err error
}

// Precompute replaces the variant's cache with every node's reachable set at
// the given radius. Single-writer setup phase: no queries may run against
// this variant while it is in flight, so the loop owns the whole slot pool
// and addresses slots by worker index. Any per-node failure leaves the
// previous cache fully intact.
func (rc *RangeCache) Precompute(radius float64, variant int) error {
	oracle, err := rc.gs.Variant(variant)
	if err != nil {
		return err
	}
	if radius < 0 || math.IsNaN(radius) {
		return server.NewErrorf(server.ErrInvalidNode,
			"precompute radius must be non-negative, got %f", radius)
	}

	numNodes := rc.gs.NumNodes()
	wp := concurrent.NewWorkerPool[concurrent.IndexedNode, precomputeResult](
		rc.gs.Workers(), numNodes)
	for i := 0; i < numNodes; i++ {
		wp.AddJob(concurrent.NewIndexedNode(i, int32(i)))
	}
	wp.Close()
	wp.StartWithWorkerID(func(job concurrent.IndexedNode, workerID int) precomputeResult {
		set, rangeErr := oracle.Range(job.NodeID, radius, workerID)
		return precomputeResult{idx: job.Idx, set: set, err: rangeErr}
	})
	wp.Wait()

	sets := make([][]datastructure.ReachedNode, numNodes)
	for res := range wp.CollectResults() {
		if res.err != nil {
			return server.WrapErrorf(res.err, server.ErrPrecomputeFailed,
				"range precompute failed at node %d, keeping previous cache", res.idx)
		}
		sets[res.idx] = res.set
	}

	rc.snapshots[variant].Store(&rangeSnapshot{radius: radius, sets: sets})
	return nil
}

// Install swaps in externally computed sets, the warm-load path from the
// persistent range store. sets must cover every node.
func (rc *RangeCache) Install(variant int, radius float64, sets [][]datastructure.ReachedNode) error {
	if variant < 0 || variant >= rc.gs.NumVariants() {
		return server.NewErrorf(server.ErrBadParamInput,
			"graph variant %d outside [0,%d)", variant, rc.gs.NumVariants())
	}
	if len(sets) != rc.gs.NumNodes() {
		return server.NewErrorf(server.ErrPrecomputeFailed,
			"range store holds %d node sets, graph has %d nodes", len(sets), rc.gs.NumNodes())
	}
	if radius < 0 || math.IsNaN(radius) {
		return server.NewErrorf(server.ErrBadParamInput,
			"cached radius must be non-negative, got %f", radius)
	}
	rc.snapshots[variant].Store(&rangeSnapshot{radius: radius, sets: sets})
	return nil
}

// CachedRadius reports the variant's active precompute radius, false when
// nothing is cached.
func (rc *RangeCache) CachedRadius(variant int) (float64, bool) {
	if variant < 0 || variant >= len(rc.snapshots) {
		return 0, false
	}
	snap := rc.snapshots[variant].Load()
	if snap == nil {
		return 0, false
	}
	return snap.radius, true
}

// Snapshot returns the variant's cached sets and radius for persistence,
// nil when nothing is cached.
func (rc *RangeCache) Snapshot(variant int) ([][]datastructure.ReachedNode, float64) {
	if variant < 0 || variant >= len(rc.snapshots) {
		return nil, 0
	}
	snap := rc.snapshots[variant].Load()
	if snap == nil {
		return nil, 0
	}
	return snap.sets, snap.radius
}

// Lookup returns a reachable set covering at least every node within radius
// of node. Cached sets are a superset for any radius at or below the cached
// radius; the caller filters entries by its own radius. A cache miss goes to
// the live Oracle with a slot from the shared pool.
func (rc *RangeCache) Lookup(node int32, radius float64, variant int) ([]datastructure.ReachedNode, error) {
	oracle, err := rc.gs.Variant(variant)
	if err != nil {
		return nil, err
	}
	if err := rc.gs.validateNode(node); err != nil {
		return nil, err
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, server.NewErrorf(server.ErrInvalidNode,
			"range radius must be non-negative, got %f", radius)
	}

	if snap := rc.snapshots[variant].Load(); snap != nil && radius <= snap.radius {
		return snap.sets[node], nil
	}

	slot := rc.gs.slots.acquire()
	defer rc.gs.slots.release(slot)
	return oracle.Range(node, radius, slot)
}

// lookupWithSlot is Lookup for callers already holding a slot.
func (rc *RangeCache) lookupWithSlot(node int32, radius float64, variant, slot int) ([]datastructure.ReachedNode, error) {
	oracle, err := rc.gs.Variant(variant)
	if err != nil {
		return nil, err
	}
	if err := rc.gs.validateNode(node); err != nil {
		return nil, err
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, server.NewErrorf(server.ErrInvalidNode,
			"range radius must be non-negative, got %f", radius)
	}

	if snap := rc.snapshots[variant].Load(); snap != nil && radius <= snap.radius {
		return snap.sets[node], nil
	}
	return oracle.Range(node, radius, slot)
}
