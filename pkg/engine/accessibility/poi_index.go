package accessibility

import (
	"math"
	"sort"

	"github.com/lintang-b-s/accessx/pkg/concurrent"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/server"

	"github.com/puzpuzpuz/xsync/v3"
)

// poiCategory is one registered POI category: the node→sequence-index fan-out
// plus the ceilings fixed at registration.
type poiCategory struct {
	maxDist   float64
	maxK      int
	nodeToSeq map[int32][]int32
	size      int
}

// POIIndex registers POI categories with every graph variant's Oracle and
// expands Oracle node results into per-POI rows. Several POIs may share one
// node (shops in one building); each keeps its own sequence index.
type POIIndex struct {
	gs         *GraphSet
	categories *xsync.MapOf[string, *poiCategory]
}

func NewPOIIndex(gs *GraphSet) *POIIndex {
	return &POIIndex{
		gs:         gs,
		categories: xsync.NewMapOf[string, *poiCategory](),
	}
}

// RegisterCategory registers nodes as a POI category: position i becomes POI
// sequence-index i. All nodes are validated before the Oracles are touched,
// so an invalid node aborts the registration without side effects.
// Re-registering a name overwrites it. Single-writer setup phase.
func (pi *POIIndex) RegisterCategory(name string, maxDist float64, maxK int, nodes []int32) error {
	if maxDist < 0 || math.IsNaN(maxDist) {
		return server.NewErrorf(server.ErrBadParamInput,
			"category %q radius ceiling must be non-negative, got %f", name, maxDist)
	}
	if maxK < 1 {
		return server.NewErrorf(server.ErrBadParamInput,
			"category %q count ceiling must be positive, got %d", name, maxK)
	}
	for _, node := range nodes {
		if err := pi.gs.validateNode(node); err != nil {
			return server.WrapErrorf(err, server.ErrInvalidNode,
				"registering poi category %q", name)
		}
	}

	for variant := 0; variant < pi.gs.NumVariants(); variant++ {
		oracle, err := pi.gs.Variant(variant)
		if err != nil {
			return err
		}
		if err := oracle.InitPOICategory(name, maxDist, maxK); err != nil {
			return err
		}
		for _, node := range nodes {
			if err := oracle.RegisterPOI(name, node); err != nil {
				return err
			}
		}
	}

	nodeToSeq := make(map[int32][]int32, len(nodes))
	for i, node := range nodes {
		nodeToSeq[node] = append(nodeToSeq[node], int32(i))
	}
	pi.categories.Store(name, &poiCategory{
		maxDist:   maxDist,
		maxK:      maxK,
		nodeToSeq: nodeToSeq,
		size:      len(nodes),
	})
	return nil
}

// NearestPOIs returns (distance, sequence-index) rows for the POIs of a
// category nearest to src, ascending by distance, distance ties by sequence
// index. k bounds the Oracle's POI-bearing node search; every POI recorded at
// a returned node is expanded into its own row, so co-located POIs can push
// the result past k. Unknown category is soft: empty result, nil error.
// Exceeding a registration ceiling is OutOfBoundsQuery.
func (pi *POIIndex) NearestPOIs(src int32, maxRadius float64, k int, category string, variant int) ([]datastructure.POIPair, error) {
	slot := pi.gs.slots.acquire()
	defer pi.gs.slots.release(slot)
	return pi.nearestPOIsWithSlot(src, maxRadius, k, category, variant, slot)
}

func (pi *POIIndex) nearestPOIsWithSlot(src int32, maxRadius float64, k int, category string, variant, slot int) ([]datastructure.POIPair, error) {
	oracle, err := pi.gs.Variant(variant)
	if err != nil {
		return nil, err
	}
	if err := pi.gs.validateNode(src); err != nil {
		return nil, err
	}

	cat, ok := pi.categories.Load(category)
	if !ok {
		return []datastructure.POIPair{}, nil
	}
	if maxRadius < 0 || maxRadius > cat.maxDist || math.IsNaN(maxRadius) {
		return nil, server.NewErrorf(server.ErrOutOfBoundsQuery,
			"radius %f outside category %q ceiling %f", maxRadius, category, cat.maxDist)
	}
	if k < 1 || k > cat.maxK {
		return nil, server.NewErrorf(server.ErrOutOfBoundsQuery,
			"count %d outside category %q ceiling %d", k, category, cat.maxK)
	}

	nearest, err := oracle.NearestPOI(category, src, maxRadius, k, slot)
	if err != nil {
		return nil, err
	}

	pairs := make([]datastructure.POIPair, 0, len(nearest))
	for node, dist := range nearest {
		for _, seqIdx := range cat.nodeToSeq[node] {
			pairs = append(pairs, datastructure.NewPOIPair(dist, seqIdx))
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Dist != pairs[j].Dist {
			return pairs[i].Dist < pairs[j].Dist
		}
		return pairs[i].POIIndex < pairs[j].POIIndex
	})
	return pairs, nil
}

type nearestAllResult struct {
	idx int
	row []datastructure.POIPair
	err error
}

// AllNearestPOIs runs NearestPOIs for every node, data-parallel, and cuts or
// pads every row with (-1,-1) sentinels to exactly k entries so callers can
// index the output as an N×k matrix.
func (pi *POIIndex) AllNearestPOIs(maxRadius float64, k int, category string, variant int) ([][]datastructure.POIPair, error) {
	if _, err := pi.gs.Variant(variant); err != nil {
		return nil, err
	}
	if cat, ok := pi.categories.Load(category); ok {
		// fail the whole matrix before fanning out N queries
		if maxRadius < 0 || maxRadius > cat.maxDist || math.IsNaN(maxRadius) {
			return nil, server.NewErrorf(server.ErrOutOfBoundsQuery,
				"radius %f outside category %q ceiling %f", maxRadius, category, cat.maxDist)
		}
		if k < 1 || k > cat.maxK {
			return nil, server.NewErrorf(server.ErrOutOfBoundsQuery,
				"count %d outside category %q ceiling %d", k, category, cat.maxK)
		}
	} else if k < 1 {
		return nil, server.NewErrorf(server.ErrBadParamInput,
			"count must be positive, got %d", k)
	}

	numNodes := pi.gs.NumNodes()
	wp := concurrent.NewWorkerPool[concurrent.IndexedNode, nearestAllResult](
		pi.gs.Workers(), numNodes)
	for i := 0; i < numNodes; i++ {
		wp.AddJob(concurrent.NewIndexedNode(i, int32(i)))
	}
	wp.Close()
	wp.Start(func(job concurrent.IndexedNode) nearestAllResult {
		slot := pi.gs.slots.acquire()
		defer pi.gs.slots.release(slot)
		row, rowErr := pi.nearestPOIsWithSlot(job.NodeID, maxRadius, k, category, variant, slot)
		return nearestAllResult{idx: job.Idx, row: row, err: rowErr}
	})
	wp.Wait()

	rows := make([][]datastructure.POIPair, numNodes)
	for res := range wp.CollectResults() {
		if res.err != nil {
			return nil, res.err
		}
		row := res.row
		if len(row) > k {
			row = row[:k]
		}
		for len(row) < k {
			row = append(row, datastructure.NewPOIPair(-1, -1))
		}
		rows[res.idx] = row
	}
	return rows, nil
}

// CategoryCeilings reports a registered category's maxDist/maxK, false when
// the name is unknown.
func (pi *POIIndex) CategoryCeilings(category string) (float64, int, bool) {
	cat, ok := pi.categories.Load(category)
	if !ok {
		return 0, 0, false
	}
	return cat.maxDist, cat.maxK, true
}
