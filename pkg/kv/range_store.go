package kv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/cockroachdb/pebble"
)

var (
	ErrNoRangeSnapshot = errors.New("no range snapshot stored for variant")
)

const (
	rangeKeyPrefix = 'r'
	metaKeyPrefix  = 'm'

	rangeStoreBatchSize = 1000
)

// RangeStore persists precomputed reachable sets so the serve binary can
// warm the range cache without the O(N) recompute. One snapshot per variant;
// the meta record is written last, so a snapshot without meta is invisible
// and a partial write can never be loaded.
type RangeStore struct {
	db *pebble.DB
}

func NewRangeStore(db *pebble.DB) *RangeStore {
	return &RangeStore{db}
}

// rangeKey is r | variant | radius-bits | node, big-endian so one
// (variant, radius) snapshot is a contiguous key range.
func rangeKey(variant int, radius float64, node int32) []byte {
	key := make([]byte, 14)
	key[0] = rangeKeyPrefix
	key[1] = byte(variant)
	binary.BigEndian.PutUint64(key[2:], math.Float64bits(radius))
	binary.BigEndian.PutUint32(key[10:], uint32(node))
	return key
}

func rangeKeyBounds(variant int, radius float64) ([]byte, []byte) {
	lower := rangeKey(variant, radius, 0)[:10]
	upper := make([]byte, 10)
	copy(upper, lower)
	for i := 9; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			break
		}
	}
	return lower, upper
}

func metaKey(variant int) []byte {
	return []byte{metaKeyPrefix, byte(variant)}
}

// SaveSnapshot writes every node's reachable set for one (variant, radius)
// pair, batched, meta record last.
func (rs *RangeStore) SaveSnapshot(variant int, radius float64, sets [][]datastructure.ReachedNode) error {
	batch := rs.db.NewBatch()
	pending := 0
	for node, set := range sets {
		val, err := encodeReached(set)
		if err != nil {
			return err
		}
		if err := batch.Set(rangeKey(variant, radius, int32(node)), val, nil); err != nil {
			return err
		}
		pending++
		if pending == rangeStoreBatchSize {
			if err := batch.Commit(pebble.Sync); err != nil {
				return err
			}
			batch = rs.db.NewBatch()
			pending = 0
		}
	}

	meta := make([]byte, 12)
	binary.BigEndian.PutUint64(meta, math.Float64bits(radius))
	binary.BigEndian.PutUint32(meta[8:], uint32(len(sets)))
	if err := batch.Set(metaKey(variant), meta, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// LoadSnapshot reads the variant's stored snapshot whole. It fails rather
// than return partial data: every node of the recorded count must be present
// before the result is handed to the cache.
func (rs *RangeStore) LoadSnapshot(variant int, numNodes int) (float64, [][]datastructure.ReachedNode, error) {
	metaVal, closer, err := rs.db.Get(metaKey(variant))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil, ErrNoRangeSnapshot
	}
	if err != nil {
		return 0, nil, err
	}
	radius := math.Float64frombits(binary.BigEndian.Uint64(metaVal))
	storedNodes := int(binary.BigEndian.Uint32(metaVal[8:]))
	closer.Close()

	if storedNodes != numNodes {
		return 0, nil, fmt.Errorf("range snapshot covers %d nodes, graph has %d", storedNodes, numNodes)
	}

	lower, upper := rangeKeyBounds(variant, radius)
	iter, err := rs.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return 0, nil, err
	}
	defer iter.Close()

	sets := make([][]datastructure.ReachedNode, numNodes)
	scanned := 0
	for iter.First(); iter.Valid(); iter.Next() {
		node := int(binary.BigEndian.Uint32(iter.Key()[10:]))
		if node >= numNodes {
			return 0, nil, fmt.Errorf("range snapshot holds node %d outside [0,%d)", node, numNodes)
		}
		set, decodeErr := decodeReached(iter.Value())
		if decodeErr != nil {
			return 0, nil, decodeErr
		}
		sets[node] = set
		scanned++
	}
	if err := iter.Error(); err != nil {
		return 0, nil, err
	}
	if scanned != numNodes {
		return 0, nil, fmt.Errorf("range snapshot incomplete: %d of %d nodes", scanned, numNodes)
	}

	return radius, sets, nil
}

func (rs *RangeStore) Close() {
	rs.db.Close()
}
