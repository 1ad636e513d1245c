package kv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/dgraph-io/badger/v4"
	"github.com/uber/h3-go/v4"
)

var (
	ErrNodesNotFound = errors.New("no graph nodes found near point")
)

const (
	cellResolution = 9
	writeBatchSize = 1000
	maxGridDiskLev = 10
)

// NodeIndex is the persistent spatial index over the graph's node table:
// node records bucketed by h3 cell, written once during preprocessing,
// queried by the service to snap query coordinates onto graph nodes.
type NodeIndex struct {
	db *badger.DB
}

func NewNodeIndex(db *badger.DB) *NodeIndex {
	return &NodeIndex{db}
}

// BuildH3IndexedNodes buckets every node under its res-9 h3 cell and writes
// the buckets in batches.
func (ni *NodeIndex) BuildH3IndexedNodes(ctx context.Context, nodes []datastructure.CHNode) error {
	log.Printf("creating & saving h3 indexed nodes to key-value db...")

	buckets := make(map[string][]datastructure.KVNode)
	for i := range nodes {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}

		node := nodes[i]
		cell := h3.LatLngToCell(h3.NewLatLng(node.Lat, node.Lon), cellResolution)
		buckets[cell.String()] = append(buckets[cell.String()],
			datastructure.NewKVNode(node.ID, node.Lat, node.Lon))
	}

	batches := make([]batchData, 0, writeBatchSize)
	for key, value := range buckets {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}

		batches = append(batches, batchData{
			key:   key,
			value: value,
		})
		if len(batches) == writeBatchSize {
			if err := ni.saveBatchNodes(ctx, batches); err != nil {
				return err
			}
			batches = make([]batchData, 0, writeBatchSize)
		}
	}

	if len(batches) > 0 {
		if err := ni.saveBatchNodes(ctx, batches); err != nil {
			return err
		}
	}

	log.Printf("creating & saving h3 indexed nodes to key-value db done...")
	return nil
}

type batchData struct {
	key   string
	value []datastructure.KVNode
}

func (ni *NodeIndex) saveBatchNodes(ctx context.Context, batchData []batchData) error {
	batch := ni.db.NewWriteBatch()
	defer batch.Cancel()

	for _, data := range batchData {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}

		val, err := encodeNodes(data.value)
		if err != nil {
			return err
		}

		if err := batch.Set([]byte(data.key), val); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		log.Printf("error saving node buckets: %v", err)
		return err
	}
	return nil
}

func (ni *NodeIndex) get(key []byte) ([]byte, error) {
	var val []byte
	err := ni.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

func (ni *NodeIndex) readCell(cell h3.Cell) ([]datastructure.KVNode, error) {
	val, err := ni.get([]byte(cell.String()))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeNodes(val)
}

// NearestNodeCandidates returns the nodes bucketed near a coordinate: the
// point's own cell first, then an area-scaled ring of neighbors, then
// GridDisk rings expanding up to ten levels. The caller picks the closest
// candidate by real distance.
func (ni *NodeIndex) NearestNodeCandidates(lat, lon float64) ([]datastructure.KVNode, error) {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), cellResolution)

	candidates, err := ni.readCell(cell)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		for _, currCell := range kRingIndexesArea(lat, lon, 1) {
			if currCell == cell {
				continue
			}
			nodes, err := ni.readCell(currCell)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, nodes...)
		}
	}

	for lev := 1; lev <= maxGridDiskLev && len(candidates) == 0; lev++ {
		cells := h3.GridDisk(cell, lev)
		for _, currCell := range cells {
			if currCell == cell {
				continue
			}
			nodes, err := ni.readCell(currCell)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, nodes...)
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNodesNotFound
	}
	return candidates, nil
}

// kRingIndexesArea returns the GridDisk whose area covers a circle of the
// given search radius around the point.
func kRingIndexesArea(lat, lon, searchRadiusKm float64) []h3.Cell {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), cellResolution)
	originArea := h3.CellAreaKm2(origin)
	searchArea := math.Pi * searchRadiusKm * searchRadiusKm

	radius := 0
	diskArea := originArea

	for diskArea < searchArea {
		radius++
		cellCount := float64(3*radius*(radius+1) + 1)
		diskArea = cellCount * originArea
	}

	return h3.GridDisk(origin, radius)
}

func (ni *NodeIndex) Close() {
	ni.db.Close()
}
