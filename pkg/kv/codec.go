package kv

import (
	"github.com/lintang-b-s/accessx/pkg/datastructure"

	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
)

func encodeNodes(nodes []datastructure.KVNode) ([]byte, error) {
	bb, err := binary.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	return zstd.Compress(nil, bb)
}

func decodeNodes(bbCompressed []byte) ([]datastructure.KVNode, error) {
	bb, err := zstd.Decompress(nil, bbCompressed)
	if err != nil {
		return nil, err
	}
	var nodes []datastructure.KVNode
	if err := binary.Unmarshal(bb, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func encodeReached(set []datastructure.ReachedNode) ([]byte, error) {
	bb, err := binary.Marshal(set)
	if err != nil {
		return nil, err
	}
	return zstd.Compress(nil, bb)
}

func decodeReached(bbCompressed []byte) ([]datastructure.ReachedNode, error) {
	bb, err := zstd.Decompress(nil, bbCompressed)
	if err != nil {
		return nil, err
	}
	var set []datastructure.ReachedNode
	if err := binary.Unmarshal(bb, &set); err != nil {
		return nil, err
	}
	return set, nil
}
