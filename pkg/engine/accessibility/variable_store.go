package accessibility

import (
	"github.com/lintang-b-s/accessx/pkg/server"

	"github.com/puzpuzpuz/xsync/v3"
)

// VariableStore maps category name → node → attached numeric values, the
// source data for aggregation. A node may carry several values in one
// category (co-located records).
type VariableStore struct {
	gs         *GraphSet
	categories *xsync.MapOf[string, map[int32][]float64]
}

func NewVariableStore(gs *GraphSet) *VariableStore {
	return &VariableStore{
		gs:         gs,
		categories: xsync.NewMapOf[string, map[int32][]float64](),
	}
}

// RegisterVariable attaches values[i] to nodes[i]; repeated nodes append.
// All nodes are validated before anything is stored, so an invalid node
// aborts the registration whole. Re-registering a name overwrites it.
// Single-writer setup phase.
func (vs *VariableStore) RegisterVariable(name string, nodes []int32, values []float64) error {
	if len(nodes) != len(values) {
		return server.NewErrorf(server.ErrBadParamInput,
			"category %q: %d nodes but %d values", name, len(nodes), len(values))
	}
	for _, node := range nodes {
		if err := vs.gs.validateNode(node); err != nil {
			return server.WrapErrorf(err, server.ErrInvalidNode,
				"registering variable category %q", name)
		}
	}

	byNode := make(map[int32][]float64)
	for i, node := range nodes {
		byNode[node] = append(byNode[node], values[i])
	}
	vs.categories.Store(name, byNode)
	return nil
}

func (vs *VariableStore) Has(name string) bool {
	_, ok := vs.categories.Load(name)
	return ok
}

// valuesAt returns the values attached to node in a category, nil when the
// category or node has none.
func (vs *VariableStore) valuesAt(name string, node int32) []float64 {
	byNode, ok := vs.categories.Load(name)
	if !ok {
		return nil
	}
	return byNode[node]
}
