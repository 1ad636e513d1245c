package concurrent

// IndexedNode ties a node id to its position in the caller's input list so
// parallel results can be written back to the right output slot.
type IndexedNode struct {
	Idx    int
	NodeID int32
}

func NewIndexedNode(idx int, nodeID int32) IndexedNode {
	return IndexedNode{
		Idx:    idx,
		NodeID: nodeID,
	}
}

type JobI interface {
	int32 | IndexedNode
}

type JobFunc[T JobI, G any] func(job T) G

type JobFuncWithWorkerID[T JobI, G any] func(job T, workerID int) G
