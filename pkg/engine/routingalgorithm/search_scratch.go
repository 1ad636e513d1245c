package routingalgorithm

import "math"

// distArray is a reusable tentative-distance table. Entries are stamped
// with an epoch instead of being cleared, so reset is O(1) between queries.
type distArray struct {
	dist    []float64
	stamp   []uint32
	epoch   uint32
	touched []int32
}

func newDistArray(n int) *distArray {
	return &distArray{
		dist:    make([]float64, n),
		stamp:   make([]uint32, n),
		epoch:   0,
		touched: make([]int32, 0, 64),
	}
}

func (d *distArray) reset() {
	d.epoch++
	d.touched = d.touched[:0]
	if d.epoch == 0 {
		// stamp wrapped around, invalidate everything the slow way
		for i := range d.stamp {
			d.stamp[i] = 0
		}
		d.epoch = 1
	}
}

func (d *distArray) get(node int32) float64 {
	if d.stamp[node] != d.epoch {
		return math.Inf(1)
	}
	return d.dist[node]
}

func (d *distArray) set(node int32, v float64) {
	if d.stamp[node] != d.epoch {
		d.stamp[node] = d.epoch
		d.touched = append(d.touched, node)
	}
	d.dist[node] = v
}

type flagArray struct {
	stamp []uint32
	epoch uint32
}

func newFlagArray(n int) *flagArray {
	return &flagArray{
		stamp: make([]uint32, n),
		epoch: 0,
	}
}

func (f *flagArray) reset() {
	f.epoch++
	if f.epoch == 0 {
		for i := range f.stamp {
			f.stamp[i] = 0
		}
		f.epoch = 1
	}
}

func (f *flagArray) mark(node int32) {
	f.stamp[node] = f.epoch
}

func (f *flagArray) isMarked(node int32) bool {
	return f.stamp[node] == f.epoch
}

// searchScratch is the per-worker-slot query state. Every query addresses
// its slot explicitly; two concurrent queries must never share one slot.
type searchScratch struct {
	df *distArray
	db *distArray
	vf *flagArray
	vb *flagArray
}

func newSearchScratch(n int) *searchScratch {
	return &searchScratch{
		df: newDistArray(n),
		db: newDistArray(n),
		vf: newFlagArray(n),
		vb: newFlagArray(n),
	}
}
