package datastructure

import (
	"math"

	"github.com/lintang-b-s/accessx/pkg/util"
)

// Entry is a handle into a FibonacciHeap. Holding it allows DecreaseKey
// without a lookup.
type Entry[T any] struct {
	degree   int
	isMarked bool

	next   *Entry[T]
	prev   *Entry[T]
	child  *Entry[T]
	parent *Entry[T]

	elem     T
	priority float64
}

func NewEntry[T any](elem T, priority float64) *Entry[T] {
	e := &Entry[T]{
		elem:     elem,
		priority: priority,
	}
	e.next = e
	e.prev = e

	return e
}

func (e *Entry[T]) GetPriority() float64 {
	return e.priority
}

func (e *Entry[T]) GetElem() T {
	return e.elem
}

// FibonacciHeap is a mergeable min-heap with O(1) amortized Insert and
// DecreaseKey and O(log n) amortized ExtractMin.
// ref: https://www.utsc.utoronto.ca/~atafliovich/cscb63/content/week10/clrs_fibonacci_chapter.pdf
type FibonacciHeap[T any] struct {
	min  *Entry[T]
	size int
}

func NewFibonacciHeap[T any]() *FibonacciHeap[T] {
	return &FibonacciHeap[T]{
		min:  nil,
		size: 0,
	}
}

func (f *FibonacciHeap[T]) GetMin() *Entry[T] {
	return f.min
}

// GetMinRank returns the smallest priority, math.MaxFloat64 on an empty heap.
func (f *FibonacciHeap[T]) GetMinRank() float64 {
	if f.min == nil {
		return math.MaxFloat64
	}
	return f.min.priority
}

func (f *FibonacciHeap[T]) Size() int {
	return f.size
}

// Insert adds a new entry and returns its handle. O(1) amortized.
func (f *FibonacciHeap[T]) Insert(value T, priority float64) *Entry[T] {
	result := NewEntry(value, priority)

	f.min = f.meldLists(f.min, result)
	f.size++

	return result
}

// meldLists splices two circular root lists together and returns the entry
// with the smaller priority.
func (f *FibonacciHeap[T]) meldLists(one *Entry[T], two *Entry[T]) *Entry[T] {
	if one == nil && two == nil {
		return nil
	} else if one != nil && two == nil {
		return one
	} else if one == nil && two != nil {
		return two
	}

	oneNext := one.next
	one.next = two.next
	one.next.prev = one
	two.next = oneNext
	two.next.prev = two

	if one.priority < two.priority {
		return one
	}
	return two
}

// DecreaseKey lowers the priority of entry to newPriority. The cascading
// cuts keep the amortized cost at O(1).
func (f *FibonacciHeap[T]) DecreaseKey(entry *Entry[T], newPriority float64) {
	util.AssertPanic(newPriority <= entry.priority, "new priority must be less or equal than old priority")

	entry.priority = newPriority

	if entry.parent != nil && entry.priority <= entry.parent.priority {
		// heap order violated, cut the node from its parent
		f.cutNode(entry)
	}

	if entry.priority < f.min.priority {
		f.min = entry
	}
}

func (f *FibonacciHeap[T]) cutNode(entry *Entry[T]) {
	entry.isMarked = false

	if entry.parent == nil {
		return
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
		entry.prev.next = entry.next
	}

	if entry.parent.child == entry {
		// drop entry from its parent's child list
		if entry.next != entry {
			entry.parent.child = entry.next
		} else {
			entry.parent.child = nil
		}
	}

	entry.parent.degree--

	entry.prev = entry
	entry.next = entry

	f.min = f.meldLists(f.min, entry)

	// cascading cut: a marked parent loses a second child and gets cut too
	if entry.parent.isMarked {
		f.cutNode(entry.parent)
	} else {
		entry.parent.isMarked = true
	}

	entry.parent = nil
}

// ExtractMin removes and returns the minimum entry. O(log n) amortized, the
// consolidation bounds the root list by the maximum degree.
func (f *FibonacciHeap[T]) ExtractMin() *Entry[T] {
	util.AssertPanic(f.min != nil, "heap is empty")

	f.size--

	minElem := f.min

	if f.min.next == f.min {
		f.min = nil
	} else {
		f.min.prev.next = f.min.next
		f.min.next.prev = f.min.prev
		f.min = f.min.next
	}

	if minElem.child != nil {
		// orphan the children of the extracted entry
		start := minElem.child

		curr := minElem.child
		for {
			curr.parent = nil
			curr = curr.next
			if curr == start {
				break
			}
		}
	}

	f.min = f.meldLists(f.min, minElem.child)

	if f.min == nil {
		return minElem
	}

	// consolidate: merge roots until every degree appears at most once
	treeTable := make([]*Entry[T], 0)

	toVisit := make([]*Entry[T], 0)
	for curr := f.min; len(toVisit) == 0 || toVisit[0] != curr; curr = curr.next {
		toVisit = append(toVisit, curr)
	}

	for _, curr := range toVisit {
		for {
			for curr.degree >= len(treeTable) {
				treeTable = append(treeTable, nil)
			}

			if treeTable[curr.degree] == nil {
				treeTable[curr.degree] = curr
				break
			}

			other := treeTable[curr.degree]
			treeTable[curr.degree] = nil

			// the larger-priority root becomes the child of the smaller
			var (
				min, max *Entry[T]
			)

			if other.priority < curr.priority {
				min, max = other, curr
			} else {
				min, max = curr, other
			}

			max.next.prev = max.prev
			max.prev.next = max.next

			max.next = max
			max.prev = max
			min.child = f.meldLists(min.child, max)

			max.parent = min
			max.isMarked = false
			min.degree++

			curr = min
		}

		if curr.priority <= f.min.priority {
			f.min = curr
		}
	}

	return minElem
}
