package datastructure_test

import (
	"math"
	"testing"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func randomInteger(min int, max int) int {
	return min + rand.Intn(max-min)
}

type heapItem struct {
}

func TestFibonacciHeapInsertExtractMin(t *testing.T) {
	pq := datastructure.NewFibonacciHeap[*heapItem]()
	if pq == nil {
		t.Errorf("PriorityQueue is nil")
	}

	min := math.MaxFloat64
	for i := 0; i < 10000; i++ {
		item := &heapItem{}
		priority := float64(randomInteger(0, 10000))
		if priority < min {
			min = priority
		}
		pq.Insert(item, priority)

		assert.Equal(t, min, pq.GetMin().GetPriority())
	}

	prevItem := pq.ExtractMin()

	for i := 1; i < 10000; i++ {

		item := pq.ExtractMin()

		if prevItem.GetPriority() > item.GetPriority() {
			t.Errorf("PriorityQueue is not sorted")
		}
		prevItem = item
	}
}

func TestFibonacciHeapInsertDecreaseKey(t *testing.T) {
	pq := datastructure.NewFibonacciHeap[*heapItem]()
	if pq == nil {
		t.Errorf("PriorityQueue is nil")
	}

	entries := make([]*datastructure.Entry[*heapItem], 10000)
	min := math.MaxFloat64
	for i := 0; i < 10000; i++ {
		item := &heapItem{}
		priority := float64(randomInteger(1000, 10000000))
		if priority < min {
			min = priority
		}
		curr := pq.Insert(item, priority)

		assert.Equal(t, min, pq.GetMin().GetPriority())
		entries[i] = curr
	}

	for i := 0; i < 10000; i++ {
		pq.DecreaseKey(entries[i], float64(randomInteger(0, int(entries[i].GetPriority()))))
	}

	prevItem := pq.ExtractMin()

	for i := 1; i < 10000; i++ {

		item := pq.ExtractMin()

		if prevItem.GetPriority() > item.GetPriority() {
			t.Errorf("PriorityQueue is not sorted")
		}
		prevItem = item
	}
}

func TestFibonacciHeapGetMinRankEmpty(t *testing.T) {
	pq := datastructure.NewFibonacciHeap[*heapItem]()

	assert.Equal(t, math.MaxFloat64, pq.GetMinRank())
	assert.Equal(t, 0, pq.Size())
}
