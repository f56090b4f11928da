package queue

import (
	"container/heap"
	"sync"
)

// Item represents a priority queue item
type Item struct {
	Value    interface{} // The queued value
	Priority int         // Priority (higher = more important)
	Seq      int         // Insertion order, breaks priority ties
	Index    int         // Index in the heap
}

// PriorityQueue pops the highest priority first; equal priorities pop in
// insertion order.
type PriorityQueue struct {
	items itemHeap
	seq   int
	mu    sync.Mutex
}

// NewPriorityQueue creates a new priority queue
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{
		items: make(itemHeap, 0),
	}
	heap.Init(&pq.items)
	return pq
}

// Push adds an item to the queue
func (pq *PriorityQueue) Push(value interface{}, priority int) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	item := &Item{
		Value:    value,
		Priority: priority,
		Seq:      pq.seq,
	}
	pq.seq++
	heap.Push(&pq.items, item)
}

// PushWithSeq adds an item with an explicit tie-break order
func (pq *PriorityQueue) PushWithSeq(value interface{}, priority, seq int) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	heap.Push(&pq.items, &Item{
		Value:    value,
		Priority: priority,
		Seq:      seq,
	})
}

// Pop removes and returns the highest priority value
func (pq *PriorityQueue) Pop() interface{} {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.items.Len() == 0 {
		return nil
	}

	item := heap.Pop(&pq.items).(*Item)
	return item.Value
}

// Peek returns the highest priority item without removing it
func (pq *PriorityQueue) Peek() *Item {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.items.Len() == 0 {
		return nil
	}

	return pq.items[0]
}

// Drain removes every value, highest priority first
func (pq *PriorityQueue) Drain() []interface{} {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	out := make([]interface{}, 0, pq.items.Len())
	for pq.items.Len() > 0 {
		out = append(out, heap.Pop(&pq.items).(*Item).Value)
	}
	return out
}

// Len returns the number of items in the queue
func (pq *PriorityQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// Clear removes all items
func (pq *PriorityQueue) Clear() {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.items = make(itemHeap, 0)
	pq.seq = 0
	heap.Init(&pq.items)
}

// itemHeap implements heap.Interface
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Seq < h[j].Seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Index = i
	h[j].Index = j
}

func (h *itemHeap) Push(x interface{}) {
	item := x.(*Item)
	item.Index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*h = old[0 : n-1]
	return item
}
