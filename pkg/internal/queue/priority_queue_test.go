package queue

import "testing"

func TestPriorityQueue_Order(t *testing.T) {
	pq := NewPriorityQueue()
	pq.Push("low", 1)
	pq.Push("high-a", 5)
	pq.Push("mid", 3)
	pq.Push("high-b", 5)

	if pq.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", pq.Len())
	}
	if top := pq.Peek(); top == nil || top.Value != "high-a" {
		t.Errorf("Peek() = %v, want high-a", top)
	}

	want := []string{"high-a", "high-b", "mid", "low"}
	got := pq.Drain()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if pq.Pop() != nil {
		t.Errorf("Pop() on empty queue returned a value")
	}
}

func TestPriorityQueue_Clear(t *testing.T) {
	pq := NewPriorityQueue()
	pq.Push(1, 1)
	pq.Clear()
	if pq.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", pq.Len())
	}
}

func TestPriorityQueue_PushWithSeq(t *testing.T) {
	pq := NewPriorityQueue()
	pq.PushWithSeq("b", 0, 1)
	pq.PushWithSeq("a", 0, 0)
	pq.PushWithSeq("top", 2, 9)

	want := []string{"top", "a", "b"}
	got := pq.Drain()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
