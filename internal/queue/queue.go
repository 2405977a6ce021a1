// Package queue provides the in-process priority queue feeding the export workers.
// Ordering is (priority ascending, created_at ascending, submission order); a
// bounded capacity rejects new work instead of blocking producers.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

type item struct {
	requestID string
	priority  int
	createdAt time.Time
	seq       uint64
	index     int
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	if !h[i].createdAt.Equal(h[j].createdAt) {
		return h[i].createdAt.Before(h[j].createdAt)
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// PriorityQueue is safe for concurrent producers and consumers.
type PriorityQueue struct {
	mu       sync.Mutex
	items    itemHeap
	byID     map[string]*item
	capacity int
	seq      uint64
	wake     chan struct{}
}

// New returns a queue holding at most capacity entries; capacity <= 0 means unbounded.
func New(capacity int) *PriorityQueue {
	return &PriorityQueue{
		byID:     make(map[string]*item),
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue admits one request. It never blocks; a full queue returns
// domain.ErrQueueFull and the caller decides whether to retry.
func (q *PriorityQueue) Enqueue(requestID string, priority int, createdAt time.Time) error {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return domain.ErrQueueFull
	}
	if _, exists := q.byID[requestID]; exists {
		q.mu.Unlock()
		return domain.ErrConflict
	}
	q.seq++
	it := &item{requestID: requestID, priority: priority, createdAt: createdAt, seq: q.seq}
	heap.Push(&q.items, it)
	q.byID[requestID] = it
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue pops the highest-priority request, waiting up to wait for one to
// arrive. The bounded wait lets worker loops observe shutdown; ok is false on
// timeout or context cancellation.
func (q *PriorityQueue) Dequeue(ctx context.Context, wait time.Duration) (requestID string, ok bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := heap.Pop(&q.items).(*item)
			delete(q.byID, it.requestID)
			q.mu.Unlock()
			return it.requestID, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-timer.C:
			return "", false
		case <-q.wake:
		}
	}
}

// Remove deletes a still-queued request. It reports false when the request has
// already been dequeued (or was never queued), in which case cancellation must
// go through the running worker's flag instead.
func (q *PriorityQueue) Remove(requestID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.byID[requestID]
	if !ok {
		return false
	}
	heap.Remove(&q.items, it.index)
	delete(q.byID, requestID)
	return true
}

// Len reports the number of queued requests.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
