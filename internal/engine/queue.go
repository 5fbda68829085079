package engine

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/feedhawk/feedhawk/internal/types"
)

// workItem is the queue's sum type: exactly one of Request or Result is set
// (spec §4.4 "Work queue": "carrying two variant payloads").
type workItem struct {
	request *types.Request
	result  *types.CallbackResult
	priority int
	index    int
}

// priority mirrors the teacher's Frontier heap ordering: seed Requests are
// PriorityHighest so they dequeue ahead of discovered candidates. Nothing
// in the spec forbids priority ordering within the FIFO contract, since
// "global ordering across producers is unspecified" (spec §5).
func requestItem(req *types.Request) *workItem {
	return &workItem{request: req, priority: req.Priority}
}

func resultItem(res *types.CallbackResult) *workItem {
	return &workItem{result: res, priority: types.PriorityNormal}
}

// WorkQueue is the engine's single mutex-guarded priority work queue,
// generalizing the teacher's Frontier from a queue of *Request into a queue
// of workItem (spec §4.4). Items dequeue by ascending priority value only;
// items of equal priority have no defined relative order, so insertion
// order is not preserved among them.
type WorkQueue struct {
	mu     sync.Mutex
	pq     workHeap
	closed bool
	notify chan struct{}

	// pending counts items pushed but not yet marked Done. It reaches zero
	// only once every pushed item has been popped and fully processed,
	// including any further items that processing itself pushed — that is
	// the queue's actual drain signal, not mere momentary emptiness.
	pending sync.WaitGroup
}

// NewWorkQueue creates an empty WorkQueue.
func NewWorkQueue() *WorkQueue {
	q := &WorkQueue{pq: make(workHeap, 0, 256), notify: make(chan struct{}, 1)}
	heap.Init(&q.pq)
	return q
}

func (q *WorkQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// PushRequest enqueues a Request.
func (q *WorkQueue) PushRequest(req *types.Request) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	heap.Push(&q.pq, requestItem(req))
	q.pending.Add(1)
	q.mu.Unlock()
	q.signal()
}

// PushResult enqueues a CallbackResult for re-dispatch.
func (q *WorkQueue) PushResult(res *types.CallbackResult) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	heap.Push(&q.pq, resultItem(res))
	q.pending.Add(1)
	q.mu.Unlock()
	q.signal()
}

// Done marks one previously popped item as fully processed — including any
// further items its processing pushed back onto the queue. Callers must
// call Done exactly once per successful Pop.
func (q *WorkQueue) Done() {
	q.pending.Done()
}

// Wait blocks until every pushed item has been marked Done: the queue is
// empty and no worker is still acting on a popped item (spec §4.4
// "Termination").
func (q *WorkQueue) Wait() {
	q.pending.Wait()
}

// Pop blocks until an item is available, the queue closes, or ctx is
// cancelled. It returns ok=false when there is no more work to do.
func (q *WorkQueue) Pop(ctx context.Context) (item *workItem, ok bool) {
	for {
		q.mu.Lock()
		if q.pq.Len() > 0 {
			it := heap.Pop(&q.pq).(*workItem)
			q.mu.Unlock()
			return it, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-q.notify:
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Len reports the number of queued items.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Len()
}

// Close marks the queue closed; blocked Pop calls return ok=false once it
// drains.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// --- heap.Interface plumbing ---

type workHeap []*workItem

func (h workHeap) Len() int            { return len(h) }
func (h workHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h workHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *workHeap) Push(x any) {
	item := x.(*workItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *workHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
