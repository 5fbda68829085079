package engine

import (
	"context"
	"testing"
	"time"

	"github.com/feedhawk/feedhawk/internal/types"
)

func TestWorkQueuePushPop(t *testing.T) {
	q := NewWorkQueue()
	req, _ := types.NewRequest("https://example.com", nil)
	q.PushRequest(req)

	if q.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", q.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	item, ok := q.Pop(ctx)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if item.request != req {
		t.Error("expected popped item to be the pushed request")
	}
}

func TestWorkQueuePriorityOrdering(t *testing.T) {
	q := NewWorkQueue()
	low, _ := types.NewRequest("https://example.com/low", nil)
	low.Priority = types.PriorityLow
	high, _ := types.NewRequest("https://example.com/high", nil)
	high.Priority = types.PriorityHighest

	q.PushRequest(low)
	q.PushRequest(high)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, _ := q.Pop(ctx)
	if first.request != high {
		t.Error("expected the PriorityHighest request to dequeue first")
	}
}

func TestWorkQueueCloseDrains(t *testing.T) {
	q := NewWorkQueue()
	req, _ := types.NewRequest("https://example.com", nil)
	q.PushRequest(req)
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, ok := q.Pop(ctx); !ok {
		t.Fatal("expected the queued item to still drain after Close")
	}
	if _, ok := q.Pop(ctx); ok {
		t.Fatal("expected ok=false once drained and closed")
	}
}

func TestWorkQueuePopRespectsContextCancellation(t *testing.T) {
	q := NewWorkQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Pop(ctx); ok {
		t.Fatal("expected ok=false on an already-cancelled context")
	}
}

func TestWorkQueueWaitBlocksUntilInFlightItemIsDone(t *testing.T) {
	q := NewWorkQueue()
	req, _ := types.NewRequest("https://example.com", nil)
	q.PushRequest(req)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, ok := q.Pop(ctx); !ok {
		t.Fatal("expected ok=true")
	}

	waitReturned := make(chan struct{})
	go func() {
		q.Wait()
		close(waitReturned)
	}()

	select {
	case <-waitReturned:
		t.Fatal("Wait returned before the in-flight item was marked Done")
	case <-time.After(50 * time.Millisecond):
	}

	q.Done()

	select {
	case <-waitReturned:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Done")
	}
}

func TestWorkQueueWaitCountsItemsPushedDuringProcessing(t *testing.T) {
	q := NewWorkQueue()
	req, _ := types.NewRequest("https://example.com", nil)
	q.PushRequest(req)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	item, ok := q.Pop(ctx)
	if !ok {
		t.Fatal("expected ok=true")
	}

	// Processing the popped item produces a further item before it is
	// marked Done — Wait must not fire between the push and the Done call.
	followUp, _ := types.NewRequest("https://example.com/follow-up", nil)
	q.PushRequest(followUp)
	q.Done()

	waitReturned := make(chan struct{})
	go func() {
		q.Wait()
		close(waitReturned)
	}()

	select {
	case <-waitReturned:
		t.Fatal("Wait returned while the follow-up item was still unprocessed")
	case <-time.After(50 * time.Millisecond):
	}

	if _, ok := q.Pop(ctx); !ok {
		t.Fatal("expected the follow-up item to be popped")
	}
	_ = item
	q.Done()

	select {
	case <-waitReturned:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the follow-up item was done")
	}
}
