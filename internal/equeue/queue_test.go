package equeue

import (
	"context"
	"testing"
	"time"
)

func TestPostGetFIFOOrder(t *testing.T) {
	q := New[int](4)
	q.Post(1)
	q.Post(2)
	q.Post(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.Get()
		if !ok || got != want {
			t.Fatalf("Get() = %d, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := q.Get(); ok {
		t.Fatal("expected empty queue after draining all posted events")
	}
}

func TestPostLIFOJumpsAheadOfRing(t *testing.T) {
	q := New[int](4)
	q.Post(1)
	q.Post(2)
	q.PostLIFO(99)

	got, ok := q.Get()
	if !ok || got != 99 {
		t.Fatalf("Get() = %d, %v; want 99, true (LIFO event first)", got, ok)
	}
	got, ok = q.Get()
	if !ok || got != 1 {
		t.Fatalf("Get() = %d, %v; want 1, true (original order resumes)", got, ok)
	}
	got, ok = q.Get()
	if !ok || got != 2 {
		t.Fatalf("Get() = %d, %v; want 2, true", got, ok)
	}
}

func TestPostOntoEmptyQueueUsesFrontSlot(t *testing.T) {
	q := New[int](0)
	if !q.Post(42) {
		t.Fatal("expected Post to succeed into the front slot of a zero-capacity ring")
	}
	got, ok := q.Get()
	if !ok || got != 42 {
		t.Fatalf("Get() = %d, %v; want 42, true", got, ok)
	}
}

func TestPostFailsWhenRingFull(t *testing.T) {
	q := New[int](2)
	q.Post(1) // goes to front slot
	if !q.Post(2) {
		t.Fatal("expected first ring post to succeed")
	}
	if !q.Post(3) {
		t.Fatal("expected second ring post to succeed")
	}
	if q.Post(4) {
		t.Fatal("expected Post to fail once ring capacity is exhausted")
	}
}

func TestWaitBlocksUntilPost(t *testing.T) {
	q := New[int](2)
	result := make(chan int, 1)
	go func() {
		v, ok := q.Wait(context.Background())
		if ok {
			result <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Post(7)

	select {
	case v := <-result:
		if v != 7 {
			t.Fatalf("Wait() = %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not unblock after Post")
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	q := New[int](2)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Wait(ctx)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected Wait to return ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after context cancellation")
	}
}

func TestCloseUnblocksWaiters(t *testing.T) {
	q := New[int](2)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Wait(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected Wait to report ok=false on a closed, empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Close")
	}
}

func TestLenCountsFrontAndRing(t *testing.T) {
	q := New[int](4)
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
	q.Post(1)
	q.Post(2)
	q.Post(3)
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
}

func TestWaitNonEmptyDoesNotConsume(t *testing.T) {
	q := New[int](2)
	done := make(chan bool, 1)
	go func() {
		done <- q.WaitNonEmpty(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	q.Post(5)

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected WaitNonEmpty to report true after Post")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitNonEmpty did not unblock after Post")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (WaitNonEmpty must not dequeue)", q.Len())
	}
}

func TestMinFreeLowWaterMark(t *testing.T) {
	q := New[int](3)
	q.Post(1)
	q.Post(2)
	q.Post(3)
	q.Post(4)

	if q.MinFree() != 0 {
		t.Fatalf("MinFree() = %d, want 0", q.MinFree())
	}
}
