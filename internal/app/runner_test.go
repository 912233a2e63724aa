package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunOrderedSequential(t *testing.T) {
	var order []int
	err := RunOrdered(context.Background(), 4, 1, func(ctx context.Context, i int) int {
		return i * 10
	}, func(i int, r int) {
		if r != i*10 {
			t.Fatalf("expected %d, got %d", i*10, r)
		}
		order = append(order, i)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 results, got %d", len(order))
	}
}

func TestRunOrderedParallelPreservesOrder(t *testing.T) {
	var running, peak int32
	var order []int
	err := RunOrdered(context.Background(), 8, 3, func(ctx context.Context, i int) int {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		// Later items finish first.
		time.Sleep(time.Duration(8-i) * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return i
	}, func(i int, r int) {
		order = append(order, r)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected results in index order, got %v", order)
		}
	}
	if len(order) != 8 {
		t.Fatalf("expected 8 results, got %d", len(order))
	}
	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Fatalf("expected at most 3 concurrent calls, got %d", p)
	}
}

func TestRunOrderedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var emitted int
	err := RunOrdered(ctx, 5, 1, func(ctx context.Context, i int) int {
		if i == 1 {
			cancel()
		}
		return i
	}, func(i int, r int) {
		emitted++
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if emitted != 2 {
		t.Fatalf("expected 2 emitted results before cancel, got %d", emitted)
	}
}

func TestRunOrderedEmpty(t *testing.T) {
	called := false
	err := RunOrdered(context.Background(), 0, 4, func(ctx context.Context, i int) int {
		called = true
		return 0
	}, func(int, int) {})
	if err != nil || called {
		t.Fatalf("expected no work for empty input")
	}
}
