package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -3} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, pool.Workers(), runtime.GOMAXPROCS(0))
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	ran := false
	pool.ExecuteAll([]func(){func() { ran = true }})
	if !ran {
		t.Error("ExecuteAll after Close did not run work inline")
	}
}

func TestWorkerPool_BandsCoverRange(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	for _, n := range []int{1, 5, 6, 7, 64, 1000} {
		var mu sync.Mutex
		seen := make([]int, n)
		pool.Bands(n, func(lo, hi int) {
			mu.Lock()
			defer mu.Unlock()
			for i := lo; i < hi; i++ {
				seen[i]++
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Errorf("n=%d: index %d visited %d times, want 1", n, i, c)
			}
		}
	}
}

func TestWorkerPool_BandsZero(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	pool.Bands(0, func(_, _ int) { t.Error("fn called for empty range") })
}
