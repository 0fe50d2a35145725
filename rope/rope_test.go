// rope_test.go
//
// Copyright (c) 2025 AGILira
// SPDX-License-Identifier: MPL-2.0
package rope

import (
	"sync"
	"testing"

	"github.com/agilira/cella"
)

func TestAppendGetRoundTrip(t *testing.T) {
	r := New[string]()

	idx, err := r.Append("hello")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := r.Get(idx, RequireSet)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hello" {
		t.Fatalf("Get returned %q, want %q", got, "hello")
	}
}

func TestAddrIndexOfRoundTrip(t *testing.T) {
	r := New[int]()
	idx, err := r.Append(42)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	addr, err := r.Addr(idx)
	if err != nil {
		t.Fatalf("Addr: %v", err)
	}

	got, ok := r.IndexOf(addr)
	if !ok || got != idx {
		t.Fatalf("IndexOf(Addr(%d)) = (%d, %v), want (%d, true)", idx, got, ok, idx)
	}
}

func TestGetRequireSetBeyondPrefix(t *testing.T) {
	r := New[int]()
	if _, err := r.Get(0, RequireSet); !cella.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound on empty rope, got %v", err)
	}
}

func TestGetForceMaterialize(t *testing.T) {
	r := New[int]()
	v, err := r.Get(10, ForceMaterialize)
	if err != nil {
		t.Fatalf("Get(ForceMaterialize): %v", err)
	}
	if v != 0 {
		t.Fatalf("materialized slot should read as the zero value, got %d", v)
	}
	if r.Len() < 11 {
		t.Fatalf("ForceMaterialize should extend the in-use prefix past 10, Len=%d", r.Len())
	}
}

func TestIterateAscendingDense(t *testing.T) {
	r := New[int]()
	const n = 200
	for i := 0; i < n; i++ {
		if _, err := r.Append(i); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	next := 0
	r.Iterate(func(index int, value int) {
		if index != next {
			t.Fatalf("Iterate index out of order: got %d, want %d", index, next)
		}
		if value != index {
			t.Fatalf("Iterate value mismatch at %d: got %d", index, value)
		}
		next++
	})
	if next != n {
		t.Fatalf("Iterate visited %d elements, want %d", next, n)
	}
}

// TestConcurrentAppendExactlyOnceGrowth matches spec §8 scenario 6: many
// goroutines append concurrently; the result must be dense, duplicate-free,
// and cover exactly the expected range, regardless of how many chunk
// growth races happened along the way.
func TestConcurrentAppendExactlyOnceGrowth(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}

	const goroutines = 64
	const perGoroutine = 10000
	const total = goroutines * perGoroutine

	r := New[int]()
	indices := make(chan int, total)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				idx, err := r.Append(g*perGoroutine + i)
				if err != nil {
					t.Errorf("Append: %v", err)
					return
				}
				indices <- idx
			}
		}()
	}
	wg.Wait()
	close(indices)

	seen := make([]bool, total)
	count := 0
	for idx := range indices {
		if idx < 0 || idx >= total {
			t.Fatalf("index %d out of expected dense range [0,%d)", idx, total)
		}
		if seen[idx] {
			t.Fatalf("duplicate index %d produced by concurrent Append", idx)
		}
		seen[idx] = true
		count++
	}
	if count != total {
		t.Fatalf("got %d appends, want %d", count, total)
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("index %d never produced: dense range has a hole", i)
		}
	}
	if r.Len() != total {
		t.Fatalf("Rope.Len() = %d, want %d", r.Len(), total)
	}
}

func TestDestroyThenEmptyLen(t *testing.T) {
	r := New[int]()
	_, _ = r.Append(1)
	_, _ = r.Append(2)
	r.Destroy()
	// Post-Destroy use is out of contract (caller must guarantee
	// quiescence); we only assert Destroy itself doesn't panic and
	// drops the chunk chain.
}
