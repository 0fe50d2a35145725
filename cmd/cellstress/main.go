// main.go: cellstress, the spec's "test driver" external collaborator
// given an actual runnable body.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library fragment
// SPDX-License-Identifier: MPL-2.0

// Command cellstress runs the end-to-end scenarios from cella's test plan
// as standalone, flag-configurable runs: a single-writer/single-reader
// smoke test, a high-churn many-reader/many-writer stress run, an
// exit-signal drain test, a wait-first latency check, a descriptor-table
// open/close sweep, and a rope concurrent-append growth check. Exit code
// is nonzero if any invariant check fails.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/cella"
	"github.com/agilira/cella/desctab"
	"github.com/agilira/cella/rope"
	flashflags "github.com/agilira/flash-flags"
)

func main() {
	fs := flashflags.New("cellstress")
	scenario := fs.String("scenario", "high-churn", "scenario to run: single-writer-reader, high-churn, exit-signal, wait-first, desctab-openclose, rope-growth")
	readers := fs.Int("readers", 20, "number of concurrent readers (high-churn)")
	writers := fs.Int("writers", 4, "number of concurrent writers (high-churn)")
	writesPerWriter := fs.Int("writes", 1000, "writes performed by each writer (high-churn)")
	handles := fs.Int("handles", 10000, "descriptors to open/close (desctab-openclose)")
	goroutinesFlag := fs.Int("goroutines", 64, "appender goroutines (rope-growth)")
	appendsFlag := fs.Int("appends", 10000, "appends per goroutine (rope-growth)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cellstress:", err)
		os.Exit(2)
	}

	var err error
	switch scenario.Value() {
	case "single-writer-reader":
		err = runSingleWriterReader()
	case "high-churn":
		err = runHighChurn(readers.Value(), writers.Value(), writesPerWriter.Value())
	case "exit-signal":
		err = runExitSignal(readers.Value())
	case "wait-first":
		err = runWaitFirst()
	case "desctab-openclose":
		err = runDesctabOpenClose(handles.Value())
	case "rope-growth":
		err = runRopeGrowth(goroutinesFlag.Value(), appendsFlag.Value())
	default:
		err = fmt.Errorf("unknown scenario %q", scenario.Value())
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "cellstress: FAIL:", err)
		os.Exit(1)
	}
	fmt.Println("cellstress: PASS:", scenario.Value())
}

// payload carries a magic number the destructor overwrites, so a reader
// that somehow observes a destructed payload can be caught red-handed
// (spec §8 scenario 2's instrumentation).
type payload struct {
	magic int64
	n     int
}

const liveMagic = 0xC0FFEE
const deadMagic = 0xDEADBEEF

// runSingleWriterReader is spec §8 scenario 1: one writer sets 100, 200,
// 300 with gaps; the reader must observe a monotonic subsequence always
// ending at (3, 300).
func runSingleWriterReader() error {
	cell := cella.NewCell[int](nil)
	defer cell.Close()

	done := make(chan struct{})
	var lastVersion uint64
	var mismatch error

	go func() {
		defer close(done)
		for {
			ref, ok := cell.Read()
			if ok {
				if ref.Version() < lastVersion {
					mismatch = fmt.Errorf("version went backwards: %d after %d", ref.Version(), lastVersion)
				}
				lastVersion = ref.Version()
				ref.Release()
				if lastVersion == 3 {
					return
				}
			}
		}
	}()

	for i, v := range []int{100, 200, 300} {
		if _, err := cell.Set(v); err != nil {
			return err
		}
		if i < 2 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	<-done

	if mismatch != nil {
		return mismatch
	}
	if ref, ok := cell.Read(); !ok || ref.Value() != 300 {
		if ok {
			ref.Release()
		}
		return fmt.Errorf("final value is not 300")
	} else {
		ref.Release()
	}
	return nil
}

// runHighChurn is spec §8 scenario 2: many readers spin-reading against
// many writers each performing writesPerWriter distinct sets. Every
// payload must be destructed exactly once, and no reader may ever observe
// a destructed payload.
func runHighChurn(readerCount, writerCount, writesPerWriter int) error {
	var destructCount int64
	var badRead int64

	cell := cella.NewCell[*payload](func(p *payload) {
		if atomic.SwapInt64(&p.magic, deadMagic) == deadMagic {
			atomic.AddInt64(&badRead, 1)
			return
		}
		atomic.AddInt64(&destructCount, 1)
	})
	defer cell.Close()

	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	readerWg.Add(readerCount)
	for i := 0; i < readerCount; i++ {
		go func() {
			defer readerWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if ref, ok := cell.Read(); ok {
					if atomic.LoadInt64(&ref.Value().magic) == deadMagic {
						atomic.AddInt64(&badRead, 1)
					}
					ref.Release()
				}
			}
		}()
	}

	var writerWg sync.WaitGroup
	writerWg.Add(writerCount)
	var totalSets int64
	for w := 0; w < writerCount; w++ {
		w := w
		go func() {
			defer writerWg.Done()
			for i := 0; i < writesPerWriter; i++ {
				p := &payload{magic: liveMagic, n: w*writesPerWriter + i}
				if _, err := cell.Set(p); err == nil {
					atomic.AddInt64(&totalSets, 1)
				}
			}
		}()
	}
	writerWg.Wait()
	close(stop)
	readerWg.Wait()

	if atomic.LoadInt64(&badRead) != 0 {
		return fmt.Errorf("%d reads observed a destructed payload", badRead)
	}
	if err := cell.Close(); err != nil {
		return err
	}
	if got, want := atomic.LoadInt64(&destructCount), atomic.LoadInt64(&totalSets); got != want {
		return fmt.Errorf("%d payloads destructed, want %d", got, want)
	}
	return nil
}

// runExitSignal is spec §8 scenario 3: a sentinel payload causes readers
// to exit; all non-sentinel payloads must be destructed.
func runExitSignal(readerCount int) error {
	const sentinel = -1
	var destructed int64

	cell := cella.NewCell[int](func(int) { atomic.AddInt64(&destructed, 1) })
	defer cell.Close()

	var wg sync.WaitGroup
	wg.Add(readerCount)
	for i := 0; i < readerCount; i++ {
		go func() {
			defer wg.Done()
			for {
				ref, ok := cell.Read()
				if !ok {
					continue
				}
				v := ref.Value()
				ref.Release()
				if v == sentinel {
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if _, err := cell.Set(i); err != nil {
			return err
		}
	}
	if _, err := cell.Set(sentinel); err != nil {
		return err
	}

	wg.Wait()
	if err := cell.Close(); err != nil {
		return err
	}
	// Close releases the sentinel too: 100 payloads plus the sentinel.
	if got := atomic.LoadInt64(&destructed); got != 101 {
		return fmt.Errorf("%d payloads destructed, want 101", got)
	}
	return nil
}

// runWaitFirst is spec §8 scenario 4: WaitFirst blocks until the first Set.
func runWaitFirst() error {
	cell := cella.NewCell[string](nil)
	defer cell.Close()

	start := time.Now()
	resultCh := make(chan time.Duration, 1)
	go func() {
		ref, err := cell.WaitFirst(context.Background())
		if err == nil {
			ref.Release()
		}
		resultCh <- time.Since(start)
	}()

	time.Sleep(100 * time.Millisecond)
	if _, err := cell.Set("first"); err != nil {
		return err
	}

	select {
	case latency := <-resultCh:
		if latency > time.Second {
			return fmt.Errorf("WaitFirst took %s, expected near-immediate wakeup", latency)
		}
	case <-time.After(2 * time.Second):
		return fmt.Errorf("WaitFirst never returned")
	}
	return nil
}

// runDesctabOpenClose is spec §8 scenario 5.
func runDesctabOpenClose(n int) error {
	tb := desctab.New[int]()
	handles := make([]desctab.Handle, n)
	for i := 0; i < n; i++ {
		h, err := tb.Open(i)
		if err != nil {
			return err
		}
		if h.Index != i {
			return fmt.Errorf("expected lowest-available index %d, got %d", i, h.Index)
		}
		handles[i] = h
	}
	for i, h := range handles {
		v, err := tb.Close(h)
		if err != nil {
			return err
		}
		if v != i {
			return fmt.Errorf("Close(%d) returned %d", i, v)
		}
	}
	return nil
}

// runRopeGrowth is spec §8 scenario 6.
func runRopeGrowth(goroutines, appendsPerGoroutine int) error {
	r := rope.New[int]()
	total := goroutines * appendsPerGoroutine
	seen := make([]int32, total)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	var firstErr error
	var mu sync.Mutex
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < appendsPerGoroutine; i++ {
				idx, err := r.Append(0)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				if idx < 0 || idx >= total {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("index %d out of range", idx)
					}
					mu.Unlock()
					return
				}
				if !atomic.CompareAndSwapInt32(&seen[idx], 0, 1) {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("duplicate index %d", idx)
					}
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	if r.Len() != total {
		return fmt.Errorf("rope.Len() = %d, want %d", r.Len(), total)
	}
	return nil
}
