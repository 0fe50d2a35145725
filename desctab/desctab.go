// desctab.go: a generic descriptor table built on rope.Rope
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library fragment
// SPDX-License-Identifier: MPL-2.0

// Package desctab implements a generic descriptor table: an Open/Close/Get
// handle table much like a file-descriptor table, built atop rope.Rope for
// its backing storage. It is the spec's "descriptor table" external
// collaborator, generalized to any payload type.
//
// Per spec §9's final open question, handle validity uses an explicit
// tagged generation counter rather than the original C implementation's
// sentinel verifier values (0 for "unallocated", (uint64_t)-1 for
// "closed"): every Open bumps the slot's generation, and a Handle is valid
// only for the generation it was issued against, uniformly covering both
// of the original's special cases (never-opened and already-closed) with
// one comparison.
package desctab

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/agilira/cella"
	"github.com/agilira/cella/hazard"
	"github.com/agilira/cella/rope"
)

// slotState tags what an entry's index currently holds.
type slotState uint32

const (
	stateFree slotState = iota
	stateOpen
	stateClosed
)

// entry is one rope-backed slot. state, generation, and value are all
// accessed atomically so Get, Open, and Close never need to hold a lock
// against each other; freeMu only serializes the free-list
// (lowest-available-index allocation), not slot access. value is boxed
// behind a pointer indirection so a racing Open/Close can never tear a
// concurrent Get's read of a multi-word T.
type entry[T any] struct {
	state      atomic.Uint32
	generation atomic.Uint64
	value      atomic.Pointer[T]
}

// Handle identifies one Open call's slot. The zero Handle is never valid:
// every slot's generation starts at 1 when it is first Opened and only
// grows, so Generation 0 matches no slot.
type Handle struct {
	Index      int
	Generation uint64
}

// Table is a generic descriptor table: Open assigns a Handle to a value,
// Get reads the value through a live Handle, Close retires a Handle and
// returns its value one last time.
//
// The zero Table is not usable; construct one with New.
type Table[T any] struct {
	entries *rope.Rope[*entry[T]]
	hazards hazard.Registry

	freeMu sync.Mutex
	free   []int // indices closed and available for reuse, lowest first
}

// New creates an empty descriptor table.
func New[T any]() *Table[T] {
	return &Table[T]{entries: rope.New[*entry[T]]()}
}

// popFree returns the lowest available free index, or (0, false) if none
// is recorded; the caller must still verify the slot is stateClosed
// before reusing it, since Close only appends to free, it never sorts.
func (t *Table[T]) popFree() (int, bool) {
	t.freeMu.Lock()
	defer t.freeMu.Unlock()
	if len(t.free) == 0 {
		return 0, false
	}
	lowest := 0
	for i := 1; i < len(t.free); i++ {
		if t.free[i] < t.free[lowest] {
			lowest = i
		}
	}
	idx := t.free[lowest]
	t.free[lowest] = t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	return idx, true
}

func (t *Table[T]) pushFree(idx int) {
	t.freeMu.Lock()
	t.free = append(t.free, idx)
	t.freeMu.Unlock()
}

// Open assigns a new Handle to v, reusing the lowest closed index if one
// is available, and appending a new slot to the rope otherwise.
func (t *Table[T]) Open(v T) (Handle, error) {
	if idx, ok := t.popFree(); ok {
		e, err := t.entries.Get(idx, rope.RequireSet)
		if err == nil && slotState(e.state.Load()) == stateClosed {
			// Order matters: publish the value and bump the generation
			// before flipping the state to open, so no concurrent lookup
			// holding a stale Handle can ever observe stateOpen paired
			// with the old generation (the only pairing it would still
			// match).
			v := v
			e.value.Store(&v)
			gen := e.generation.Add(1)
			if e.state.CompareAndSwap(uint32(stateClosed), uint32(stateOpen)) {
				return Handle{Index: idx, Generation: gen}, nil
			}
		}
		// Lost a race to reuse this index (should not happen: freeMu
		// serializes reuse), or the slot was never actually closed.
		// Fall through and allocate a fresh slot instead of looping
		// forever on a corrupt free-list entry.
	}

	e := &entry[T]{}
	e.value.Store(&v)
	e.state.Store(uint32(stateOpen))
	e.generation.Store(1)
	idx, err := t.entries.Append(e)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Index: idx, Generation: 1}, nil
}

// lookup resolves h to its live entry, returning ErrBadHandle if the
// index was never opened, is closed, or its generation doesn't match.
func (t *Table[T]) lookup(h Handle) (*entry[T], error) {
	e, err := t.entries.Get(h.Index, rope.RequireSet)
	if err != nil || e == nil {
		return nil, cella.NewErrBadHandle(h.Index)
	}

	hz := hazard.Acquire(&t.hazards)
	defer hz.Close()
	hz.Publish(unsafe.Pointer(e))

	if slotState(e.state.Load()) != stateOpen || e.generation.Load() != h.Generation {
		return nil, cella.NewErrBadHandle(h.Index)
	}
	return e, nil
}

// Get returns the value currently held by h. It returns ErrBadHandle if h
// has been Closed, was never Opened, or its generation is stale.
func (t *Table[T]) Get(h Handle) (T, error) {
	var zero T
	e, err := t.lookup(h)
	if err != nil {
		return zero, err
	}
	if p := e.value.Load(); p != nil {
		return *p, nil
	}
	return zero, nil
}

// Close retires h, returning the value it last held. Closing the same
// Handle twice returns ErrBadHandle on the second call: the first Close
// transitions the slot's state to stateClosed, so the open→closed state
// CAS fails for any Handle presented afterward, matching spec §8's
// "closing a handle twice returns ErrBadHandle" boundary behavior.
func (t *Table[T]) Close(h Handle) (T, error) {
	var zero T
	e, err := t.entries.Get(h.Index, rope.RequireSet)
	if err != nil || e == nil {
		return zero, cella.NewErrBadHandle(h.Index)
	}

	if e.generation.Load() != h.Generation ||
		!e.state.CompareAndSwap(uint32(stateOpen), uint32(stateClosed)) {
		return zero, cella.NewErrBadHandle(h.Index)
	}

	p := e.value.Swap(nil)
	t.pushFree(h.Index)
	if p != nil {
		return *p, nil
	}
	return zero, nil
}

// Iterate calls fn once for every currently open (Handle, value) pair, in
// ascending index order.
func (t *Table[T]) Iterate(fn func(h Handle, v T)) {
	t.entries.Iterate(func(index int, e *entry[T]) {
		if e == nil || slotState(e.state.Load()) != stateOpen {
			return
		}
		var v T
		if p := e.value.Load(); p != nil {
			v = *p
		}
		fn(Handle{Index: index, Generation: e.generation.Load()}, v)
	})
}

// Len returns the number of currently open handles.
func (t *Table[T]) Len() int {
	n := 0
	t.Iterate(func(Handle, T) { n++ })
	return n
}
