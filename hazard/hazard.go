// hazard.go: per-caller hazard-pointer registry
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library fragment
// SPDX-License-Identifier: MPL-2.0

// Package hazard implements a single-slot hazard-pointer registry: a
// singly-linked list of per-caller records, each publishing at most one
// pointer a caller is about to dereference. A writer that has unlinked a
// value from shared state scans the registry before destroying it; if any
// record still publishes that value, destruction is deferred.
//
// Go has no at-thread-exit hook the way pthread TSD does (see the design
// notes in SPEC_FULL.md §4.3). cella sidesteps this by having each caller
// obtain and retain a *Handle explicitly; Handle.Close is the caller's
// analogue of the original's thread-exit callback, releasing the record's
// InUse flag so it can be recycled by the next caller that needs one.
package hazard

import (
	"sync/atomic"
	"unsafe"

	"github.com/agilira/cella/internal/xatomic"
)

// record is one node of the registry's linked list. value is the
// published pointer (nil when the handle holds no hazard); inUse is 1
// while some live Handle owns this record, 0 once the handle that
// acquired it has been Closed and the record is free for reuse.
//
// value is accessed with the raw sync/atomic pointer functions rather
// than atomic.Pointer[T] because a Registry is untyped: it publishes
// whatever pointer its caller hands it, regardless of the payload type
// of the structure (such as a desctab.Table[T]) that owns the Registry.
type record struct {
	value unsafe.Pointer
	inUse atomic.Uint32
	next  atomic.Pointer[record]
}

func (r *record) loadValue() unsafe.Pointer {
	return atomic.LoadPointer(&r.value)
}

func (r *record) storeValue(p unsafe.Pointer) {
	atomic.StorePointer(&r.value, p)
}

// Registry is a cell's hazard-pointer list: one record per caller that has
// ever called Acquire on it.
//
// The zero Registry is ready to use.
type Registry struct {
	head atomic.Pointer[record]
}

// Handle is a caller's hold on one record in a Registry, obtained by
// Acquire. A Handle is not safe for concurrent use by multiple goroutines
// (like the pthread TSD slot it replaces, it is meant to be owned by a
// single logical caller at a time); obtain a separate Handle per
// goroutine that needs one.
type Handle struct {
	r *record
}

// Acquire returns a Handle on a record in reg, reclaiming the first
// inactive (InUse == 0) record it finds, or linking a new one if none is
// free. The returned Handle must be Closed when the caller is done
// touching reg, so its record becomes available for reuse.
func Acquire(reg *Registry) *Handle {
	for h := reg.head.Load(); h != nil; h = h.next.Load() {
		if h.inUse.CompareAndSwap(0, 1) {
			return &Handle{r: h}
		}
	}

	n := &record{}
	n.inUse.Store(1)
	xatomic.RetryCAS(reg.head.Load,
		func(head *record) *record { n.next.Store(head); return n },
		reg.head.CompareAndSwap,
	)
	return &Handle{r: n}
}

// Publish writes ptr into h's record with release semantics, declaring
// that the caller is about to dereference ptr. Publish a nil pointer to
// withdraw the declaration once the caller is done with it.
func (h *Handle) Publish(ptr unsafe.Pointer) {
	h.r.storeValue(ptr)
}

// Close withdraws h's publication and releases the record back to the
// registry's free list, analogous to the original's at-thread-exit
// callback clearing InUse. Close must be the last call made through h.
func (h *Handle) Close() {
	h.r.storeValue(nil)
	h.r.inUse.Store(0)
}

// SafeToDestroy scans reg's active records and reports whether none of
// them currently publishes ptr. A writer calls this after unlinking ptr
// from shared state; true means the writer may destroy ptr immediately,
// false means some reader might still be dereferencing it and
// destruction must be deferred (typically to a reference-count-reaches-
// zero event, as Cell does, or to a later GC sweep).
func SafeToDestroy(reg *Registry, ptr unsafe.Pointer) bool {
	for h := reg.head.Load(); h != nil; h = h.next.Load() {
		if h.inUse.Load() == 0 {
			continue
		}
		if h.loadValue() == ptr {
			return false
		}
	}
	return true
}
