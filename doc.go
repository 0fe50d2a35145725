// Package cella provides a single-writer/many-reader "global cell": a
// thread-safe container for publishing slowly-changing, mostly-read state
// (process configuration, a routing table snapshot, a policy bundle) to
// many concurrent readers.
//
// # Overview
//
// Cella is built around three cooperating primitives:
//
//   - Cell[T]: a two-slot publication algorithm. Readers never block on a
//     contended resource; a reader takes a mutex only when its release
//     leaves a slot's reader count at zero, and only long enough to signal
//     a writer that may be draining that slot. Writers are serialized
//     against each other but never starve.
//   - rope.Rope[T]: an unbounded, append-only, lock-free chunked array,
//     used as the backing store for descriptor-like tables.
//   - hazard.Registry: a per-goroutine hazard-pointer list used by
//     collaborators (see desctab) that need to defer destruction of a
//     value until no reader still references it.
//
// # Quick start
//
//	cell := cella.NewCell[Config](nil)
//	defer cell.Close()
//
//	_, _ = cell.Set(Config{MaxConns: 100})
//
//	ref, ok := cell.Read()
//	if ok {
//	    fmt.Printf("config v%d: %+v\n", ref.Version(), ref.Value())
//	    ref.Release()
//	}
//
// # What a Cell is for
//
// A Cell is not a general-purpose cache and not a map: it holds exactly
// one current value of type T at a time. It exists for the case where many
// goroutines need the latest snapshot of something that changes rarely —
// an HTTP handler reading current rate-limit settings, a router consulting
// a routing table rebuilt every few seconds, a worker pool reading the
// current feature-flag bundle. The cellconfig subpackage wires this
// directly to a polling file watcher (Argus) so that editing a config file
// republishes a new Cell value automatically.
//
// # Concurrency model
//
// A Read acquires a mutex only when its release leaves a slot's reader
// count at zero (whether or not a writer is draining that slot), and then
// only to signal the condition variable a draining writer waits on, never
// to wait itself. A Set acquires one mutex for the duration of the write and
// is otherwise a handful of atomic operations plus, for a second or later
// write, a wait for the target slot's reader count to reach zero.
//
// # Errors
//
// All operations return structured errors (github.com/agilira/go-errors)
// with stable error codes; see errors.go. Invariant violations (spec-level
// impossibilities, not operational failures) abort the process rather than
// returning an error, matching the semantics of the construction this
// package is modeled on.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package cella
