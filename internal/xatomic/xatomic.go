// xatomic.go: sequentially-consistent atomics shared by rope and hazard
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library fragment
// SPDX-License-Identifier: MPL-2.0

// Package xatomic is a thin, documented layer over sync/atomic's typed
// atomics. It holds the retry-CAS helper that hazard uses to link new
// records; rope runs its own CAS loops directly on sync/atomic.
package xatomic

// RetryCAS repeatedly loads the current value of a word via load, computes
// a candidate next value via next, and attempts to install it via cas,
// until cas succeeds. It returns the value that was installed.
//
// next may be called more than once for the same observed old value if
// cas loses a race after next has already run; next must be a pure
// function of old (no side effects beyond computing the candidate).
func RetryCAS[T comparable](load func() T, next func(old T) T, cas func(old, new T) bool) T {
	for {
		old := load()
		n := next(old)
		if cas(old, n) {
			return n
		}
	}
}
