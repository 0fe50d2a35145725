// timeprovider.go: default TimeProvider backed by go-timecache
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cella

import "github.com/agilira/go-timecache"

// systemTimeProvider is the default time provider using go-timecache.
// This provides a cached clock read instead of a syscall per call, for
// collaborators such as cellconfig's reload metrics; the cell itself never
// reads the clock.
type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}

// NewSystemTimeProvider returns the default TimeProvider, backed by a
// cached monotonic-ish clock.
func NewSystemTimeProvider() TimeProvider {
	return systemTimeProvider{}
}
