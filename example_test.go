// example_test.go: godoc examples for cella
//
// These examples appear in the generated documentation on pkg.go.dev
// and are executed as part of the test suite to ensure they remain valid.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cella_test

import (
	"context"
	"fmt"
	"time"

	"github.com/agilira/cella"
)

// ExampleNewCell demonstrates basic cell creation, publication, and reading.
func ExampleNewCell() {
	cell := cella.NewCell[string](nil)
	defer cell.Close()

	if _, err := cell.Set("v1"); err != nil {
		fmt.Println("set failed:", err)
		return
	}

	ref, ok := cell.Read()
	if ok {
		fmt.Println(ref.Value())
		ref.Release()
	}

	// Output: v1
}

// ExampleCell_Set demonstrates that later reads observe later versions.
func ExampleCell_Set() {
	cell := cella.NewCell[int](nil)
	defer cell.Close()

	cell.Set(100)
	cell.Set(200)
	v, _ := cell.Set(300)

	ref, ok := cell.Read()
	if ok {
		fmt.Printf("version %d: %d\n", v, ref.Value())
		ref.Release()
	}

	// Output: version 3: 300
}

// ExampleCell_Read demonstrates that Read on an unset cell reports no value.
func ExampleCell_Read() {
	cell := cella.NewCell[int](nil)
	defer cell.Close()

	if _, ok := cell.Read(); !ok {
		fmt.Println("no value yet")
	}

	cell.Set(42)
	if ref, ok := cell.Read(); ok {
		fmt.Println(ref.Value())
		ref.Release()
	}

	// Output: no value yet
	// 42
}

// ExampleCell_WaitFirst demonstrates blocking until the first Set.
func ExampleCell_WaitFirst() {
	cell := cella.NewCell[string](nil)
	defer cell.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		cell.Set("ready")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ref, err := cell.WaitFirst(ctx)
	if err == nil {
		fmt.Println(ref.Value())
		ref.Release()
	}

	// Output: ready
}

// ExampleCell_destructor demonstrates that a destructor runs once a
// published value is fully superseded on both slots. The first Set
// installs its wrapper on both slots (refcount 2); each later Set
// overwrites one slot at a time, so a value's destructor only fires once
// two further Sets have cycled it out of both slots.
func ExampleCell_destructor() {
	// Room for v1 plus the two values the deferred Close releases.
	released := make(chan string, 3)
	cell := cella.NewCell[string](func(v string) { released <- v })
	defer cell.Close()

	cell.Set("v1")
	cell.Set("v2")
	cell.Set("v3") // v1's last remaining slot reference is dropped here
	fmt.Println(<-released)

	// Output: v1
}
