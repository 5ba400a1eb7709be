// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package multiplex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
)

func extractSlot(raw int) (libcommon.Slot, int, bool) {
	return libcommon.Slot(raw), raw, true
}

// TestDualSourceDedupe mirrors spec.md §8 scenario 1: source A emits
// {100, 101, 102}; source B emits {100, 101, 103} with B's 101 arriving
// at the merge point before A's. Expected output: 100, 101 (from B),
// 102, 103.
//
// Each raw value encodes both its slot and which source produced it
// (slot*10 + sourceTag) so the test can tell which source's copy of a
// duplicated slot actually won, not just that slots increase.
func TestDualSourceDedupe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const tagA, tagB = 0, 1
	extract := func(raw int) (libcommon.Slot, int, bool) {
		return libcommon.Slot(raw / 10), raw, true
	}

	a := make(chan int)
	b := make(chan int)
	sources := []<-chan int{a, b}

	out := Merge(ctx, sources, extract)

	go func() {
		// Each source's own sends stay in increasing slot order; only
		// the interleaving across sources is controlled, to exercise
		// the tie-break without violating spec.md §5's per-source
		// ordering invariant.
		b <- 100*10 + tagB // B's 100 arrives first
		a <- 100*10 + tagA // duplicate, dropped
		b <- 101*10 + tagB // B's 101 arrives first: this copy wins the tie
		a <- 101*10 + tagA // duplicate, dropped
		a <- 102*10 + tagA
		b <- 103*10 + tagB
		close(a)
		close(b)
	}()

	var got []int
	for v := range out {
		got = append(got, v)
	}

	require.Equal(t, []int{100*10 + tagB, 101*10 + tagB, 102*10 + tagA, 103*10 + tagB}, got)
}

func TestMergeClosesOutputWhenAllSourcesClose(t *testing.T) {
	ctx := context.Background()
	a := make(chan int)
	out := Merge(ctx, []<-chan int{a}, extractSlot)

	go func() {
		a <- 1
		a <- 2
		close(a)
	}()

	var got []int
	for v := range out {
		got = append(got, v)
	}
	require.Equal(t, []int{1, 2}, got)
}

func TestMergeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := make(chan int)
	out := Merge(ctx, []<-chan int{a}, extractSlot)

	cancel()
	select {
	case _, open := <-out:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected output channel to close after context cancellation")
	}
}

func TestMergeSkipsNonOKExtractions(t *testing.T) {
	ctx := context.Background()
	a := make(chan int)
	extract := func(raw int) (libcommon.Slot, int, bool) {
		if raw < 0 {
			return 0, 0, false
		}
		return libcommon.Slot(raw), raw, true
	}
	out := Merge(ctx, []<-chan int{a}, extract)

	go func() {
		a <- -1 // a keepalive-like update, filtered out
		a <- 5
		close(a)
	}()

	got := <-out
	require.Equal(t, 5, got)
}
