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

// Package multiplex fans a set of redundant, gap-tolerant source streams
// into one ordered, deduplicated stream: the "fastest wins" policy of
// spec.md §4.B. Because the dedup watermark lives here rather than in
// any one Source, a reconnecting Source can gap freely - this package is
// the single source of truth for "have we seen this slot".
//
// The source contains two near-identical multiplex entry points in the
// original implementation, one built from explicit arguments and one
// from environment variables (spec.md Open Questions); this package
// exposes exactly one constructor, New, and leaves environment parsing
// to the caller (cmd/literpcd/config.go).
package multiplex

import (
	"context"
	"sync"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// Extractor maps a raw upstream update onto a (Slot, Target) pair, or
// reports ok=false when the update carries nothing this multiplexer
// cares about (e.g. a keepalive ping).
type Extractor[Raw any, Target any] func(raw Raw) (slot libcommon.Slot, target Target, ok bool)

// Merge reads from every source in sources, applies extract, and returns
// a channel emitting each slot at most once, in strictly increasing
// order: a slot at or below the highest one already emitted is dropped.
// It closes the output channel once every source channel is
// closed (which happens when ctx is canceled, since each Source's
// Updates() channel closes on cancellation).
//
// Ties - two sources delivering the same slot - are resolved by arrival
// order at the merge point: whichever reaches the select first wins,
// matching spec.md §4.B.
func Merge[Raw any, Target any](ctx context.Context, sources []<-chan Raw, extract Extractor[Raw, Target]) <-chan Target {
	out := make(chan Target)

	type tagged struct {
		slot   libcommon.Slot
		target Target
	}
	merged := make(chan tagged)

	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, src := range sources {
		src := src
		go func() {
			defer wg.Done()
			for raw := range src {
				slot, target, ok := extract(raw)
				if !ok {
					continue
				}
				select {
				case merged <- tagged{slot, target}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	go func() {
		defer close(out)
		var watermark libcommon.Slot
		seenAny := false
		for {
			select {
			case t, open := <-merged:
				if !open {
					return
				}
				if seenAny && t.slot <= watermark {
					continue // stale duplicate or already-superseded slot, drop it
				}
				watermark = t.slot
				seenAny = true
				select {
				case out <- t.target:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
