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

// Package altstore is the concurrent, lazy-filled Address Lookup Table
// cache (spec.md §4.D): a sharded pubkey -> vector map with at-most-once
// fetching, overrun-triggered refresh, and a deterministic binary
// snapshot for warm restarts.
//
// The cache is read-dominant and the working set is small - this is
// "lazy with overrun-triggered refresh" rather than an LRU, because ALT
// entries only grow: a cached length shorter than a requested index is
// the definitive signal that the local copy is stale.
package altstore

import (
	"context"
	"errors"
	"sync"
	"time"

	libcommon "github.com/erigontech/erigon-lib/common"
	ekv "github.com/erigontech/erigon-lib/kv"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/erigon-lib/metrics"
	"github.com/erigontech/literpc/gateway/types"
)

var (
	ErrNotFound = errors.New("altstore: table not found")
	ErrDecode   = errors.New("altstore: malformed address lookup table")
)

const (
	batchSize        = 100
	maxConcurrentRun = 10 // up to 10 groups of 100 => 1000 addresses/round
	roundTimeout     = 60 * time.Second
)

// Fetcher is the upstream collaborator: batched and single-address
// account reads. Implementations talk to whichever upstream source is
// currently subscribed (spec.md §4.D, "issue batched upstream reads").
type Fetcher interface {
	// FetchMultiple returns raw account bytes for as many of addrs as
	// could be read before ctx is done; addresses not present upstream
	// or not yet read are simply absent from the result.
	FetchMultiple(ctx context.Context, addrs []libcommon.Pubkey, commitment libcommon.CommitmentLevel) (map[libcommon.Pubkey][]byte, error)
	FetchOne(ctx context.Context, addr libcommon.Pubkey, commitment libcommon.CommitmentLevel) ([]byte, error)
}

type shard struct {
	mu sync.RWMutex
	m  map[libcommon.Pubkey]*types.AddressLookupTable
}

// Store is the ALT cache. Zero value is not usable; construct with New.
type Store struct {
	fetcher Fetcher
	shards  [ekv.ShardCount]*shard

	gaugeTablesStored interface{ Set(float64) }
	count             int64
	countMu           sync.Mutex
}

// New constructs an empty Store backed by fetcher.
func New(fetcher Fetcher) *Store {
	s := &Store{fetcher: fetcher}
	for i := range s.shards {
		s.shards[i] = &shard{m: make(map[libcommon.Pubkey]*types.AddressLookupTable)}
	}
	gauge := metrics.GetOrCreateGauge("alts_stored", "number of address lookup tables cached")
	s.gaugeTablesStored = gauge
	return s
}

func (s *Store) shardFor(addr libcommon.Pubkey) *shard {
	return s.shards[ekv.ShardOf(addr[:])]
}

// get returns the cached table for addr, if any.
func (s *Store) get(addr libcommon.Pubkey) (*types.AddressLookupTable, bool) {
	sh := s.shardFor(addr)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	t, ok := sh.m[addr]
	return t, ok
}

// Preload batch-fetches every address in list not already cached.
// Batching policy: partition the missing set into groups of at most
// 100, run up to 10 groups concurrently per round (1,000 addresses),
// with a 60s wall-clock timeout per round; unfinished groups are
// abandoned and retried on demand by resolve's overrun path. Idempotent
// and safe under concurrent callers: worst case is duplicated fetches,
// never corrupted state.
func (s *Store) Preload(ctx context.Context, list []libcommon.Pubkey) {
	missing := make([]libcommon.Pubkey, 0, len(list))
	for _, addr := range list {
		if _, ok := s.get(addr); !ok {
			missing = append(missing, addr)
		}
	}
	if len(missing) == 0 {
		return
	}
	log.Debug("[altstore] preloading", "count", len(missing))

	for off := 0; off < len(missing); off += batchSize * maxConcurrentRun {
		end := off + batchSize*maxConcurrentRun
		if end > len(missing) {
			end = len(missing)
		}
		s.runRound(ctx, missing[off:end])
	}
}

func (s *Store) runRound(ctx context.Context, round []libcommon.Pubkey) {
	roundCtx, cancel := context.WithTimeout(ctx, roundTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for off := 0; off < len(round); off += batchSize {
		end := off + batchSize
		if end > len(round) {
			end = len(round)
		}
		batch := round[off:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := s.fetcher.FetchMultiple(roundCtx, batch, libcommon.Processed)
			if err != nil {
				log.Error("[altstore] batch fetch failed", "size", len(batch), "err", err)
				return
			}
			for addr, raw := range data {
				if err := s.Save(addr, raw); err != nil {
					log.Warn("[altstore] dropping malformed table from preload", "address", addr.String(), "err", err)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-roundCtx.Done():
		log.Warn("[altstore] preload round timed out, abandoning in-flight fetches", "size", len(round))
	}
}

// Save decodes raw into an AddressLookupTable and overwrites the cached
// entry atomically, updating the alts_stored gauge on first insertion.
func (s *Store) Save(address libcommon.Pubkey, raw []byte) error {
	table, err := decode(address, raw)
	if err != nil {
		return err
	}
	sh := s.shardFor(address)
	sh.mu.Lock()
	_, existed := sh.m[address]
	sh.m[address] = table
	sh.mu.Unlock()

	if !existed {
		s.countMu.Lock()
		s.count++
		n := s.count
		s.countMu.Unlock()
		s.gaugeTablesStored.Set(float64(n))
	}
	return nil
}

// Reload refetches a single address at processed commitment. On
// upstream failure it logs and leaves the previous cached value intact.
func (s *Store) Reload(ctx context.Context, address libcommon.Pubkey) {
	raw, err := s.fetcher.FetchOne(ctx, address, libcommon.Processed)
	if err != nil {
		log.Error("[altstore] reload failed", "address", address.String(), "err", err)
		return
	}
	if err := s.Save(address, raw); err != nil {
		log.Warn("[altstore] reload produced malformed table", "address", address.String(), "err", err)
	}
}

// Resolve looks up tableAddress and returns the Pubkeys at the given
// byte indexes, in order. If the cache is missing the table or any
// index overruns the cached length, it synchronously reloads once and
// retries; if still unresolvable it returns an empty slice and logs -
// callers must interpret an empty result as "forget this lookup for
// now" (spec.md's "empty means forget").
func (s *Store) Resolve(ctx context.Context, tableAddress libcommon.Pubkey, indexes []byte) []libcommon.Pubkey {
	if resolved, ok := s.tryResolve(tableAddress, indexes); ok {
		return resolved
	}
	s.Reload(ctx, tableAddress)
	if resolved, ok := s.tryResolve(tableAddress, indexes); ok {
		return resolved
	}
	log.Warn("[altstore] resolve failed after reload, returning empty", "table", tableAddress.String())
	return nil
}

func (s *Store) tryResolve(tableAddress libcommon.Pubkey, indexes []byte) ([]libcommon.Pubkey, bool) {
	table, ok := s.get(tableAddress)
	if !ok {
		return nil, false
	}
	for _, idx := range indexes {
		if int(idx) >= table.Len() {
			return nil, false
		}
	}
	out := make([]libcommon.Pubkey, len(indexes))
	for i, idx := range indexes {
		out[i] = table.Entries[idx]
	}
	return out, true
}

// Len returns the number of cached tables.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}
