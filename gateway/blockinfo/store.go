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

// Package blockinfo keeps a bounded ring of recently produced blocks and
// answers the three questions the RPC facade and the broadcast tracker
// need about recency (spec.md §4.E): what is the latest blockhash at a
// commitment level, is a given blockhash still valid, and what slot did
// it land in.
package blockinfo

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/erigon-lib/metrics"
	"github.com/erigontech/literpc/gateway/types"
)

// ringCapacity bounds the number of recent blocks kept in memory.
// Combined with the ~400ms slot time this comfortably spans the
// 150-slot blockhash validity window with headroom for reorg churn.
const ringCapacity = 300

// validitySlots is the number of slots a blockhash remains usable as a
// transaction's recent-blockhash field, mirroring network consensus
// rules rather than anything this gateway controls.
const validitySlots = 150

type entry struct {
	slot        libcommon.Slot
	blockhash   libcommon.Pubkey
	blockHeight uint64
	blockTime   int64

	mu         sync.Mutex
	commitment libcommon.CommitmentLevel
}

func (e *entry) upgrade(c libcommon.CommitmentLevel) {
	e.mu.Lock()
	if c > e.commitment {
		e.commitment = c
	}
	e.mu.Unlock()
}

func (e *entry) commitmentAtLeast(c libcommon.CommitmentLevel) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitment >= c
}

// Store is the bounded recent-block ring. Zero value is not usable;
// construct with New.
type Store struct {
	mu     sync.RWMutex
	bySlot *lru.Cache[libcommon.Slot, *entry]
	byHash map[libcommon.Pubkey]*entry

	// latestSlot[c] is the highest slot observed to have reached
	// commitment level c. Entries only move forward: spec.md's total
	// order invariant (Processed < Confirmed < Finalized, never
	// regresses) is enforced with a compare-and-swap loop.
	latestSlot [3]atomic.Int64

	gaugeRingSize interface{ Set(float64) }
}

// New constructs an empty Store.
func New() *Store {
	s := &Store{byHash: make(map[libcommon.Pubkey]*entry)}
	for i := range s.latestSlot {
		s.latestSlot[i].Store(-1)
	}
	cache, err := lru.NewWithEvict[libcommon.Slot, *entry](ringCapacity, s.onEvict)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// ringCapacity never is.
		panic(err)
	}
	s.bySlot = cache
	s.gaugeRingSize = metrics.GetOrCreateGauge("blockinfo_ring_size", "number of blocks held in the recent-block ring")
	return s
}

// onEvict runs synchronously inside bySlot.Add, which is only called
// from Ingest with s.mu already held, so it must not take s.mu itself.
func (s *Store) onEvict(_ libcommon.Slot, e *entry) {
	delete(s.byHash, e.blockhash)
}

// Ingest records a produced block at its tagged commitment level. A
// block already present in the ring (seen earlier at a lower
// commitment) has its commitment upgraded in place rather than being
// duplicated; this is how a single slot travels
// Processed -> Confirmed -> Finalized without three ring entries.
func (s *Store) Ingest(block types.ProducedBlock) {
	s.mu.Lock()
	e, ok := s.byHash[block.Blockhash]
	if !ok {
		e = &entry{slot: block.Slot, blockhash: block.Blockhash, blockHeight: block.BlockHeight, blockTime: block.BlockTime, commitment: block.Commitment}
		s.byHash[block.Blockhash] = e
		s.bySlot.Add(block.Slot, e)
		s.gaugeRingSize.Set(float64(s.bySlot.Len()))
	}
	s.mu.Unlock()

	e.upgrade(block.Commitment)
	// A block observed at level c has also reached every lower level.
	for c := libcommon.Processed; c <= block.Commitment; c++ {
		s.advanceLatest(c, block.Slot)
	}
}

func (s *Store) advanceLatest(c libcommon.CommitmentLevel, slot libcommon.Slot) {
	counter := &s.latestSlot[c]
	for {
		cur := counter.Load()
		if int64(slot) <= cur {
			return
		}
		if counter.CompareAndSwap(cur, int64(slot)) {
			return
		}
	}
}

// LatestBlockhash returns the blockhash and slot of the highest slot
// that has reached at least commitment, and whether any block has.
func (s *Store) LatestBlockhash(commitment libcommon.CommitmentLevel) (libcommon.Pubkey, libcommon.Slot, bool) {
	slot := s.latestSlot[commitment].Load()
	if slot < 0 {
		return libcommon.Pubkey{}, 0, false
	}
	s.mu.RLock()
	e, ok := s.bySlot.Peek(libcommon.Slot(slot))
	s.mu.RUnlock()
	if !ok {
		return libcommon.Pubkey{}, 0, false
	}
	return e.blockhash, e.slot, true
}

// TipInfo returns the block height and block time of the highest slot
// that has reached at least commitment (spec.md §6's getBlockHeight and
// getBlockTime, both answered from the same tip entry as
// getLatestBlockhash).
func (s *Store) TipInfo(commitment libcommon.CommitmentLevel) (blockHeight uint64, blockTime int64, ok bool) {
	slot := s.latestSlot[commitment].Load()
	if slot < 0 {
		return 0, 0, false
	}
	s.mu.RLock()
	e, found := s.bySlot.Peek(libcommon.Slot(slot))
	s.mu.RUnlock()
	if !found {
		return 0, 0, false
	}
	return e.blockHeight, e.blockTime, true
}

// IsValid reports whether blockhash can still be used as a recent
// blockhash at the given commitment: it must be known, have reached
// that commitment, and sit within the validity window measured from
// the latest processed slot.
func (s *Store) IsValid(blockhash libcommon.Pubkey, commitment libcommon.CommitmentLevel) bool {
	s.mu.RLock()
	e, ok := s.byHash[blockhash]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if !e.commitmentAtLeast(commitment) {
		return false
	}
	latest := s.latestSlot[libcommon.Processed].Load()
	if latest < 0 {
		return false
	}
	age := latest - int64(e.slot)
	if age < 0 {
		age = 0
	}
	if age > validitySlots {
		log.Debug("[blockinfo] blockhash expired", "blockhash", blockhash.String(), "age_slots", age)
		return false
	}
	return true
}

// SlotOf returns the slot a blockhash landed in, if known.
func (s *Store) SlotOf(blockhash libcommon.Pubkey) (libcommon.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byHash[blockhash]
	if !ok {
		return 0, false
	}
	return e.slot, true
}

// Len returns the number of blocks currently held in the ring.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bySlot.Len()
}
