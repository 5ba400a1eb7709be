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

package blockinfo

import (
	"testing"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/types"
)

func hash(b byte) libcommon.Pubkey {
	var p libcommon.Pubkey
	p[0] = b
	return p
}

func hash16(i int) libcommon.Pubkey {
	var p libcommon.Pubkey
	p[0] = byte(i)
	p[1] = byte(i >> 8)
	return p
}

func block(slot libcommon.Slot, h libcommon.Pubkey, c libcommon.CommitmentLevel) types.ProducedBlock {
	return types.ProducedBlock{Slot: slot, Blockhash: h, Commitment: c}
}

func TestLatestBlockhashPerCommitment(t *testing.T) {
	s := New()
	s.Ingest(block(1, hash(1), libcommon.Processed))
	s.Ingest(block(2, hash(2), libcommon.Processed))

	got, slot, ok := s.LatestBlockhash(libcommon.Processed)
	require.True(t, ok)
	require.Equal(t, libcommon.Slot(2), slot)
	require.Equal(t, hash(2), got)

	_, _, ok = s.LatestBlockhash(libcommon.Finalized)
	require.False(t, ok)
}

func TestIngestUpgradesCommitmentInPlace(t *testing.T) {
	s := New()
	s.Ingest(block(5, hash(5), libcommon.Processed))
	require.Equal(t, 1, s.Len())

	s.Ingest(block(5, hash(5), libcommon.Confirmed))
	require.Equal(t, 1, s.Len(), "same blockhash must not create a second ring entry")

	require.True(t, s.IsValid(hash(5), libcommon.Confirmed))

	_, _, ok := s.LatestBlockhash(libcommon.Confirmed)
	require.True(t, ok)
}

func TestLatestSlotNeverRegresses(t *testing.T) {
	s := New()
	s.Ingest(block(10, hash(10), libcommon.Processed))
	s.Ingest(block(3, hash(3), libcommon.Processed))

	_, slot, ok := s.LatestBlockhash(libcommon.Processed)
	require.True(t, ok)
	require.Equal(t, libcommon.Slot(10), slot, "an out-of-order older slot must not move the watermark backwards")
}

func TestIsValidRejectsExpiredBlockhash(t *testing.T) {
	s := New()
	s.Ingest(block(1, hash(1), libcommon.Processed))
	s.Ingest(block(validitySlots+2, hash(2), libcommon.Processed))

	require.False(t, s.IsValid(hash(1), libcommon.Processed), "blockhash outside the validity window must be rejected")
}

func TestIsValidRejectsUnknownBlockhash(t *testing.T) {
	s := New()
	require.False(t, s.IsValid(hash(99), libcommon.Processed))
}

func TestIsValidRejectsInsufficientCommitment(t *testing.T) {
	s := New()
	s.Ingest(block(1, hash(1), libcommon.Processed))

	require.False(t, s.IsValid(hash(1), libcommon.Finalized))
}

func TestSlotOf(t *testing.T) {
	s := New()
	s.Ingest(block(42, hash(1), libcommon.Processed))

	slot, ok := s.SlotOf(hash(1))
	require.True(t, ok)
	require.Equal(t, libcommon.Slot(42), slot)

	_, ok = s.SlotOf(hash(2))
	require.False(t, ok)
}

func TestRingEvictsOldestSlots(t *testing.T) {
	s := New()
	for i := 0; i < ringCapacity+10; i++ {
		s.Ingest(block(libcommon.Slot(i), hash16(i), libcommon.Processed))
	}
	require.Equal(t, ringCapacity, s.Len())

	_, ok := s.SlotOf(hash16(0))
	require.False(t, ok, "oldest entries must have been evicted from the ring")
}
