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

// Package types holds the data model shared by every component of the
// gateway's hot path: blocks, transactions, address lookup tables and
// pending-transaction records.
package types

import (
	"github.com/holiman/uint256"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// ProducedBlock is the internal, immutable-once-constructed
// representation of a block observed at a given commitment level.
// Uniquely identified by (Slot, Commitment); for any Slot, the Blockhash
// observed at two commitments must agree or a fork has occurred.
type ProducedBlock struct {
	Slot         libcommon.Slot
	ParentSlot   libcommon.Slot
	Blockhash    libcommon.Pubkey
	BlockHeight  uint64
	Commitment   libcommon.CommitmentLevel
	BlockTime    int64
	Transactions []ProducedTx
}

// ProducedTx is a single transaction as it appeared in a ProducedBlock.
type ProducedTx struct {
	Signature         libcommon.Signature
	Message           []byte
	Err               string // empty means the transaction succeeded
	CUConsumed        *uint256.Int
	PrioritizationFee *uint256.Int
	ReadableAccounts  []libcommon.Pubkey
	WritableAccounts  []libcommon.Pubkey
}

// Failed reports whether the transaction carried an on-chain error.
func (t ProducedTx) Failed() bool { return t.Err != "" }

// AddressLookupTable is an on-chain account holding an ordered vector of
// Pubkeys, referenced from transactions by positional byte index.
// Entries are append-only: a table may grow, but once written a position
// never changes, which is what makes the "cached length too short -> my
// copy is stale" refresh heuristic in the ALT store sound.
type AddressLookupTable struct {
	Address libcommon.Pubkey
	Entries []libcommon.Pubkey
}

// Len reports the table's current length.
func (a AddressLookupTable) Len() int { return len(a.Entries) }

// MessageAddressTableLookup is the compact reference a transaction
// message carries instead of the full account key: a table address plus
// the byte indexes of the writable and readonly accounts it needs.
type MessageAddressTableLookup struct {
	AccountKey      libcommon.Pubkey
	WritableIndexes []byte
	ReadonlyIndexes []byte
}
