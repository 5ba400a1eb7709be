// Copyright 2021 The Erigon Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
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

// Package kv names the logical "tables" the gateway keeps in memory and
// fixes the shard count shared by every sharded concurrent map (the ALT
// store and the pending-transaction map; the block-information ring is
// a single lock-guarded LRU and does not shard).
// It is the in-memory analogue of erigon-lib/kv's on-disk table catalog.
package kv

import "github.com/cespare/xxhash/v2"

// SchemaVersion names the version of the binary ALT snapshot format
// (spec.md §6, "stable across restarts of the same major version").
// These constants are not written into or checked against a snapshot.
//
// 1.0 - initial length-prefixed (Pubkey, []Pubkey) sequence encoding.
const (
	SchemaVersionMajor = 1
	SchemaVersionMinor = 0
)

// Logical table names, kept purely for log messages and metric labels -
// there is no on-disk engine backing them in this gateway.
const (
	// TableALT holds address -> ordered pubkey list (Component D).
	TableALT = "AddressLookupTables"

	// TableBlockInfo holds the recent-blockhash/slot ring (Component E).
	TableBlockInfo = "BlockInformation"

	// TablePendingTx holds in-flight transactions awaiting confirmation
	// or expiry (Component F).
	TablePendingTx = "PendingTransactions"
)

// ShardCount is the number of locked shards each sharded map partitions
// its keys across. Chosen so readers on unrelated shards never block each
// other on the hot path (spec.md §5); a power of two so the shard index
// is a cheap mask instead of a modulo.
const ShardCount = 64

// ShardOf returns the shard index for a given key's bytes, so the ALT
// store and pending-tx map hash consistently.
func ShardOf(key []byte) uint32 {
	return uint32(xxhash.Sum64(key) & (ShardCount - 1))
}
