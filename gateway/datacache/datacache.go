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

// Package datacache is the read surface the RPC facade calls into
// (spec.md §4.G): a stateless facade composing the ALT store and the
// block-info ring. It owns no state of its own and performs no I/O
// beyond what those two collaborators already do.
package datacache

import (
	"context"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/altstore"
	"github.com/erigontech/literpc/gateway/blockinfo"
)

// Cache composes the ALT and block-info stores behind a single
// read-only surface.
type Cache struct {
	alts   *altstore.Store
	blocks *blockinfo.Store
}

// New constructs a Cache over already-running stores.
func New(alts *altstore.Store, blocks *blockinfo.Store) *Cache {
	return &Cache{alts: alts, blocks: blocks}
}

// ResolveAddresses expands a MessageAddressTableLookup's writable and
// readonly index bytes into concrete account Pubkeys.
func (c *Cache) ResolveAddresses(ctx context.Context, table libcommon.Pubkey, writableIdx, readonlyIdx []byte) (writable, readonly []libcommon.Pubkey) {
	writable = c.alts.Resolve(ctx, table, writableIdx)
	readonly = c.alts.Resolve(ctx, table, readonlyIdx)
	return writable, readonly
}

// LatestBlockhash returns the latest blockhash known at commitment and
// the slot it belongs to.
func (c *Cache) LatestBlockhash(commitment libcommon.CommitmentLevel) (libcommon.Pubkey, libcommon.Slot, bool) {
	return c.blocks.LatestBlockhash(commitment)
}

// IsBlockhashValid reports whether blockhash can still be used as a
// transaction's recent blockhash at commitment.
func (c *Cache) IsBlockhashValid(blockhash libcommon.Pubkey, commitment libcommon.CommitmentLevel) bool {
	return c.blocks.IsValid(blockhash, commitment)
}

// SlotOf returns the slot a blockhash landed in, if known.
func (c *Cache) SlotOf(blockhash libcommon.Pubkey) (libcommon.Slot, bool) {
	return c.blocks.SlotOf(blockhash)
}

// TipInfo returns the block height and block time of the tip at commitment.
func (c *Cache) TipInfo(commitment libcommon.CommitmentLevel) (blockHeight uint64, blockTime int64, ok bool) {
	return c.blocks.TipInfo(commitment)
}
