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

// Package rpcfacade is the interface contract named in spec.md §4.H: it
// states method names, argument shapes and result shapes, and delegates
// every method to one of components A-G. No business logic lives here -
// Facade is a thin adapter, the same role httprouter-fronted RPC
// structs play in the teacher's own turbo/rpchelper-backed services.
package rpcfacade

import (
	"context"
	"errors"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/archive"
	"github.com/erigontech/literpc/gateway/datacache"
	"github.com/erigontech/literpc/gateway/types"
)

// ErrOutOfScope is returned by the methods spec.md §1 names as external
// collaborators (account service, prioritization-fee service, airdrop
// and version trivia): the core never implements their business logic,
// only states the shape it would be called with.
var ErrOutOfScope = errors.New("rpcfacade: method delegated to an out-of-scope service")

// Submitter is the send-path collaborator: Component F. Ingest performs
// the full parse/dedupe/route/forward/track pipeline (spec.md §4.F
// steps 1-5) from raw wire bytes alone.
type Submitter interface {
	Ingest(ctx context.Context, wire []byte, maxRetries int) (libcommon.Signature, error)
	Status(sig libcommon.Signature) (types.Status, bool)
}

// AccountService, PrioFeeService are the out-of-scope delegates named in
// spec.md §1 and the table in §6. A nil delegate makes the corresponding
// methods return ErrOutOfScope, exactly like archive.None does for the
// history methods when no archival backend is configured.
type AccountService interface {
	GetAccountInfo(ctx context.Context, addr libcommon.Pubkey, commitment libcommon.CommitmentLevel) ([]byte, error)
	GetMultipleAccounts(ctx context.Context, addrs []libcommon.Pubkey, commitment libcommon.CommitmentLevel) ([][]byte, error)
	GetProgramAccounts(ctx context.Context, program libcommon.Pubkey, commitment libcommon.CommitmentLevel) (map[libcommon.Pubkey][]byte, error)
}

type PrioFeeService interface {
	GetRecentPrioritizationFees(ctx context.Context, addrs []libcommon.Pubkey) ([]uint64, error)
	GetLatestBlockPrioFees(ctx context.Context) (uint64, error)
}

// Facade implements the JSON-RPC surface named in spec.md §6. Every
// method that the CORE can answer is served from the Cache (B/D/E) or
// the Submitter (F); everything else is delegated or declared
// ErrOutOfScope.
type Facade struct {
	Cache    *datacache.Cache
	Txs      Submitter
	Archive  archive.Backend
	Accounts AccountService
	PrioFees PrioFeeService
}

// New constructs a Facade. archiveBackend and the two out-of-scope
// delegates may be nil; Archive defaults to archive.None{} so
// getBlock/getBlocks behave per spec.md §4.H even when unset.
func New(cache *datacache.Cache, txs Submitter, archiveBackend archive.Backend, accounts AccountService, prioFees PrioFeeService) *Facade {
	if archiveBackend == nil {
		archiveBackend = archive.None{}
	}
	return &Facade{Cache: cache, Txs: txs, Archive: archiveBackend, Accounts: accounts, PrioFees: prioFees}
}

// GetLatestBlockhash returns the tip blockhash at the requested commitment.
func (f *Facade) GetLatestBlockhash(commitment libcommon.CommitmentLevel) (blockhash libcommon.Pubkey, slot libcommon.Slot, ok bool) {
	return f.Cache.LatestBlockhash(commitment)
}

// IsBlockhashValid reports whether blockhash is still usable as a
// transaction's recent blockhash at commitment.
func (f *Facade) IsBlockhashValid(blockhash libcommon.Pubkey, commitment libcommon.CommitmentLevel) bool {
	return f.Cache.IsBlockhashValid(blockhash, commitment)
}

// GetSlot returns the highest slot observed at commitment.
func (f *Facade) GetSlot(commitment libcommon.CommitmentLevel) (libcommon.Slot, bool) {
	_, slot, ok := f.Cache.LatestBlockhash(commitment)
	return slot, ok
}

// GetBlockHeight returns the tip's block height at commitment.
func (f *Facade) GetBlockHeight(commitment libcommon.CommitmentLevel) (uint64, bool) {
	height, _, ok := f.Cache.TipInfo(commitment)
	return height, ok
}

// GetBlockTime returns the tip's block time at commitment.
func (f *Facade) GetBlockTime(commitment libcommon.CommitmentLevel) (int64, bool) {
	_, t, ok := f.Cache.TipInfo(commitment)
	return t, ok
}

// GetSignatureStatuses looks signatures up in the broadcast service's
// pending/landed map.
func (f *Facade) GetSignatureStatuses(sigs []libcommon.Signature) []*types.Status {
	out := make([]*types.Status, len(sigs))
	for i, sig := range sigs {
		if st, ok := f.Txs.Status(sig); ok {
			st := st
			out[i] = &st
		}
	}
	return out
}

// SendTransaction enters the broadcast service's ingest stage and
// returns the accepted signature. The error returned here is always one
// of the user-visible taxonomy from spec.md §7: InvalidEncoding and
// UnknownBlockhash are surfaced synchronously by Ingest before anything
// is enqueued; transient send-path failures never reach this point.
func (f *Facade) SendTransaction(ctx context.Context, wire []byte, maxRetries int) (libcommon.Signature, error) {
	return f.Txs.Ingest(ctx, wire, maxRetries)
}

// GetBlock and GetBlocks delegate to the optional archival backend
// (spec.md §4.H); absence of a configured backend surfaces
// archive.ErrBlockNotFound via archive.None. GetSignaturesForAddress
// always returns archive.ErrBlockNotFound: Backend has no method for it.
func (f *Facade) GetBlock(ctx context.Context, slot libcommon.Slot, commitment libcommon.CommitmentLevel) (types.ProducedBlock, error) {
	return f.Archive.Get(ctx, slot, archive.GetConfig{Commitment: commitment})
}

func (f *Facade) GetBlocks(ctx context.Context, startSlot, endSlot libcommon.Slot, commitment libcommon.CommitmentLevel) ([]libcommon.Slot, error) {
	first, last, err := f.Archive.SlotRange(ctx)
	if err != nil {
		return nil, err
	}
	if startSlot < first {
		startSlot = first
	}
	if endSlot > last {
		endSlot = last
	}
	var out []libcommon.Slot
	for s := startSlot; s <= endSlot; s++ {
		out = append(out, s)
	}
	return out, nil
}

func (f *Facade) GetSignaturesForAddress(ctx context.Context, addr libcommon.Pubkey) ([]libcommon.Signature, error) {
	return nil, archive.ErrBlockNotFound
}

// GetAccountInfo, GetMultipleAccounts, GetProgramAccounts and the
// prioritization-fee methods are out of scope per spec.md §1; they are
// declared here so the method/argument/result shape is fixed, and
// delegate to an optional external collaborator.
func (f *Facade) GetAccountInfo(ctx context.Context, addr libcommon.Pubkey, commitment libcommon.CommitmentLevel) ([]byte, error) {
	if f.Accounts == nil {
		return nil, ErrOutOfScope
	}
	return f.Accounts.GetAccountInfo(ctx, addr, commitment)
}

func (f *Facade) GetMultipleAccounts(ctx context.Context, addrs []libcommon.Pubkey, commitment libcommon.CommitmentLevel) ([][]byte, error) {
	if f.Accounts == nil {
		return nil, ErrOutOfScope
	}
	return f.Accounts.GetMultipleAccounts(ctx, addrs, commitment)
}

func (f *Facade) GetProgramAccounts(ctx context.Context, program libcommon.Pubkey, commitment libcommon.CommitmentLevel) (map[libcommon.Pubkey][]byte, error) {
	if f.Accounts == nil {
		return nil, ErrOutOfScope
	}
	return f.Accounts.GetProgramAccounts(ctx, program, commitment)
}

func (f *Facade) GetRecentPrioritizationFees(ctx context.Context, addrs []libcommon.Pubkey) ([]uint64, error) {
	if f.PrioFees == nil {
		return nil, ErrOutOfScope
	}
	return f.PrioFees.GetRecentPrioritizationFees(ctx, addrs)
}

func (f *Facade) GetLatestBlockPrioFees(ctx context.Context) (uint64, error) {
	if f.PrioFees == nil {
		return 0, ErrOutOfScope
	}
	return f.PrioFees.GetLatestBlockPrioFees(ctx)
}
