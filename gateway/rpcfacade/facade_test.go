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

package rpcfacade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/altstore"
	"github.com/erigontech/literpc/gateway/blockinfo"
	"github.com/erigontech/literpc/gateway/datacache"
	"github.com/erigontech/literpc/gateway/types"
)

type fakeSubmitter struct {
	ingested [][]byte
	sig      libcommon.Signature
	err      error
	statuses map[libcommon.Signature]types.Status
}

func (f *fakeSubmitter) Ingest(ctx context.Context, wire []byte, maxRetries int) (libcommon.Signature, error) {
	f.ingested = append(f.ingested, wire)
	return f.sig, f.err
}

func (f *fakeSubmitter) Status(sig libcommon.Signature) (types.Status, bool) {
	st, ok := f.statuses[sig]
	return st, ok
}

func newTestFacade(t *testing.T) (*Facade, *blockinfo.Store) {
	t.Helper()
	alts := altstore.New(nil)
	blocks := blockinfo.New()
	cache := datacache.New(alts, blocks)
	sub := &fakeSubmitter{statuses: make(map[libcommon.Signature]types.Status)}
	return New(cache, sub, nil, nil, nil), blocks
}

func TestGetLatestBlockhashBeforeAnyBlock(t *testing.T) {
	f, _ := newTestFacade(t)
	_, _, ok := f.GetLatestBlockhash(libcommon.Finalized)
	require.False(t, ok)
}

func TestGetLatestBlockhashAfterIngest(t *testing.T) {
	f, blocks := newTestFacade(t)
	var hash libcommon.Pubkey
	hash[0] = 1
	blocks.Ingest(types.ProducedBlock{Slot: 10, Blockhash: hash, Commitment: libcommon.Finalized})

	got, slot, ok := f.GetLatestBlockhash(libcommon.Finalized)
	require.True(t, ok)
	require.Equal(t, hash, got)
	require.Equal(t, libcommon.Slot(10), slot)
}

func TestSendTransactionDelegatesToSubmitter(t *testing.T) {
	f, _ := newTestFacade(t)
	var wantSig libcommon.Signature
	wantSig[0] = 5
	f.Txs.(*fakeSubmitter).sig = wantSig

	sig, err := f.SendTransaction(context.Background(), []byte("wire"), 3)
	require.NoError(t, err)
	require.Equal(t, wantSig, sig)
}

func TestOutOfScopeMethodsReturnErrOutOfScope(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.GetAccountInfo(context.Background(), libcommon.Pubkey{}, libcommon.Finalized)
	require.ErrorIs(t, err, ErrOutOfScope)

	_, err = f.GetRecentPrioritizationFees(context.Background(), nil)
	require.ErrorIs(t, err, ErrOutOfScope)
}

func TestGetBlockWithoutArchiveReturnsNotFound(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.GetBlock(context.Background(), 1, libcommon.Finalized)
	require.Error(t, err)
}
