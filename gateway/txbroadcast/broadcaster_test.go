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

package txbroadcast

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
)

type fakeLeaders struct{ endpoints []string }

func (f fakeLeaders) NextLeaders(k int) []string {
	if k < len(f.endpoints) {
		return f.endpoints[:k]
	}
	return f.endpoints
}

type fakeBlocks struct {
	mu    sync.Mutex
	valid bool
}

func (f *fakeBlocks) IsValid(libcommon.Pubkey, libcommon.CommitmentLevel) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid
}

func (f *fakeBlocks) SlotOf(libcommon.Pubkey) (libcommon.Slot, bool) {
	return 100, true
}

func (f *fakeBlocks) setValid(v bool) {
	f.mu.Lock()
	f.valid = v
	f.mu.Unlock()
}

type fakeSender struct {
	mu           sync.Mutex
	sent         []string
	failAll      bool
	failEndpoint string
}

func (f *fakeSender) Send(endpoint string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || endpoint == f.failEndpoint {
		return errSendFailed
	}
	f.sent = append(f.sent, endpoint)
	return nil
}

var errSendFailed = &sendError{"fake send failure"}

type sendError struct{ s string }

func (e *sendError) Error() string { return e.s }

func sig(b byte) libcommon.Signature {
	var s libcommon.Signature
	s[0] = b
	return s
}

func TestSubmitDedupesSignature(t *testing.T) {
	sender := &fakeSender{}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, &fakeBlocks{valid: true}, sender)

	s := sig(1)
	require.NoError(t, b.Submit(context.Background(), []byte("tx"), s, libcommon.Pubkey{}, 100, 3))
	err := b.Submit(context.Background(), []byte("tx"), s, libcommon.Pubkey{}, 100, 3)
	require.ErrorIs(t, err, ErrDuplicate)
	require.Equal(t, 1, b.Len())
}

func TestSubmitSucceedsWithPartialLeaderFailure(t *testing.T) {
	sender := &fakeSender{failEndpoint: "127.0.0.1:2"}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1", "127.0.0.1:2"}}, &fakeBlocks{valid: true}, sender)

	err := b.Submit(context.Background(), []byte("tx"), sig(2), libcommon.Pubkey{}, 100, 3)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
}

func TestSubmitFailsWhenAllLeadersFail(t *testing.T) {
	sender := &fakeSender{failAll: true}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, &fakeBlocks{valid: true}, sender)

	err := b.Submit(context.Background(), []byte("tx"), sig(3), libcommon.Pubkey{}, 100, 3)
	require.ErrorIs(t, err, ErrAllLeadersFailed)
	// Still tracked for retry despite the failed first attempt.
	require.Equal(t, 1, b.Len())
}

func TestSubmitReturnsOverloadedWhenQueueFull(t *testing.T) {
	sender := &fakeSender{}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, &fakeBlocks{valid: true}, sender)

	// Drain the ingest queue's tokens directly to simulate it being at
	// capacity without actually tracking ingestQueueCapacity transactions.
	for i := 0; i < ingestQueueCapacity; i++ {
		<-b.tokens
	}

	err := b.Submit(context.Background(), []byte("tx"), sig(7), libcommon.Pubkey{}, 100, 3)
	require.ErrorIs(t, err, ErrOverloaded)
	require.Equal(t, 0, b.Len())
}

func TestMarkLandedSetsStatus(t *testing.T) {
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, &fakeBlocks{valid: true}, &fakeSender{})
	s := sig(4)
	require.NoError(t, b.Submit(context.Background(), []byte("tx"), s, libcommon.Pubkey{}, 100, 3))

	b.MarkLanded(s, 55)
	status, ok := b.Status(s)
	require.True(t, ok)
	require.Equal(t, libcommon.Slot(55), status.LandedSlot)
}

func TestTickDropsExpiredTransactions(t *testing.T) {
	blocks := &fakeBlocks{valid: true}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, blocks, &fakeSender{})
	s := sig(5)
	require.NoError(t, b.Submit(context.Background(), []byte("tx"), s, libcommon.Pubkey{}, 100, 3))

	blocks.setValid(false)
	b.tick(context.Background())

	status, ok := b.Status(s)
	require.True(t, ok)
	require.Equal(t, "Dropped", status.State.String())
}

func TestTickResendsPendingTransactions(t *testing.T) {
	sender := &fakeSender{}
	blocks := &fakeBlocks{valid: true}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, blocks, sender)
	s := sig(6)
	require.NoError(t, b.Submit(context.Background(), []byte("tx"), s, libcommon.Pubkey{}, 100, 3))

	before := len(sender.sent)
	b.tick(context.Background())
	require.Greater(t, len(sender.sent), before)
}
