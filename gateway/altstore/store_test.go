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

package altstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// fakeFetcher is an in-memory Fetcher whose account contents can grow
// between calls, letting tests exercise overrun-triggered refresh.
type fakeFetcher struct {
	mu       sync.Mutex
	accounts map[libcommon.Pubkey][]byte
	calls    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{accounts: make(map[libcommon.Pubkey][]byte)}
}

func (f *fakeFetcher) set(addr libcommon.Pubkey, entries []libcommon.Pubkey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = encodeAccount(entries)
}

func (f *fakeFetcher) FetchMultiple(_ context.Context, addrs []libcommon.Pubkey, _ libcommon.CommitmentLevel) (map[libcommon.Pubkey][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make(map[libcommon.Pubkey][]byte)
	for _, a := range addrs {
		if raw, ok := f.accounts[a]; ok {
			out[a] = raw
		}
	}
	return out, nil
}

func (f *fakeFetcher) FetchOne(_ context.Context, addr libcommon.Pubkey, _ libcommon.CommitmentLevel) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	raw, ok := f.accounts[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return raw, nil
}

func pk(b byte) libcommon.Pubkey {
	var p libcommon.Pubkey
	p[0] = b
	return p
}

func TestResolveOverrunTriggersRefresh(t *testing.T) {
	fetcher := newFakeFetcher()
	table := pk(1)
	fetcher.set(table, []libcommon.Pubkey{pk(10), pk(11)})

	store := New(fetcher)
	store.Preload(context.Background(), []libcommon.Pubkey{table})
	require.Equal(t, 1, store.Len())

	got := store.Resolve(context.Background(), table, []byte{0, 1})
	require.Equal(t, []libcommon.Pubkey{pk(10), pk(11)}, got)

	// Index 2 overruns the cached 2-entry table; the upstream table has
	// since grown to 3 entries. Resolve must detect the overrun, reload,
	// and succeed on the retry.
	fetcher.set(table, []libcommon.Pubkey{pk(10), pk(11), pk(12)})
	got = store.Resolve(context.Background(), table, []byte{2})
	require.Equal(t, []libcommon.Pubkey{pk(12)}, got)
}

func TestResolveUnknownTableReturnsEmpty(t *testing.T) {
	fetcher := newFakeFetcher()
	store := New(fetcher)

	got := store.Resolve(context.Background(), pk(99), []byte{0})
	require.Empty(t, got)
}

func TestSnapshotRoundTrip(t *testing.T) {
	fetcher := newFakeFetcher()
	a, b := pk(1), pk(2)
	fetcher.set(a, []libcommon.Pubkey{pk(10), pk(11)})
	fetcher.set(b, []libcommon.Pubkey{pk(20)})

	store := New(fetcher)
	store.Preload(context.Background(), []libcommon.Pubkey{a, b})
	require.Equal(t, 2, store.Len())

	blob, err := store.Snapshot()
	require.NoError(t, err)

	restored := New(newFakeFetcher())
	require.NoError(t, restored.Restore(blob))
	require.Equal(t, store.Len(), restored.Len())

	for _, addr := range []libcommon.Pubkey{a, b} {
		want, ok := store.get(addr)
		require.True(t, ok)
		got, ok := restored.get(addr)
		require.True(t, ok)
		require.Equal(t, want.Entries, got.Entries)
	}
}

func TestRestoreRejectsBadHeader(t *testing.T) {
	store := New(newFakeFetcher())
	err := store.Restore([]byte("not a snapshot"))
	require.ErrorIs(t, err, ErrDecode)
}

func TestSaveRejectsMalformedAccount(t *testing.T) {
	store := New(newFakeFetcher())
	err := store.Save(pk(5), []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrDecode)
	require.Equal(t, 0, store.Len())
}
