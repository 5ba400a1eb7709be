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

package sourcestream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	require.Equal(t, "json", c.Name())

	height := uint64(123)
	want := RawUpdate{
		Block: &RawBlock{
			Slot:        42,
			ParentSlot:  41,
			Blockhash:   "abcd",
			BlockHeight: &height,
			Transactions: []RawTx{
				{Signature: "sig1"},
			},
		},
	}

	encoded, err := c.Marshal(&want)
	require.NoError(t, err)

	var got RawUpdate
	require.NoError(t, c.Unmarshal(encoded, &got))
	require.Equal(t, want.Block.Slot, got.Block.Slot)
	require.Equal(t, want.Block.Blockhash, got.Block.Blockhash)
	require.Equal(t, *want.Block.BlockHeight, *got.Block.BlockHeight)
	require.Len(t, got.Block.Transactions, 1)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Name: "primary", Endpoint: "localhost:1"}.withDefaults()
	require.Equal(t, 5_000_000_000, int(cfg.ConnectTimeout))
	require.Equal(t, cfg.ConnectTimeout, cfg.RequestTimeout)
	require.Equal(t, cfg.ConnectTimeout, cfg.SubscribeTimeout)
}
