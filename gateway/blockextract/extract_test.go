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

package blockextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/sourcestream"
)

func hex64(b byte) string {
	return strings.Repeat(fmtHex(b), 32)
}

func fmtHex(b byte) string {
	const hexdigits = "0123456789abcdef"
	return string([]byte{hexdigits[b>>4], hexdigits[b&0xf]})
}

func hex128(b byte) string {
	return strings.Repeat(fmtHex(b), 64)
}

func TestExtractValidBlock(t *testing.T) {
	height := uint64(10)
	raw := &sourcestream.RawBlock{
		Slot:        100,
		ParentSlot:  99,
		Blockhash:   hex64(0xAA),
		BlockHeight: &height,
		Transactions: []sourcestream.RawTx{
			{
				Signature:        hex128(0x01),
				ReadableAccounts: []string{hex64(0xBB)},
				WritableAccounts: []string{hex64(0xCC)},
			},
		},
	}

	block, err := Extract(raw, libcommon.Confirmed)
	require.NoError(t, err)
	require.Equal(t, libcommon.Slot(100), block.Slot)
	require.Equal(t, libcommon.Confirmed, block.Commitment)
	require.Len(t, block.Transactions, 1)
}

func TestExtractNilBlock(t *testing.T) {
	_, err := Extract(nil, libcommon.Processed)
	require.ErrorIs(t, err, ErrDecode)
}

func TestExtractBadBlockhash(t *testing.T) {
	raw := &sourcestream.RawBlock{Slot: 1, Blockhash: "not-hex"}
	_, err := Extract(raw, libcommon.Processed)
	require.ErrorIs(t, err, ErrDecode)
}

func TestExtractDropsMalformedTransactionButKeepsBlock(t *testing.T) {
	raw := &sourcestream.RawBlock{
		Slot:      1,
		Blockhash: hex64(0x01),
		Transactions: []sourcestream.RawTx{
			{Signature: "not-hex"},
			{Signature: hex128(0x02)},
		},
	}

	block, err := Extract(raw, libcommon.Processed)
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1, "the malformed transaction must be dropped, not fail the whole block")
}
