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
	"testing"

	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// buildWireTx assembles a minimal legacy-message transaction: one
// signature, a 3-byte header, one account key, and the recent
// blockhash - enough for ParseWireMessage to exercise every field it
// reads without needing a real instruction list.
func buildWireTx(sig libcommon.Signature, blockhash libcommon.Pubkey) []byte {
	var out []byte
	out = append(out, 1) // compact-u16 signature count
	out = append(out, sig[:]...)
	out = append(out, 1, 0, 0) // message header: 1 required signer, 0 readonly signed, 0 readonly unsigned
	out = append(out, 1)       // compact-u16 account key count
	var key libcommon.Pubkey
	key[0] = 0xAA
	out = append(out, key[:]...)
	out = append(out, blockhash[:]...)
	out = append(out, 0) // compact-u16 instruction count
	return out
}

func TestParseWireMessageExtractsSignatureAndBlockhash(t *testing.T) {
	var wantSig libcommon.Signature
	wantSig[0] = 0x42
	var wantHash libcommon.Pubkey
	wantHash[0] = 0x99

	wire := buildWireTx(wantSig, wantHash)
	gotSig, gotHash, err := ParseWireMessage(wire)
	require.NoError(t, err)
	require.Equal(t, wantSig, gotSig)
	require.Equal(t, wantHash, gotHash)
}

func TestParseWireMessageRejectsTruncatedInput(t *testing.T) {
	_, _, err := ParseWireMessage([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestParseWireMessageRejectsZeroSignatures(t *testing.T) {
	_, _, err := ParseWireMessage([]byte{0})
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestIngestHappyPath(t *testing.T) {
	var wantHash libcommon.Pubkey
	wantHash[0] = 0x7
	var wantSig libcommon.Signature
	wantSig[0] = 0x11
	wire := buildWireTx(wantSig, wantHash)

	blocks := &fakeBlocks{valid: true}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, blocks, &fakeSender{})

	sig, err := b.Ingest(context.Background(), wire, 3)
	require.NoError(t, err)
	require.Equal(t, wantSig, sig)
	require.Equal(t, 1, b.Len())
}

func TestIngestRejectsInvalidEncoding(t *testing.T) {
	blocks := &fakeBlocks{valid: true}
	b := New(fakeLeaders{endpoints: []string{"127.0.0.1:1"}}, blocks, &fakeSender{})

	_, err := b.Ingest(context.Background(), []byte{0}, 0)
	require.ErrorIs(t, err, ErrInvalidEncoding)
	require.Equal(t, 0, b.Len())
}
