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

// Package blockextract decodes upstream wire blocks into the gateway's
// internal types.ProducedBlock. It does no I/O and no retries; callers
// decide what to do with an ErrDecode for the block as a whole (spec.md
// §4.C says such blocks are logged and dropped). A malformed
// transaction inside an otherwise valid block is logged and dropped
// here, and the rest of the block is kept.
package blockextract

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/literpc/gateway/sourcestream"
	"github.com/erigontech/literpc/gateway/types"
)

// ErrDecode is returned when a raw block is missing a required field.
var ErrDecode = errors.New("blockextract: malformed block update")

// Extract turns a RawBlock into a ProducedBlock tagged at commitment.
// The caller supplies the commitment; this function never infers it.
func Extract(raw *sourcestream.RawBlock, commitment libcommon.CommitmentLevel) (types.ProducedBlock, error) {
	if raw == nil {
		return types.ProducedBlock{}, fmt.Errorf("%w: nil block", ErrDecode)
	}
	blockhash, err := decodePubkey(raw.Blockhash)
	if err != nil {
		return types.ProducedBlock{}, fmt.Errorf("%w: blockhash: %v", ErrDecode, err)
	}

	var blockHeight uint64
	if raw.BlockHeight != nil {
		blockHeight = *raw.BlockHeight
	}
	var blockTime int64
	if raw.BlockTime != nil {
		blockTime = *raw.BlockTime
	}

	txs := make([]types.ProducedTx, 0, len(raw.Transactions))
	for i := range raw.Transactions {
		tx, err := extractTx(&raw.Transactions[i])
		if err != nil {
			log.Warn("[blockextract] dropping malformed transaction", "slot", raw.Slot, "err", err)
			continue
		}
		txs = append(txs, tx)
	}

	return types.ProducedBlock{
		Slot:         libcommon.Slot(raw.Slot),
		ParentSlot:   libcommon.Slot(raw.ParentSlot),
		Blockhash:    blockhash,
		BlockHeight:  blockHeight,
		Commitment:   commitment,
		BlockTime:    blockTime,
		Transactions: txs,
	}, nil
}

func extractTx(raw *sourcestream.RawTx) (types.ProducedTx, error) {
	sigBytes, err := hex.DecodeString(raw.Signature)
	if err != nil {
		return types.ProducedTx{}, fmt.Errorf("signature: %w", err)
	}
	sig, err := libcommon.BytesToSignature(sigBytes)
	if err != nil {
		return types.ProducedTx{}, err
	}

	readable, err := decodePubkeys(raw.ReadableAccounts)
	if err != nil {
		return types.ProducedTx{}, fmt.Errorf("readableAccounts: %w", err)
	}
	writable, err := decodePubkeys(raw.WritableAccounts)
	if err != nil {
		return types.ProducedTx{}, fmt.Errorf("writableAccounts: %w", err)
	}

	var cu, fee *uint256.Int
	if raw.CUConsumed != nil {
		cu = new(uint256.Int).SetUint64(*raw.CUConsumed)
	}
	if raw.PrioritizationFee != nil {
		fee = new(uint256.Int).SetUint64(*raw.PrioritizationFee)
	}

	return types.ProducedTx{
		Signature:         sig,
		Message:           raw.Message,
		Err:               raw.Err,
		CUConsumed:        cu,
		PrioritizationFee: fee,
		ReadableAccounts:  readable,
		WritableAccounts:  writable,
	}, nil
}

func decodePubkey(s string) (libcommon.Pubkey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return libcommon.Pubkey{}, err
	}
	if len(b) != 32 {
		return libcommon.Pubkey{}, fmt.Errorf("pubkey must be 32 bytes, got %d", len(b))
	}
	var p libcommon.Pubkey
	copy(p[:], b)
	return p, nil
}

func decodePubkeys(ss []string) ([]libcommon.Pubkey, error) {
	out := make([]libcommon.Pubkey, len(ss))
	for i, s := range ss {
		p, err := decodePubkey(s)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
