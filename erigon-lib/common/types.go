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

package common

import (
	"encoding/hex"
	"errors"
)

// Pubkey is an opaque 32-byte account identifier, compared by value and
// cheap to copy, mirroring the Hash/Address fixed-array types elsewhere in
// this package.
type Pubkey [32]byte

func (p Pubkey) Bytes() []byte { return p[:] }

func (p Pubkey) String() string { return hex.EncodeToString(p[:]) }

func (p Pubkey) IsZero() bool { return p == Pubkey{} }

func BytesToPubkey(b []byte) Pubkey {
	var p Pubkey
	copy(p[32-len(b):], b)
	return p
}

// Signature is the 64-byte primary key of a transaction.
type Signature [64]byte

func (s Signature) Bytes() []byte { return s[:] }

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

func BytesToSignature(b []byte) (Signature, error) {
	var s Signature
	if len(b) != len(s) {
		return s, errors.New("common: signature must be 64 bytes")
	}
	copy(s[:], b)
	return s, nil
}

// Slot is the blockchain's monotonically increasing logical clock.
type Slot uint64

// CommitmentLevel totally orders the confidence the cluster has observed a
// slot at: Processed < Confirmed < Finalized. Comparisons use the numeric
// value directly, so a slot observed at a higher level always supersedes a
// lower one.
type CommitmentLevel uint8

const (
	Processed CommitmentLevel = iota
	Confirmed
	Finalized
)

func (c CommitmentLevel) String() string {
	switch c {
	case Processed:
		return "processed"
	case Confirmed:
		return "confirmed"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

func (c CommitmentLevel) Valid() bool { return c <= Finalized }

// ParseCommitment maps the JSON-RPC commitment string onto a CommitmentLevel.
func ParseCommitment(s string) (CommitmentLevel, bool) {
	switch s {
	case "", "processed":
		return Processed, true
	case "confirmed":
		return Confirmed, true
	case "finalized":
		return Finalized, true
	default:
		return 0, false
	}
}
