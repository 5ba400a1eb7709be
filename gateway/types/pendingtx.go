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

package types

import (
	"time"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// DropReason explains why a PendingTx was dropped rather than landed.
type DropReason string

const (
	DropReasonNone             DropReason = ""
	DropReasonBlockhashExpired DropReason = "BlockhashExpired"
)

// TxState is the terminal/non-terminal state of a PendingTx. The only
// legal transitions are Pending -> Landed and Pending -> Dropped; neither
// terminal state transitions further.
type TxState uint8

const (
	TxPending TxState = iota
	TxLanded
	TxDropped
)

func (s TxState) String() string {
	switch s {
	case TxPending:
		return "Pending"
	case TxLanded:
		return "Landed"
	case TxDropped:
		return "Dropped"
	default:
		return "?"
	}
}

// Status is the externally-observable status of a PendingTx, as returned
// by getSignatureStatuses.
type Status struct {
	State       TxState
	LandedSlot  libcommon.Slot // valid when State == TxLanded
	DropReason  DropReason     // valid when State == TxDropped
}

// PendingTx tracks a transaction from submission through to a terminal
// status. MaxRetries == 0 means retry until the blockhash expires.
type PendingTx struct {
	Signature         libcommon.Signature
	WireBytes         []byte
	LastValidBlockhash libcommon.Pubkey
	ExpirySlot        libcommon.Slot
	FirstSeen         time.Time
	Attempts          int
	MaxRetries        int

	Status Status
}

func NewPendingTx(sig libcommon.Signature, wire []byte, lastValidBlockhash libcommon.Pubkey, expirySlot libcommon.Slot, maxRetries int, now time.Time) *PendingTx {
	return &PendingTx{
		Signature:          sig,
		WireBytes:          wire,
		LastValidBlockhash: lastValidBlockhash,
		ExpirySlot:         expirySlot,
		FirstSeen:          now,
		MaxRetries:         maxRetries,
		Status:             Status{State: TxPending},
	}
}

func (p *PendingTx) Terminal() bool {
	return p.Status.State == TxLanded || p.Status.State == TxDropped
}

func (p *PendingTx) RetriesExhausted() bool {
	return p.MaxRetries > 0 && p.Attempts >= p.MaxRetries
}
