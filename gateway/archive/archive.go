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

// Package archive defines the optional historical-block backend
// (spec.md §4.H): random-slot access for getBlock/getBlocks-style
// methods that the streaming caches cannot answer. The SQL-backed
// storage engine itself is out of scope; None is the backend used when
// no archival store is configured, and it is what rpcfacade is wired
// against by default.
package archive

import (
	"context"
	"errors"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/types"
)

// ErrBlockNotFound is returned for any slot the backend cannot serve,
// including every slot when no backend is configured.
var ErrBlockNotFound = errors.New("archive: block not found")

// GetConfig narrows a getBlock request to the fields this gateway
// understands; full transaction-detail verbosity levels are out of
// scope (spec.md's account-service and prio-fee Non-goals).
type GetConfig struct {
	Commitment libcommon.CommitmentLevel
}

// Backend is the archival store's interface surface, named directly
// after the original's save/get/slot_range contract.
type Backend interface {
	Save(ctx context.Context, block types.ProducedBlock) error
	Get(ctx context.Context, slot libcommon.Slot, cfg GetConfig) (types.ProducedBlock, error)
	SlotRange(ctx context.Context) (first, last libcommon.Slot, err error)
}

// None is the no-op Backend: every read returns ErrBlockNotFound, as
// spec.md §4.H says an absent backend must.
type None struct{}

func (None) Save(context.Context, types.ProducedBlock) error { return nil }

func (None) Get(context.Context, libcommon.Slot, GetConfig) (types.ProducedBlock, error) {
	return types.ProducedBlock{}, ErrBlockNotFound
}

func (None) SlotRange(context.Context) (libcommon.Slot, libcommon.Slot, error) {
	return 0, 0, ErrBlockNotFound
}
