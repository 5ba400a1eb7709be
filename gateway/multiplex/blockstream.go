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

package multiplex

import (
	"context"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/literpc/gateway/blockextract"
	"github.com/erigontech/literpc/gateway/sourcestream"
	"github.com/erigontech/literpc/gateway/types"
)

// New fans in one or more upstream Sources at the given commitment
// level into a single ordered, deduplicated ProducedBlock stream. This
// is the sole multiplex entry point (spec.md's Open Question #1: the
// original had two near-identical constructors differing only in
// whether sources came from arguments or environment variables;
// cmd/literpcd/config.go is the only place environment variables are
// turned into a []*sourcestream.Source before reaching here).
func New(ctx context.Context, sources []*sourcestream.Source, commitment libcommon.CommitmentLevel) <-chan types.ProducedBlock {
	raws := make([]<-chan sourcestream.RawUpdate, len(sources))
	for i, src := range sources {
		raws[i] = src.Updates(ctx)
	}

	extract := func(raw sourcestream.RawUpdate) (libcommon.Slot, types.ProducedBlock, bool) {
		if raw.Block == nil {
			return 0, types.ProducedBlock{}, false
		}
		block, err := blockextract.Extract(raw.Block, commitment)
		if err != nil {
			log.Warn("[multiplex] dropping malformed block", "err", err)
			return 0, types.ProducedBlock{}, false
		}
		return block.Slot, block, true
	}

	return Merge(ctx, raws, extract)
}
