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
	"time"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/literpc/gateway/types"
)

// retryInterval is the cadence named in spec.md §4.F step 6. The source
// material doesn't pin this precisely; 2s matches SPEC_FULL.md's
// recorded decision.
const retryInterval = 2 * time.Second

// Run drives the periodic retry/expire/reap loop until ctx is canceled.
// It is meant to be started once per Broadcaster, typically from
// cmd/literpcd/main.go.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) {
	now := time.Now()
	var toReap []libcommon.Signature

	for _, sh := range b.shards {
		sh.mu.Lock()
		for sig, tx := range sh.m {
			switch {
			case tx.Status.State == types.TxLanded:
				if now.Sub(tx.FirstSeen) > reapAfter {
					toReap = append(toReap, sig)
				}
			case tx.Status.State == types.TxDropped:
				if now.Sub(tx.FirstSeen) > reapAfter {
					toReap = append(toReap, sig)
				}
			case !b.blocks.IsValid(tx.LastValidBlockhash, libcommon.Processed):
				tx.Status = types.Status{State: types.TxDropped, DropReason: types.DropReasonBlockhashExpired}
				log.Debug("[txbroadcast] dropping expired transaction", "sig", sig.String(), "expiry_slot", tx.ExpirySlot)
			case tx.RetriesExhausted():
				// Leave it Pending: spec.md does not define a terminal
				// state for retry exhaustion short of blockhash expiry,
				// so a maxed-out transaction simply stops being resent
				// until its blockhash finally expires.
			default:
				// forward only touches the UDP sender and the tx itself,
				// never another shard's lock, so it is safe to call
				// while holding sh.mu - unlocking here would let a
				// concurrent Submit mutate sh.m mid-range.
				if err := b.forward(ctx, tx); err != nil {
					log.Debug("[txbroadcast] retry send failed", "sig", sig.String(), "err", err)
				}
			}
		}
		sh.mu.Unlock()
	}

	if len(toReap) == 0 {
		return
	}
	for _, sig := range toReap {
		sh := b.shardFor(sig)
		sh.mu.Lock()
		delete(sh.m, sig)
		sh.mu.Unlock()
		b.dedupe.Remove(sig)
		b.tokens <- struct{}{}
	}
	b.decPending(len(toReap))
}
