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

// Package txbroadcast is the send path (spec.md §4.F): ingest, dedupe,
// route to upcoming leaders, forward over UDP, track, retry, and expire.
// A single send failure to one leader never fails the submission; the
// operation only fails if every leader rejected the datagram.
package txbroadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/arc/v2"

	libcommon "github.com/erigontech/erigon-lib/common"
	ekv "github.com/erigontech/erigon-lib/kv"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/erigon-lib/metrics"
	"github.com/erigontech/literpc/gateway/types"
)

var (
	// ErrDuplicate is returned by Submit when the signature is already
	// pending (spec.md's "idempotent submit").
	ErrDuplicate = errors.New("txbroadcast: transaction already pending")
	// ErrAllLeadersFailed means every routed leader rejected the send;
	// the transaction is still tracked and will be retried.
	ErrAllLeadersFailed = errors.New("txbroadcast: no leader accepted the datagram")
	// ErrOverloaded is returned by Submit when the ingest queue is at
	// capacity (spec.md §5, "On full ingest queue, new submissions fail
	// with Overloaded"); the submission is rejected before anything is
	// tracked or dedup-cached.
	ErrOverloaded = errors.New("txbroadcast: ingest queue is full")
)

const (
	// defaultLeaderFanout is K in spec.md §4.F step 3, "typically 4-8".
	defaultLeaderFanout = 6
	// dedupeCacheSize bounds the adaptive replacement cache used for
	// the ingest-stage dedupe check; sized to a generous multiple of
	// the expected pending-tx high-water mark.
	dedupeCacheSize = 100_000
	// reapAfter is the age, measured from FirstSeen, after which a
	// terminal PendingTx is removed from the pending map; until then
	// getSignatureStatuses can still answer for it.
	reapAfter = 2 * time.Minute
	// ingestQueueCapacity is the bounded ingest queue's nominal size
	// from spec.md §5 ("bounded (nominal 1,000 items)"). It caps how
	// many transactions may be tracked as pending at once; Submit
	// refuses new work with ErrOverloaded once the cap is reached, and
	// a slot is returned to the pool when its transaction is reaped.
	ingestQueueCapacity = 1_000
)

// LeaderSource supplies the next upcoming leader TPU endpoints
// (implemented by sourcestream.LeaderScheduleSource).
type LeaderSource interface {
	NextLeaders(k int) []string
}

// BlockhashChecker answers whether a blockhash is still within its
// validity window and which slot it landed in, backed by Component E.
type BlockhashChecker interface {
	IsValid(blockhash libcommon.Pubkey, commitment libcommon.CommitmentLevel) bool
	SlotOf(blockhash libcommon.Pubkey) (libcommon.Slot, bool)
}

type shard struct {
	mu sync.Mutex
	m  map[libcommon.Signature]*types.PendingTx
}

// Broadcaster owns the pending-transaction map and drives the
// dedupe/route/forward/retry/expire pipeline.
type Broadcaster struct {
	leaders LeaderSource
	blocks  BlockhashChecker
	sender  Sender
	fanout  int

	shards [ekv.ShardCount]*shard
	dedupe *lru.ARCCache[libcommon.Signature, struct{}]

	// tokens is the bounded ingest queue: a counting semaphore
	// pre-filled to ingestQueueCapacity. Submit acquires a token with a
	// non-blocking receive before tracking a transaction and returns
	// ErrOverloaded if none is available; tick's reap step returns the
	// token once the transaction leaves the pending set.
	tokens chan struct{}

	gaugePending interface{ Set(float64) }
	counter      int64
	counterMu    sync.Mutex
}

// New constructs a Broadcaster. sender may be nil, in which case a real
// pooled UDP sender is created; tests pass a fake.
func New(leaders LeaderSource, blocks BlockhashChecker, sender Sender) *Broadcaster {
	if sender == nil {
		sender = newUDPPool()
	}
	dedupe, err := lru.NewARC[libcommon.Signature, struct{}](dedupeCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	b := &Broadcaster{leaders: leaders, blocks: blocks, sender: sender, fanout: defaultLeaderFanout, dedupe: dedupe}
	for i := range b.shards {
		b.shards[i] = &shard{m: make(map[libcommon.Signature]*types.PendingTx)}
	}
	b.tokens = make(chan struct{}, ingestQueueCapacity)
	for i := 0; i < ingestQueueCapacity; i++ {
		b.tokens <- struct{}{}
	}
	b.gaugePending = metrics.GetOrCreateGauge("pending_txs", "number of transactions currently tracked as pending")
	return b
}

func (b *Broadcaster) shardFor(sig libcommon.Signature) *shard {
	return b.shards[ekv.ShardOf(sig[:])]
}

// Submit ingests a signed, serialized transaction: dedupes against
// currently-pending signatures, tracks it, and performs the first
// broadcast attempt.
func (b *Broadcaster) Submit(ctx context.Context, wire []byte, sig libcommon.Signature, lastValidBlockhash libcommon.Pubkey, expirySlot libcommon.Slot, maxRetries int) error {
	if _, dup := b.dedupe.Get(sig); dup {
		return ErrDuplicate
	}

	select {
	case <-b.tokens:
	default:
		return ErrOverloaded
	}

	sh := b.shardFor(sig)
	sh.mu.Lock()
	if _, exists := sh.m[sig]; exists {
		sh.mu.Unlock()
		b.tokens <- struct{}{}
		return ErrDuplicate
	}
	tx := types.NewPendingTx(sig, wire, lastValidBlockhash, expirySlot, maxRetries, time.Now())
	sh.m[sig] = tx
	sh.mu.Unlock()

	b.dedupe.Add(sig, struct{}{})
	b.incPending()

	return b.forward(ctx, tx)
}

func (b *Broadcaster) forward(ctx context.Context, tx *types.PendingTx) error {
	endpoints := b.leaders.NextLeaders(b.fanout)
	accepted := 0
	for _, ep := range endpoints {
		if err := b.sender.Send(ep, tx.WireBytes); err != nil {
			log.Debug("[txbroadcast] send failed", "endpoint", ep, "sig", tx.Signature.String(), "err", err)
			continue
		}
		accepted++
	}
	tx.Attempts++
	if accepted > 0 {
		metrics.GetOrCreateCounter("txs_sent_total", "number of transaction datagrams handed to a leader socket").Add(float64(accepted))
	}
	if accepted == 0 {
		return ErrAllLeadersFailed
	}
	return nil
}

// MarkLanded transitions a pending transaction to Landed once its
// signature is observed in a produced block.
func (b *Broadcaster) MarkLanded(sig libcommon.Signature, slot libcommon.Slot) {
	sh := b.shardFor(sig)
	sh.mu.Lock()
	tx, ok := sh.m[sig]
	if ok && !tx.Terminal() {
		tx.Status = types.Status{State: types.TxLanded, LandedSlot: slot}
	}
	sh.mu.Unlock()
}

// Status returns the current status of a tracked signature.
func (b *Broadcaster) Status(sig libcommon.Signature) (types.Status, bool) {
	sh := b.shardFor(sig)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	tx, ok := sh.m[sig]
	if !ok {
		return types.Status{}, false
	}
	return tx.Status, true
}

// Len reports the number of currently tracked transactions, terminal or not.
func (b *Broadcaster) Len() int {
	total := 0
	for _, sh := range b.shards {
		sh.mu.Lock()
		total += len(sh.m)
		sh.mu.Unlock()
	}
	return total
}

func (b *Broadcaster) incPending() {
	b.counterMu.Lock()
	b.counter++
	n := b.counter
	b.counterMu.Unlock()
	b.gaugePending.Set(float64(n))
}

func (b *Broadcaster) decPending(n int) {
	b.counterMu.Lock()
	b.counter -= int64(n)
	cur := b.counter
	b.counterMu.Unlock()
	b.gaugePending.Set(float64(cur))
}
