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

// Command literpcd is the gateway daemon: it wires the reconnecting
// source streams, the fastest-wins multiplexer, the ALT store, the
// block-information store and the transaction broadcast service
// together behind the rpcfacade HTTP/WebSocket surface.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/erigon-lib/metrics"
	"github.com/erigontech/literpc/gateway/altstore"
	"github.com/erigontech/literpc/gateway/archive"
	"github.com/erigontech/literpc/gateway/blockinfo"
	"github.com/erigontech/literpc/gateway/datacache"
	"github.com/erigontech/literpc/gateway/multiplex"
	"github.com/erigontech/literpc/gateway/rpcfacade"
	"github.com/erigontech/literpc/gateway/sourcestream"
	"github.com/erigontech/literpc/gateway/txbroadcast"
	"github.com/erigontech/literpc/gateway/types"
)

func main() {
	fs, cfg := newFlagSet()
	root := &cobra.Command{
		Use:   "literpcd",
		Short: "RPC gateway in front of a high-throughput validator cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.applyEnvDefaults()
			return run(cmd.Context(), cfg)
		},
	}
	root.Flags().AddFlagSet(fs)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Crit("[literpcd] exiting", "err", err)
	}
}

type reconnectCounter struct{}

func (reconnectCounter) Inc(source string) {
	metrics.GetOrCreateCounterVec("upstream_reconnects_total", "upstream reconnect count", []string{"source"}).
		WithLabelValues(source).Inc()
}

func run(ctx context.Context, cfg *config) error {
	sourceConfigs := cfg.sourceConfigs()
	if len(sourceConfigs) == 0 {
		log.Crit("[literpcd] no upstream endpoints configured: set --grpc-addr or GRPC_ADDR")
	}

	counter := reconnectCounter{}
	sources := make([]*sourcestream.Source, len(sourceConfigs))
	for i, sc := range sourceConfigs {
		sources[i] = sourcestream.New(sc, counter)
	}

	fetcher, err := sourcestream.DialAccountFetcher(ctx, sourceConfigs[0].Endpoint)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	leaders := sourcestream.NewLeaderScheduleSource(fetcher)
	go leaders.Run(ctx)

	alts := altstore.New(fetcher)
	blocks := blockinfo.New()
	broadcaster := txbroadcast.New(leaders, blocks, nil)
	go broadcaster.Run(ctx)

	blocksCh := multiplex.New(ctx, sources, cfg.commitment)
	go pump(ctx, blocksCh, blocks, broadcaster)

	cache := datacache.New(alts, blocks)
	facade := rpcfacade.New(cache, broadcaster, archive.None{}, nil, nil)
	rpcServer := rpcfacade.NewServer(facade)

	httpSrv := &http.Server{Addr: cfg.httpAddr, Handler: rpcServer}
	metricsSrv := &http.Server{Addr: cfg.metricsAddr, Handler: metrics.Handler()}

	errs := make(chan error, 2)
	go func() { errs <- httpSrv.ListenAndServe() }()
	go func() { errs <- metricsSrv.ListenAndServe() }()
	log.Info("[literpcd] listening", "rpc", cfg.httpAddr, "metrics", cfg.metricsAddr, "upstreams", len(sources))

	select {
	case <-ctx.Done():
		_ = httpSrv.Close()
		_ = metricsSrv.Close()
		return nil
	case err := <-errs:
		return err
	}
}

// pump feeds every produced block to the block-information store and
// matches landed signatures against the broadcast service's pending
// set - two of the three downstream consumers spec.md §2 draws out of
// the single multiplexed block stream. The third, ALT preloading from
// block contents, is driven from altstore.Store.Resolve's overrun path
// at lookup time rather than eagerly here: ProducedTx's account lists
// are already-resolved Pubkeys (spec.md's message-decoding Non-goal
// keeps the raw message bytes opaque to this gateway), so the table
// addresses worth preloading are only known once an RPC caller's
// MessageAddressTableLookup asks for them.
func pump(ctx context.Context, blocksCh <-chan types.ProducedBlock, blocks *blockinfo.Store, broadcaster *txbroadcast.Broadcaster) {
	for {
		select {
		case block, open := <-blocksCh:
			if !open {
				return
			}
			blocks.Ingest(block)
			metrics.GetOrCreateCounterVec("blocks_ingested_total", "blocks ingested from the multiplexed stream", []string{"commitment"}).
				WithLabelValues(block.Commitment.String()).Inc()
			for _, tx := range block.Transactions {
				broadcaster.MarkLanded(tx.Signature, block.Slot)
			}
		case <-ctx.Done():
			return
		}
	}
}
