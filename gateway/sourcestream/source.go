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

// Package sourcestream maintains one push subscription to an upstream
// node and turns it into a lazy, infinite, channel-based sequence of raw
// block updates, reconnecting with a capped exponential backoff whenever
// the transport drops. No message is ever replayed across a reconnect:
// gaps are expected, and it is the multiplexer's job (Component B) to
// tolerate them.
package sourcestream

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Config describes one upstream endpoint and the filter to subscribe
// with. Name identifies the source in logs and the
// upstream_reconnects_total{source} metric.
type Config struct {
	Name       string
	Endpoint   string
	XToken     string
	Commitment libcommon.CommitmentLevel

	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	SubscribeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.SubscribeTimeout == 0 {
		c.SubscribeTimeout = 5 * time.Second
	}
	return c
}

// State is the connection state machine named in spec.md §4.A.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

// ReconnectCounter is incremented once per reconnect attempt; it backs
// the upstream_reconnects_total{source} counter without coupling this
// package to a specific metrics backend.
type ReconnectCounter interface {
	Inc(source string)
}

// Source maintains the subscription to a single upstream endpoint.
type Source struct {
	cfg     Config
	reconns ReconnectCounter

	mu    sync.Mutex
	state State
}

// State returns the Source's current connection state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Source) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// New creates a Source. Updates() must be called to start streaming.
func New(cfg Config, reconns ReconnectCounter) *Source {
	return &Source{cfg: cfg.withDefaults(), reconns: reconns}
}

// Updates returns a channel of raw updates that is closed when ctx is
// canceled. The channel is unbuffered on purpose: backpressure here
// simply slows down reads from the upstream transport, which is
// harmless, unlike blocking the multiplexer's merge point.
func (s *Source) Updates(ctx context.Context) <-chan RawUpdate {
	out := make(chan RawUpdate)
	go s.run(ctx, out)
	return out
}

func (s *Source) run(ctx context.Context, out chan<- RawUpdate) {
	defer close(out)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // never give up; the caller cancels ctx to stop us

	for {
		if ctx.Err() != nil {
			return
		}
		s.setState(StateConnecting)
		err := s.connectAndStream(ctx, out)
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("[sourcestream] disconnected", "source", s.cfg.Name, "err", err)
		} else {
			bo.Reset()
		}
		if s.reconns != nil {
			s.reconns.Inc(s.cfg.Name)
		}
		wait := bo.NextBackOff()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// connectAndStream dials, subscribes and pumps updates until the stream
// ends or errors. It never returns nil unless ctx was canceled.
func (s *Source) connectAndStream(ctx context.Context, out chan<- RawUpdate) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	kp := keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             10 * time.Second,
		PermitWithoutStream: true,
	}

	conn, err := grpc.DialContext(dialCtx, s.cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kp),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype((jsonCodec{}).Name())),
		grpc.WithBlock(),
	)
	if err != nil {
		return err
	}
	defer conn.Close()

	// subCtx is the stream's context for its entire lifetime - in grpc-go
	// the context given to NewStream governs the whole RPC, not just its
	// handshake, so it must stay live for the RecvMsg loop below. Only
	// the initial handshake (NewStream plus the subscribe request) is
	// bounded by SubscribeTimeout, via subCancel wired to a timer that is
	// stopped once the handshake succeeds; subCancel is otherwise only
	// called on the error path, never after a successful subscribe.
	subCtx, subCancel := context.WithCancel(ctx)
	if s.cfg.XToken != "" {
		subCtx = metadata.AppendToOutgoingContext(subCtx, "x-token", s.cfg.XToken)
	}
	setupTimer := time.AfterFunc(s.cfg.SubscribeTimeout, subCancel)

	stream, err := conn.NewStream(subCtx, &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}, "/geyser.Geyser/Subscribe")
	if err != nil {
		setupTimer.Stop()
		subCancel()
		return err
	}

	req := SubscribeRequest{Commitment: s.cfg.Commitment, WantBlocks: true, WantTxs: true}
	if err := stream.SendMsg(&req); err != nil {
		setupTimer.Stop()
		subCancel()
		return err
	}
	if err := stream.CloseSend(); err != nil {
		setupTimer.Stop()
		subCancel()
		return err
	}
	setupTimer.Stop()

	s.setState(StateSubscribed)
	log.Info("[sourcestream] subscribed", "source", s.cfg.Name, "endpoint", s.cfg.Endpoint, "commitment", s.cfg.Commitment.String())

	for {
		var upd RawUpdate
		if err := stream.RecvMsg(&upd); err != nil {
			return err
		}
		select {
		case out <- upd:
		case <-ctx.Done():
			return nil
		}
	}
}
