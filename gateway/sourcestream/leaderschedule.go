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

package sourcestream

import (
	"context"
	"sync"
	"time"

	"github.com/erigontech/erigon-lib/log"
)

// leaderScheduleRefresh is how often LeaderScheduleSource refreshes its
// view of upcoming TPU endpoints in the background.
const leaderScheduleRefresh = 10 * time.Second

type getLeaderScheduleResponse struct {
	TPUEndpoints []string `json:"tpuEndpoints"`
}

// LeaderScheduleSource implements txbroadcast.LeaderSource by polling
// the upstream node's leader schedule over the same unary gRPC
// transport AccountFetcher uses, and caching the result so a send never
// blocks on the network for routing (spec.md §4.F step 3).
type LeaderScheduleSource struct {
	fetcher *AccountFetcher

	mu        sync.RWMutex
	endpoints []string
}

// NewLeaderScheduleSource creates a LeaderScheduleSource over fetcher's
// upstream. It does not poll by itself: Run must be called to start the
// refresh loop; NextLeaders returns an empty slice until the first
// successful poll.
func NewLeaderScheduleSource(fetcher *AccountFetcher) *LeaderScheduleSource {
	return &LeaderScheduleSource{fetcher: fetcher}
}

// Run refreshes the cached leader schedule until ctx is canceled.
func (l *LeaderScheduleSource) Run(ctx context.Context) {
	l.refresh(ctx)
	ticker := time.NewTicker(leaderScheduleRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (l *LeaderScheduleSource) refresh(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var resp getLeaderScheduleResponse
	if err := l.fetcher.conn.Invoke(reqCtx, "/geyser.Geyser/GetLeaderSchedule", &struct{}{}, &resp); err != nil {
		log.Warn("[sourcestream] leader schedule refresh failed", "err", err)
		return
	}
	l.mu.Lock()
	l.endpoints = resp.TPUEndpoints
	l.mu.Unlock()
}

// NextLeaders implements txbroadcast.LeaderSource: the next k upcoming
// leader TPU endpoints, taken from the most recently cached schedule.
func (l *LeaderScheduleSource) NextLeaders(k int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if k >= len(l.endpoints) {
		return append([]string(nil), l.endpoints...)
	}
	return append([]string(nil), l.endpoints[:k]...)
}
