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
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// AccountFetcher dials the same upstream endpoint a Source subscribes
// to and issues the unary account-read calls altstore.Store needs
// (spec.md §4.D's Fetcher collaborator). It shares the Source's JSON
// codec and insecure-by-default dial style rather than depending on a
// generated protobuf client.
type AccountFetcher struct {
	conn *grpc.ClientConn
}

// DialAccountFetcher connects to endpoint for unary account reads. The
// connection is independent of any Source's streaming connection so a
// slow or stalled stream never blocks ALT resolution.
func DialAccountFetcher(ctx context.Context, endpoint string) (*AccountFetcher, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(dialCtx, endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype((jsonCodec{}).Name())),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, err
	}
	return &AccountFetcher{conn: conn}, nil
}

func (f *AccountFetcher) Close() error { return f.conn.Close() }

type getAccountRequest struct {
	Address    string                     `json:"address"`
	Commitment libcommon.CommitmentLevel  `json:"commitment"`
}

type getAccountResponse struct {
	Data []byte `json:"data"`
}

type getMultipleAccountsRequest struct {
	Addresses  []string                  `json:"addresses"`
	Commitment libcommon.CommitmentLevel `json:"commitment"`
}

type getMultipleAccountsResponse struct {
	Accounts map[string][]byte `json:"accounts"`
}

// FetchOne implements altstore.Fetcher.
func (f *AccountFetcher) FetchOne(ctx context.Context, addr libcommon.Pubkey, commitment libcommon.CommitmentLevel) ([]byte, error) {
	req := getAccountRequest{Address: addr.String(), Commitment: commitment}
	var resp getAccountResponse
	if err := f.conn.Invoke(ctx, "/geyser.Geyser/GetAccountInfo", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// FetchMultiple implements altstore.Fetcher. One call per invocation
// rather than per-address: the caller (altstore.Preload) already
// partitions addresses into 100-wide batches before calling this.
func (f *AccountFetcher) FetchMultiple(ctx context.Context, addrs []libcommon.Pubkey, commitment libcommon.CommitmentLevel) (map[libcommon.Pubkey][]byte, error) {
	req := getMultipleAccountsRequest{Commitment: commitment}
	req.Addresses = make([]string, len(addrs))
	for i, a := range addrs {
		req.Addresses[i] = a.String()
	}
	var resp getMultipleAccountsResponse
	if err := f.conn.Invoke(ctx, "/geyser.Geyser/GetMultipleAccounts", &req, &resp); err != nil {
		return nil, err
	}
	out := make(map[libcommon.Pubkey][]byte, len(resp.Accounts))
	for _, a := range addrs {
		if data, ok := resp.Accounts[a.String()]; ok {
			out[a] = data
		}
	}
	return out, nil
}
