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
	"encoding/json"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// SubscribeRequest is what we ask an upstream node to push: blocks and
// transactions at a given commitment level. It is the equivalent of the
// yellowstone-grpc SubscribeRequest (spec.md §6, "filter: blocks and
// txs, per commitment level"), trimmed to the single filter this
// gateway ever uses.
type SubscribeRequest struct {
	Commitment libcommon.CommitmentLevel
	WantBlocks bool
	WantTxs    bool
}

// RawUpdate is a single message delivered on the push subscription.
// UpdateOneof mirrors the upstream's tagged-union wire shape
// (UpdateOneof::Block is the only variant this gateway consumes).
type RawUpdate struct {
	UpdateOneof string      `json:"oneof"`
	Block       *RawBlock   `json:"block,omitempty"`
	Ping        *struct{}   `json:"ping,omitempty"`
}

// RawBlock is the upstream's wire representation of a block, prior to
// normalization into types.ProducedBlock.
type RawBlock struct {
	Slot        uint64       `json:"slot"`
	ParentSlot  uint64       `json:"parentSlot"`
	Blockhash   string       `json:"blockhash"`
	BlockHeight *uint64      `json:"blockHeight,omitempty"`
	BlockTime   *int64       `json:"blockTime,omitempty"`
	Transactions []RawTx     `json:"transactions"`
}

type RawTx struct {
	Signature         string   `json:"signature"`
	Message           []byte   `json:"message"`
	Err               string   `json:"err,omitempty"`
	CUConsumed        *uint64  `json:"cuConsumed,omitempty"`
	PrioritizationFee *uint64  `json:"prioritizationFee,omitempty"`
	ReadableAccounts  []string `json:"readableAccounts"`
	WritableAccounts  []string `json:"writableAccounts"`
}

// jsonCodec is a minimal grpc/encoding.Codec implementation. This
// gateway speaks to upstream nodes over a streaming gRPC method whose
// message bodies are JSON-encoded rather than a protoc-generated
// protobuf type - registering a named codec is the documented grpc-go
// extension point for exactly this case, so no generated stubs are
// required to drive the stream.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return "json" }
