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

package rpcfacade

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/literpc/gateway/types"
)

// signatureSubscribePollInterval is how often a subscribed socket
// re-checks the pending-tx map for a terminal status, matching the
// retry service's own 2s cadence rather than inventing a faster one.
const signatureSubscribePollInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsSubscribeRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type wsNotification struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// WSHandler upgrades HTTP connections to WebSocket and serves
// signatureSubscribe: the push-style counterpart to getSignatureStatuses
// for clients that want to be told the moment a transaction lands or
// drops rather than polling (spec.md §6, "all over HTTP/WebSocket").
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("[rpcfacade] websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)

	for {
		var req wsSubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "signatureSubscribe" || len(req.Params) == 0 {
			continue
		}
		var sigHex string
		if err := json.Unmarshal(req.Params[0], &sigHex); err != nil {
			continue
		}
		b, err := hex.DecodeString(sigHex)
		if err != nil {
			continue
		}
		sig, err := libcommon.BytesToSignature(b)
		if err != nil {
			continue
		}
		go s.watchSignature(conn, sig, done)
	}
}

// watchSignature polls Status until the transaction reaches a terminal
// state or the connection's read loop exits (done is closed); in the
// first case it pushes exactly one
// notification - signatureSubscribe in the original RPC surface is a
// one-shot "tell me when this lands or drops", not a recurring feed.
func (s *Server) watchSignature(conn *websocket.Conn, sig libcommon.Signature, done <-chan struct{}) {
	ticker := time.NewTicker(signatureSubscribePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		st, ok := s.facade.Txs.Status(sig)
		if !ok || st.State == types.TxPending {
			continue
		}
		_ = conn.WriteJSON(wsNotification{
			Method: "signatureNotification",
			Params: map[string]interface{}{
				"signature": sig.String(),
				"status":    st.State.String(),
			},
		})
		return
	}
}
