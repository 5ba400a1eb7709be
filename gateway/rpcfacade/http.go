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
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/valyala/fastjson"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log"
	"github.com/erigontech/literpc/gateway/txbroadcast"
)

// rpcRequest is the envelope shape fastjson parses without an
// intermediate struct allocation per field; only Method and the raw
// Params array are pulled out, the rest of the object is ignored.
type rpcRequest struct {
	Method string
	Params *fastjson.Value
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Server is the HTTP transport for Facade: one httprouter route
// handling the JSON-RPC envelope named in spec.md §6, "all over
// HTTP/WebSocket".
type Server struct {
	facade         *Facade
	router         *httprouter.Router
	jsonParserPool fastjson.ParserPool
}

// NewServer builds the httprouter-backed JSON-RPC handler over facade.
func NewServer(facade *Facade) *Server {
	s := &Server{facade: facade, router: httprouter.New()}
	s.router.POST("/", s.handleRPC)
	s.router.GET("/ws", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.WSHandler(w, r)
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "body read error", http.StatusBadRequest)
		return
	}

	p := s.jsonParserPool.Get()
	defer s.jsonParserPool.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		writeError(w, nil, -32700, "parse error")
		return
	}

	req := rpcRequest{
		Method: string(v.GetStringBytes("method")),
		Params: v.Get("params"),
	}
	idRaw := v.Get("id")
	var id json.RawMessage
	if idRaw != nil {
		id = json.RawMessage(idRaw.String())
	}

	result, rpcErr := s.dispatch(r, req)
	if rpcErr != nil {
		writeError(w, id, rpcErr.Code, rpcErr.Message)
		return
	}
	writeResult(w, id, result)
}

// dispatch is the sole adapter point: every in-scope method is one
// delegation to a Facade method (spec.md §4.H, "no business logic lives
// in the facade"). The account and prioritization-fee methods return
// ErrOutOfScope without consulting the Facade's delegates; any other
// method name gets "method not found".
func (s *Server) dispatch(r *http.Request, req rpcRequest) (interface{}, *rpcError) {
	ctx := r.Context()
	params := req.Params

	switch req.Method {
	case "getLatestBlockhash":
		commitment := paramCommitment(params, 0, "commitment")
		hash, slot, ok := s.facade.GetLatestBlockhash(commitment)
		if !ok {
			return nil, &rpcError{Code: -32004, Message: "no blockhash known yet"}
		}
		return map[string]interface{}{"blockhash": hash.String(), "lastValidBlockHeight": uint64(slot) + 150}, nil

	case "isBlockhashValid":
		hash, err := paramPubkey(params, 0)
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		commitment := paramCommitment(params, 1, "commitment")
		return s.facade.IsBlockhashValid(hash, commitment), nil

	case "getSlot":
		commitment := paramCommitment(params, 0, "commitment")
		slot, ok := s.facade.GetSlot(commitment)
		if !ok {
			return nil, &rpcError{Code: -32004, Message: "no slot known yet"}
		}
		return uint64(slot), nil

	case "getBlockHeight":
		commitment := paramCommitment(params, 0, "commitment")
		height, ok := s.facade.GetBlockHeight(commitment)
		if !ok {
			return nil, &rpcError{Code: -32004, Message: "no block height known yet"}
		}
		return height, nil

	case "getBlockTime":
		commitment := paramCommitment(params, 0, "commitment")
		t, ok := s.facade.GetBlockTime(commitment)
		if !ok {
			return nil, &rpcError{Code: -32004, Message: "no block time known yet"}
		}
		return t, nil

	case "getSignatureStatuses":
		sigs, err := paramSignatures(params)
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		return s.facade.GetSignatureStatuses(sigs), nil

	case "sendTransaction":
		wire, err := paramTransactionWire(params)
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		signature, err := s.facade.SendTransaction(ctx, wire, 0)
		if err != nil {
			return nil, mapSendError(err)
		}
		return signature.String(), nil

	case "getBlock":
		slot := paramUint64(params, 0)
		commitment := paramCommitment(params, 1, "commitment")
		block, err := s.facade.GetBlock(ctx, libcommon.Slot(slot), commitment)
		if err != nil {
			return nil, &rpcError{Code: -32009, Message: "block not available"}
		}
		return block, nil

	case "getBlocks":
		start := libcommon.Slot(paramUint64(params, 0))
		end := libcommon.Slot(paramUint64(params, 1))
		commitment := paramCommitment(params, 2, "commitment")
		slots, err := s.facade.GetBlocks(ctx, start, end, commitment)
		if err != nil {
			return nil, &rpcError{Code: -32009, Message: "archive not available"}
		}
		return slots, nil

	case "getSignaturesForAddress":
		addr, err := paramPubkey(params, 0)
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		sigs, err := s.facade.GetSignaturesForAddress(ctx, addr)
		if err != nil {
			return nil, &rpcError{Code: -32009, Message: "archive not available"}
		}
		return sigs, nil

	case "getAccountInfo", "getMultipleAccounts", "getProgramAccounts",
		"getRecentPrioritizationFees", "getLatestBlockPrioFees":
		log.Debug("[rpcfacade] method delegated to out-of-scope service", "method", req.Method)
		return nil, &rpcError{Code: -32601, Message: ErrOutOfScope.Error()}

	default:
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	}
}

func mapSendError(err error) *rpcError {
	switch {
	case errors.Is(err, txbroadcast.ErrInvalidEncoding), errors.Is(err, txbroadcast.ErrUnknownBlockhash):
		return &rpcError{Code: -32602, Message: err.Error()}
	case errors.Is(err, txbroadcast.ErrDuplicate):
		return &rpcError{Code: 0, Message: err.Error()} // idempotent resubmit, not a real failure
	case errors.Is(err, txbroadcast.ErrOverloaded):
		return &rpcError{Code: -32006, Message: err.Error()}
	default:
		return &rpcError{Code: -32005, Message: err.Error()}
	}
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}})
}

// paramCommitment reads the commitment config object from the method's
// positional parameter at idx - callers must pass the index the config
// object actually occupies for that method (e.g. 0 for getSlot, but 1
// for isBlockhashValid, whose first positional parameter is the
// blockhash itself).
func paramCommitment(params *fastjson.Value, idx int, key string) libcommon.CommitmentLevel {
	if params == nil {
		return libcommon.Finalized
	}
	var s string
	if obj := params.Get(itoa(idx)); obj != nil {
		s = string(obj.GetStringBytes(key))
	}
	c, ok := libcommon.ParseCommitment(s)
	if !ok {
		return libcommon.Finalized
	}
	return c
}

func paramUint64(params *fastjson.Value, idx int) uint64 {
	if params == nil {
		return 0
	}
	v := params.Get(itoa(idx))
	if v == nil {
		return 0
	}
	n, _ := v.Uint64()
	return n
}

func paramPubkey(params *fastjson.Value, idx int) (libcommon.Pubkey, error) {
	if params == nil {
		return libcommon.Pubkey{}, errors.New("missing pubkey parameter")
	}
	v := params.Get(itoa(idx))
	if v == nil {
		return libcommon.Pubkey{}, errors.New("missing pubkey parameter")
	}
	b, err := hex.DecodeString(string(v.GetStringBytes()))
	if err != nil || len(b) != 32 {
		return libcommon.Pubkey{}, errors.New("invalid pubkey encoding")
	}
	var p libcommon.Pubkey
	copy(p[:], b)
	return p, nil
}

func paramSignatures(params *fastjson.Value) ([]libcommon.Signature, error) {
	if params == nil {
		return nil, errors.New("missing signatures parameter")
	}
	v := params.Get("0")
	if v == nil {
		return nil, errors.New("missing signatures parameter")
	}
	arr, err := v.Array()
	if err != nil {
		return nil, errors.New("signatures must be an array")
	}
	out := make([]libcommon.Signature, 0, len(arr))
	for _, v := range arr {
		b, err := hex.DecodeString(string(v.GetStringBytes()))
		if err != nil {
			return nil, errors.New("invalid signature encoding")
		}
		sig, err := libcommon.BytesToSignature(b)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

func paramTransactionWire(params *fastjson.Value) ([]byte, error) {
	if params == nil {
		return nil, errors.New("missing transaction parameter")
	}
	v := params.Get("0")
	if v == nil {
		return nil, errors.New("missing transaction parameter")
	}
	wire, err := hex.DecodeString(string(v.GetStringBytes()))
	if err != nil {
		return nil, errors.New("transaction must be hex-encoded")
	}
	return wire, nil
}

func itoa(i int) string {
	// small, allocation-free enough for the handful of positional
	// params this facade ever sees; no call site passes more than two.
	digits := "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	return string(digits[i/10]) + string(digits[i%10])
}
