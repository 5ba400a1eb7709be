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
	"errors"
	"fmt"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// ErrInvalidEncoding and ErrUnknownBlockhash are the two synchronous,
// user-visible failures spec.md §4.F step 1 names: both are surfaced to
// the caller before anything is enqueued, never retried.
var (
	ErrInvalidEncoding  = errors.New("txbroadcast: malformed transaction encoding")
	ErrUnknownBlockhash = errors.New("txbroadcast: unknown recent blockhash")
)

// maxSignatureCount bounds the signature count accepted from the
// shortvec prefix; a larger count is rejected as ErrInvalidEncoding.
const maxSignatureCount = 16

// parseShortU16 decodes Solana's "compact-u16" / shortvec length prefix:
// 7 bits per byte, continuation bit in the high bit, little-endian byte
// order, at most 3 bytes for the value ranges this wire format uses.
func parseShortU16(b []byte) (value int, rest []byte, err error) {
	var v int
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, nil, fmt.Errorf("%w: truncated compact-u16", ErrInvalidEncoding)
		}
		v |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, b[i+1:], nil
		}
	}
	return 0, nil, fmt.Errorf("%w: compact-u16 overflow", ErrInvalidEncoding)
}

// ParseWireMessage parses just enough of a serialized transaction to
// extract the first signature and the message's recent blockhash
// (spec.md §4.F step 1), without decoding instructions, account lookups
// or anything else this gateway doesn't need on the send path.
//
// Wire layout: compact-u16 signature count, that many 64-byte
// signatures, then the message: an optional version-prefix byte (0x80 |
// version, present only for "v0" messages), a 3-byte header, a
// compact-u16 account-key count, that many 32-byte account keys, and
// finally the 32-byte recent blockhash.
func ParseWireMessage(wire []byte) (sig libcommon.Signature, recentBlockhash libcommon.Pubkey, err error) {
	sigCount, rest, err := parseShortU16(wire)
	if err != nil {
		return sig, recentBlockhash, err
	}
	if sigCount < 1 || sigCount > maxSignatureCount {
		return sig, recentBlockhash, fmt.Errorf("%w: signature count %d out of range", ErrInvalidEncoding, sigCount)
	}
	if len(rest) < sigCount*64 {
		return sig, recentBlockhash, fmt.Errorf("%w: truncated signatures", ErrInvalidEncoding)
	}
	copy(sig[:], rest[:64])
	msg := rest[sigCount*64:]

	if len(msg) == 0 {
		return sig, recentBlockhash, fmt.Errorf("%w: empty message", ErrInvalidEncoding)
	}
	if msg[0]&0x80 != 0 {
		msg = msg[1:] // skip the v0 version-prefix byte
	}
	const headerLen = 3
	if len(msg) < headerLen {
		return sig, recentBlockhash, fmt.Errorf("%w: truncated message header", ErrInvalidEncoding)
	}
	msg = msg[headerLen:]

	keyCount, msg, err := parseShortU16(msg)
	if err != nil {
		return sig, recentBlockhash, err
	}
	keysLen := keyCount * 32
	if len(msg) < keysLen+32 {
		return sig, recentBlockhash, fmt.Errorf("%w: truncated account keys or blockhash", ErrInvalidEncoding)
	}
	copy(recentBlockhash[:], msg[keysLen:keysLen+32])
	return sig, recentBlockhash, nil
}

// Ingest is the public send-path entry point: parse, validate the
// blockhash is known, then dedupe/track/forward via Submit. Parse and
// validation errors are returned synchronously and the transaction is
// never enqueued, per spec.md §4.F step 1 and §7's "User input" taxonomy.
// A first broadcast that no leader accepted is not an error here: the
// transaction stays tracked and the retry loop resends it.
func (b *Broadcaster) Ingest(ctx context.Context, wire []byte, maxRetries int) (libcommon.Signature, error) {
	sig, blockhash, err := ParseWireMessage(wire)
	if err != nil {
		return sig, err
	}
	slot, ok := b.blocks.SlotOf(blockhash)
	if !ok {
		return sig, ErrUnknownBlockhash
	}
	if err := b.Submit(ctx, wire, sig, blockhash, slot+150, maxRetries); err != nil && !errors.Is(err, ErrAllLeadersFailed) {
		return sig, err
	}
	return sig, nil
}
