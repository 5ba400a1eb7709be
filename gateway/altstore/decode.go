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

package altstore

import (
	"encoding/binary"
	"fmt"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/literpc/gateway/types"
)

// altAccountHeaderSize is a fixed prefix before the entries vector in
// the on-chain account layout (deactivation slot, authority discriminant
// etc.); this gateway only cares about the entries that follow it.
const altAccountHeaderSize = 56

// decode parses an account's raw bytes into an AddressLookupTable.
//
// spec.md's Open Question notes the original implementation uses an
// unconditional unwrap here; per its recommendation, a malformed table
// is a logged-and-dropped error, never a panic.
func decode(address libcommon.Pubkey, raw []byte) (*types.AddressLookupTable, error) {
	if len(raw) < altAccountHeaderSize {
		return nil, fmt.Errorf("%w: account too short (%d bytes)", ErrDecode, len(raw))
	}
	body := raw[altAccountHeaderSize:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("%w: entries section not a multiple of 32 bytes", ErrDecode)
	}
	n := len(body) / 32
	entries := make([]libcommon.Pubkey, n)
	for i := 0; i < n; i++ {
		copy(entries[i][:], body[i*32:(i+1)*32])
	}
	return &types.AddressLookupTable{Address: address, Entries: entries}, nil
}

// encodeAccount is decode's inverse, used only by tests to build
// synthetic upstream account payloads.
func encodeAccount(entries []libcommon.Pubkey) []byte {
	out := make([]byte, altAccountHeaderSize+32*len(entries))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(entries)))
	for i, e := range entries {
		copy(out[altAccountHeaderSize+i*32:], e[:])
	}
	return out
}
