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
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	libcommon "github.com/erigontech/erigon-lib/common"
	ekv "github.com/erigontech/erigon-lib/kv"
	"github.com/erigontech/literpc/gateway/types"
)

// snapshotMagic prefixes every snapshot so Restore can reject data that
// is not an ALT snapshot; the blob carries no schema version number.
const snapshotMagic = "ALTS"

// Snapshot serializes the whole cache into a deterministic binary blob
// for warm restart (spec.md §4.D). The format is a flat sequence of
// (Pubkey, uint32 entry count, entries...) records, written shard by
// shard and in ascending key order within each shard; Restore rebuilds
// the shard index from each key.
func (s *Store) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)

	var countBuf [4]byte
	for _, sh := range s.shards {
		sh.mu.RLock()
		addrs := make([]libcommon.Pubkey, 0, len(sh.m))
		for addr := range sh.m {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })
		for _, addr := range addrs {
			table := sh.m[addr]
			buf.Write(addr[:])
			binary.LittleEndian.PutUint32(countBuf[:], uint32(len(table.Entries)))
			buf.Write(countBuf[:])
			for _, e := range table.Entries {
				buf.Write(e[:])
			}
		}
		sh.mu.RUnlock()
	}
	return buf.Bytes(), nil
}

// Restore replaces the cache's contents with the tables encoded in
// data, as produced by Snapshot. It does not merge with the existing
// cache: restore(snapshot(M)) must equal M exactly, including tables
// that a concurrent Save added after the snapshot was taken being
// absent from the restored copy.
func (s *Store) Restore(data []byte) error {
	if len(data) < len(snapshotMagic) || string(data[:len(snapshotMagic)]) != snapshotMagic {
		return fmt.Errorf("%w: bad snapshot header", ErrDecode)
	}
	r := bytes.NewReader(data[len(snapshotMagic):])

	fresh := make([]*shard, ekv.ShardCount)
	for i := range fresh {
		fresh[i] = &shard{m: make(map[libcommon.Pubkey]*types.AddressLookupTable)}
	}

	var addr libcommon.Pubkey
	var countBuf [4]byte
	total := 0
	for {
		n, err := r.Read(addr[:])
		if n == 0 && err != nil {
			break // clean EOF at a record boundary
		}
		if n < len(addr) {
			return fmt.Errorf("%w: truncated pubkey", ErrDecode)
		}
		if _, err := readFull(r, countBuf[:]); err != nil {
			return fmt.Errorf("%w: truncated entry count", ErrDecode)
		}
		count := binary.LittleEndian.Uint32(countBuf[:])
		entries := make([]libcommon.Pubkey, count)
		for i := uint32(0); i < count; i++ {
			if _, err := readFull(r, entries[i][:]); err != nil {
				return fmt.Errorf("%w: truncated entries", ErrDecode)
			}
		}
		fresh[ekv.ShardOf(addr[:])].m[addr] = &types.AddressLookupTable{Address: addr, Entries: entries}
		total++
	}

	for i := range s.shards {
		s.shards[i] = fresh[i]
	}
	s.countMu.Lock()
	s.count = int64(total)
	s.countMu.Unlock()
	s.gaugeTablesStored.Set(float64(total))
	return nil
}

func readFull(r *bytes.Reader, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := r.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
