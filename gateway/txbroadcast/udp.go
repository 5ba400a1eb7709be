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
	"net"
	"sync"

	"github.com/erigontech/erigon-lib/log"
)

// maxDatagramSize is the practical MTU ceiling for a single UDP
// datagram carrying a serialized transaction, per spec.md §6.
const maxDatagramSize = 1232

// Sender transmits a single datagram to a leader's TPU endpoint. It
// exists so tests can swap in a fake and count/inspect sends without
// opening real sockets.
type Sender interface {
	Send(endpoint string, payload []byte) error
}

// udpPool is a Sender that keeps one connected UDP socket open per
// endpoint, reused across sends, the same way the teacher pools sentry
// connections rather than dialing per-message.
type udpPool struct {
	mu    sync.Mutex
	conns map[string]*net.UDPConn
}

func newUDPPool() *udpPool {
	return &udpPool{conns: make(map[string]*net.UDPConn)}
}

func (p *udpPool) Send(endpoint string, payload []byte) error {
	if len(payload) > maxDatagramSize {
		log.Warn("[txbroadcast] payload exceeds MTU, sending anyway", "endpoint", endpoint, "size", len(payload))
	}
	conn, err := p.conn(endpoint)
	if err != nil {
		return err
	}
	_, err = conn.Write(payload)
	if err != nil {
		// The pooled connection may have gone bad; drop it so the next
		// send redials rather than failing forever.
		p.mu.Lock()
		delete(p.conns, endpoint)
		p.mu.Unlock()
	}
	return err
}

func (p *udpPool) conn(endpoint string) (*net.UDPConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[endpoint]; ok {
		return c, nil
	}
	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	p.conns[endpoint] = conn
	return conn, nil
}

func (p *udpPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for ep, c := range p.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, ep)
	}
	return firstErr
}
