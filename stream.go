// Copyright 2017 The go-devp2p Authors
// This file is part of the go-devp2p library.
//
// The go-devp2p library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-devp2p library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-devp2p library. If not, see <http://www.gnu.org/licenses/>.

package devp2p

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/log"
)

var (
	errNoDiscovery = errors.New("devp2p: discovery layer is nil")
	errNoTransport = errors.New("devp2p: transport layer is nil")
)

// Stream is a devp2p session. It owns a Discovery and a Transport handle
// and drives three concerns on every turn: forwarding freshly discovered
// nodes into the transport's dial queue, requesting more nodes while the
// peer count is below target, and pinging tracked peers on a fixed period.
//
// Stream is not safe for concurrent use. All methods must be called from a
// single goroutine; none of them block. Poll and Send return "nothing to
// do" results instead of waiting, so a caller is free to interleave them
// with its own scheduling.
type Stream struct {
	disc      Discovery
	transport Transport

	clock mclock.Clock
	log   log.Logger

	pingInterval   time.Duration
	pingTimeout    time.Duration
	refillInterval time.Duration
	maxPeers       int

	// Deadlines are absolute times compared against the clock on each
	// turn. Servicing a deadline always rearms it into the future.
	pingDeadline   mclock.AbsTime
	refillDeadline mclock.AbsTime
}

// NewStream sets up a session over the given collaborators. The bootstrap
// nodes from cfg are handed to the transport as dial candidates right away.
func NewStream(cfg Config, disc Discovery, transport Transport) (*Stream, error) {
	if disc == nil {
		return nil, errNoDiscovery
	}
	if transport == nil {
		return nil, errNoTransport
	}
	s := &Stream{
		disc:           disc,
		transport:      transport,
		clock:          cfg.clock(),
		log:            cfg.logger(),
		pingInterval:   cfg.pingInterval(),
		pingTimeout:    cfg.pingTimeout(),
		refillInterval: cfg.refillInterval(),
		maxPeers:       cfg.maxPeers(),
	}
	for _, n := range cfg.BootstrapNodes {
		s.transport.AddPeer(n.TCPAddr(), n.ID)
	}
	now := s.clock.Now()
	s.pingDeadline = now.Add(s.pingInterval)
	s.refillDeadline = now.Add(s.refillInterval)
	return s, nil
}

// Poll runs one scheduling turn: fresh discovery results are forwarded to
// the transport, the transport is asked for its next inbound event, and the
// replenishment and liveness timers are serviced. The returned event is nil
// when the transport had nothing ready.
func (s *Stream) Poll() (TransportEvent, error) {
	if err := s.drainDiscovery(); err != nil {
		return nil, err
	}
	ev, ok, err := s.transport.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		ev = nil
	} else if _, isMsg := ev.(Message); isMsg {
		ingressMsgMeter.Mark(1)
	}
	if err := s.checkRefill(); err != nil {
		return nil, err
	}
	if err := s.checkPing(); err != nil {
		return nil, err
	}
	return ev, nil
}

// Send queues an outbound frame. The same housekeeping as Poll runs around
// the write so that a sink-only caller still keeps its peer set alive.
func (s *Stream) Send(msg SendMessage) error {
	if err := s.drainDiscovery(); err != nil {
		return err
	}
	if err := s.transport.Send(msg); err != nil {
		return err
	}
	egressMsgMeter.Mark(1)
	if err := s.checkRefill(); err != nil {
		return err
	}
	return s.checkPing()
}

// Flush drives the collaborators' outbound buffers, discovery first. done
// is true only once both report a drained queue.
func (s *Stream) Flush() (done bool, err error) {
	done, err = s.disc.Flush()
	if err != nil || !done {
		return false, err
	}
	return s.transport.Flush()
}

// DisconnectPeer drops the peer from both the transport and the discovery
// table. Disconnecting an unknown or already-gone peer is a no-op. Useful
// for removing peers that turn out to be on a different network.
func (s *Stream) DisconnectPeer(id NodeID) {
	s.transport.DisconnectPeer(id)
	s.disc.Disconnect(id)
}

// ActivePeers returns the ids of the currently connected peers.
func (s *Stream) ActivePeers() []NodeID {
	return s.transport.ActivePeers()
}

// drainDiscovery moves every node the discovery layer has ready into the
// transport's dial queue, so a node found this turn is dialable before the
// transport is next serviced.
func (s *Stream) drainDiscovery() error {
	for {
		n, ok, err := s.disc.NextNode()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		s.log.Trace("Forwarding discovered node", "id", n.ID.TerminalString(), "addr", n.TCPAddr())
		discNodeMeter.Mark(1)
		s.transport.AddPeer(n.TCPAddr(), n.ID)
	}
}

// checkRefill requests a discovery lookup when the replenishment deadline
// has passed and the peer count is below target. The loop services one
// missed interval per iteration and rearms the deadline each time, so it
// always terminates with the deadline in the future even after a clock
// jump. A stalled session may therefore issue lookups more often than the
// configured period while it catches up.
func (s *Stream) checkRefill() error {
	for s.clock.Now() >= s.refillDeadline {
		if have := len(s.transport.ActivePeers()); have < s.maxPeers {
			s.log.Debug("Not enough peers, requesting more", "have", have, "want", s.maxPeers)
			refillMeter.Mark(1)
			if err := s.disc.RequestNewPeers(); err != nil {
				return err
			}
			if _, err := s.disc.Flush(); err != nil {
				return err
			}
		}
		s.refillDeadline = s.clock.Now().Add(s.refillInterval)
	}
	return nil
}

// checkPing sends a liveness ping when the ping deadline has passed. Each
// ping carries its own answer deadline, independent of the ping period.
// The rearm loop mirrors checkRefill.
func (s *Stream) checkPing() error {
	for s.clock.Now() >= s.pingDeadline {
		pingMeter.Mark(1)
		if err := s.disc.Ping(s.clock.Now().Add(s.pingTimeout)); err != nil {
			return err
		}
		if _, err := s.disc.Flush(); err != nil {
			return err
		}
		s.pingDeadline = s.clock.Now().Add(s.pingInterval)
	}
	return nil
}
