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

package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethwire/go-devp2p"
)

// StreamEvent is an item produced by Stream.Poll. The concrete types are
// Connected, Disconnected and Inbound.
type StreamEvent interface {
	streamEvent()
}

// Connected reports a peer that completed the transport handshake and has
// been sent our Status.
type Connected struct {
	ID devp2p.NodeID
}

// Disconnected reports a peer whose session was torn down.
type Disconnected struct {
	ID devp2p.NodeID
}

// Inbound is a decoded protocol message from a peer.
type Inbound struct {
	ID  devp2p.NodeID
	Msg Message
}

func (Connected) streamEvent()    {}
func (Disconnected) streamEvent() {}
func (Inbound) streamEvent()      {}

// Stream layers the eth protocol over a raw devp2p session: every newly
// connected peer is greeted with a Status message and inbound frames are
// decoded into typed messages. Decode failures surface to the caller, who
// decides whether the offending peer gets disconnected.
//
// Like the session it wraps, a Stream is driven from a single goroutine
// and never blocks.
type Stream struct {
	raw *devp2p.Stream
	log log.Logger

	version   uint32
	networkID uint64
	genesis   common.Hash

	head common.Hash
	td   *big.Int
}

// NewStream attaches the protocol to a raw session. head and td are the
// chain head advertised in Status handshakes until SetHead updates them.
func NewStream(raw *devp2p.Stream, version uint32, networkID uint64, genesis, head common.Hash, td *big.Int) *Stream {
	return &Stream{
		raw:       raw,
		log:       log.New("proto", ProtocolName),
		version:   version,
		networkID: networkID,
		genesis:   genesis,
		head:      head,
		td:        td,
	}
}

// SetHead updates the chain head advertised to newly connecting peers.
func (s *Stream) SetHead(head common.Hash, td *big.Int) {
	s.head, s.td = head, td
}

// Poll runs one turn of the underlying session and interprets its result.
// The returned event is nil when nothing was ready, and frames belonging
// to other capabilities are skipped.
func (s *Stream) Poll() (StreamEvent, error) {
	ev, err := s.raw.Poll()
	if err != nil {
		return nil, err
	}
	switch ev := ev.(type) {
	case devp2p.PeerConnected:
		if err := s.sendStatus(ev.ID); err != nil {
			return nil, err
		}
		return Connected{ID: ev.ID}, nil

	case devp2p.PeerDisconnected:
		return Disconnected{ID: ev.ID}, nil

	case devp2p.Message:
		if ev.Capability.Name != ProtocolName {
			return nil, nil
		}
		msg, err := Decode(ev.Code, ev.Data)
		if err != nil {
			return nil, err
		}
		return Inbound{ID: ev.ID, Msg: msg}, nil
	}
	return nil, nil
}

// Send encodes msg and queues it for the peers selected by target.
func (s *Stream) Send(target devp2p.SendTarget, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return s.raw.Send(devp2p.SendMessage{
		Target:     target,
		Capability: ProtocolName,
		Code:       msg.Code(),
		Data:       data,
	})
}

// Flush drives the session's outbound buffers.
func (s *Stream) Flush() (done bool, err error) {
	return s.raw.Flush()
}

// DisconnectPeer drops the peer from the underlying session.
func (s *Stream) DisconnectPeer(id devp2p.NodeID) {
	s.raw.DisconnectPeer(id)
}

// ActivePeers returns the ids of the currently connected peers.
func (s *Stream) ActivePeers() []devp2p.NodeID {
	return s.raw.ActivePeers()
}

func (s *Stream) sendStatus(id devp2p.NodeID) error {
	s.log.Debug("Greeting new peer", "id", id.TerminalString(), "head", s.head, "td", s.td)
	return s.Send(devp2p.SendToPeer(id), Status{
		ProtocolVersion: s.version,
		NetworkID:       s.networkID,
		TD:              s.td,
		Head:            s.head,
		Genesis:         s.genesis,
	})
}
