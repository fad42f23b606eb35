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
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/rlp"
)

// Cap is the structure of a capability advertised in the transport handshake.
type Cap struct {
	Name    string
	Version uint
}

func (cap Cap) String() string {
	return fmt.Sprintf("%s/%d", cap.Name, cap.Version)
}

// SendTarget selects the active peers an outbound message is delivered to.
type SendTarget struct {
	kind sendTargetKind
	id   NodeID
}

type sendTargetKind int

const (
	targetAll sendTargetKind = iota
	targetAny
	targetPeer
)

// SendToAll addresses every active peer.
func SendToAll() SendTarget { return SendTarget{kind: targetAll} }

// SendToAny addresses a single arbitrary active peer.
func SendToAny() SendTarget { return SendTarget{kind: targetAny} }

// SendToPeer addresses one specific peer.
func SendToPeer(id NodeID) SendTarget { return SendTarget{kind: targetPeer, id: id} }

// All reports whether the target addresses every active peer.
func (t SendTarget) All() bool { return t.kind == targetAll }

// Any reports whether the target addresses one arbitrary peer.
func (t SendTarget) Any() bool { return t.kind == targetAny }

// Peer returns the addressed peer id and whether the target names one.
func (t SendTarget) Peer() (NodeID, bool) { return t.id, t.kind == targetPeer }

// SendMessage is an outbound subprotocol frame. Data must already be an
// encoded RLP item; the transport only frames and encrypts it.
type SendMessage struct {
	Target     SendTarget
	Capability string
	Code       uint64
	Data       rlp.RawValue
}

// TransportEvent is an item produced by the transport's receive side.
//
// The concrete types are PeerConnected, PeerDisconnected and Message.
type TransportEvent interface {
	transportEvent()
}

// PeerConnected reports a peer whose encrypted session and capability
// handshake have completed.
type PeerConnected struct {
	ID NodeID
}

// PeerDisconnected reports a peer whose session was torn down.
type PeerDisconnected struct {
	ID NodeID
}

// Message is an inbound subprotocol frame, already decrypted and demuxed.
// Code is relative to the capability's message space.
type Message struct {
	ID         NodeID
	Capability Cap
	Code       uint64
	Data       rlp.RawValue
}

func (PeerConnected) transportEvent()    {}
func (PeerDisconnected) transportEvent() {}
func (Message) transportEvent()          {}

// Discovery feeds newly learned nodes into the session and accepts its
// keepalive and lookup requests. Implementations wrap the UDP node discovery
// protocol; the session only drives them and never blocks on them.
type Discovery interface {
	// NextNode returns the next node learned from the network. ok is false
	// when no node is ready yet; the session retries on its next turn.
	NextNode() (n *Node, ok bool, err error)

	// RequestNewPeers asks the discovery table to look up additional nodes.
	RequestNewPeers() error

	// Ping schedules a liveness check of the tracked peers. A peer that has
	// not answered before deadline is dropped from the table.
	Ping(deadline mclock.AbsTime) error

	// Disconnect removes the node from the discovery table. Unknown ids are
	// ignored.
	Disconnect(id NodeID)

	// Flush pushes out buffered packets. done reports whether the send
	// queue has fully drained.
	Flush() (done bool, err error)
}

// Transport is the encrypted multiplexed connection set shared by all
// peers: a bidirectional channel of capability-tagged frames plus the dial
// queue feeding it. It is the single source of truth for which peers are
// connected.
type Transport interface {
	// AddPeer queues the node as a dial candidate.
	AddPeer(addr *net.TCPAddr, id NodeID)

	// DisconnectPeer drops the peer's connection and forgets it as a dial
	// candidate. Unknown ids are ignored.
	DisconnectPeer(id NodeID)

	// ActivePeers returns the ids of all peers with a live session.
	ActivePeers() []NodeID

	// Send queues an outbound frame for the peers selected by its target.
	Send(msg SendMessage) error

	// Next returns the next inbound event. ok is false when nothing is
	// ready yet.
	Next() (ev TransportEvent, ok bool, err error)

	// Flush pushes out buffered frames. done reports whether the send
	// queue has fully drained.
	Flush() (done bool, err error)
}
