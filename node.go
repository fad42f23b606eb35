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
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/crypto"
)

// NodeID is the 512-bit public key identifying a remote node. It is the
// stable key for a peer across the discovery and transport layers.
type NodeID [64]byte

// String returns the full hexadecimal representation of the id.
func (id NodeID) String() string {
	return fmt.Sprintf("%x", id[:])
}

// TerminalString returns a shortened hex string for terminal logging.
func (id NodeID) TerminalString() string {
	return hex.EncodeToString(id[:8])
}

// PubkeyID derives a NodeID from a secp256k1 public key.
func PubkeyID(pub *ecdsa.PublicKey) NodeID {
	var id NodeID
	pbytes := crypto.FromECDSAPub(pub)
	if len(pbytes)-1 != len(id) {
		panic(fmt.Sprintf("invalid public key length %d, need %d", len(pbytes)-1, len(id)))
	}
	copy(id[:], pbytes[1:])
	return id
}

// Node is a peer record as relayed by the discovery layer.
type Node struct {
	ID  NodeID
	IP  net.IP
	UDP uint16 // discovery port
	TCP uint16 // transport port
}

// TCPAddr returns the address the node's transport endpoint is dialed on.
func (n *Node) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: n.IP, Port: int(n.TCP)}
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("Node %s %v:%d", n.ID.TerminalString(), n.IP, n.TCP)
}
