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

// Package devp2p implements the session layer of an Ethereum peer-to-peer
// node. A Stream ties together the two networking collaborators of a node,
// the UDP node discovery table and the encrypted multiplexed transport, and
// keeps the peer set healthy: nodes surfaced by discovery are forwarded to
// the transport as dial candidates, discovery lookups are requested whenever
// the active peer count falls below the configured target, and per-link
// liveness pings go out on a fixed period.
//
// The discovery and transport layers themselves are consumed through the
// Discovery and Transport interfaces and are not implemented here. The
// Stream performs no I/O of its own and owns no locks; all of its state is
// driven from the caller's polling loop.
//
// Typed subprotocols are layered on top of the raw session. The eth
// subpackage implements the Ethereum wire protocol message set.
package devp2p
