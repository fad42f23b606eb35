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

// Contains the meters used by the session layer.

package devp2p

import "github.com/ethereum/go-ethereum/metrics"

var (
	discNodeMeter   = metrics.NewRegisteredMeter("devp2p/discovery/nodes", nil)
	refillMeter     = metrics.NewRegisteredMeter("devp2p/discovery/refills", nil)
	pingMeter       = metrics.NewRegisteredMeter("devp2p/discovery/pings", nil)
	ingressMsgMeter = metrics.NewRegisteredMeter("devp2p/ingress/messages", nil)
	egressMsgMeter  = metrics.NewRegisteredMeter("devp2p/egress/messages", nil)
)
