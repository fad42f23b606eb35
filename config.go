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
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/log"
)

const (
	defaultPingInterval   = 15 * time.Second
	defaultPingTimeout    = 30 * time.Second
	defaultRefillInterval = 10 * time.Second
	defaultMaxPeers       = 25
)

// Config holds Stream options. Zero values select sensible defaults.
type Config struct {
	// PrivateKey is the node key. Its public half is the local node's
	// identity on both the discovery and transport layers.
	PrivateKey *ecdsa.PrivateKey

	// ListenAddr is the address the collaborators were bound to, kept for
	// advertising to remote peers. Binding happens when the concrete
	// Discovery and Transport implementations are constructed.
	ListenAddr string

	// ProtocolVersion is the base protocol version announced in the
	// transport handshake.
	ProtocolVersion uint

	// Name is the client identifier advertised to remote peers. It should
	// contain the client type, a version number and the OS, e.g.
	// "ethwire/v1.0.0/linux".
	Name string

	// Capabilities lists the subprotocols spoken over the transport.
	Capabilities []Cap

	// BootstrapNodes are registered as dial candidates at construction so
	// the session has somewhere to connect before discovery produces
	// anything.
	BootstrapNodes []*Node

	// PingInterval is the period of discovery liveness pings. Defaults to
	// 15 seconds.
	PingInterval time.Duration

	// PingTimeout bounds how long a pinged peer may take to answer before
	// it is dropped. Defaults to 30 seconds.
	PingTimeout time.Duration

	// MaxPeers is the peer count the session tries to stay at. While the
	// active set is smaller, a discovery lookup is requested every
	// RefillInterval. Defaults to 25.
	MaxPeers int

	// RefillInterval is the period of the peer replenishment check.
	// Defaults to 10 seconds.
	RefillInterval time.Duration

	// Clock is the time source for the session's deadlines. No Clock means
	// the monotonic system clock; tests substitute mclock.Simulated.
	Clock mclock.Clock

	// Logger is a custom logger. No Logger means the root logger.
	Logger log.Logger
}

func (cfg *Config) pingInterval() time.Duration {
	if cfg.PingInterval == 0 {
		return defaultPingInterval
	}
	return cfg.PingInterval
}

func (cfg *Config) pingTimeout() time.Duration {
	if cfg.PingTimeout == 0 {
		return defaultPingTimeout
	}
	return cfg.PingTimeout
}

func (cfg *Config) refillInterval() time.Duration {
	if cfg.RefillInterval == 0 {
		return defaultRefillInterval
	}
	return cfg.RefillInterval
}

func (cfg *Config) maxPeers() int {
	if cfg.MaxPeers == 0 {
		return defaultMaxPeers
	}
	return cfg.MaxPeers
}

func (cfg *Config) clock() mclock.Clock {
	if cfg.Clock == nil {
		return mclock.System{}
	}
	return cfg.Clock
}

func (cfg *Config) logger() log.Logger {
	if cfg.Logger == nil {
		return log.Root()
	}
	return cfg.Logger
}
