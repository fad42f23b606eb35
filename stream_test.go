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
	"fmt"
	"net"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscovery implements Discovery against in-memory queues, recording
// every control message the session submits.
type fakeDiscovery struct {
	nodes    []*Node
	requests int
	pings    []mclock.AbsTime
	dropped  []NodeID
	flushes  int
	pending  bool // Flush reports an undrained queue while set
	failWith error
}

func (d *fakeDiscovery) NextNode() (*Node, bool, error) {
	if d.failWith != nil {
		return nil, false, d.failWith
	}
	if len(d.nodes) == 0 {
		return nil, false, nil
	}
	n := d.nodes[0]
	d.nodes = d.nodes[1:]
	return n, true, nil
}

func (d *fakeDiscovery) RequestNewPeers() error {
	d.requests++
	return d.failWith
}

func (d *fakeDiscovery) Ping(deadline mclock.AbsTime) error {
	d.pings = append(d.pings, deadline)
	return d.failWith
}

func (d *fakeDiscovery) Disconnect(id NodeID) {
	d.dropped = append(d.dropped, id)
}

func (d *fakeDiscovery) Flush() (bool, error) {
	d.flushes++
	return !d.pending, d.failWith
}

// fakeTransport implements Transport against in-memory queues. The active
// peer set is what the session's replenishment check reads.
type fakeTransport struct {
	journal *[]string

	active   mapset.Set[NodeID]
	added    []*net.TCPAddr
	addedIDs []NodeID
	sent     []SendMessage
	events   []TransportEvent
	dropped  []NodeID
	flushes  int
	pending  bool
	failWith error
}

func newFakeTransport(journal *[]string) *fakeTransport {
	return &fakeTransport{journal: journal, active: mapset.NewSet[NodeID]()}
}

func (t *fakeTransport) AddPeer(addr *net.TCPAddr, id NodeID) {
	if t.journal != nil {
		*t.journal = append(*t.journal, "add "+id.TerminalString())
	}
	t.added = append(t.added, addr)
	t.addedIDs = append(t.addedIDs, id)
}

func (t *fakeTransport) DisconnectPeer(id NodeID) {
	t.dropped = append(t.dropped, id)
	t.active.Remove(id)
}

func (t *fakeTransport) ActivePeers() []NodeID {
	return t.active.ToSlice()
}

func (t *fakeTransport) Send(msg SendMessage) error {
	if t.failWith != nil {
		return t.failWith
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) Next() (TransportEvent, bool, error) {
	if t.journal != nil {
		*t.journal = append(*t.journal, "next")
	}
	if t.failWith != nil {
		return nil, false, t.failWith
	}
	if len(t.events) == 0 {
		return nil, false, nil
	}
	ev := t.events[0]
	t.events = t.events[1:]
	return ev, true, nil
}

func (t *fakeTransport) Flush() (bool, error) {
	t.flushes++
	return !t.pending, nil
}

func testNode(seed byte) *Node {
	var id NodeID
	id[0] = seed
	return &Node{ID: id, IP: net.IPv4(10, 0, 0, seed), UDP: 30303, TCP: 30303}
}

type fakeStreamPieces struct {
	disc  *fakeDiscovery
	trans *fakeTransport
	clock *mclock.Simulated
	s     *Stream
}

func newTestStream(t *testing.T, cfg Config) *fakeStreamPieces {
	t.Helper()
	journal := new([]string)
	p := &fakeStreamPieces{
		disc:  &fakeDiscovery{},
		trans: newFakeTransport(journal),
		clock: new(mclock.Simulated),
	}
	cfg.Clock = p.clock
	s, err := NewStream(cfg, p.disc, p.trans)
	require.NoError(t, err)
	p.s = s
	return p
}

func (p *fakeStreamPieces) journal() []string { return *p.trans.journal }

func TestNewStreamRequiresCollaborators(t *testing.T) {
	if _, err := NewStream(Config{}, nil, newFakeTransport(nil)); err == nil {
		t.Fatal("expected error for nil discovery")
	}
	if _, err := NewStream(Config{}, &fakeDiscovery{}, nil); err == nil {
		t.Fatal("expected error for nil transport")
	}
}

func TestBootstrapNodesRegistered(t *testing.T) {
	boot := []*Node{testNode(1), testNode(2)}
	p := newTestStream(t, Config{BootstrapNodes: boot})

	require.Len(t, p.trans.addedIDs, 2)
	for i, n := range boot {
		assert.Equal(t, n.ID, p.trans.addedIDs[i])
		assert.Equal(t, n.TCPAddr().String(), p.trans.added[i].String())
	}
}

func TestPollForwardsDiscoveredNodes(t *testing.T) {
	p := newTestStream(t, Config{})
	nodes := []*Node{testNode(1), testNode(2), testNode(3)}
	p.disc.nodes = append(p.disc.nodes, nodes...)

	ev, err := p.s.Poll()
	require.NoError(t, err)
	assert.Nil(t, ev)

	require.Len(t, p.trans.addedIDs, 3)
	for i, n := range nodes {
		assert.Equal(t, n.ID, p.trans.addedIDs[i])
	}
	// Registration must precede this turn's transport servicing.
	assert.Equal(t, []string{"add " + nodes[0].ID.TerminalString(), "add " + nodes[1].ID.TerminalString(), "add " + nodes[2].ID.TerminalString(), "next"}, p.journal())
}

func TestPollReturnsTransportEvent(t *testing.T) {
	p := newTestStream(t, Config{})
	want := PeerConnected{ID: testNode(7).ID}
	p.trans.events = append(p.trans.events, want)

	ev, err := p.s.Poll()
	require.NoError(t, err)
	assert.Equal(t, want, ev)

	ev, err = p.s.Poll()
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestRefillBelowTarget(t *testing.T) {
	const interval = 10 * time.Second
	p := newTestStream(t, Config{MaxPeers: 5, RefillInterval: interval})

	// One lookup per elapsed interval while under target.
	for i := 1; i <= 4; i++ {
		p.clock.Run(interval)
		_, err := p.s.Poll()
		require.NoError(t, err)
		assert.Equal(t, i, p.disc.requests)
	}
	// No additional lookup without an elapsed interval.
	_, err := p.s.Poll()
	require.NoError(t, err)
	assert.Equal(t, 4, p.disc.requests)
}

func TestRefillSkippedWhenSaturated(t *testing.T) {
	const interval = 10 * time.Second
	p := newTestStream(t, Config{MaxPeers: 2, RefillInterval: interval})
	p.trans.active.Add(testNode(1).ID)
	p.trans.active.Add(testNode(2).ID)

	p.clock.Run(interval)
	_, err := p.s.Poll()
	require.NoError(t, err)
	assert.Zero(t, p.disc.requests)

	// The deadline was rearmed anyway: dropping below target only
	// triggers a lookup once the next interval elapses.
	p.trans.active.Remove(testNode(2).ID)
	_, err = p.s.Poll()
	require.NoError(t, err)
	assert.Zero(t, p.disc.requests)

	p.clock.Run(interval)
	_, err = p.s.Poll()
	require.NoError(t, err)
	assert.Equal(t, 1, p.disc.requests)
}

func TestPingCarriesTimeoutDeadline(t *testing.T) {
	const (
		interval = 15 * time.Second
		timeout  = 40 * time.Second
	)
	p := newTestStream(t, Config{PingInterval: interval, PingTimeout: timeout})

	p.clock.Run(interval)
	_, err := p.s.Poll()
	require.NoError(t, err)

	require.Len(t, p.disc.pings, 1)
	assert.Equal(t, p.clock.Now().Add(timeout), p.disc.pings[0])
}

func TestPingBacklogCatchUp(t *testing.T) {
	const interval = 15 * time.Second
	p := newTestStream(t, Config{PingInterval: interval})

	// A long stall must not leave the deadline permanently behind the
	// clock: after the catch-up the next ping is one interval away.
	p.clock.Run(5 * interval)
	_, err := p.s.Poll()
	require.NoError(t, err)
	require.NotEmpty(t, p.disc.pings)
	sent := len(p.disc.pings)

	_, err = p.s.Poll()
	require.NoError(t, err)
	assert.Len(t, p.disc.pings, sent, "ping fired without an elapsed interval")

	p.clock.Run(interval)
	_, err = p.s.Poll()
	require.NoError(t, err)
	assert.Len(t, p.disc.pings, sent+1)
}

func TestSendRunsHousekeeping(t *testing.T) {
	const interval = 10 * time.Second
	p := newTestStream(t, Config{
		MaxPeers:       5,
		RefillInterval: interval,
		PingInterval:   interval,
	})
	n := testNode(9)
	p.disc.nodes = append(p.disc.nodes, n)
	p.clock.Run(interval)

	msg := SendMessage{Target: SendToAll(), Capability: "eth", Code: 2, Data: []byte{0xc0}}
	require.NoError(t, p.s.Send(msg))

	require.Len(t, p.trans.sent, 1)
	assert.Equal(t, msg, p.trans.sent[0])
	assert.Equal(t, []NodeID{n.ID}, p.trans.addedIDs)
	assert.Equal(t, 1, p.disc.requests)
	assert.Len(t, p.disc.pings, 1)
}

func TestFlushCompletesDiscoveryFirst(t *testing.T) {
	p := newTestStream(t, Config{})
	p.disc.pending = true

	done, err := p.s.Flush()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Zero(t, p.trans.flushes, "transport flushed before discovery drained")

	p.disc.pending = false
	done, err = p.s.Flush()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, p.trans.flushes)
}

func TestDisconnectPeerHitsBothLayers(t *testing.T) {
	p := newTestStream(t, Config{})
	id := testNode(3).ID
	p.trans.active.Add(id)

	p.s.DisconnectPeer(id)
	assert.Equal(t, []NodeID{id}, p.trans.dropped)
	assert.Equal(t, []NodeID{id}, p.disc.dropped)
	assert.False(t, p.trans.active.Contains(id))

	// Disconnecting an already-gone peer is not an error.
	p.s.DisconnectPeer(id)
	assert.Len(t, p.trans.dropped, 2)
}

func TestActivePeersDelegates(t *testing.T) {
	p := newTestStream(t, Config{})
	id := testNode(4).ID
	p.trans.active.Add(id)
	assert.Equal(t, []NodeID{id}, p.s.ActivePeers())
}

func TestCollaboratorErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")

	p := newTestStream(t, Config{})
	p.disc.failWith = boom
	_, err := p.s.Poll()
	assert.ErrorIs(t, err, boom)

	p = newTestStream(t, Config{})
	p.trans.failWith = boom
	_, err = p.s.Poll()
	assert.ErrorIs(t, err, boom)

	p = newTestStream(t, Config{})
	p.trans.failWith = boom
	err = p.s.Send(SendMessage{Target: SendToAny(), Capability: "eth", Code: 0, Data: []byte{0xc0}})
	assert.ErrorIs(t, err, boom)
}

func TestSendTarget(t *testing.T) {
	id := testNode(5).ID

	all := SendToAll()
	assert.True(t, all.All())
	assert.False(t, all.Any())
	if _, ok := all.Peer(); ok {
		t.Fatal("broadcast target names a peer")
	}

	one := SendToPeer(id)
	assert.False(t, one.All())
	got, ok := one.Peer()
	require.True(t, ok)
	assert.Equal(t, id, got)

	assert.True(t, SendToAny().Any())
}

func TestNodeString(t *testing.T) {
	n := testNode(0xab)
	assert.Equal(t, fmt.Sprintf("Node %s 10.0.0.171:30303", n.ID.TerminalString()), n.String())
}
