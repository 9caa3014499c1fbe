package faultnet

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// seqMsg identifies a message by its sender and the sender's counter so
// ordering can be checked after the fact.
type seqMsg struct {
	From int
	Seq  int
}

// networkMachine drives a Network with random broadcasts and receives and
// checks the delivery invariants after every step.
type networkMachine struct {
	net     *Network[int, seqMsg]
	peers   int
	nextSeq map[int]int
	sent    []seqMsg

	// lastSeen[recipient][sender] is the highest Seq delivered so far.
	lastSeen map[int]map[int]int
}

func newNetworkMachine(t *rapid.T) *networkMachine {
	peers := rapid.IntRange(1, 5).Draw(t, "peers")
	seed := rapid.Uint64().Draw(t, "seed")

	net, err := New[int, seqMsg](NewSeededSource(seed))
	if err != nil {
		t.Fatalf("new network: %v", err)
	}

	m := &networkMachine{
		net:      net,
		peers:    peers,
		nextSeq:  make(map[int]int),
		lastSeen: make(map[int]map[int]int),
	}
	for i := range peers {
		net.AddPeer(i)
		m.lastSeen[i] = make(map[int]int)
	}
	return m
}

func (m *networkMachine) broadcast(t *rapid.T) {
	sender := rapid.IntRange(0, m.peers-1).Draw(t, "sender")
	count := rapid.IntRange(0, 4).Draw(t, "count")

	batch := make([]seqMsg, count)
	for i := range count {
		m.nextSeq[sender]++
		batch[i] = seqMsg{From: sender, Seq: m.nextSeq[sender]}
	}

	before := make(map[int]int)
	for _, p := range m.net.Peers() {
		before[p] = m.net.Pending(p)
	}

	m.net.Broadcast(sender, batch...)
	m.sent = append(m.sent, batch...)

	// Every other replica gets between one and three copies of each message.
	for _, p := range m.net.Peers() {
		if p == sender {
			if m.net.Pending(p) != before[p] {
				t.Fatalf("sender %d inbox changed on its own broadcast", p)
			}
			continue
		}
		copies := make(map[seqMsg]int)
		for _, env := range m.net.Inbox(p) {
			copies[env.Message]++
		}
		for _, msg := range batch {
			if c := copies[msg]; c < DefaultMinCopies || c > DefaultMaxCopies {
				t.Fatalf("replica %d got %d copies of %+v", p, c, msg)
			}
		}
	}
}

func (m *networkMachine) receive(t *rapid.T) {
	id := rapid.IntRange(0, m.peers-1).Draw(t, "receiver")

	before := m.net.Pending(id)
	got := m.net.Receive(id)

	if len(got) > before {
		t.Fatalf("received %d of %d pending", len(got), before)
	}
	if after := m.net.Pending(id); after != before-len(got) {
		t.Fatalf("pending %d after receiving %d of %d", after, len(got), before)
	}
	if m.net.HasUnreceived(id) != (before-len(got) > 0) {
		t.Fatalf("HasUnreceived disagrees with pending count")
	}

	for _, msg := range got {
		if msg.From == id {
			t.Fatalf("replica %d received its own message %+v", id, msg)
		}
		if last := m.lastSeen[id][msg.From]; msg.Seq < last {
			t.Fatalf("replica %d saw seq %d from %d after seq %d", id, msg.Seq, msg.From, last)
		}
		m.lastSeen[id][msg.From] = msg.Seq
	}
}

func (m *networkMachine) check(t *rapid.T) {
	idle := true
	for _, p := range m.net.Peers() {
		last := make(map[int]int)
		for i, env := range m.net.Inbox(p) {
			if env.Sender == p {
				t.Fatalf("replica %d holds its own envelope at %d", p, i)
			}
			if env.Sender != env.Message.From {
				t.Fatalf("envelope sender %d does not match message %+v", env.Sender, env.Message)
			}
			if env.Message.Seq < last[env.Sender] {
				t.Fatalf("replica %d inbox has seq %d from %d after seq %d",
					p, env.Message.Seq, env.Sender, last[env.Sender])
			}
			last[env.Sender] = env.Message.Seq
		}
		if m.net.HasUnreceived(p) {
			idle = false
		}
	}
	if m.net.IsIdle() != idle {
		t.Fatalf("IsIdle=%v but pending inboxes say %v", m.net.IsIdle(), idle)
	}

	history := m.net.History()
	if len(history) != len(m.sent) {
		t.Fatalf("history has %d messages, sent %d", len(history), len(m.sent))
	}
	for i := range history {
		if history[i] != m.sent[i] {
			t.Fatalf("history[%d] = %+v, sent %+v", i, history[i], m.sent[i])
		}
	}
}

func TestNetworkInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newNetworkMachine(t)
		t.Repeat(map[string]func(*rapid.T){
			"broadcast": m.broadcast,
			"receive":   m.receive,
			"":          m.check,
		})
	})
}

// TestDrainReachesIdle checks that repeatedly receiving on every replica
// eventually empties the network, however the traffic was generated.
func TestDrainReachesIdle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newNetworkMachine(t)
		steps := rapid.IntRange(0, 20).Draw(t, "steps")
		for range steps {
			m.broadcast(t)
		}

		for round := 0; !m.net.IsIdle(); round++ {
			if round > 10_000 {
				t.Fatalf("network did not drain: %s", fmt.Sprint(m.net.Stats()))
			}
			for _, p := range m.net.Peers() {
				m.net.Receive(p)
			}
		}
		m.check(t)
	})
}
