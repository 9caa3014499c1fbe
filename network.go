// Package faultnet provides a deterministic-random network simulator for
// testing replicated and eventually-consistent protocols.
//
// A Network keeps one inbox per registered replica. Broadcasting a batch
// fans it out to every other replica, enqueuing each message one or more
// times at random positions, and receiving drains a random-length prefix of
// an inbox. Messages from different senders interleave arbitrarily, but
// copies from a single sender are never queued ahead of anything that sender
// broadcast earlier.
//
// All randomness comes from the RandomSource handed to New, so a run is
// reproducible given the same seed and the same sequence of calls. The
// Network does no locking; it is driven from a single test goroutine.
package faultnet

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Envelope is a message tagged with the replica that sent it.
type Envelope[ID cmp.Ordered, M any] struct {
	Message M
	Sender  ID
}

// Stats contains network statistics.
type Stats struct {
	Broadcasts int // Broadcast and Send calls
	Messages   int // messages recorded in history
	Enqueued   int // envelopes inserted into inboxes
	Duplicates int // envelopes beyond the first copy of a message
	Dropped    int // recipient copies lost to partitions or crashes
	Delivered  int // envelopes returned by Receive
	Receives   int // Receive calls
}

// Network simulates an unreliable network between replicas identified by ID
// carrying messages of type M.
type Network[ID cmp.Ordered, M any] struct {
	cfg    *Config[M]
	rng    RandomSource
	logger *zap.Logger

	inboxes map[ID][]Envelope[ID, M]
	peers   []ID // ascending, for reproducible fan-out
	history []M

	// Fault state
	partitions [][]ID
	crashed    map[ID]bool

	stats Stats
}

// New creates a network drawing all randomness from rng.
func New[ID cmp.Ordered, M any](rng RandomSource, opts ...Option[M]) (*Network[ID, M], error) {
	if rng == nil {
		return nil, wrapConfig("random source is required")
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Network[ID, M]{
		cfg:     cfg,
		rng:     rng,
		logger:  cfg.Logger,
		inboxes: make(map[ID][]Envelope[ID, M]),
		crashed: make(map[ID]bool),
	}, nil
}

// AddPeer registers an empty inbox for id. Registering the same id twice is
// a driver bug and panics.
func (n *Network[ID, M]) AddPeer(id ID) {
	if _, ok := n.inboxes[id]; ok {
		panic(duplicateReplica(id))
	}

	n.inboxes[id] = nil
	at, _ := slices.BinarySearch(n.peers, id)
	n.peers = slices.Insert(n.peers, at, id)

	n.logger.Debug("peer added", zap.Any("replica", id), zap.Int("peers", len(n.peers)))
}

// Peers returns the registered replica ids in ascending order.
func (n *Network[ID, M]) Peers() []ID {
	return slices.Clone(n.peers)
}

// IsIdle returns true if every inbox is empty.
func (n *Network[ID, M]) IsIdle() bool {
	for _, inbox := range n.inboxes {
		if len(inbox) > 0 {
			return false
		}
	}
	return true
}

// HasUnreceived returns true if id has pending envelopes.
func (n *Network[ID, M]) HasUnreceived(id ID) bool {
	return len(n.mustInbox(id)) > 0
}

// Pending returns the number of envelopes waiting in id's inbox.
func (n *Network[ID, M]) Pending(id ID) int {
	return len(n.mustInbox(id))
}

// Inbox returns a copy of id's pending envelopes in delivery order.
func (n *Network[ID, M]) Inbox(id ID) []Envelope[ID, M] {
	return slices.Clone(n.mustInbox(id))
}

// Broadcast sends messages from sender to every other registered replica.
//
// For each recipient (ascending id) and each message (in order), between
// MinCopies and MaxCopies copies are inserted at random positions no earlier
// than one past the recipient's last pending envelope from sender. That
// position is recomputed per message, so copies inserted for earlier
// messages of the same call count. The messages are then appended to the
// history whether or not any recipient got them.
func (n *Network[ID, M]) Broadcast(sender ID, messages ...M) {
	n.stats.Broadcasts++

	recipients := 0
	for _, to := range n.peers {
		if to == sender {
			continue
		}
		if !n.reachable(sender, to) {
			n.stats.Dropped += len(messages)
			continue
		}
		recipients++

		inbox := n.inboxes[to]
		for _, msg := range messages {
			inbox = n.enqueue(inbox, sender, msg)
		}
		n.inboxes[to] = inbox
	}

	n.record(messages)

	n.logger.Debug("broadcast",
		zap.Any("sender", sender),
		zap.Int("messages", len(messages)),
		zap.Int("recipients", recipients))
}

// Send is the point-to-point form of Broadcast: the same duplication and
// ordering rules applied to a single recipient.
func (n *Network[ID, M]) Send(sender, recipient ID, messages ...M) {
	inbox := n.mustInbox(recipient)
	if sender == recipient {
		panic(fmt.Errorf("%w: %v", ErrSelfSend, sender))
	}

	n.stats.Broadcasts++

	if n.reachable(sender, recipient) {
		for _, msg := range messages {
			inbox = n.enqueue(inbox, sender, msg)
		}
		n.inboxes[recipient] = inbox
	} else {
		n.stats.Dropped += len(messages)
	}

	n.record(messages)

	n.logger.Debug("send",
		zap.Any("sender", sender),
		zap.Any("recipient", recipient),
		zap.Int("messages", len(messages)))
}

// enqueue inserts copies of msg from sender into inbox and returns the
// updated inbox.
func (n *Network[ID, M]) enqueue(inbox []Envelope[ID, M], sender ID, msg M) []Envelope[ID, M] {
	minIndex := 0
	for i := len(inbox) - 1; i >= 0; i-- {
		if inbox[i].Sender == sender {
			minIndex = i + 1
			break
		}
	}

	copies := intRange(n.rng, n.cfg.MinCopies, n.cfg.MaxCopies)
	for range copies {
		at := intRange(n.rng, minIndex, len(inbox))
		inbox = slices.Insert(inbox, at, Envelope[ID, M]{Message: n.clone(msg), Sender: sender})
	}

	n.stats.Enqueued += copies
	n.stats.Duplicates += copies - 1
	return inbox
}

func (n *Network[ID, M]) clone(msg M) M {
	if n.cfg.Clone == nil {
		return msg
	}
	return n.cfg.Clone(msg)
}

func (n *Network[ID, M]) record(messages []M) {
	n.history = append(n.history, messages...)
	n.stats.Messages += len(messages)
}

// Receive removes and returns a random-length prefix of id's inbox,
// possibly empty, possibly everything. The rest stays queued in order.
func (n *Network[ID, M]) Receive(id ID) []M {
	inbox := n.mustInbox(id)
	n.stats.Receives++

	if n.crashed[id] {
		return nil
	}

	count := intRange(n.rng, 0, len(inbox))
	messages := make([]M, count)
	for i := range count {
		messages[i] = inbox[i].Message
	}
	n.inboxes[id] = slices.Delete(inbox, 0, count)
	n.stats.Delivered += count

	n.logger.Debug("receive",
		zap.Any("replica", id),
		zap.Int("delivered", count),
		zap.Int("pending", len(n.inboxes[id])))

	return messages
}

// History returns every message ever passed to Broadcast or Send, in call
// order, regardless of delivery.
func (n *Network[ID, M]) History() []M {
	return slices.Clone(n.history)
}

// Stats returns network statistics.
func (n *Network[ID, M]) Stats() Stats {
	return n.stats
}

// mustInbox returns id's inbox or panics if id was never registered.
func (n *Network[ID, M]) mustInbox(id ID) []Envelope[ID, M] {
	inbox, ok := n.inboxes[id]
	if !ok {
		panic(unknownReplica(id))
	}
	return inbox
}
