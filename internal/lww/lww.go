// Package lww implements a last-writer-wins replicated map.
//
// Every write is stamped with a Lamport timestamp; concurrent writes to the
// same key are ordered by (timestamp, origin). Applying an operation is
// idempotent and commutative, so replicas converge no matter how often or in
// what order operations arrive, which is what makes it a useful protocol to
// push through a lossy, duplicating network.
package lww

import (
	"maps"
	"slices"
)

// Op is a single write as it travels between replicas.
type Op struct {
	Origin int    // replica that issued the write
	Seq    uint64 // per-origin counter, starting at 1
	Clock  uint64 // Lamport timestamp
	Key    string
	Value  string
}

// ID identifies an operation across replicas.
type ID struct {
	Origin int
	Seq    uint64
}

// ID returns the operation's identity.
func (o Op) ID() ID {
	return ID{Origin: o.Origin, Seq: o.Seq}
}

// newer reports whether o wins over an entry written at (clock, origin).
func (o Op) newer(clock uint64, origin int) bool {
	if o.Clock != clock {
		return o.Clock > clock
	}
	return o.Origin > origin
}

type entry struct {
	value  string
	clock  uint64
	origin int
}

// Replica is one copy of the map. The zero value is not usable; call New.
type Replica struct {
	id      int
	clock   uint64
	seq     uint64
	entries map[string]entry
	seen    map[ID]struct{}
	log     []Op

	duplicates int
}

// New creates an empty replica.
func New(id int) *Replica {
	return &Replica{
		id:      id,
		entries: make(map[string]entry),
		seen:    make(map[ID]struct{}),
	}
}

// ID returns the replica id.
func (r *Replica) ID() int {
	return r.id
}

// Set writes key locally and returns the operation to broadcast.
func (r *Replica) Set(key, value string) Op {
	r.clock++
	r.seq++
	op := Op{
		Origin: r.id,
		Seq:    r.seq,
		Clock:  r.clock,
		Key:    key,
		Value:  value,
	}
	r.Apply(op)
	return op
}

// Apply merges an operation. It reports false if the operation had already
// been applied.
func (r *Replica) Apply(op Op) bool {
	if _, ok := r.seen[op.ID()]; ok {
		r.duplicates++
		return false
	}
	r.seen[op.ID()] = struct{}{}
	r.log = append(r.log, op)

	if op.Clock > r.clock {
		r.clock = op.Clock
	}

	cur, ok := r.entries[op.Key]
	if !ok || op.newer(cur.clock, cur.origin) {
		r.entries[op.Key] = entry{value: op.Value, clock: op.Clock, origin: op.Origin}
	}
	return true
}

// Get returns the current value of key.
func (r *Replica) Get(key string) (string, bool) {
	e, ok := r.entries[key]
	return e.value, ok
}

// Snapshot returns a copy of the map's contents.
func (r *Replica) Snapshot() map[string]string {
	out := make(map[string]string, len(r.entries))
	for k, e := range r.entries {
		out[k] = e.value
	}
	return out
}

// Ops returns every operation applied so far, in the order applied. Sending
// it to a peer that missed traffic brings that peer up to date.
func (r *Replica) Ops() []Op {
	return slices.Clone(r.log)
}

// Clock returns the replica's Lamport clock.
func (r *Replica) Clock() uint64 {
	return r.clock
}

// Applied returns the number of distinct operations applied, local writes
// included.
func (r *Replica) Applied() int {
	return len(r.seen)
}

// Duplicates returns how many operations arrived more than once.
func (r *Replica) Duplicates() int {
	return r.duplicates
}

// Converged reports whether every replica holds the same contents.
func Converged(replicas ...*Replica) bool {
	if len(replicas) < 2 {
		return true
	}
	want := replicas[0].Snapshot()
	for _, r := range replicas[1:] {
		if !maps.Equal(want, r.Snapshot()) {
			return false
		}
	}
	return true
}
