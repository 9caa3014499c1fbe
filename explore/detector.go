package explore

import (
	"fmt"
	"maps"
	"slices"

	"github.com/edgedlt/faultnet/internal/lww"
)

// Message is what replicas exchange over the simulated network: one
// operation stamped with the network-level sender and that sender's
// broadcast counter. Resync batches forward operations from other origins,
// so Sender and Op.Origin can differ.
type Message struct {
	Sender int
	Seq    uint64
	Op     lww.Op
}

// Detector checks observed traffic for delivery violations.
type Detector struct {
	// lastSeq[recipient][sender] is the highest Seq delivered so far
	lastSeq map[int]map[int]uint64

	// Detected violations
	violations []Violation
}

// NewDetector creates a new violation detector.
func NewDetector() *Detector {
	return &Detector{
		lastSeq:    make(map[int]map[int]uint64),
		violations: make([]Violation, 0),
	}
}

// RecordDelivery records a batch handed to recipient by a single receive
// and checks it for self-delivery and per-sender reordering. Duplicates of
// the last delivered message are allowed.
func (d *Detector) RecordDelivery(round, recipient int, batch []Message) {
	seqs, ok := d.lastSeq[recipient]
	if !ok {
		seqs = make(map[int]uint64)
		d.lastSeq[recipient] = seqs
	}

	for _, msg := range batch {
		if msg.Sender == recipient {
			d.add(Violation{
				Type:        ViolationSelfDelivery,
				Description: fmt.Sprintf("replica %d received its own message seq %d", recipient, msg.Seq),
				Replica:     recipient,
				Round:       round,
			})
			continue
		}

		if last := seqs[msg.Sender]; msg.Seq < last {
			d.add(Violation{
				Type: ViolationSenderOrder,
				Description: fmt.Sprintf("replica %d got seq %d from %d after seq %d",
					recipient, msg.Seq, msg.Sender, last),
				Replica: recipient,
				Round:   round,
			})
			continue
		}
		seqs[msg.Sender] = msg.Seq
	}
}

// CheckHistory compares the network history against everything the
// executor broadcast.
func (d *Detector) CheckHistory(sent, history []Message) {
	if len(sent) != len(history) {
		d.add(Violation{
			Type:        ViolationHistory,
			Description: fmt.Sprintf("history has %d messages, %d were sent", len(history), len(sent)),
			Replica:     -1,
			Round:       -1,
		})
		return
	}

	for i := range sent {
		if sent[i] != history[i] {
			d.add(Violation{
				Type:        ViolationHistory,
				Description: fmt.Sprintf("history[%d] = %+v, sent %+v", i, history[i], sent[i]),
				Replica:     -1,
				Round:       -1,
			})
			return
		}
	}
}

// CheckConvergence checks that every replica applied every operation and
// holds the same contents.
func (d *Detector) CheckConvergence(replicas []*lww.Replica, writes int) {
	for _, r := range replicas {
		if r.Applied() != writes {
			d.add(Violation{
				Type:        ViolationLostWrite,
				Description: fmt.Sprintf("replica %d applied %d of %d operations", r.ID(), r.Applied(), writes),
				Replica:     r.ID(),
				Round:       -1,
			})
		}
	}

	if lww.Converged(replicas...) {
		return
	}

	want := replicas[0].Snapshot()
	for _, r := range replicas[1:] {
		got := r.Snapshot()
		if maps.Equal(want, got) {
			continue
		}
		d.add(Violation{
			Type: ViolationDivergence,
			Description: fmt.Sprintf("replica %d diverges from replica %d on keys %v",
				r.ID(), replicas[0].ID(), diffKeys(want, got)),
			Replica: r.ID(),
			Round:   -1,
		})
	}
}

// diffKeys returns the sorted keys on which a and b disagree.
func diffKeys(a, b map[string]string) []string {
	diff := make(map[string]struct{})
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			diff[k] = struct{}{}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			diff[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(diff))
}

// RecordStuck records that the drain gave up with traffic still pending.
func (d *Detector) RecordStuck(sweeps int) {
	d.add(Violation{
		Type:        ViolationStuck,
		Description: fmt.Sprintf("network still busy after %d drain sweeps", sweeps),
		Replica:     -1,
		Round:       -1,
	})
}

func (d *Detector) add(v Violation) {
	d.violations = append(d.violations, v)
}

// GetViolations returns all detected violations.
func (d *Detector) GetViolations() []Violation {
	return append([]Violation{}, d.violations...)
}

// HasViolations returns true if any violations were detected.
func (d *Detector) HasViolations() bool {
	return len(d.violations) > 0
}
