// Package explore runs seed-driven fault scenarios against a replicated
// protocol over a faultnet.Network.
//
// A Scenario fixes the cluster size, how long the workload runs and which
// faults (partitions, crashes) strike when. The Executor drives replicas of
// an LWW map through the simulated network for that many rounds, heals every
// fault, resynchronises and drains, then hands everything it observed to a
// Detector that reports delivery-order and convergence violations. Because
// every random choice derives from Scenario.Seed, a failing scenario can be
// rerun exactly.
package explore

import (
	"fmt"

	"github.com/edgedlt/faultnet"
)

// Scenario defines one exploration run.
type Scenario struct {
	// Replicas is the number of replicas in the cluster
	Replicas int `yaml:"replicas"`

	// Rounds is the number of workload rounds before healing
	Rounds int `yaml:"rounds"`

	// Writes is the number of writes in each broadcast batch
	Writes int `yaml:"writes"`

	// Keys is the number of distinct keys written; fewer keys means more
	// conflicting writes
	Keys int `yaml:"keys"`

	// Partitions defines network partitions active from round 0
	Partitions []Partition `yaml:"partitions,omitempty"`

	// PartitionRounds is how many rounds the partitions last.
	// 0 keeps them until the workload ends.
	PartitionRounds int `yaml:"partition_rounds,omitempty"`

	// Crashes lists crash faults
	Crashes []CrashFault `yaml:"crashes,omitempty"`

	// Seed drives both the network and the workload
	Seed uint64 `yaml:"seed"`
}

// Partition represents a network partition.
type Partition struct {
	// Nodes is the list of replica ids in this partition
	Nodes []int `yaml:"nodes"`
}

// CrashFault crashes a replica for a span of rounds.
type CrashFault struct {
	Replica int `yaml:"replica"`

	// At is the round at which the replica crashes
	At int `yaml:"at"`

	// RecoverAt is the round at which it comes back. 0 means it stays down
	// until the workload ends.
	RecoverAt int `yaml:"recover_at,omitempty"`
}

func (s Scenario) String() string {
	return fmt.Sprintf("replicas=%d rounds=%d writes=%d keys=%d partitions=%d crashes=%d seed=%d",
		s.Replicas, s.Rounds, s.Writes, s.Keys, len(s.Partitions), len(s.Crashes), s.Seed)
}

// Result represents the result of executing a scenario.
type Result struct {
	// Scenario is the scenario that was executed
	Scenario Scenario

	// Success indicates if the scenario passed (no violations)
	Success bool

	// Violations contains any detected violations
	Violations []Violation

	// Writes is the number of distinct operations issued
	Writes int

	// Stats are the network counters at the end of the run
	Stats faultnet.Stats

	// DrainRounds is how many receive sweeps the final drain took
	DrainRounds int
}

// Violation represents a detected violation.
type Violation struct {
	// Type of violation
	Type ViolationType

	// Description of what went wrong
	Description string

	// Replica that observed the violation, -1 if cluster-wide
	Replica int

	// Round where the violation occurred, -1 if during the drain
	Round int
}

// ViolationType categorizes violations.
type ViolationType int

const (
	// ViolationNone - no violation (shouldn't happen in Violation slice)
	ViolationNone ViolationType = iota

	// ViolationSelfDelivery - a replica received a message it sent
	ViolationSelfDelivery

	// ViolationSenderOrder - messages from one sender arrived out of order
	ViolationSenderOrder

	// ViolationDivergence - replicas disagree after the network drained
	ViolationDivergence

	// ViolationLostWrite - a replica is missing an operation after resync
	ViolationLostWrite

	// ViolationHistory - the network history does not match what was sent
	ViolationHistory

	// ViolationStuck - the network did not drain within the bound
	ViolationStuck
)

func (v ViolationType) String() string {
	switch v {
	case ViolationNone:
		return "None"
	case ViolationSelfDelivery:
		return "SelfDelivery"
	case ViolationSenderOrder:
		return "SenderOrder"
	case ViolationDivergence:
		return "Divergence"
	case ViolationLostWrite:
		return "LostWrite"
	case ViolationHistory:
		return "History"
	case ViolationStuck:
		return "Stuck"
	default:
		return "Unknown"
	}
}

// ValidateScenario checks if a scenario is valid.
func ValidateScenario(s Scenario) error {
	if s.Replicas < 2 {
		return fmt.Errorf("replicas must be >= 2, got %d", s.Replicas)
	}

	if s.Rounds < 1 {
		return fmt.Errorf("rounds must be >= 1, got %d", s.Rounds)
	}

	if s.Writes < 1 {
		return fmt.Errorf("writes must be >= 1, got %d", s.Writes)
	}

	if s.Keys < 1 {
		return fmt.Errorf("keys must be >= 1, got %d", s.Keys)
	}

	if s.PartitionRounds < 0 || s.PartitionRounds > s.Rounds {
		return fmt.Errorf("partition rounds must be in [0, %d], got %d", s.Rounds, s.PartitionRounds)
	}

	// Validate partitions reference valid replica ids, each at most once
	seen := make(map[int]bool)
	for i, partition := range s.Partitions {
		for _, id := range partition.Nodes {
			if id < 0 || id >= s.Replicas {
				return fmt.Errorf("partition %d references invalid replica %d (total replicas: %d)",
					i, id, s.Replicas)
			}
			if seen[id] {
				return fmt.Errorf("replica %d appears in more than one partition", id)
			}
			seen[id] = true
		}
	}

	for i, c := range s.Crashes {
		if c.Replica < 0 || c.Replica >= s.Replicas {
			return fmt.Errorf("crash %d references invalid replica %d (total replicas: %d)",
				i, c.Replica, s.Replicas)
		}
		if c.At < 0 || c.At >= s.Rounds {
			return fmt.Errorf("crash %d round %d outside [0, %d)", i, c.At, s.Rounds)
		}
		if c.RecoverAt != 0 && (c.RecoverAt <= c.At || c.RecoverAt > s.Rounds) {
			return fmt.Errorf("crash %d recovers at %d, must be in (%d, %d]", i, c.RecoverAt, c.At, s.Rounds)
		}
	}

	return nil
}
