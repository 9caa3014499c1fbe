package faultnet

import (
	"slices"

	"go.uber.org/zap"
)

// SetPartitions configures network partitions.
// Each group is a set of replicas that can communicate with each other.
// Replicas in no group communicate with everyone.
func (n *Network[ID, M]) SetPartitions(groups ...[]ID) {
	partitions := make([][]ID, len(groups))
	for i, group := range groups {
		for _, id := range group {
			n.mustInbox(id)
		}
		partitions[i] = slices.Clone(group)
	}
	n.partitions = partitions

	n.logger.Debug("partitions set", zap.Int("groups", len(groups)))
}

// ClearPartitions removes all network partitions.
func (n *Network[ID, M]) ClearPartitions() {
	n.partitions = nil
	n.logger.Debug("partitions cleared")
}

// Partitions returns a copy of the current partitions.
func (n *Network[ID, M]) Partitions() [][]ID {
	if n.partitions == nil {
		return nil
	}
	result := make([][]ID, len(n.partitions))
	for i, p := range n.partitions {
		result[i] = slices.Clone(p)
	}
	return result
}

// CanCommunicate returns true if from and to are not separated by a
// partition.
func (n *Network[ID, M]) CanCommunicate(from, to ID) bool {
	return !n.isPartitioned(from, to)
}

// Crash simulates a replica crash. The replica loses whatever was queued for
// it, receives nothing until recovered, and everything it sends is dropped.
func (n *Network[ID, M]) Crash(id ID) {
	inbox := n.mustInbox(id)
	n.crashed[id] = true
	n.stats.Dropped += len(inbox)
	n.inboxes[id] = nil

	n.logger.Debug("replica crashed", zap.Any("replica", id), zap.Int("lost", len(inbox)))
}

// Recover brings a crashed replica back with an empty inbox.
func (n *Network[ID, M]) Recover(id ID) {
	n.mustInbox(id)
	delete(n.crashed, id)

	n.logger.Debug("replica recovered", zap.Any("replica", id))
}

// IsCrashed returns true if id is crashed.
func (n *Network[ID, M]) IsCrashed(id ID) bool {
	n.mustInbox(id)
	return n.crashed[id]
}

// reachable reports whether an envelope from sender can land in to's inbox.
func (n *Network[ID, M]) reachable(from, to ID) bool {
	if n.crashed[from] || n.crashed[to] {
		return false
	}
	return !n.isPartitioned(from, to)
}

// isPartitioned checks if two replicas are in different partitions.
func (n *Network[ID, M]) isPartitioned(from, to ID) bool {
	if len(n.partitions) == 0 {
		return false
	}

	fromPartition := -1
	toPartition := -1

	for i, partition := range n.partitions {
		for _, id := range partition {
			if id == from {
				fromPartition = i
			}
			if id == to {
				toPartition = i
			}
		}
	}

	// If either replica is not in any partition, they can communicate
	if fromPartition == -1 || toPartition == -1 {
		return false
	}

	return fromPartition != toPartition
}
