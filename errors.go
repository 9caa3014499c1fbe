package faultnet

import (
	"errors"
	"fmt"
)

// Error classes for simulator operations.
// Use errors.Is() to check the class, then inspect the message for details.
//
// Error Classification:
//   - ErrConfig: invalid construction options - returned from New
//   - ErrUnknownReplica: operation on an id never passed to AddPeer - panics
//   - ErrDuplicateReplica: AddPeer called twice for the same id - panics
//   - ErrSelfSend: point-to-point send addressed to the sender - panics
//   - ErrReplay: a ReplaySource ran out of draws or diverged - panics
//
// Everything except ErrConfig indicates a bug in the test driver, not a
// condition the simulator tolerates, so those are raised with panic and
// surface as a failed test with the offending replica id in the message.
var (
	// ErrConfig indicates invalid options passed to New.
	ErrConfig = errors.New("configuration error")

	// ErrUnknownReplica indicates an operation addressed a replica that was
	// never registered.
	ErrUnknownReplica = errors.New("unknown replica")

	// ErrDuplicateReplica indicates AddPeer was called twice with the same id.
	ErrDuplicateReplica = errors.New("replica already registered")

	// ErrSelfSend indicates a point-to-point send from a replica to itself.
	ErrSelfSend = errors.New("replica cannot send to itself")

	// ErrReplay indicates a recorded random sequence no longer matches the
	// draws requested of it.
	ErrReplay = errors.New("replay diverged")
)

func wrapConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfig, msg)
}

func wrapConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func unknownReplica(id any) error {
	return fmt.Errorf("%w: %v", ErrUnknownReplica, id)
}

func duplicateReplica(id any) error {
	return fmt.Errorf("%w: %v", ErrDuplicateReplica, id)
}

func wrapReplayf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReplay, fmt.Sprintf(format, args...))
}
