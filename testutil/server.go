package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

var (
	// ErrForbidden is returned by Connect while connections are forbidden.
	ErrForbidden = errors.New("server is forbidding connections")

	// ErrUnauthorized is returned by Connect for a stale access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotConnected is returned when no client is connected.
	ErrNotConnected = errors.New("not connected")
)

// Credentials identify a client to the FakeServer.
type Credentials struct {
	UserID      uint64
	AccessToken string
}

// FakeServer stands in for a remote service that clients authenticate
// against. It counts authentication attempts, can be told to refuse
// connections, and can invalidate issued tokens.
type FakeServer struct {
	userID uint64

	authCount   atomic.Int64
	accessToken atomic.Int64
	forbid      atomic.Bool

	mu       sync.Mutex
	incoming chan any
}

// NewFakeServer creates a server that accepts userID.
func NewFakeServer(userID uint64) *FakeServer {
	return &FakeServer{userID: userID}
}

// Authenticate issues credentials carrying the current access token.
func (s *FakeServer) Authenticate() Credentials {
	s.authCount.Add(1)
	return Credentials{
		UserID:      s.userID,
		AccessToken: strconv.FormatInt(s.accessToken.Load(), 10),
	}
}

// Connect establishes a connection for creds.
func (s *FakeServer) Connect(creds Credentials) error {
	if creds.UserID != s.userID {
		return fmt.Errorf("%w: user %d, expected %d", ErrUnauthorized, creds.UserID, s.userID)
	}
	if s.forbid.Load() {
		return ErrForbidden
	}
	if creds.AccessToken != strconv.FormatInt(s.accessToken.Load(), 10) {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.incoming = make(chan any, 64)
	return nil
}

// Disconnect drops the current connection.
func (s *FakeServer) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incoming = nil
}

// IsConnected returns true if a client is connected.
func (s *FakeServer) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incoming != nil
}

// Send delivers msg from the connected client to the server.
func (s *FakeServer) Send(msg any) error {
	s.mu.Lock()
	ch := s.incoming
	s.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}
	ch <- msg
	return nil
}

// Receive waits for the next message sent by the client.
func (s *FakeServer) Receive(ctx context.Context) (any, error) {
	s.mu.Lock()
	ch := s.incoming
	s.mu.Unlock()

	if ch == nil {
		return nil, ErrNotConnected
	}

	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AuthCount returns how many times Authenticate was called.
func (s *FakeServer) AuthCount() int {
	return int(s.authCount.Load())
}

// RollAccessToken invalidates previously issued tokens.
func (s *FakeServer) RollAccessToken() {
	s.accessToken.Add(1)
}

// ForbidConnections makes Connect fail with ErrForbidden.
func (s *FakeServer) ForbidConnections() {
	s.forbid.Store(true)
}

// AllowConnections undoes ForbidConnections.
func (s *FakeServer) AllowConnections() {
	s.forbid.Store(false)
}
