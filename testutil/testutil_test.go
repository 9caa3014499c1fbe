package testutil

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleText(t *testing.T) {
	assert.Equal(t, "aaaa\nbbbb\ncccc", SampleText(3, 4))
	assert.Equal(t, "", SampleText(0, 4))
	assert.Equal(t, "\n\n", SampleText(3, 0))
}

func TestTempTree(t *testing.T) {
	dir := TempTree(t, `{
  "a": {
    "b.txt": "hello",
    "c": {"d.txt": "nested"}
  },
  "empty": null,
  "top.txt": ""
}`)

	data, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "a", "c", "d.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))

	info, err := os.Stat(filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	info, err = os.Stat(filepath.Join(dir, "top.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestFakeHTTPClient(t *testing.T) {
	client := NewFakeHTTPClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/ping" {
			return Respond(http.StatusOK, "pong"), nil
		}
		return NotFound(req)
	})

	resp, err := client.Get("https://collab.example/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "/ping", resp.Request.URL.Path)

	resp, err = client.Get("https://collab.example/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	transport := client.Transport.(*FakeTransport)
	require.Len(t, transport.Requests(), 2)
	assert.Equal(t, "/missing", transport.Requests()[1].URL.Path)
}

func TestFakeHTTPClientError(t *testing.T) {
	client := NewFakeHTTPClient(func(*http.Request) (*http.Response, error) {
		return nil, assert.AnError
	})

	_, err := client.Get("https://collab.example/")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFakeServerAuthentication(t *testing.T) {
	server := NewFakeServer(5)

	creds := server.Authenticate()
	assert.Equal(t, uint64(5), creds.UserID)
	assert.Equal(t, 1, server.AuthCount())

	require.NoError(t, server.Connect(creds))
	assert.True(t, server.IsConnected())

	server.Disconnect()
	assert.False(t, server.IsConnected())

	server.RollAccessToken()
	assert.ErrorIs(t, server.Connect(creds), ErrUnauthorized)

	fresh := server.Authenticate()
	assert.Equal(t, 2, server.AuthCount())
	assert.NotEqual(t, creds.AccessToken, fresh.AccessToken)
	require.NoError(t, server.Connect(fresh))

	assert.ErrorIs(t, server.Connect(Credentials{UserID: 6, AccessToken: fresh.AccessToken}), ErrUnauthorized)
}

func TestFakeServerForbidConnections(t *testing.T) {
	server := NewFakeServer(1)
	creds := server.Authenticate()

	server.ForbidConnections()
	assert.ErrorIs(t, server.Connect(creds), ErrForbidden)
	assert.False(t, server.IsConnected())

	server.AllowConnections()
	assert.NoError(t, server.Connect(creds))
}

func TestFakeServerMessages(t *testing.T) {
	server := NewFakeServer(1)

	assert.ErrorIs(t, server.Send("early"), ErrNotConnected)
	_, err := server.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, server.Connect(server.Authenticate()))
	require.NoError(t, server.Send("hello"))

	msg, err := server.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", msg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = server.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
