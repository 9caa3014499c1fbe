package testutil

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// Handler maps a request to the response a fake endpoint returns.
type Handler func(*http.Request) (*http.Response, error)

// FakeTransport is an http.RoundTripper that hands every request to a
// Handler instead of the network.
type FakeTransport struct {
	handler Handler

	mu       sync.Mutex
	requests []*http.Request
}

// NewFakeTransport creates a transport backed by handler.
func NewFakeTransport(handler Handler) *FakeTransport {
	return &FakeTransport{handler: handler}
}

// NewFakeHTTPClient returns an *http.Client whose every request is answered
// by handler.
func NewFakeHTTPClient(handler Handler) *http.Client {
	return &http.Client{Transport: NewFakeTransport(handler)}
}

// RoundTrip implements http.RoundTripper.
func (f *FakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	resp, err := f.handler(req)
	if err != nil {
		return nil, err
	}
	if resp.Request == nil {
		resp.Request = req
	}
	return resp, nil
}

// Requests returns the requests seen so far.
func (f *FakeTransport) Requests() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request{}, f.requests...)
}

// Respond builds a response with the given status and body.
func Respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// NotFound is a Handler that answers 404 to everything.
func NotFound(*http.Request) (*http.Response, error) {
	return Respond(http.StatusNotFound, ""), nil
}
