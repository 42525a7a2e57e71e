package httputil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// RecordedRequest is a request seen by MockHTTPClient, body included.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type cannedReply struct {
	status int
	body   string
	err    error
}

// MockHTTPClient answers requests from a queue of canned replies and records
// every request it sees. An exhausted queue fails the request.
type MockHTTPClient struct {
	mu      sync.Mutex
	replies []cannedReply
	calls   []RecordedRequest
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// Respond queues a JSON reply with the given status and body.
func (m *MockHTTPClient) Respond(status int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, cannedReply{status: status, body: body})
	return m
}

// Fail queues a transport error.
func (m *MockHTTPClient) Fail(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, cannedReply{err: err})
	return m
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no reply queued for %s %s", req.Method, req.URL)
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Status:     fmt.Sprintf("%d %s", r.status, http.StatusText(r.status)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(r.body)),
		Request:    req,
	}, nil
}

// Calls returns a copy of the requests seen so far, oldest first.
func (m *MockHTTPClient) Calls() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.calls...)
}

// Pending reports how many queued replies have not been used.
func (m *MockHTTPClient) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}
