package testsupport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// FakeOpenRouter is an httptest server standing in for the chat completions
// endpoint. It records call counts and the last request body.
type FakeOpenRouter struct {
	Server *httptest.Server

	calls    atomic.Int32
	mu       sync.Mutex
	lastBody string
}

// NewFakeOpenRouter starts a fake endpoint answering every request with respond.
// The server is closed when the test ends.
func NewFakeOpenRouter(t testing.TB, respond http.HandlerFunc) *FakeOpenRouter {
	t.Helper()

	fake := &FakeOpenRouter{}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.calls.Add(1)
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)
		fake.mu.Lock()
		fake.lastBody = body.String()
		fake.mu.Unlock()
		respond(w, r)
	}))
	t.Cleanup(fake.Server.Close)
	return fake
}

// URL returns the base URL to configure the client with.
func (f *FakeOpenRouter) URL() string {
	return f.Server.URL
}

// Calls reports how many requests reached the server.
func (f *FakeOpenRouter) Calls() int {
	return int(f.calls.Load())
}

// LastBody returns the most recent request body.
func (f *FakeOpenRouter) LastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

// RespondContent answers with a well-formed envelope carrying content.
func RespondContent(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message":       map[string]any{"content": content},
					"finish_reason": "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// RespondStatus answers every request with status and body.
func RespondStatus(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, status)
	}
}
