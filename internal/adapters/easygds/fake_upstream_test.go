package easygds_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeUpstream serves /api/v2/auth with a counting token issuer and replays
// a scripted list of statuses on every other path.
type fakeUpstream struct {
	*httptest.Server

	authCalls int32
	dataCalls int32

	mu        sync.Mutex
	statuses  []int
	authCode  int
	authBody  string
	authDelay time.Duration
	lastReqs  []*http.Request
	lastBodys []string
}

func newFakeUpstream(t *testing.T, statuses ...int) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{statuses: statuses, authCode: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v2/auth" {
		n := atomic.AddInt32(&f.authCalls, 1)
		f.mu.Lock()
		code, body, delay := f.authCode, f.authBody, f.authDelay
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		w.WriteHeader(code)
		if body != "" {
			_, _ = w.Write([]byte(body))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token": fmt.Sprintf("tok-%d", n)})
		return
	}

	n := int(atomic.AddInt32(&f.dataCalls, 1))
	f.mu.Lock()
	f.lastReqs = append(f.lastReqs, r.Clone(r.Context()))
	b, _ := io.ReadAll(r.Body)
	f.lastBodys = append(f.lastBodys, string(b))
	status := http.StatusOK
	if n <= len(f.statuses) {
		status = f.statuses[n-1]
	}
	f.mu.Unlock()

	w.WriteHeader(status)
	if status == http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]any{"call": n, "auth": r.Header.Get("Authorization")})
		return
	}
	_, _ = w.Write([]byte(`{"error":"nope"}`))
}

func (f *fakeUpstream) requests() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.lastReqs...)
}

func (f *fakeUpstream) bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lastBodys...)
}

func (f *fakeUpstream) setAuth(code int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCode, f.authBody = code, body
}
