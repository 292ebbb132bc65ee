package mangadexapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// memStore is an in-memory Store that records Persist calls.
type memStore struct {
	values     map[string]string
	persisted  [][]string
	persistErr error
}

func newMemStore(kv ...string) *memStore {
	s := &memStore{values: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *memStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *memStore) Set(key, value string) {
	s.values[key] = value
}

func (s *memStore) Persist(keys ...string) error {
	s.persisted = append(s.persisted, keys)
	return s.persistErr
}

func credentialStore(kv ...string) *memStore {
	return newMemStore(append([]string{
		KeyUsername, "user",
		KeyPassword, "hunter2",
		KeyClientID, "personal-client-id",
		KeyClientSecret, "secret",
	}, kv...)...)
}

func newTestClient(t *testing.T, handler http.Handler, store Store) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(store,
		WithHTTPClient(srv.Client()),
		WithBaseURL(srv.URL),
		WithAuthURL(srv.URL+"/auth"),
		WithRequestDelay(0),
		WithLogger(zerolog.Nop()),
	)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// counted wraps h and counts the requests it serves.
func counted(n *atomic.Int32, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		h(w, r)
	}
}

type jsonMap = map[string]any

// recorder collects values seen by a test server handler.
type recorder[T any] struct {
	mu    sync.Mutex
	items []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}
