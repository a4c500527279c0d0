package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// DIDServer serves DID documents for did:web resolution tests. Documents are
// registered per path segment ("" maps to /.well-known/did.json).
type DIDServer struct {
	*httptest.Server

	mu    sync.RWMutex
	docs  map[string]any
	hits  atomic.Int32
	fails atomic.Bool
}

// NewDIDServer starts a plain HTTP fixture server closed via t.Cleanup.
func NewDIDServer(t testing.TB) *DIDServer {
	t.Helper()
	s := &DIDServer{docs: make(map[string]any)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Host returns the did:web host segment for this server, with the port
// separator percent encoded.
func (s *DIDServer) Host() string {
	host := strings.TrimPrefix(s.URL, "http://")
	return strings.ReplaceAll(host, ":", "%3A")
}

// DID returns the did:web identifier resolving to path on this server.
func (s *DIDServer) DID(path string) string {
	if path == "" {
		return "did:web:" + s.Host()
	}
	return "did:web:" + s.Host() + ":" + strings.ReplaceAll(strings.Trim(path, "/"), "/", ":")
}

// Put registers doc (a struct or raw json.RawMessage) under path.
func (s *DIDServer) Put(path string, doc any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[strings.Trim(path, "/")] = doc
}

// Hits returns the number of document requests served.
func (s *DIDServer) Hits() int {
	return int(s.hits.Load())
}

// FailRequests makes every subsequent request answer 500 until reset.
func (s *DIDServer) FailRequests(fail bool) {
	s.fails.Store(fail)
}

func (s *DIDServer) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	if s.fails.Load() {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	path := strings.TrimSuffix(strings.Trim(r.URL.Path, "/"), "did.json")
	path = strings.Trim(path, "/")
	if path == ".well-known" {
		path = ""
	}
	s.mu.RLock()
	doc, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if raw, isRaw := doc.(json.RawMessage); isRaw {
		_, _ = w.Write(raw)
		return
	}
	_ = json.NewEncoder(w).Encode(doc)
}
