package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// mockHandler captures whether it was called and the request context.
type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type BearerMiddlewareTestSuite struct {
	suite.Suite
	nextHandler *mockHandler
	middleware  func(http.Handler) http.Handler
}

func (s *BearerMiddlewareTestSuite) SetupTest() {
	s.nextHandler = &mockHandler{}
	s.middleware = RequireBearer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBearerMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(BearerMiddlewareTestSuite))
}

func (s *BearerMiddlewareTestSuite) serve(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/presentations/query", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	s.middleware(s.nextHandler).ServeHTTP(w, req)
	return w
}

func (s *BearerMiddlewareTestSuite) TestValidBearer() {
	w := s.serve("Bearer eyJhbGciOiJFUzI1NiJ9.e30.sig")

	s.Equal(http.StatusOK, w.Code)
	s.True(s.nextHandler.called)
	s.Equal("eyJhbGciOiJFUzI1NiJ9.e30.sig", BearerToken(s.nextHandler.context))
}

func (s *BearerMiddlewareTestSuite) TestRejectsMalformedHeaders() {
	for _, header := range []string{"", "eyJ.e30.sig", "bearer eyJ.e30.sig", "Basic dXNlcjpwYXNz", "Bearer ", "Bearer    "} {
		s.Run(header, func() {
			s.nextHandler.called = false
			w := s.serve(header)

			s.Equal(http.StatusUnauthorized, w.Code)
			s.False(s.nextHandler.called)

			var body map[string]string
			s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
			s.Equal("unauthorized", body["error"])
		})
	}
}

func TestParseBearer(t *testing.T) {
	token, ok := ParseBearer("Bearer abc")
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = ParseBearer("Token abc")
	assert.False(t, ok)
}

func TestBearerToken_EmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", BearerToken(context.Background()))
}

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		expected string
		sent     string
		want     int
	}{
		{"matching token", "secret", "secret", http.StatusNoContent},
		{"wrong token", "secret", "guess", http.StatusUnauthorized},
		{"disabled when unset", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/status/revocations/3", nil)
			req.Header.Set("X-Admin-Token", tt.sent)
			w := httptest.NewRecorder()
			RequireAdminToken(tt.expected, logger)(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
