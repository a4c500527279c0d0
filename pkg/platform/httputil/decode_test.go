package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "dcptck/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offerBody struct {
	Issuer string   `json:"issuer"`
	IDs    []string `json:"ids"`
}

// scopeBody trims its scopes and rejects an empty set with a plain error.
type scopeBody struct {
	Scopes  []string `json:"scopes"`
	cleaned bool
}

func (b *scopeBody) Sanitize() { b.cleaned = true }

func (b *scopeBody) Normalize() {
	for i, s := range b.Scopes {
		b.Scopes[i] = strings.TrimSpace(s)
	}
}

func (b *scopeBody) Validate() error {
	if len(b.Scopes) == 0 {
		return errors.New("at least one scope is required")
	}
	return nil
}

// holderBody reports a domain error with its own code.
type holderBody struct {
	HolderPid string `json:"holderPid"`
}

func (b *holderBody) Validate() error {
	if b.HolderPid == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "holderPid is required")
	}
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(body string) (*httptest.ResponseRecorder, *http.Request) {
	return httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes body", func(t *testing.T) {
		w, r := post(`{"issuer":"did:web:issuer","ids":["a","b"]}`)
		got, ok := DecodeJSON[offerBody](w, r, discard(), r.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "did:web:issuer", got.Issuer)
		assert.Equal(t, []string{"a", "b"}, got.IDs)
	})

	for name, body := range map[string]string{
		"malformed": `{issuer}`,
		"empty":     ``,
	} {
		t.Run(name+" body is rejected", func(t *testing.T) {
			w, r := post(body)
			got, ok := DecodeJSON[offerBody](w, r, discard(), r.Context(), "req-1")
			assert.False(t, ok)
			assert.Nil(t, got)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", errorBody(t, w)["error"])
		})
	}
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("runs every preparation step", func(t *testing.T) {
		w, r := post(`{"scopes":["  a:b:read "]}`)
		got, ok := DecodeAndPrepare[scopeBody](w, r, discard(), r.Context(), "req-1")
		require.True(t, ok)
		assert.True(t, got.cleaned)
		assert.Equal(t, []string{"a:b:read"}, got.Scopes)
	})

	t.Run("plain validation error becomes bad request", func(t *testing.T) {
		w, r := post(`{"scopes":[]}`)
		got, ok := DecodeAndPrepare[scopeBody](w, r, discard(), r.Context(), "req-1")
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := errorBody(t, w)
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "at least one scope is required", body["error_description"])
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		w, r := post(`{}`)
		_, ok := DecodeAndPrepare[holderBody](w, r, discard(), r.Context(), "req-1")
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "holderPid is required", errorBody(t, w)["error_description"])
	})
}

func TestPrepareRequest(t *testing.T) {
	assert.NoError(t, PrepareRequest(&offerBody{}))
	assert.NoError(t, PrepareRequest(&holderBody{HolderPid: "p1"}))
	assert.True(t, dErrors.HasCode(PrepareRequest(&holderBody{}), dErrors.CodeUnauthorized))
}
