package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleStatus_ReportsRoles(t *testing.T) {
	h := New(map[string]string{"holder": "did:web:localhost%3A8083:holder"})

	rec, body := serve(t, h, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"holder": "did:web:localhost%3A8083:holder"}, body["roles"])
}

func TestHandleLiveness(t *testing.T) {
	rec, body := serve(t, New(nil), "/health/live")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
}

func TestHandleReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New(nil)
		h.RegisterCheck("did_resolver", func() error { return nil })

		rec, body := serve(t, h, "/health/ready")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"did_resolver": "up"}, body["checks"])
	})

	t.Run("failing check reports not ready", func(t *testing.T) {
		h := New(nil)
		h.RegisterCheck("issuer_delivery", func() error { return errors.New("closed") })

		rec, body := serve(t, h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, map[string]any{"issuer_delivery": "down: closed"}, body["checks"])
	})
}
