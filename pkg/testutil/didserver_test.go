package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDIDServer_ServesRegisteredDocuments(t *testing.T) {
	srv := NewDIDServer(t)
	srv.Put("", map[string]string{"id": srv.DID("")})
	srv.Put("holder", json.RawMessage(`{"id":"raw"}`))

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	code, body := get("/.well-known/did.json")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, srv.DID(""))

	code, body = get("/holder/did.json")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"id":"raw"}`, body)

	code, _ = get("/missing/did.json")
	assert.Equal(t, http.StatusNotFound, code)

	srv.FailRequests(true)
	code, _ = get("/holder/did.json")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, 4, srv.Hits())
}

func TestDIDServer_DID(t *testing.T) {
	srv := NewDIDServer(t)

	assert.Contains(t, srv.DID("a/b"), "%3A")
	assert.Regexp(t, `^did:web:127\.0\.0\.1%3A\d+:a:b$`, srv.DID("a/b"))
}
