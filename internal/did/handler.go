package did

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dcptck/pkg/platform/httputil"
)

// DocumentPath returns the HTTP path a did:web identifier resolves to:
// /.well-known/did.json without path segments, /<path>/did.json otherwise.
func DocumentPath(did string) string {
	address, err := URLFromDID(did, "http")
	if err != nil {
		return wellKnown + documentName
	}
	rest := address[len("http://"):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i:]
	}
	return wellKnown + documentName
}

// Handler serves a role's DID document.
type Handler struct {
	svc *Service
}

// NewHandler creates a document handler for svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the document at the path its DID resolves to.
func (h *Handler) Register(r chi.Router) {
	r.Get(DocumentPath(h.svc.DID()), h.handleDocument)
}

func (h *Handler) handleDocument(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.svc.Document())
}
