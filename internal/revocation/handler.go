package revocation

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/auth"
	"dcptck/pkg/platform/middleware/request"
)

// Handler serves the status list credential and the admin revocation
// endpoint.
type Handler struct {
	svc        Service
	adminToken string
	logger     *slog.Logger
}

// NewHandler creates a handler. An empty adminToken disables revocation over
// HTTP.
func NewHandler(svc Service, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, adminToken: adminToken, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/status/{id}", h.HandleStatusList)
	r.With(auth.RequireAdminToken(h.adminToken, h.logger)).
		Post("/status/revocations/{index}", h.HandleRevoke)
}

// HandleStatusList implements GET /status/{id}.
func (h *Handler) HandleStatusList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if chi.URLParam(r, "id") != h.svc.CredentialID() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "No status list found"))
		return
	}
	credential, err := h.svc.CreateStatusListCredential(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render status list",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to render status list"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, credential)
}

// HandleRevoke implements POST /status/revocations/{index}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 || index >= h.svc.Len() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "Invalid status list index: %s", raw))
		return
	}
	h.svc.SetRevoked(index)
	h.logger.InfoContext(ctx, "credential revoked",
		"status_list_index", index,
		"request_id", request.GetRequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
