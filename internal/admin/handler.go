package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/auth"
	request "dcptck/pkg/platform/middleware/request"
)

// Handler handles admin monitoring and token endpoints
type Handler struct {
	service    *Service
	adminToken string
	logger     *slog.Logger
}

// New creates a new admin handler. Every route requires adminToken in the
// X-Admin-Token header.
func New(service *Service, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Register registers admin routes with the router
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/admin/stats", h.HandleGetStats)
		r.Get("/admin/credentials", h.HandleListCredentials)
		r.Post("/admin/tokens", h.HandleMintToken)
	})
}

// HandleGetStats returns overall engine statistics
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := h.service.GetStats(ctx)

	h.logger.InfoContext(ctx, "admin stats retrieved",
		"request_id", request.GetRequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleListCredentials returns the credentials held by the holder
func (h *Handler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds := h.service.ListCredentials()

	h.logger.InfoContext(ctx, "admin credential list retrieved",
		"request_id", request.GetRequestID(ctx),
		"count", len(creds),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"credentials": creds,
		"total":       len(creds),
	})
}

// HandleMintToken issues a holder ID token for a verifier test run
func (h *Handler) HandleMintToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tok, err := h.service.MintToken(ctx, req.Audience, req.Scopes)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to mint token",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin token minted",
		"request_id", requestID,
		"audience", req.Audience,
		"scopes", len(req.Scopes),
	)
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{Token: tok})
}
