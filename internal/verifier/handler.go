package verifier

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/auth"
	"dcptck/pkg/platform/middleware/request"
)

// Runner starts a verification exchange for a holder ID token.
type Runner interface {
	Run(ctx context.Context, idToken string) error
}

// Handler exposes the verifier trigger and the schemas it validates with.
type Handler struct {
	trigger Runner
	schemas *SchemaValidator
	logger  *slog.Logger
}

func NewHandler(trigger Runner, schemas *SchemaValidator, logger *slog.Logger) *Handler {
	return &Handler{trigger: trigger, schemas: schemas, logger: logger}
}

// Register mounts POST /api/trigger (bearer required) and GET /schema/*.
func (h *Handler) Register(r chi.Router) {
	r.With(auth.RequireBearer(h.logger)).Post("/api/trigger", h.HandleTrigger)
	r.Get("/schema/*", h.HandleSchema)
}

// HandleTrigger answers 200 with an empty body when every presentation
// verified, 401 with the failure otherwise, or the credential service's own
// status when it refused the query.
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	err := h.trigger.Run(ctx, auth.BearerToken(ctx))
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	var remote *RemoteStatusError
	if errors.As(err, &remote) {
		h.logger.WarnContext(ctx, "credential service refused presentation query",
			"status", remote.StatusCode,
			"request_id", requestID,
		)
		httputil.WriteJSON(w, remote.StatusCode, map[string]string{
			"error":             "remote_error",
			"error_description": remote.Status,
		})
		return
	}

	h.logger.WarnContext(ctx, "verification failed",
		"error", err,
		"request_id", requestID,
	)
	httputil.WriteError(w, dErrors.Recode(err, dErrors.CodeUnauthorized))
}

// HandleSchema serves the membership credential schema for every path under
// /schema.
func (h *Handler) HandleSchema(w http.ResponseWriter, _ *http.Request) {
	data, _ := h.schemas.Raw(MembershipCredentialSchema)
	httputil.WriteRaw(w, http.StatusOK, "application/schema+json", data)
}
