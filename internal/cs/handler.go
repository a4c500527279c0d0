package cs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dcptck/internal/message"
	"dcptck/internal/verifier"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/auth"
	"dcptck/pkg/platform/middleware/request"
)

const maxBodyBytes = 1 << 20

// SchemaValidator validates a decoded message against a named JSON schema.
type SchemaValidator interface {
	Validate(name string, document any) error
}

// Handler exposes the credential service endpoints.
type Handler struct {
	svc      Service
	idTokens TokenValidator
	schemas  SchemaValidator
	logger   *slog.Logger
}

// NewHandler creates a handler. idTokens validates the verifier's ID token on
// presentation queries and must require the holder DID as audience.
func NewHandler(svc Service, idTokens TokenValidator, schemas SchemaValidator, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, idTokens: idTokens, schemas: schemas, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(h.logger))
		r.Post(message.PresentationQueryPath, h.HandlePresentationQuery)
		r.Post(message.CredentialsPath, h.HandleCredentialMessage)
		r.Post("/offers", h.HandleOffer)
	})
}

// HandlePresentationQuery implements POST /presentations/query.
func (h *Handler) HandlePresentationQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	raw, doc, ok := h.readMessage(ctx, w, r)
	if !ok {
		return
	}
	if doc[message.TypeKey] != message.TypePresentationQuery {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Message is not a "+message.TypePresentationQuery))
		return
	}

	tok, err := h.idTokens.Validate(ctx, auth.BearerToken(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "presentation query token rejected",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Recode(err, dErrors.CodeUnauthorized))
		return
	}

	if err := h.schemas.Validate(verifier.PresentationQuerySchema, doc); err != nil {
		h.logger.WarnContext(ctx, "presentation query failed schema validation",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Schema validation failed: "+err.Error()))
		return
	}

	msg, err := message.Decode[message.PresentationQueryMessage](raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.svc.PresentationQuery(ctx, tok.Issuer(), tok.StringClaim(message.TokenClaim), msg)
	if err != nil {
		h.logger.InfoContext(ctx, "presentation query failed",
			"error", err,
			"bearer", tok.Issuer(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCredentialMessage implements POST /credentials for deliveries.
func (h *Handler) HandleCredentialMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, doc, ok := h.readMessage(ctx, w, r)
	if !ok {
		return
	}
	if doc[message.TypeKey] != message.TypeCredentialMessage {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "Invalid message type, expected '%s', got '%v'", message.TypeCredentialMessage, doc[message.TypeKey]))
		return
	}
	h.WriteCredentials(w, r, raw)
}

// WriteCredentials stores a raw CredentialMessage delivered with the request's
// bearer token. Shared with the issuer's dispatching endpoint.
func (h *Handler) WriteCredentials(w http.ResponseWriter, r *http.Request, raw []byte) {
	ctx := r.Context()
	msg, err := message.Decode[message.CredentialMessage](raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.WriteCredentials(ctx, auth.BearerToken(ctx), msg); err != nil {
		h.logger.WarnContext(ctx, "credential write rejected",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleOffer implements POST /offers.
func (h *Handler) HandleOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, doc, ok := h.readMessage(ctx, w, r)
	if !ok {
		return
	}
	if doc[message.TypeKey] != message.TypeCredentialOffer {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "Invalid message type, expected '%s', got '%v'", message.TypeCredentialOffer, doc[message.TypeKey]))
		return
	}
	msg, err := message.Decode[message.CredentialOfferMessage](raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.OfferCredentials(ctx, auth.BearerToken(ctx), msg); err != nil {
		h.logger.WarnContext(ctx, "credential offer rejected",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readMessage returns the body both raw and as a generic JSON object.
func (h *Handler) readMessage(ctx context.Context, w http.ResponseWriter, r *http.Request) ([]byte, map[string]any, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON"))
		return nil, nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		h.logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON"))
		return nil, nil, false
	}
	return raw, doc, true
}
