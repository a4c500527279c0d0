package issuer

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dcptck/internal/message"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/auth"
	reqmw "dcptck/pkg/platform/middleware/request"
)

const maxBodyBytes = 1 << 20

// CredentialWriter stores a CredentialMessage posted to the issuer endpoint.
type CredentialWriter interface {
	WriteCredentials(w http.ResponseWriter, r *http.Request, raw []byte)
}

// Handler exposes the issuer service endpoints.
type Handler struct {
	svc    *Service
	writer CredentialWriter
	logger *slog.Logger
}

// NewHandler creates a handler. writer may be nil, in which case credential
// messages are rejected like any other unexpected type.
func NewHandler(svc *Service, writer CredentialWriter, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, writer: writer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/metadata", h.HandleMetadata)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(h.logger))
		r.Post(message.CredentialsPath, h.HandleCredentials)
		r.Get(message.CredentialsPath+"/status/{id}", h.HandleStatus)
		r.Get("/requests/{id}", h.HandleStatus)
	})
}

// HandleCredentials dispatches POST /credentials on the message type.
func (h *Handler) HandleCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := reqmw.GetRequestID(ctx)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON"))
		return
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON"))
		return
	}

	switch doc[message.TypeKey] {
	case message.TypeCredentialMessage:
		if h.writer != nil {
			h.writer.WriteCredentials(w, r, raw)
			return
		}
	case message.TypeCredentialRequest:
		h.handleRequest(w, r, raw)
		return
	}
	h.logger.WarnContext(ctx, "unexpected message type",
		"type", doc[message.TypeKey],
		"request_id", requestID,
	)
	httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest,
		"Invalid message type, expected either '%s' or '%s', got '%v'",
		message.TypeCredentialMessage, message.TypeCredentialRequest, doc[message.TypeKey]))
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request, raw []byte) {
	ctx := r.Context()
	msg, err := message.Decode[message.CredentialRequestMessage](raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid credential request message"))
		return
	}
	issuerPid, err := h.svc.ProcessCredentialRequest(ctx, auth.BearerToken(ctx), msg)
	if err != nil {
		h.logger.WarnContext(ctx, "credential request rejected",
			"error", err,
			"request_id", reqmw.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, message.CredentialsPath+"/status/"+issuerPid)
}

// HandleStatus implements GET /credentials/status/{id}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.svc.CredentialStatus(ctx, auth.BearerToken(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleMetadata implements GET /metadata.
func (h *Handler) HandleMetadata(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.svc.Metadata())
}
