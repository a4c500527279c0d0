package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"dcptck/pkg/platform/middleware/request"
	"dcptck/pkg/platform/middleware/requesttime"
)

// DefaultRequestTimeout bounds a single inbound request.
const DefaultRequestTimeout = 30 * time.Second

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config collects everything the router serves. Nil handlers are skipped.
type Config struct {
	Logger       *slog.Logger
	Latency      request.LatencyObserver
	Timeout      time.Duration
	MaxBodyBytes int64

	// AllowedOrigins enables CORS for the listed origins; "*" allows any.
	AllowedOrigins []string

	// Root handlers register absolute paths: DID documents, the verifier,
	// the status list, admin and health endpoints.
	Root []Registrar

	// Holder and Issuer are mounted under their own path prefix because both
	// roles serve /credentials.
	Holder Registrar
	Issuer Registrar

	Metrics http.Handler
}

// Route prefixes of the hosted roles. Their DID documents advertise
// base URL + prefix as service endpoint.
const (
	HolderPrefix = "/holder"
	IssuerPrefix = "/issuer"
)

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg Config) http.Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = request.DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Timeout(timeout))
	r.Use(requesttime.Middleware)
	r.Use(request.ContentTypeJSON)
	r.Use(request.BodyLimit(maxBody))
	r.Use(request.Latency(cfg.Latency))

	for _, h := range cfg.Root {
		if h != nil {
			h.Register(r)
		}
	}
	if cfg.Holder != nil {
		r.Route(HolderPrefix, cfg.Holder.Register)
	}
	if cfg.Issuer != nil {
		r.Route(IssuerPrefix, cfg.Issuer.Register)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if len(cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization", "X-Admin-Token", "X-Request-ID"},
		ExposedHeaders: []string{"Location"},
	}).Handler(r)
}
