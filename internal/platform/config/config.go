package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	BaseURL  string
	LogLevel string

	// Role DIDs. Empty values are derived from BaseURL.
	HolderDID     string
	IssuerDID     string
	VerifierDID   string
	ThirdPartyDID string

	DIDHTTPS          bool
	DIDCacheTTL       time.Duration
	DIDResolveTimeout time.Duration

	STSURL          string
	STSClientID     string
	STSClientSecret string

	JTITTL              time.Duration
	StatusListType      string
	StatusListLSBFirst  bool
	CORSAllowedOrigins  []string
	IssuerDeliveryDelay time.Duration
	AdminToken          string

	// SeedCredentials delivers the test profile credentials to the holder
	// once the server listens.
	SeedCredentials bool
	SweepInterval   time.Duration
	ShutdownTimeout time.Duration
}

// Defaults applied when the matching variable is absent or unparsable.
var (
	DefaultAddr                = ":8083"
	DefaultBaseURL             = "http://localhost:8083"
	DefaultDIDResolveTimeout   = 10 * time.Second
	DefaultIssuerDeliveryDelay = 500 * time.Millisecond
	DefaultStatusListType      = "StatusList2021"
	DefaultSweepInterval       = time.Minute
	DefaultShutdownTimeout     = 10 * time.Second
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Server config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) Server {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	duration := func(key string, def time.Duration) time.Duration {
		if v := get(key, ""); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		}
		return def
	}

	cfg := Server{
		Addr:                get("DCP_ADDR", DefaultAddr),
		BaseURL:             strings.TrimSuffix(get("DCP_BASE_URL", DefaultBaseURL), "/"),
		LogLevel:            get("LOG_LEVEL", "info"),
		DIDHTTPS:            get("DID_HTTPS", "false") == "true",
		DIDCacheTTL:         duration("DID_CACHE_TTL", 0),
		DIDResolveTimeout:   duration("DID_RESOLVE_TIMEOUT", DefaultDIDResolveTimeout),
		STSURL:              get("STS_URL", ""),
		STSClientID:         get("STS_CLIENT_ID", ""),
		STSClientSecret:     get("STS_CLIENT_SECRET", ""),
		JTITTL:              duration("JTI_TTL", 0),
		StatusListType:      get("STATUS_LIST_TYPE", DefaultStatusListType),
		StatusListLSBFirst:  get("STATUS_LIST_LSB_FIRST", "false") == "true",
		IssuerDeliveryDelay: duration("ISSUER_DELIVERY_DELAY", DefaultIssuerDeliveryDelay),
		AdminToken:          get("DCP_ADMIN_TOKEN", ""),
		SeedCredentials:     get("SEED_CREDENTIALS", "true") == "true",
		SweepInterval:       duration("SWEEP_INTERVAL", DefaultSweepInterval),
		ShutdownTimeout:     duration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
	}
	if origins := get("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	host := DIDHost(cfg.BaseURL)
	cfg.HolderDID = get("HOLDER_DID", "did:web:"+host+":holder")
	cfg.IssuerDID = get("ISSUER_DID", "did:web:"+host+":issuer")
	cfg.VerifierDID = get("VERIFIER_DID", "did:web:"+host+":verifier")
	cfg.ThirdPartyDID = get("THIRDPARTY_DID", "did:web:"+host+":thirdparty")
	return cfg
}

// DIDHost renders the authority of a base URL as a did:web host, percent
// encoding the port separator.
func DIDHost(baseURL string) string {
	host := baseURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	return strings.ReplaceAll(host, ":", "%3A")
}

// DIDScheme is the URL scheme used when resolving did:web identifiers.
func (s Server) DIDScheme() string {
	if s.DIDHTTPS {
		return "https"
	}
	return "http"
}
