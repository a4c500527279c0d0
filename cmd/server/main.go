package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"dcptck/internal/admin"
	"dcptck/internal/crypto/keys"
	"dcptck/internal/cs"
	"dcptck/internal/did"
	"dcptck/internal/issuer"
	"dcptck/internal/platform/config"
	"dcptck/internal/platform/health"
	"dcptck/internal/platform/logger"
	"dcptck/internal/platform/metrics"
	"dcptck/internal/platform/tracer"
	"dcptck/internal/revocation"
	"dcptck/internal/seeder"
	"dcptck/internal/sts"
	"dcptck/internal/token"
	httptransport "dcptck/internal/transport/http"
	"dcptck/internal/vc/generation"
	"dcptck/internal/verifier"
	"dcptck/internal/workers/cleanup"
	"dcptck/pkg/platform/circuit"
	"dcptck/pkg/platform/httpclient"
)

// main wires the four protocol roles behind one HTTP server and keeps the
// server lifecycle small. Protocol logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing dcp verification engine",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"holder", cfg.HolderDID,
		"issuer", cfg.IssuerDID,
		"verifier", cfg.VerifierDID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

type roleKeys struct {
	holder, issuer, verifier, thirdParty *keys.Service
}

func generateKeys() (roleKeys, error) {
	var rk roleKeys
	for _, dst := range []**keys.Service{&rk.holder, &rk.issuer, &rk.verifier, &rk.thirdParty} {
		kp, err := keys.GenerateEC()
		if err != nil {
			return rk, fmt.Errorf("generate key: %w", err)
		}
		svc, err := keys.NewService(kp)
		if err != nil {
			return rk, fmt.Errorf("load key: %w", err)
		}
		*dst = svc
	}
	return rk, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	tr := tracer.NewOTel()
	client := httpclient.New(httpclient.WithTimeout(cfg.DIDResolveTimeout))

	rk, err := generateKeys()
	if err != nil {
		return err
	}

	breakers := circuit.NewGroup()
	resolver := did.NewResolver(
		did.WithHTTPS(cfg.DIDHTTPS),
		did.WithHTTPClient(client),
		did.WithCache(cfg.DIDCacheTTL, 0),
		did.WithBreakers(breakers),
		did.WithTracer(tr),
		did.WithMetrics(m),
		did.WithLogger(log),
	)

	tokenOpts := []token.Option{
		token.WithJTITTL(cfg.JTITTL),
		token.WithTracer(tr),
		token.WithMetrics(m),
		token.WithLogger(log),
	}
	holderTokens := token.NewAudienceValidator(resolver, cfg.HolderDID, tokenOpts...)
	issuerTokens := token.NewAudienceValidator(resolver, cfg.IssuerDID, tokenOpts...)
	verifierTokens := token.NewAudienceValidator(resolver, cfg.VerifierDID, tokenOpts...)
	presentationTokens := token.NewCredentialValidator(resolver, tokenOpts...)
	credentialTokens := token.NewCredentialValidator(resolver, tokenOpts...)

	stsServer, err := sts.New(
		sts.WithTTL(cfg.JTITTL),
		sts.WithExternal(cfg.STSURL, cfg.STSClientID, cfg.STSClientSecret),
		sts.WithHTTPClient(client),
		sts.WithTracer(tr),
		sts.WithLogger(log),
	)
	if err != nil {
		return err
	}

	statusList, err := revocation.New(cfg.StatusListType, cfg.IssuerDID, cfg.BaseURL, cfg.StatusListLSBFirst, m)
	if err != nil {
		return err
	}
	schemas := verifier.NewSchemaValidator()

	holder := cs.NewCredentialService(cfg.HolderDID, stsServer, holderTokens,
		generation.NewPresentationGenerator(cfg.HolderDID, rk.holder),
		cs.WithSigner(rk.holder),
		cs.WithResolver(resolver),
		cs.WithHTTPClient(client),
		cs.WithTracer(tr),
		cs.WithLogger(log),
	)
	issuerSvc := issuer.NewService(cfg.IssuerDID, rk.issuer,
		generation.NewCredentialGenerator(cfg.IssuerDID, rk.issuer),
		issuerTokens, resolver,
		issuer.WithRevocation(statusList),
		issuer.WithMembershipSchema(cfg.BaseURL+"/schema/"+verifier.MembershipCredentialSchema),
		issuer.WithDeliveryDelay(cfg.IssuerDeliveryDelay),
		issuer.WithHTTPClient(client),
		issuer.WithTracer(tr),
		issuer.WithMetrics(m),
		issuer.WithLogger(log),
	)
	defer issuerSvc.Close()

	presentations := verifier.NewPresentationVerifier(cfg.VerifierDID, presentationTokens, credentialTokens, statusList,
		verifier.WithTracer(tr),
		verifier.WithMetrics(m),
		verifier.WithLogger(log),
		verifier.WithSchemas(schemas),
	)
	trigger := verifier.NewTrigger(cfg.VerifierDID, verifierTokens, rk.verifier, resolver, presentations,
		verifier.WithHTTPClient(client),
		verifier.WithTriggerTracer(tr),
		verifier.WithTriggerLogger(log),
	)

	healthHandler := health.New(map[string]string{
		"holder":     cfg.HolderDID,
		"issuer":     cfg.IssuerDID,
		"verifier":   cfg.VerifierDID,
		"thirdparty": cfg.ThirdPartyDID,
	})
	healthHandler.RegisterCheck("did_resolution", func() error {
		if open := breakers.Open(); len(open) > 0 {
			return fmt.Errorf("circuit open for %s", strings.Join(open, ", "))
		}
		return nil
	})

	holderHandler := cs.NewHandler(holder, holderTokens, schemas, log)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Latency:        m,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Root: []httptransport.Registrar{
			did.NewHandler(did.NewService(cfg.HolderDID, cfg.BaseURL+httptransport.HolderPrefix, rk.holder)),
			did.NewHandler(did.NewIssuerService(cfg.IssuerDID, cfg.BaseURL+httptransport.IssuerPrefix, rk.issuer)),
			did.NewHandler(did.NewService(cfg.VerifierDID, cfg.BaseURL+"/verifier", rk.verifier)),
			did.NewHandler(did.NewService(cfg.ThirdPartyDID, cfg.BaseURL+"/thirdparty", rk.thirdParty)),
			verifier.NewHandler(trigger, schemas, log),
			revocation.NewHandler(statusList, cfg.AdminToken, log),
			admin.New(admin.NewService(holder, issuerSvc, statusList, breakers), cfg.AdminToken, log),
			healthHandler,
		},
		Holder:  holderHandler,
		Issuer:  issuer.NewHandler(issuerSvc, holderHandler, log),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.JTITTL > 0 {
		sweeper, err := cleanup.New(map[string]cleanup.Sweeper{
			"sts":              stsServer,
			"holder_jti":       holderTokens,
			"issuer_jti":       issuerTokens,
			"verifier_jti":     verifierTokens,
			"presentation_jti": presentationTokens,
			"credential_jti":   credentialTokens,
		}, cleanup.WithCleanupInterval(cfg.SweepInterval), cleanup.WithCleanupLogger(log))
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := sweeper.Start(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if cfg.SeedCredentials {
		seed := seeder.New(stsServer, issuerSvc, cfg.HolderDID, uuid.NewString(), 5, log)
		g.Go(func() error {
			// seeding failures leave the holder empty but keep serving
			if err := seed.SeedAll(gctx); err != nil && gctx.Err() == nil {
				log.Error("failed to seed credentials", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
