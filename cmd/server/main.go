package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"pmkisan/internal/audit"
	"pmkisan/internal/grievance/aead"
	"pmkisan/internal/grievance/catalog"
	"pmkisan/internal/grievance/client"
	"pmkisan/internal/grievance/identity"
	"pmkisan/internal/grievance/service"
	jwttoken "pmkisan/internal/jwt_token"
	"pmkisan/internal/platform/config"
	"pmkisan/internal/platform/httpserver"
	"pmkisan/internal/platform/logger"
	"pmkisan/internal/platform/metrics"
	"pmkisan/internal/platform/middleware"
	"pmkisan/internal/tools"
	httptransport "pmkisan/internal/transport/http"
	"pmkisan/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var dotenv []string
	if _, err := os.Stat(".env"); err == nil {
		dotenv = append(dotenv, ".env")
	}
	cfg, err := config.Load(dotenv...)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := audit.NewPublisher(cfg.Server.AuditBufferSize,
		audit.WithLogger(log),
		audit.WithMetrics(m),
	)
	worker := audit.NewWorker(audit.NewLogStore(log.With("component", "audit")), publisher.Events(), log)

	hasher, err := buildSubjectHasher(cfg.Server.AuditHashKey, log)
	if err != nil {
		return err
	}

	upstream := buildUpstream(cfg.Grievance, log, m)
	svc, err := service.New(upstream,
		identity.NewResolver(upstream, identity.WithLogger(log)),
		catalog.LoadOrEmpty(cfg.Grievance.TypesPath, log),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(publisher),
		service.WithSubjectHasher(hasher),
	)
	if err != nil {
		return err
	}
	registry, err := tools.New(svc, tools.WithLogger(log))
	if err != nil {
		return err
	}

	var validator middleware.JWTValidator
	if cfg.Server.AuthEnabled {
		jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
		validator = jwttoken.NewAdapter(jwt)
	}

	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(httptransport.Deps{
		Tools:     registry,
		Logger:    log,
		Metrics:   m,
		Gatherer:  prometheus.DefaultGatherer,
		Validator: validator,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting pmkisan grievance gateway", "addr", cfg.Server.Addr, "auth_enabled", cfg.Server.AuthEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildSubjectHasher(key string, log *slog.Logger) (*audit.SubjectHasher, error) {
	if key != "" {
		return audit.NewSubjectHasher([]byte(key))
	}
	log.Warn("AUDIT_HASH_KEY not set; audit subject hashes will not correlate across restarts")
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, err
	}
	return audit.NewSubjectHasher(random)
}

// buildUpstream returns the grievance client, or a Disabled stand-in that
// reports the configuration problem on every call.
func buildUpstream(cfg config.Grievance, log *slog.Logger, m *metrics.Metrics) client.Upstream {
	crypto, err := aead.FromHex(cfg.KeyHex, cfg.IVHex)
	if err != nil {
		log.Error("grievance crypto not configured", "error", err)
		return client.Disabled{Err: err}
	}
	opts := []client.Option{client.WithLogger(log), client.WithMetrics(m)}
	if cfg.BreakerThreshold > 0 {
		opts = append(opts, client.WithBreaker(circuit.New("grievance",
			circuit.WithFailureThreshold(cfg.BreakerThreshold),
			circuit.WithCooldown(cfg.BreakerCooldown),
		)))
	}
	c, err := client.New(client.Config{
		BaseURL:        cfg.BaseURL,
		Token:          cfg.Token,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		Retries:        cfg.Retries,
	}, crypto, opts...)
	if err != nil {
		log.Error("grievance client not configured", "error", err)
		return client.Disabled{Err: err}
	}
	return c
}
