package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "dealchain/core/errors"
	"dealchain/core/events"
	"dealchain/native/admin"
	"dealchain/native/deals"
	"dealchain/observability"
	telemetry "dealchain/observability/otel"
	"dealchain/rpc/middleware"
)

// Config wires the collaborators the API needs. Feed, RateLimiter and
// Observability are optional.
type Config struct {
	Engine        *deals.Engine
	Admin         *admin.Module
	Feed          *events.Feed
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

// Server exposes the escrow engine over HTTP/JSON.
type Server struct {
	engine *deals.Engine
	admin  *admin.Module
	feed   *events.Feed
	auth   *middleware.Authenticator
	limit  *middleware.RateLimiter
	obs    *middleware.Observability
	cors   middleware.CORSConfig
	logger *slog.Logger
	tracer trace.Tracer
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auth := cfg.Authenticator
	if auth == nil {
		auth = middleware.NewAuthenticator(middleware.AuthConfig{}, logger)
	}
	if cfg.RateLimiter != nil && cfg.Observability != nil {
		cfg.RateLimiter.OnReject(cfg.Observability.Throttled)
	}
	return &Server{
		engine: cfg.Engine,
		admin:  cfg.Admin,
		feed:   cfg.Feed,
		auth:   auth,
		limit:  cfg.RateLimiter,
		obs:    cfg.Observability,
		cors:   cfg.CORS,
		logger: logger,
		tracer: telemetry.Tracer("dealchain/rpc"),
	}
}

// Handler builds the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cors))
	if s.limit != nil {
		r.Use(s.limit.Middleware())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.obs != nil {
		r.Handle("/metrics", s.obs.MetricsHandler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(read chi.Router) {
			s.instrument(read, "read")
			read.Get("/accounts/{address}", s.handleAccount)
			read.Get("/events", s.handleEvents)
			read.Get("/events/stream", s.handleEventStream)
			read.Get("/trustless", s.handleTrustlessCount)
			read.Get("/trustless/{id}", s.handleTrustlessGet)
			read.Get("/arbitrer", s.handleArbitrerCount)
			read.Get("/arbitrer/{id}", s.handleArbitrerGet)
			read.Get("/admin", s.handleAdminGet)
		})
		v1.Group(func(write chi.Router) {
			s.instrument(write, "write")
			write.Use(s.auth.Middleware())
			write.Post("/trustless/buyer", s.handleTrustlessCreateAsBuyer)
			write.Post("/trustless/seller", s.handleTrustlessCreateAsSeller)
			write.Post("/trustless/{id}/buyer-cancel", s.handleTrustlessBuyerCancel)
			write.Post("/trustless/{id}/seller-cancel", s.handleTrustlessSellerCancel)
			write.Post("/trustless/{id}/buyer-confirm", s.handleTrustlessBuyerConfirm)
			write.Post("/trustless/{id}/seller-confirm", s.handleTrustlessSellerConfirm)
			write.Post("/trustless/{id}/complete", s.handleTrustlessComplete)
			write.Post("/arbitrer/buyer", s.handleArbitrerCreateAsBuyer)
			write.Post("/arbitrer/seller", s.handleArbitrerCreateAsSeller)
			write.Post("/arbitrer/{id}/seller-cancel", s.handleArbitrerSellerCancel)
			write.Post("/arbitrer/{id}/buyer-confirm", s.handleArbitrerBuyerConfirm)
			write.Post("/arbitrer/{id}/approve", s.handleArbitrerApprove)
			write.Post("/arbitrer/{id}/claim-expired", s.handleArbitrerClaimExpired)
			write.Post("/admin/fee-rate", s.handleAdminSetFeeRate)
			write.Post("/admin/withdraw", s.handleAdminWithdraw)
			write.Post("/admin/owner", s.handleAdminTransferOwnership)
		})
	})

	return otelhttp.NewHandler(r, "dealsd")
}

func (s *Server) instrument(r chi.Router, route string) {
	if s.obs != nil {
		r.Use(s.obs.Middleware(route))
	}
}

func callerOf(r *http.Request) [20]byte {
	caller, _ := middleware.CallerFromContext(r.Context())
	return caller
}

// run executes one engine operation under a span and records its outcome.
func (s *Server) run(ctx context.Context, dealType, operation string, fn func() error) error {
	_, span := s.tracer.Start(ctx, dealType+"."+operation, trace.WithAttributes(
		attribute.String("deal.type", dealType),
		attribute.String("deal.operation", operation),
	))
	defer span.End()
	start := time.Now()
	err := fn()
	kind := coreerrors.Kind(err)
	if err != nil {
		if kind == "" {
			kind = "Internal"
		}
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("deal.error_kind", kind))
	}
	observability.Deals().ObserveOperation(dealType, operation, kind, time.Since(start))
	return err
}
