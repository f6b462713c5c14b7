// Package web exposes the payment webhook, the post-checkout return page and
// the admin API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/usecase"
)

type Server struct {
	reconcileUC usecase.ReconcileUseCase
	subUC       usecase.SubscriptionUseCase
	statsUC     usecase.StatsUseCase
	adminUC     usecase.AdminUseCase
	auth        *AuthManager // nil disables the admin API
	log         *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(
	cfg *config.WebhookConfig,
	reconcileUC usecase.ReconcileUseCase,
	subUC usecase.SubscriptionUseCase,
	statsUC usecase.StatsUseCase,
	adminUC usecase.AdminUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		reconcileUC: reconcileUC,
		subUC:       subUC,
		statsUC:     statsUC,
		adminUC:     adminUC,
		auth:        auth,
		log:         logger,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/webhook/yookassa", s.handleWebhook)
	r.Get("/return", s.handleReturn)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.auth != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/stats", s.handleStats)
				r.Get("/stats/chart", s.handleChart)
				r.Get("/squads", s.handleSquads)
				r.Get("/users/{tgID}/orders", s.handleUserOrders)
				r.Get("/users/{tgID}/subscription", s.handleUserSubscription)
				r.Post("/users/{tgID}/block", s.handleBlock)
				r.Post("/users/{tgID}/unblock", s.handleUnblock)
				r.Post("/users/{tgID}/revoke", s.handleRevoke)
			})
		})
	}
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("web server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// requireAdmin gates the admin endpoints on a valid session token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
