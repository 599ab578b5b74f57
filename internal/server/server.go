/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/auth"
	"charity-backend-go/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Service *api.CharityService
	Tokens  *auth.TokenIssuer
	Admins  auth.Admins
	Server  models.ServerConfig
}

// Server is the HTTP surface of the charity backend.
type Server struct {
	svc      *api.CharityService
	tokens   *auth.TokenIssuer
	admins   auth.Admins
	cfg      models.ServerConfig
	validate *validator.Validate
	metrics  *metrics
	limiter  *rateLimiter

	router http.Handler
}

func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("charity service is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	s := &Server{
		svc:      cfg.Service,
		tokens:   cfg.Tokens,
		admins:   cfg.Admins,
		cfg:      cfg.Server,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  newMetrics(),
		limiter:  newRateLimiter(cfg.Server.AuthRateLimit, cfg.Server.AuthRateBurst),
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors(s.cfg.AllowedOrigins))
	r.Use(s.metrics.middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/auth", func(ar chi.Router) {
		ar.Use(s.limiter.middleware)
		ar.Post("/generate_payload", s.handleGeneratePayload)
		ar.Post("/check_proof", s.handleCheckProof)
	})

	r.Get("/charities", s.handleListCharities)
	r.Get("/charity/{id}", s.handleGetCharity)
	r.Get("/companies", s.handleListCompanies)
	r.Post("/webhook", s.handleWebhook)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(s.tokens))

		pr.Post("/charity", s.handleCreateCharity)
		pr.Post("/company", s.handleCreateCompany)
		pr.Delete("/charity/{id}", s.handleDeleteCharity)
		pr.Post("/charity/{id}/vote", s.handleVote)
		pr.Get("/charities/in-review", s.handleListInReview)
		pr.Get("/charity/in-review/{id}", s.handleGetInReview)

		pr.Get("/user", s.handleGetUser)
		pr.Get("/user/charities", s.handleUserCharities)
		pr.Get("/user/inventory", s.handleInventory)
		pr.Get("/user/donatations", s.handleUserDonations)
		pr.Post("/user/checkBurn", s.handleCheckBurn)

		pr.Route("/admin", func(adm chi.Router) {
			adm.Use(auth.RequireAdmin(s.admins))
			adm.Get("/charities", s.handleAwaitingModeration)
			adm.Patch("/charity/{id}", s.handleModerate)
		})
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	zap.L().Info("Shutting down HTTP server", zap.Duration("timeout", timeout))
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.HealthCheck(ctx); err != nil {
		zap.L().Warn("Health check failed", zap.Error(err))
		writeMessage(w, http.StatusServiceUnavailable, "unhealthy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
