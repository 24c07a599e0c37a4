// Package claimapi serves the token-scoped self-service surface. Providers
// reach it through emailed claim links; there is no session or login, the
// token in the URL is the whole credential.
package claimapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/services"
)

// Server holds the handlers' shared dependencies.
type Server struct {
	store             services.ClaimStore
	logger            *zap.Logger
	fellowJobTypeCode string
}

// NewServer creates a claim API server over the given store.
func NewServer(store services.ClaimStore, logger *zap.Logger, fellowJobTypeCode string) *Server {
	return &Server{
		store:             store,
		logger:            logger,
		fellowJobTypeCode: fellowJobTypeCode,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/claim/{token}", func(cr chi.Router) {
		cr.Get("/", s.getClaimData)
		cr.Post("/claims", s.claimPositions)
		cr.Post("/unclaim", s.unclaimPosition)
	})

	return r
}
