// Package httpapi implements the bit-level HTTP surface of §6 over
// the Intake and Observer contracts, using github.com/go-chi/chi/v5
// for routing — the router seen across this corpus's other
// HTTP-surfaced services. Handlers translate typed sentinel errors to
// status codes through a small mapper (errors.go) rather than a
// framework validation layer, the same explicit-error style the
// Durable Store uses for its own transition errors.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/elidra/taskq/intake"
	"github.com/elidra/taskq/store"
)

// Pinger checks the liveness of a backing store for GET /health. The
// Durable Store and Coordination Store each get their own adapter in
// cmd/apiserver (bun's PingContext, go-redis's Ping).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires Intake and Observer into chi handlers.
type Server struct {
	intake   *intake.Intake
	observer store.Observer
	db       Pinger
	coord    Pinger
	log      *slog.Logger
	router   chi.Router
}

// New builds a Server and registers every route of §6 except
// GET /metrics, which is out of scope (see DESIGN.md).
func New(in *intake.Intake, observer store.Observer, db, coord Pinger, log *slog.Logger) *Server {
	s := &Server{intake: in, observer: observer, db: db, coord: coord, log: log}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Post("/retry", s.handleRetry)
			r.Delete("/", s.handleCancel)
			r.Post("/complete", s.handleComplete)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
