// Package server exposes the ingestor over HTTP: object-created events in, the invocation
// response out.
package server

import (
	"context"
	"net/http"
	"time"

	"attachment-ingestor/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// EventHandler processes one object-created event
type EventHandler interface {
	HandleEvent(ctx context.Context, ev models.Event) models.Response
}

// NewRouter builds the HTTP routes: POST /invoke, GET /healthz and GET /metrics
func NewRouter(handler EventHandler, metricsHandler http.Handler, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Post("/invoke", func(w http.ResponseWriter, r *http.Request) {
		var ev models.Event
		if err := render.DecodeJSON(r.Body, &ev); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, models.Failure("Malformed event body.", http.StatusBadRequest))
			return
		}

		resp := handler.HandleEvent(r.Context(), ev)
		render.Status(r, resp.StatusCode)
		render.JSON(w, r, resp)
	})

	return r
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// Server runs the router until its context is cancelled
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             logrus.FieldLogger
}

// New returns a Server listening on addr
func New(addr string, handler http.Handler, shutdownTimeout time.Duration, log logrus.FieldLogger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP trigger listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
