package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/api/handlers"
	mw "github.com/ppiankov/ontobridge/internal/api/middleware"
	"github.com/ppiankov/ontobridge/internal/model"
)

const shutdownTimeout = 10 * time.Second

// NewRouter mounts the alignment endpoints on a chi router
func NewRouter(svc handlers.Mediator, cfg *model.Config, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}

	method, err := model.ParseMethod(cfg.Alignment.Method)
	if err != nil {
		method = model.MethodCombined
	}
	alignments := handlers.NewAlignmentHandler(svc, method, logger)

	r := chi.NewRouter()

	// Order matters: ids first so every later log line carries one
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	r.Get("/health", healthHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/book", alignments.Book)

		r.Route("/alignments", func(r chi.Router) {
			r.Post("/", alignments.Create)
			r.Route("/{serviceID}", func(r chi.Router) {
				r.Get("/", alignments.Get)
				r.Post("/confirm", alignments.Confirm)
				r.Post("/apply", alignments.Apply)
			})
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
