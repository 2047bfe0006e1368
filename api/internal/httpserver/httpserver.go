// Package httpserver wires the HTTP routes and middleware and runs the listener.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"equity-lens/api/internal/handle"
	"equity-lens/api/internal/metrics"
)

type Options struct {
	CORSOrigins []string
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	// Webhook, when set, receives Telegram updates on WebhookPath.
	Webhook     http.Handler
	WebhookPath string
}

func NewRouter(h *handle.Handle, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := mux.NewRouter()

	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(log, opts.Metrics))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze", h.Analyze).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/normalize", h.Normalize).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/dimensions", h.Dimensions).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	if opts.Webhook != nil && opts.WebhookPath != "" {
		r.Handle(opts.WebhookPath, opts.Webhook).Methods(http.MethodPost)
	}
	return r
}

// Serve blocks until ctx is done, then drains in-flight requests.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
