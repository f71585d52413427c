package workers

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/workers/handlers"
)

type HTTPConfig struct {
	Addr            string
	UseSSL          bool
	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
}

// NewRouter wires the API. metrics is mounted on /metrics when not nil.
func NewRouter(h *handlers.Handlers, metrics http.Handler, logger hclog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/health", h.HealthCheck)
	r.Get("/state", h.State)

	r.Get("/tokens", h.GetTokens)
	r.Get("/tokens/{address}", h.GetToken)
	r.Get("/balance/{address}", h.CustodyBalance)

	r.Get("/swapouts/last", h.LastSwapOut)
	r.Get("/swapouts/{id}", h.GetSwapOut)
	r.Get("/events", h.GetEvents)

	r.Get("/stats/failed", h.GetFailedIngress)
	r.Get("/stats/delivered", h.GetDeliveredIngress)

	r.Post("/submit", h.Submit)

	r.Route("/admin", func(r chi.Router) {
		for _, action := range handlers.AdminActions {
			r.Post("/"+action, h.Admin(action))
		}
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

// ServeHTTP runs the API server until ctx is done, then shuts it down
// gracefully.
func ServeHTTP(ctx context.Context, cfg HTTPConfig, handler http.Handler, logger hclog.Logger) error {
	logger = logger.Named("http")

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.UseSSL {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return err
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("HTTP service started", "addr", cfg.Addr, "ssl", cfg.UseSSL)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("HTTP service stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}

const requestIDHeader = "X-Request-Id"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger hclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
				"bytes", ww.BytesWritten(), "duration", time.Since(start), "id", w.Header().Get(requestIDHeader))
		})
	}
}
