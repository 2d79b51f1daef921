// Package observability exposes the prometheus metrics listener.
package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu            sync.Mutex
	metricsServer *http.Server
)

// StartMetricsServer serves /metrics on addr until the context is cancelled.
func StartMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 120 * time.Second,
	}

	mu.Lock()
	metricsServer = srv
	mu.Unlock()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return
	}
}

// StopMetricsServer shuts down the metrics listener if it is running.
func StopMetricsServer(ctx context.Context) error {
	mu.Lock()
	srv := metricsServer
	metricsServer = nil
	mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
