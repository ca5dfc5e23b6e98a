// Package metrics exposes Prometheus-compatible metrics for VaultArt
// services over a dedicated listener.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the /metrics endpoint on its own address so
// operational scraping stays off the public API listener.
type MetricsServer struct {
	component string
	srv       *http.Server
}

// New creates a metrics server for the named component. An empty addr
// returns a server whose ListenAndServe is a no-op, so callers need not
// special-case disabled metrics.
func New(component, addr string) (*MetricsServer, error) {
	if component == "" {
		return nil, fmt.Errorf("component name is required")
	}

	m := &MetricsServer{component: component}
	if addr == "" {
		return m, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	m.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return m, nil
}

// ListenAndServe blocks serving /metrics until Shutdown.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

// RequestCounter returns (creating if needed) the request counter for one
// API route, e.g. vaultart_http_requests_total{component="marketd",route="mint"}.
func RequestCounter(component, route string) *vmetrics.Counter {
	return vmetrics.GetOrCreateCounter(
		fmt.Sprintf(`vaultart_http_requests_total{component=%q,route=%q}`, component, route))
}

// ErrorCounter returns (creating if needed) the failed-request counter for
// one API route.
func ErrorCounter(component, route string) *vmetrics.Counter {
	return vmetrics.GetOrCreateCounter(
		fmt.Sprintf(`vaultart_http_request_errors_total{component=%q,route=%q}`, component, route))
}
