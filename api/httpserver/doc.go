// Package httpserver provides a reusable HTTP server implementation for
// VaultArt services.
//
// It implements a base server with standard health endpoints, graceful
// shutdown, optional metrics and pprof, and flexible routing. Components
// implement RouteRegistrar to mount their endpoints and embed BaseServer
// for lifecycle management.
//
// # Health and Diagnostics
//
// All servers built with BaseServer automatically include:
//
//   - Liveness check (/livez)
//   - Readiness check (/readyz)
//   - Drain control for load balancers (/drain, /undrain)
//   - Optional Prometheus-compatible metrics on a separate listener
//   - Optional pprof debugging endpoints
package httpserver
