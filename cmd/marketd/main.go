// Command marketd runs the VaultArt marketplace service.
//
// The service holds the token registry, listing manager, bid ledger, and
// settlement engine, and talks to an encryption engine for bid proofs and
// decryption. With --gateway-url unset it runs the deterministic in-process
// engine, which is only useful for demos; point it at a demo-gateway (or a
// real engine speaking the same API) for anything multi-process.
//
// State is kept in memory and written through to PostgreSQL when
// --postgres-host is set; on startup the persisted state is reloaded.
//
// # Usage
//
//	go run ./cmd/marketd --addr=:8080 --gateway-url=http://localhost:8888
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/oscaryu0/VaultArt/api/httpserver"
	"github.com/oscaryu0/VaultArt/cmd/common"
	"github.com/oscaryu0/VaultArt/gateway"
	"github.com/oscaryu0/VaultArt/protocol"
	"github.com/oscaryu0/VaultArt/services"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		enablePprof = flag.Bool("pprof", false, "Enable pprof debugging API")
		logJSON     = flag.Bool("log-json", false, "Log in JSON")

		contextID  = flag.String("context-id", "vaultart-demo", "Engine context id for this deployment")
		gatewayURL = flag.String("gateway-url", "", "Encryption engine URL (empty runs the in-process mock)")

		pgHost     = flag.String("postgres-host", "", "PostgreSQL host (empty runs without persistence)")
		pgPort     = flag.Int("postgres-port", 5432, "PostgreSQL port")
		pgUser     = flag.String("postgres-user", "vaultart", "PostgreSQL user")
		pgPassword = flag.String("postgres-password", "", "PostgreSQL password")
		pgDatabase = flag.String("postgres-db", "vaultart", "PostgreSQL database")
	)
	flag.Parse()

	log := common.NewLogger(*logJSON, slog.LevelInfo)

	store, err := newStore(*pgHost, *pgPort, *pgUser, *pgPassword, *pgDatabase)
	if err != nil {
		log.Error("store setup failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	state, err := store.LoadState()
	if err != nil {
		log.Error("loading persisted state failed", "err", err)
		os.Exit(1)
	}

	var engine protocol.Gateway
	if *gatewayURL != "" {
		engine = gateway.NewHTTPGateway(*gatewayURL, log)
		log.Info("using remote encryption engine", "url", *gatewayURL)
	} else {
		engine = gateway.NewMockGateway(*contextID)
		log.Warn("no --gateway-url given, running the in-process mock engine")
	}

	bank := services.NewBank()
	market, err := protocol.NewMarketFromState(protocol.DefaultMarketConfig(*contextID), engine, bank, state)
	if err != nil {
		log.Error("rebuilding market state failed", "err", err)
		os.Exit(1)
	}
	log.Info("market ready", "tokens", len(state.Tokens), "bids", len(state.Bids))

	handler := services.NewMarketHandler(market, store, bank, log)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		EnablePprof:              *enablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             30 * time.Second,
	}, corsRegistrar{}, handler)
	if err != nil {
		log.Error("server setup failed", "err", err)
		os.Exit(1)
	}

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	srv.Shutdown()
}

func newStore(host string, port int, user, password, database string) (services.MarketStore, error) {
	if host == "" {
		return services.NewInMemoryStore(), nil
	}
	store, err := services.NewPostgresStore(&services.PostgresConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Database: database,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	return store, nil
}

// corsRegistrar opens the API to browser front ends. Registered before the
// market routes so the middleware covers them.
type corsRegistrar struct{}

func (corsRegistrar) RegisterRoutes(r chi.Router) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}
