package main

import (
	"flag"
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
)

func main() {
	var (
		addr        = flag.String("addr", ":8888", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		logJSON     = flag.Bool("log-json", false, "Log in JSON")
		contextID   = flag.String("context-id", "vaultart-demo", "Engine context id")
	)
	flag.Parse()

	log := common.NewLogger(*logJSON, slog.LevelInfo)

	engine := gateway.NewMockGateway(*contextID)
	handler := NewEngineHandler(engine, log)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		Log:                      log,
		DrainDuration:            2 * time.Second,
		GracefulShutdownDuration: 5 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, corsRegistrar{}, handler)
	if err != nil {
		log.Error("server setup failed", "err", err)
		os.Exit(1)
	}

	log.Info("demo engine listening", "addr", *addr, "contextID", *contextID)
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	srv.Shutdown()
}

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
