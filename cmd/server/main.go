package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/movebridge/relofund/internal/auth"
	"github.com/movebridge/relofund/internal/config"
	"github.com/movebridge/relofund/internal/escrow"
	"github.com/movebridge/relofund/internal/middleware"
	"github.com/movebridge/relofund/internal/oracle"
	"github.com/movebridge/relofund/internal/service"
	"github.com/movebridge/relofund/internal/storage/sqlite"
	"github.com/movebridge/relofund/internal/treasury"
	"github.com/movebridge/relofund/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	treas := treasury.New(store)
	ledger := escrow.New(store, treas, escrow.Options{
		Admin:        cfg.AdminAccount,
		RefundWindow: cfg.RefundWindow,
		MaxFunds:     cfg.MaxFunds,
		Dial:         oracle.Dial,
	})

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	mux := http.NewServeMux()
	service.NewAuthService(authenticator, jwtManager).Register(mux)
	service.NewEscrowService(ledger, treas).Register(mux, jwtManager)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Add metrics, logging, and CORS middleware
	handler := middleware.Metrics(middleware.Logging(corsMiddleware(mux)))

	// Wrap with h2c for HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	slog.Info("Escrow server starting", "address", cfg.Addr, "refund_window", cfg.RefundWindow, "max_funds", cfg.MaxFunds)
	if err := http.ListenAndServe(cfg.Addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, PUT, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
