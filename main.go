package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "portledger/internal/api/http"
	"portledger/internal/audit"
	"portledger/internal/auth"
	fdaapp "portledger/internal/fda/application"
	fdarepo "portledger/internal/fda/infrastructure/postgres"
	fdahttp "portledger/internal/fda/interfaces"
	"portledger/internal/fx/ptax"
	"portledger/internal/observability/metrics"
	orgapp "portledger/internal/org/application"
	orgrepo "portledger/internal/org/infrastructure/postgres"
	orghttp "portledger/internal/org/interfaces"
	pdaapp "portledger/internal/pda/application"
	pdarepo "portledger/internal/pda/infrastructure/postgres"
	pdapricing "portledger/internal/pda/infrastructure/pricing"
	pdahttp "portledger/internal/pda/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	tariffCfg, err := pdapricing.LoadConfig(cfg.TariffConfigPath)
	if err != nil {
		logger.Fatalf("tariff config error: %v", err)
	}
	pricer, err := pdapricing.NewTariffPricer(tariffCfg)
	if err != nil {
		logger.Fatalf("tariff pricer error: %v", err)
	}

	var rateFeed pdaapp.RateFeed
	var ptaxClient *ptax.Client
	if cfg.PTAXBaseURL != "" {
		ptaxClient, err = ptax.NewClient(cfg.PTAXBaseURL)
		if err != nil {
			logger.Fatalf("ptax client error: %v", err)
		}
		rateFeed = ptaxClient
	}

	pdaRepository := pdarepo.NewRepository(db)
	pdaService, err := pdaapp.NewService(pdaRepository, pricer, rateFeed)
	if err != nil {
		logger.Fatalf("pda service error: %v", err)
	}
	pdaHandler, err := pdahttp.NewHandler(pdaService, auditRepo)
	if err != nil {
		logger.Fatalf("pda handler error: %v", err)
	}

	fdaRepository := fdarepo.NewRepository(db)
	fdaService, err := fdaapp.NewService(fdaRepository, pdaRepository)
	if err != nil {
		logger.Fatalf("fda service error: %v", err)
	}
	fdaHandler, err := fdahttp.NewHandler(fdaService, auditRepo)
	if err != nil {
		logger.Fatalf("fda handler error: %v", err)
	}

	orgService, err := orgapp.NewService(orgrepo.NewRepository(db))
	if err != nil {
		logger.Fatalf("org service error: %v", err)
	}
	orgHandler, err := orghttp.NewHandler(orgService, auditRepo)
	if err != nil {
		logger.Fatalf("org handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/pdas", pdaHandler)
	mux.Handle("/api/v1/pdas/", pdaHandler)
	mux.Handle("/api/v1/fdas", fdaHandler)
	mux.Handle("/api/v1/fdas/", fdaHandler)
	mux.Handle("/api/v1/exports/ledger.csv", fdaHandler)
	mux.Handle("/api/v1/organization", orgHandler)
	mux.Handle("/api/v1/organization/", orgHandler)
	mux.Handle("/api/v1/stats", apihttp.NewStatsHandler(db))
	if ptaxClient != nil {
		ptaxHandler, err := ptax.NewHandler(ptaxClient)
		if err != nil {
			logger.Fatalf("ptax handler error: %v", err)
		}
		mux.Handle("/api/v1/fx/ptax", ptaxHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL      string
	HTTPAddr         string
	JWTSecret        string
	TariffConfigPath string
	PTAXBaseURL      string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TariffConfigPath: getenvDefault("TARIFF_CONFIG", "configs/tariffs.yaml"),
		PTAXBaseURL:      getenvDefault("PTAX_BASE_URL", ptax.DefaultBaseURL),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
