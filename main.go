package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ministry-dashboard/internal/audit"
	"ministry-dashboard/internal/auth"
	"ministry-dashboard/internal/gridcapacity/adapters/forecastsvc"
	"ministry-dashboard/internal/gridcapacity/application"
	"ministry-dashboard/internal/gridcapacity/infrastructure/memory"
	gridpostgres "ministry-dashboard/internal/gridcapacity/infrastructure/postgres"
	gridhttp "ministry-dashboard/internal/gridcapacity/interfaces/http"
	"ministry-dashboard/internal/logging"
	"ministry-dashboard/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	engineCfg, err := application.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("grid engine config error")
	}

	var (
		db          *sql.DB
		readings    application.ReadingSource
		auditLogger audit.Logger
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("db open error")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.WithError(err).Fatal("db ping error")
		}
		repo, err := gridpostgres.NewReadingRepository(db, gridpostgres.WithTrendMonths(cfg.TrendMonths))
		if err != nil {
			logger.WithError(err).Fatal("reading repository error")
		}
		readings = repo
		auditLogger = audit.NewRepository(db)
	} else {
		store := memory.NewReadingStore()
		if cfg.DemoSeed != "" {
			if err := store.LoadSeedFile(cfg.DemoSeed); err != nil {
				logger.WithError(err).WithField("path", cfg.DemoSeed).Fatal("demo seed error")
			}
		}
		logger.Warn("DATABASE_URL not set, serving readings from memory")
		readings = store
		auditLogger = audit.NewLogrusLogger(logger)
	}

	metrics.Init(db, logger)

	opts := []application.ServiceOption{application.WithLogger(logger)}
	if cfg.ForecastURL != "" {
		client, err := forecastsvc.NewClient(cfg.ForecastURL, cfg.ForecastToken,
			forecastsvc.WithHTTPClient(&http.Client{Timeout: cfg.ForecastTimeout}))
		if err != nil {
			logger.WithError(err).Fatal("forecast client error")
		}
		opts = append(opts, application.WithForecastSource(client))
	} else {
		logger.Warn("FORECAST_API_URL not set, projections use trend growth only")
	}

	service, err := application.NewService(engineCfg, readings, opts...)
	if err != nil {
		logger.WithError(err).Fatal("grid service error")
	}
	gridHandler, err := gridhttp.NewHandler(service, auditLogger, logger)
	if err != nil {
		logger.WithError(err).Fatal("grid handler error")
	}

	mux := http.NewServeMux()
	gridHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	if cfg.AuthDisabled {
		logger.Warn("AUTH_DISABLED set, grid endpoints are unauthenticated")
	} else {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
		handler = auth.NewMiddleware([]byte(cfg.JWTSecret), policy, logger).Wrap(mux)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           logging.Middleware(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	serve(server, logger)
}

func serve(server *http.Server, logger logrus.FieldLogger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("http listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server error")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("http shutdown error")
		}
	}
}

type config struct {
	HTTPAddr        string
	WriteTimeout    time.Duration
	DatabaseURL     string
	TrendMonths     int
	DemoSeed        string
	ForecastURL     string
	ForecastToken   string
	ForecastTimeout time.Duration
	JWTSecret       string
	AuthDisabled    bool
	LogLevel        string
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
	LogMaxAgeDays   int
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		WriteTimeout:    getenvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		TrendMonths:     getenvIntDefault("GRID_TREND_MONTHS", 24),
		DemoSeed:        getenvDefault("GRID_DEMO_SEED", ""),
		ForecastURL:     strings.TrimRight(getenvDefault("FORECAST_API_URL", ""), "/"),
		ForecastToken:   getenvDefault("FORECAST_API_TOKEN", ""),
		ForecastTimeout: getenvDuration("FORECAST_API_TIMEOUT", 10*time.Second),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		AuthDisabled:    getenvBool("AUTH_DISABLED", false),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		LogFile:         getenvDefault("LOG_FILE", ""),
		LogMaxSizeMB:    getenvIntDefault("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:   getenvIntDefault("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays:   getenvIntDefault("LOG_MAX_AGE_DAYS", 30),
	}
	if cfg.JWTSecret == "" && !cfg.AuthDisabled {
		logrus.Fatal("AUTH_JWT_SECRET is required unless AUTH_DISABLED is set")
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

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
