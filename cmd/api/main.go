package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bryanwahyu/dump-analyzer/internal/application"
	"github.com/bryanwahyu/dump-analyzer/internal/application/dumps"
	"github.com/bryanwahyu/dump-analyzer/internal/config"
	"github.com/bryanwahyu/dump-analyzer/internal/domain/dump"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/local"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/ai/provider"
	mysqlp "github.com/bryanwahyu/dump-analyzer/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/dump-analyzer/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/dump-analyzer/internal/infra/db/sqlite"
	"github.com/bryanwahyu/dump-analyzer/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/dump-analyzer/internal/infra/storage"
	"github.com/bryanwahyu/dump-analyzer/internal/logging"
	"github.com/bryanwahyu/dump-analyzer/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server stopped", logging.FieldError, err)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// provider dulu, config salah harus gagal sebelum buka database
	client, err := provider.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	db, repo, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("%s store: %w", cfg.Storage.Driver, err)
	}
	defer db.Close()

	metrics := middleware.NewMetrics("dump_analyzer")
	svc := &dumps.Service{
		Repo:    repo,
		AI:      client,
		Clock:   application.SystemClock{},
		Log:     log,
		Metrics: metrics,
	}

	// init minio
	if cfg.ArchiveEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		svc.Archive = store
		log.Infow("archive enabled", "endpoint", cfg.Minio.Endpoint, "bucket", cfg.Minio.BucketName)
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		go limiter.Cleanup(ctx)
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Log:          log,
		Metrics:      metrics,
		RateLimiter:  limiter,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout(cfg.LLM),
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", addr,
			logging.FieldProvider, client.Provider(), "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// graceful shutdown
	log.Info("shutting down server...")
	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warnw("shutdown error", logging.FieldError, err)
	}
	return nil
}

// openStore connects the configured driver and makes sure the schema exists.
func openStore(ctx context.Context, cfg config.StorageConfig) (*sql.DB, dump.Repository, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := mysqlp.NewAnalysisRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repo, nil
	case config.DriverPostgres:
		db, err := postgresp.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := postgresp.NewAnalysisRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repo, nil
	default:
		db, err := sqlitep.Connect(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		repo, err := sqlitep.NewAnalysisRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repo, nil
	}
}

// writeTimeout leaves room for the slowest backend call plus the store write.
func writeTimeout(cfg config.LLMConfig) time.Duration {
	backend := cfg.OpenAI.Timeout
	if backend < local.RequestTimeout {
		backend = local.RequestTimeout
	}
	return backend + 30*time.Second
}
