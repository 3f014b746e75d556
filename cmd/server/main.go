package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/config"
	"github.com/hades874/Super-CMS-sub001/internal/handlers"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/store"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
	"github.com/hades874/Super-CMS-sub001/pkg"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(os.Stdout, cfg.IsProduction())
	if err := run(cfg, logger); err != nil {
		logger.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slogger := logger.Slog()

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	st := store.New(backend, slogger)
	defer st.Close()

	content := repositories.NewContentRepository(st, slogger)
	index := repositories.NewAssignmentIndex(ctx, content.Assignments, slogger)
	defer index.Close()

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	}()

	generator, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, slogger)
	if err != nil {
		return fmt.Errorf("failed to create question generator: %w", err)
	}
	defer generator.Close()

	v := validator.New()
	catalog := services.NewExamCatalogService(content.Exams, index, publisher, v, slogger)
	attempts := services.NewAttemptService(catalog, content.Attempts, publisher, slogger,
		services.WithTickInterval(cfg.ClockTickInterval))
	defer attempts.Shutdown()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handlers.NewHandlerManager(handlers.Services{
		Catalog:      catalog,
		Attempts:     attempts,
		Questions:    services.NewQuestionService(content.Questions, index, v, slogger),
		Generation:   services.NewGenerationService(generator, content.Questions, publisher, v, slogger),
		ImportExport: services.NewImportExportService(content.Questions, publisher, v, slogger),
		Assignments:  services.NewAssignmentService(index, content, v, slogger),
		Backup:       services.NewBackupService(content, publisher, v, slogger),
	}, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting exam content service",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"store_backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down exam content service")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openBackend picks the store backend named by STORE_BACKEND. A postgres
// store shares changes between processes over Redis when it is reachable.
func openBackend(ctx context.Context, cfg *config.Config, logger utils.Logger) (store.Backend, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisBackend(client, cfg.StoreNamespace, logger.Slog()), func() { client.Close() }, nil

	case config.StorePostgres:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to access database pool: %w", err)
		}
		backend, err := store.NewGormBackend(db)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}

		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, store changes will not reach other instances", "error", err)
			return backend, func() { sqlDB.Close() }, nil
		}
		broadcaster := store.NewRedisBackend(client, cfg.StoreNamespace, logger.Slog())
		return store.WithBroadcaster(backend, broadcaster), func() {
			client.Close()
			sqlDB.Close()
		}, nil

	default:
		return store.NewMemoryBackend(), func() {}, nil
	}
}
