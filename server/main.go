package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-webhook/internal/config"
	"github.com/phambaophuc/image-webhook/internal/errorlog"
	"github.com/phambaophuc/image-webhook/internal/http/handlers"
	"github.com/phambaophuc/image-webhook/internal/http/routes"
	"github.com/phambaophuc/image-webhook/internal/services/form"
	"github.com/phambaophuc/image-webhook/internal/services/queue"
	"github.com/phambaophuc/image-webhook/internal/services/storage"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := newLogger()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)

	var closers []io.Closer

	// Error log, optionally mirrored to Redis
	var sinks []errorlog.Sink
	if cfg.Redis.Enabled() {
		redisSink := errorlog.NewRedisSink(cfg.Redis)
		if err := redisSink.Ping(context.Background()); err != nil {
			logger.Warn("Redis unreachable, error log mirror may drop entries", zap.Error(err))
		}
		sinks = append(sinks, redisSink)
		closers = append(closers, redisSink)
	}
	errorStore := errorlog.NewStore(logger, sinks...)

	// Form processor and optional side channels
	var opts []form.Option
	if cfg.Supabase.Enabled() {
		mirror := storage.NewSupabaseMirror(cfg.Supabase)
		if err := mirror.HealthCheck(context.Background()); err != nil {
			logger.Warn("Supabase mirror unhealthy", zap.Error(err))
		}
		opts = append(opts, form.WithMirror(mirror))
	}
	if cfg.RabbitMQ.Enabled() {
		queueService, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Warn("Failed to initialize queue service", zap.Error(err))
			// Continue without saved-image events
		} else {
			logger.Info("Queue service ready",
				zap.String("queue", cfg.RabbitMQ.Queue),
				zap.String("status", queueService.HealthCheck()))
			opts = append(opts, form.WithPublisher(queueService))
			closers = append(closers, queueService)
		}
	}

	processor := form.NewProcessor(storage.NewLocalStore(cfg.Storage.ImagePath), logger, opts...)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(processor, errorStore, logger, cfg.Storage.MaxBodySize)

	router := routes.NewRouter(webhookHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Listening on http://"+server.Addr,
			zap.String("image_path", cfg.Storage.ImagePath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close dependency", zap.Error(err))
		}
	}

	logger.Info("Server exited", zap.Int("error_log_entries", errorStore.Len()))
}

// newLogger is the production logger writing to stdout.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}
