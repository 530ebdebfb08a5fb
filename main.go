package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"perceptron/config"
	"perceptron/db"
	phttp "perceptron/http"
	"perceptron/logging"
	"perceptron/monitoring"
)

const heartbeatInterval = 30 * time.Second

func main() {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join("..", "config.yaml")
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize database
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer db.CloseDB()
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))

	monitor := monitoring.NewRealtimeMonitor(logger.Named("monitor"))
	if err := monitor.Start(); err != nil {
		logger.Fatal("failed to start realtime monitor", zap.Error(err))
	}
	defer monitor.Stop()

	metrics := monitoring.NewTrainingMetrics()
	training, err := phttp.NewTrainingService(cfg, monitor, metrics, logger.Named("training"))
	if err != nil {
		logger.Fatal("failed to create training service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := config.Watch(ctx, configPath, logger, training.UpdateDefaults); err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()
	go heartbeat(ctx, monitor, logger)

	// 3. Start HTTP server
	serverConfig := phttp.DefaultServerConfig()
	serverConfig.Port = cfg.Http.Port
	server := phttp.NewServer(serverConfig, phttp.NewHandlers(training, monitor, logger), logger.Named("http"))
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	training.Shutdown()
	logger.Info("exiting")
}

func heartbeat(ctx context.Context, monitor *monitoring.RealtimeMonitor, logger *zap.Logger) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := monitor.SendHeartbeat(); err != nil {
				logger.Debug("heartbeat skipped", zap.Error(err))
			}
		}
	}
}
