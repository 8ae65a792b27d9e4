package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/api"
	"github.com/rxvxrsx/revgrab/internal/app"
	"github.com/rxvxrsx/revgrab/internal/infrastructure"
	"github.com/rxvxrsx/revgrab/pkg/logger"
)

var configPath = flag.String("config", "", "Config file path")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting revgrab server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("download_dir", config.Engine.DownloadDir))

	if err := os.MkdirAll(config.Engine.DownloadDir, 0755); err != nil {
		log.Fatal("Failed to create download directory", zap.Error(err))
	}

	var recorders []app.ResultRecorder
	var history *infrastructure.SQLiteHistoryStore
	if config.History.Enabled {
		history, err = infrastructure.NewSQLiteHistoryStore(config.History.DatabasePath, log)
		if err != nil {
			log.Fatal("Failed to initialize history store", zap.Error(err))
		}
		recorders = append(recorders, history)
	}
	recorders = append(recorders, infrastructure.NewNotificationService(config.Notification, log))

	backend := infrastructure.NewBackendRouter(config.Backend, log)
	bus := app.NewEventBus()
	controller := app.NewSessionController(
		backend,
		config.Engine,
		infrastructure.NewDiskSpaceChecker(),
		bus,
		log,
		recorders...,
	)

	router := api.SetupRouter(controller, history, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal")

	// Stop the running session first so yt-dlp subprocesses die before the
	// listener closes.
	controller.Cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
