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

	"github.com/iwvelando/remaining-value/internal/config"
	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/server"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// loadServerConfig reads the server config and applies command line overrides.
func loadServerConfig(flags cliFlags) (*server.Config, error) {
	serverConfig, err := server.LoadConfig(flags.serverConfigPath)
	if err != nil {
		return nil, err
	}
	if flags.maxUploadSize == "" {
		return serverConfig, nil
	}

	size, err := server.ParseSize(flags.maxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("invalid -max-upload-size: %w", err)
	}
	if err := serverConfig.SetUploadSizeBytes(size); err != nil {
		return nil, fmt.Errorf("invalid -max-upload-size: %w", err)
	}
	return serverConfig, nil
}

// serve runs the web UI until SIGINT or SIGTERM.
func serve(conf *config.Configuration, flags cliFlags, version string) error {
	serverConfig, err := loadServerConfig(flags)
	if err != nil {
		return err
	}

	loggingConfig := serverConfig.Logging
	if loggingConfig == (config.LoggingConfig{}) {
		loggingConfig = conf.Logging
	}
	logger, err := initializeLogger(loggingConfig, flags.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.serve"),
		)
	}

	opts := server.Options{
		Logger:            logger,
		Defaults:          conf.Defaults,
		MaxUploadSize:     serverConfig.UploadSizeBytes(),
		RequestsPerMinute: serverConfig.RequestsPerMinute,
		TrustProxy:        serverConfig.TrustProxy,
		Version:           version,
	}

	provider, closeCache, err := conf.Rates.NewProvider(logger)
	if err != nil {
		logger.Warn("exchange rates disabled",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
	} else {
		defer func() { _ = closeCache() }()
		opts.Rates = provider
	}
	if conf.Export.UploadEndpoint != "" {
		opts.Uploader = export.NewUploader(logger, conf.Export.UploadEndpoint, conf.Export.UploadTimeout)
	}

	handler := server.NewHandler(opts)
	defer handler.Close()

	httpServer := &http.Server{
		Addr:              serverConfig.Address,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("serving web UI",
			zap.String("op", "main.serve"),
			zap.String("address", serverConfig.Address),
			zap.String("version", version),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down",
			zap.String("op", "main.serve"),
			zap.String("signal", sig.String()),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
