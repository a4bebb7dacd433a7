package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/middleware"
	"Mazraaty/internal/router"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/metrics"
	mqotel "Mazraaty/pkg/mq"
	pkgotel "Mazraaty/pkg/otel"
	"Mazraaty/pkg/snowflake"
	"Mazraaty/pkg/token"
	"Mazraaty/storage"
)

// Exit codes follow the sysexits convention: 64 for unusable configuration,
// 69 for unavailable dependencies, 143 for a signal-driven shutdown.
const (
	exitOK         = 0
	exitUsage      = 64
	exitDependency = 69
	exitSignal     = 143
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.Load(); err != nil {
		log.Printf("FATAL: invalid configuration: %v", err)
		return exitUsage
	}

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	signalled := false
	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		signalled = true
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Error("Failed to initialize storage", zap.Error(err))
		return exitDependency
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Error("Failed to initialize snowflake", zap.Error(err))
		return exitDependency
	}

	otelShutdown, err := pkgotel.InitOpenTelemetry(ctx, pkgotel.Config{
		ServiceName:    config.Cfg.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    config.Cfg.Environment,
		OTLPEndpoint:   config.Cfg.OTLPEndpoint,
		SampleRatio:    config.Cfg.TraceSampler,
	})
	if err != nil {
		logger.Logger.Warn("Failed to initialize OpenTelemetry, continuing without traces", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()

		if err := metrics.InitMetrics(); err != nil {
			logger.Logger.Warn("Failed to initialize pipeline metrics", zap.Error(err))
		}
		if err := middleware.InitHTTPMetrics(otel.Meter("mazraaty-http")); err != nil {
			logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
		}
		if err := mqotel.InitMQMetrics(otel.Meter("mazraaty-mq")); err != nil {
			logger.Logger.Warn("Failed to initialize MQ metrics", zap.Error(err))
		}
	}

	// token before middleware, the auth middleware borrows its generator
	if err := token.Init(); err != nil {
		logger.Logger.Error("Failed to initialize token package", zap.Error(err))
		return exitUsage
	}

	if err := middleware.Init(); err != nil {
		logger.Logger.Error("Failed to initialize middlewares", zap.Error(err))
		return exitDependency
	}

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	tracerOpt, tracerMiddleware := middleware.NewServerTracerConfig()
	h := server.Default(server.WithHostPorts(addr), tracerOpt)
	h.Use(tracerMiddleware)

	router.Register(h)

	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
	if signalled {
		return exitSignal
	}
	return exitOK
}
