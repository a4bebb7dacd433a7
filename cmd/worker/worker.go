package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/dispatch"
	"Mazraaty/internal/model"
	"Mazraaty/internal/queue"
	"Mazraaty/internal/schedule"
	"Mazraaty/internal/service"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/metrics"
	mqotel "Mazraaty/pkg/mq"
	pkgotel "Mazraaty/pkg/otel"
	"Mazraaty/pkg/provider"
	"Mazraaty/pkg/provider/email"
	"Mazraaty/pkg/provider/inapp"
	"Mazraaty/pkg/provider/push"
	"Mazraaty/pkg/provider/sms"
	"Mazraaty/pkg/snowflake"
	"Mazraaty/storage"
)

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
		ServiceName:    config.Cfg.ServiceName + "-worker",
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
		if err := mqotel.InitMQMetrics(otel.Meter("mazraaty-mq")); err != nil {
			logger.Logger.Warn("Failed to initialize MQ metrics", zap.Error(err))
		}
	}

	// Channel adapters, each behind a circuit breaker and concurrency cap.
	// A misconfigured provider degrades to its mock instead of blocking boot.
	timeout := config.Cfg.AdapterTimeout()
	registry := provider.NewRegistry()
	registry.Register(model.ChannelSMS, provider.NewGuarded(sms.Init(), int64(config.Cfg.SMSConcurrency), timeout))
	registry.Register(model.ChannelEmail, provider.NewGuarded(email.Init(), int64(config.Cfg.EmailConcurrency), timeout))
	registry.Register(model.ChannelPush, provider.NewGuarded(push.Init(), int64(config.Cfg.PushConcurrency), timeout))
	registry.Register(model.ChannelInApp, provider.NewGuarded(inapp.Init(), int64(config.Cfg.WorkerCount), timeout))

	executor := dispatch.NewExecutor(registry, service.Preference())
	pool := dispatch.NewPool(executor)
	pool.Start(ctx)

	// consumers reach the services through injected interfaces
	queue.SetResolveHandler(service.Resolver())
	queue.SetDeliveryProcessor(pool)

	sweeper := schedule.GetSweeper()
	if err := sweeper.Start(); err != nil {
		logger.Logger.Error("Failed to start retention sweeper", zap.Error(err))
		return exitDependency
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("worker_count", config.Cfg.WorkerCount),
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := queue.StartResolveConsumer(ctx); err != nil {
			logger.Logger.Error("Resolve consumer stopped", zap.Error(err))
			cancel()
		}
	}()

	for _, p := range model.PrioritiesDescending {
		wg.Add(1)
		go func(p model.Priority) {
			defer wg.Done()
			if err := queue.StartDeliveryConsumer(ctx, p); err != nil {
				logger.Logger.Error("Delivery consumer stopped",
					zap.String("priority", string(p)),
					zap.Error(err),
				)
				cancel()
			}
		}(p)
	}

	<-ctx.Done()

	// Stop intake first, then let in-flight deliveries drain.
	sweeper.Stop()
	wg.Wait()
	pool.Stop()

	logger.Logger.Info("Worker service shutting down gracefully")
	if signalled {
		return exitSignal
	}
	return exitOK
}
