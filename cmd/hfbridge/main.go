package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hfbridge/internal/application"
	"hfbridge/internal/config"
	"hfbridge/internal/infrastructure/kafka"
	"hfbridge/internal/infrastructure/logging"
	"hfbridge/internal/infrastructure/peercache"
	"hfbridge/internal/infrastructure/telemetry"
	"hfbridge/internal/infrastructure/zomerpc"
	"hfbridge/internal/interfaces/httpapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	rotating, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	if rotating != nil {
		defer rotating.Close()
	}

	shutdownTracing, err := telemetry.InitTracer(context.Background(), "hfbridge", cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing init failed", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	gateway, err := zomerpc.NewClient(zomerpc.Config{
		URL:      cfg.ConductorURL,
		Instance: cfg.InstanceID,
		Timeout:  cfg.CallTimeout,
	})
	if err != nil {
		log.Fatalf("conductor client error: %v", err)
	}

	var audit application.AuditStream
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaPrefix,
		})
		if err != nil {
			log.Fatalf("kafka error: %v", err)
		}
		defer producer.Close()
		audit = producer
	}

	var cache application.NicknameCache
	if nickCache, err := peercache.New(peercache.Config{
		Addr: cfg.RedisAddr,
		TTL:  cfg.CacheTTL,
	}); err != nil {
		slog.Warn("nickname cache disabled", "error", err)
	} else if nickCache != nil {
		defer nickCache.Close()
		cache = nickCache
	}

	svc, err := application.NewService(gateway, audit, slog.Default())
	if err != nil {
		log.Fatalf("service error: %v", err)
	}
	resolver, err := application.NewResolver(gateway, cache, slog.Default())
	if err != nil {
		log.Fatalf("resolver error: %v", err)
	}

	server, err := httpapi.NewServer(svc, resolver, httpapi.NewMetrics(), httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		log.Fatalf("http server error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("hfbridge starting",
		"http_addr", cfg.HTTPAddr,
		"conductor", cfg.ConductorURL,
		"instance", cfg.InstanceID,
		"audit", audit != nil,
		"nickname_cache", cache != nil,
	)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		log.Fatalf("http server error: %v", err)
	}
	slog.Info("hfbridge stopped")
}
