package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/soltixdb/streamwatch/internal/compression"
	"github.com/soltixdb/streamwatch/internal/config"
	"github.com/soltixdb/streamwatch/internal/ingest"
	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/soltixdb/streamwatch/internal/queue"
	"github.com/soltixdb/streamwatch/internal/router"
	"github.com/soltixdb/streamwatch/internal/stream"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	mode := "custom"
	switch {
	case cfg.IsDevelopment():
		mode = "development"
	case cfg.IsProduction():
		mode = "production"
	}
	logger.Info("Detector service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime, "mode", mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := stream.NewMetricsSink(promRegistry)
	if err != nil {
		logger.Fatal("Failed to register metrics", "error", err)
	}

	sinks := []stream.Sink{
		stream.NewLogSink(logger, cfg.Alerts.LogAll),
		metrics,
	}

	// Queue (only when alerts or ingestion use it)
	var queueClient queue.Queue
	if cfg.NeedsQueue() {
		logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		queueClient, err = queue.NewQueue(cfg.Queue)
		if err != nil {
			logger.Fatal("Failed to connect to Queue", "error", err)
		}
		defer func() { _ = queueClient.Close() }()
		logger.Info("Queue connection established")
	}

	var compressor compression.Compressor
	if cfg.Alerts.Compress {
		compressor = compression.NewSnappyCompressor()
	}
	if cfg.Alerts.QueueEnabled {
		sinks = append(sinks, stream.NewQueueSink(queueClient, cfg.Alerts.SubjectPrefix, compressor))
		logger.Info("Publishing anomalies to queue", "subject_prefix", cfg.Alerts.SubjectPrefix, "compress", cfg.Alerts.Compress)
	}

	registry, err := stream.NewRegistry(stream.Options{
		Detector:   cfg.Detector.ToDetectorConfig(),
		MaxStreams: cfg.Streams.MaxStreams,
		Sinks:      sinks,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Invalid detector configuration", "error", err)
	}

	policy, err := stream.ParseOverflowPolicy(cfg.Pipeline.OverflowPolicy)
	if err != nil {
		logger.Fatal("Invalid pipeline configuration", "error", err)
	}
	pipelines := stream.NewPipelineGroup(ctx, registry, stream.PipelineOptions{
		BufferSize: cfg.Pipeline.BufferSize,
		Policy:     policy,
		OnDrop:     metrics.RecordDropped,
		Logger:     logger,
	})

	// Synthetic producer
	if cfg.Ingest.Simulate {
		genCfg := ingest.DefaultGeneratorConfig()
		genCfg.Seed = cfg.Ingest.Seed
		generator := ingest.NewGenerator(genCfg)
		streamName := cfg.Streams.DefaultStream

		logger.Info("Simulator enabled", "stream", streamName, "interval", cfg.Ingest.Interval)
		go func() {
			err := ingest.Run(ctx, generator, cfg.Ingest.Interval, func(ctx context.Context, v float64) error {
				return pipelines.Submit(ctx, streamName, v)
			})
			if err != nil {
				logger.Error("Simulator stopped", "error", err)
			}
		}()
	}

	// Queue-driven ingestion
	if cfg.Ingest.QueueEnabled {
		consumer := ingest.NewQueueConsumer(queueClient, pipelines, ingest.ConsumerOptions{
			Subject:       cfg.Ingest.QueueSubject,
			DefaultStream: cfg.Streams.DefaultStream,
			Logger:        logger,
		})
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("Failed to subscribe to measurements", "subject", cfg.Ingest.QueueSubject, "error", err)
		}
	}

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, registry, promRegistry, *cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Stop producers first, then drain what they already submitted
	cancel()
	pipelines.Stop()

	logger.Info("Server exited", "dropped", pipelines.Dropped(), "streams", registry.Len())
}
