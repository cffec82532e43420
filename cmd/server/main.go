package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/services"
	handlers "fallwatch/internal/handlers/http"
	"fallwatch/internal/infrastructure/blob"
	"fallwatch/internal/infrastructure/fanout"
	"fallwatch/internal/infrastructure/inference"
	"fallwatch/internal/infrastructure/monitoring"
	"fallwatch/internal/infrastructure/repositories"
	"fallwatch/pkg/circuitbreaker"
	"fallwatch/pkg/config"
	"fallwatch/pkg/logger"
)

// defaultDeviceID names the single camera this deployment liaises with
// until it self-reports its hardware identity.
const defaultDeviceID = "esp32-cam"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zlog.Sync()
	sugar := zlog.Sugar()

	factory, err := repositories.NewRepositoryFactory(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize repositories", "error", err)
	}
	defer factory.Close()

	deviceRepo := factory.CreateDeviceRepository()
	eventRepo := factory.CreateEventRepository()

	registry := services.NewDeviceRegistry(deviceRepo, cfg.Device.LivenessWindow, nil)
	resolver := &services.RegistryResolver{
		Registry: registry,
		DeviceID: defaultDeviceID,
		Fallback: cfg.Device.Address,
	}

	// Seed the registry with the configured address so the first dispatch
	// works before the device has ever reported in.
	if cfg.Device.Address != "" {
		seedCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := registry.Upsert(seedCtx, defaultDeviceID, cfg.Device.Address, domain.ModeUnknown); err != nil {
			sugar.Warnw("failed to seed device registry", "error", err)
		}
		cancel()
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Dispatch.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Dispatch.Breaker.SuccessThreshold,
		Timeout:          cfg.Dispatch.Breaker.OpenTimeout,
	})
	dispatcher := services.NewCommandDispatcher(
		services.DispatchConfig{
			MaxAttempts:    cfg.Dispatch.MaxAttempts,
			InitialDelay:   cfg.Dispatch.InitialDelay,
			Multiplier:     cfg.Dispatch.Multiplier,
			AttemptTimeout: cfg.Dispatch.AttemptTimeout,
			PingTimeout:    cfg.Dispatch.PingTimeout,
			ControlPort:    cfg.Device.ControlPort,
		},
		resolver,
		registry,
		defaultDeviceID,
		breaker,
		sugar,
	)

	metrics := monitoring.NewPrometheusCollector()

	hub := fanout.NewHub(sugar)
	hub.OnClientCount(metrics.SetFanoutClients)

	blobStore, err := blob.NewFileStore(cfg.Detection.UploadsDir, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize snapshot store", "error", err)
	}

	prunerCtx, stopPruner := context.WithCancel(context.Background())
	defer stopPruner()
	pruner := blob.NewPruner(cfg.Detection.UploadsDir, cfg.Detection.SnapshotRetention, cfg.Detection.SweepInterval, sugar)
	go pruner.Run(prunerCtx)

	model := inference.NewHTTPModel(cfg.Detection.ModelURL, cfg.Detection.ModelTimeout)
	decoder := inference.NewDecoder(cfg.Detection.FrameWidth, cfg.Detection.FrameHeight)
	classifier := inference.NewClassifier(model, inference.OutputVector, cfg.Detection.PositiveClassIndex, sugar)

	detection := services.NewDetectionService(
		decoder,
		classifier,
		eventRepo,
		blobStore,
		hub,
		registry,
		cfg.Detection.FallThreshold,
		nil,
		sugar,
	)

	relay := services.NewStreamRelay(
		services.RelayConfig{
			MaxClients:        cfg.Stream.MaxClients,
			ReconnectDelay:    cfg.Stream.ReconnectDelay,
			MaxReconnectDelay: cfg.Stream.MaxReconnectDelay,
			UpstreamTimeout:   cfg.Stream.UpstreamTimeout,
			ChunkSize:         cfg.Stream.ChunkSize,
			ControlPort:       cfg.Device.ControlPort,
			StreamPath:        cfg.Device.StreamPath,
			OnReconnect:       metrics.RecordRelayReconnect,
		},
		resolver,
		registry,
		defaultDeviceID,
		sugar,
	)

	detectHandler := handlers.NewDetectHandler(
		detection,
		eventRepo,
		cfg.Detection.DefaultLocation,
		cfg.Detection.FrameWidth*cfg.Detection.FrameHeight,
		metrics,
		sugar,
	)
	deviceHandler := handlers.NewDeviceHandler(dispatcher, registry, defaultDeviceID, metrics, sugar)
	streamHandler := handlers.NewStreamHandler(relay, metrics, sugar)

	router := handlers.NewRouter(cfg, zlog, detectHandler, deviceHandler, streamHandler, hub)

	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays zero: the stream relay holds responses open
		// indefinitely.
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sugar.Infow("starting server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
	_ = zlog.Sync()
}
