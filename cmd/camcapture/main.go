// Package main wires together the webcam capture service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/crystalpeak/camcapture/internal/api"
	"github.com/crystalpeak/camcapture/internal/capture"
	"github.com/crystalpeak/camcapture/internal/clock/system"
	"github.com/crystalpeak/camcapture/internal/config"
	"github.com/crystalpeak/camcapture/internal/fetch"
	"github.com/crystalpeak/camcapture/internal/logging"
	"github.com/crystalpeak/camcapture/internal/publisher/pubsub"
	"github.com/crystalpeak/camcapture/internal/render"
	storepg "github.com/crystalpeak/camcapture/internal/store/postgres"
	"github.com/crystalpeak/camcapture/internal/storage/gcs"
	"github.com/crystalpeak/camcapture/internal/storage/memory"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	allow := capture.NewAllowlist(cfg.Capture.AllowedDomains)
	policy := capture.NewContentPolicy(cfg.Capture.MaxImageBytes)
	slots, err := capture.NewSlotTable(cfg.Capture.LocalUTCOffsetMinutes, cfg.SlotBoundaries())
	if err != nil {
		return fmt.Errorf("build slot table: %w", err)
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Capture.MaxImageBytes + 1,
	})

	renderer, closeRenderer, err := buildRenderer(cfg, fetcher, allow, policy, logger)
	if err != nil {
		return err
	}
	defer closeRenderer()

	adapters := map[capture.SourceType]capture.SourceAdapter{
		capture.SourceRoundshot: capture.NewDirectAdapter(fetcher, policy),
		capture.SourceVerkada:   capture.NewRenderAdapter(renderer),
	}

	pool, err := storepg.NewPool(ctx, storepg.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("init postgres pool: %w", err)
	}
	defer pool.Close()

	cameraStore, err := storepg.NewCameraStore(pool, cfg.DB.CamerasTable)
	if err != nil {
		return fmt.Errorf("init camera store: %w", err)
	}
	snapshotStore, err := storepg.NewSnapshotStore(pool, cfg.DB.SnapshotsTable)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	blobs, closeBlobs, err := buildBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBlobs()

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	orchestrator := capture.NewOrchestrator(
		cameraStore,
		snapshotStore,
		blobs,
		adapters,
		allow,
		slots,
		system.New(),
		publisher,
		capture.OrchestratorConfig{
			BlobPrefix:   cfg.Storage.Prefix,
			CacheControl: cfg.Storage.CacheControl,
			Concurrency:  cfg.Capture.Concurrency,
			Topic:        cfg.PubSub.TopicName,
		},
		logger.Named("capture"),
	)

	apiServer := api.NewServer(orchestrator, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func buildRenderer(
	cfg config.Config,
	fetcher capture.Fetcher,
	allow *capture.Allowlist,
	policy capture.ContentPolicy,
	logger *zap.Logger,
) (capture.Renderer, func(), error) {
	switch cfg.Render.Provider {
	case "chromedp":
		renderer, err := render.NewChromedp(render.ChromedpConfig{
			Width:       cfg.Render.Urlbox.Width,
			Height:      cfg.Render.Urlbox.Height,
			SettleDelay: time.Duration(cfg.Render.Urlbox.DelayMS) * time.Millisecond,
			NavTimeout:  time.Duration(cfg.Render.Chromedp.NavTimeoutSeconds) * time.Second,
			MaxParallel: cfg.Render.Chromedp.MaxParallel,
			UserAgent:   cfg.HTTP.UserAgent,
		}, policy)
		if err != nil {
			return nil, nil, fmt.Errorf("init chromedp renderer: %w", err)
		}
		logger.Info("using local chromedp renderer")
		return renderer, renderer.Close, nil
	default:
		if cfg.Render.Urlbox.APIKey == "" {
			// Screenshot cameras will fail individually, not the whole run.
			logger.Warn("render api key not configured; screenshot sources will fail per camera")
		}
		renderer := render.NewUrlbox(render.UrlboxConfig{
			Endpoint: cfg.Render.Urlbox.Endpoint,
			APIKey:   cfg.Render.Urlbox.APIKey,
			Width:    cfg.Render.Urlbox.Width,
			Height:   cfg.Render.Urlbox.Height,
			Format:   cfg.Render.Urlbox.Format,
			DelayMS:  cfg.Render.Urlbox.DelayMS,
			Timeout:  time.Duration(cfg.Render.Urlbox.TimeoutSeconds) * time.Second,
		}, fetcher, allow, policy, logger.Named("urlbox"))
		return renderer, func() {}, nil
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (capture.BlobStore, func(), error) {
	switch cfg.Storage.Provider {
	case "memory":
		logger.Info("using in-memory blob store; images will not survive restarts")
		return memory.NewBlobStore(), func() {}, nil
	default:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		logger.Info("using gcs blob store", zap.String("bucket", cfg.Storage.GCSBucket))
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("close gcs client failed", zap.Error(err))
			}
		}
		return store, closeFn, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (capture.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return nil, func() {}, nil
	}
	client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	pub, err := pubsub.New(client, cfg.PubSub.TopicName)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	logger.Info("publishing run summaries", zap.String("topic", cfg.PubSub.TopicName))
	closeFn := func() {
		pub.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("close pubsub client failed", zap.Error(err))
		}
	}
	return pub, closeFn, nil
}
