package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nunbody/internal/cache"
	"nunbody/internal/events"
	"nunbody/internal/handles"
	"nunbody/internal/localcache"
	"nunbody/internal/logger"
	"nunbody/internal/models"
	"nunbody/internal/remote"
	"nunbody/internal/server"
	"nunbody/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the agent config file")
	flag.Parse()

	cfg, err := models.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("agent stopped", zap.Error(err))
	}
}

func run(cfg *models.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	var bus events.Bus
	if cfg.Kafka.Enabled {
		bus = events.NewKafkaBus(cfg.Kafka, log)
		log.Info("photo events via kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		bus = events.NewMemoryBus(64, log)
	}
	defer bus.Close()

	session, err := remote.LoadSession(cfg.Session.Path)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	session.OnInvalidate(func() {
		log.Warn("remote session expired, login required")
	})

	photos := localcache.New(store, bus, log)
	client := remote.NewClient(cfg.Remote, session, nil, log)
	analysisCache := cache.New(ctx, cfg.Redis, log)
	defer analysisCache.Close()

	thumbs := server.NewThumbnailer(photos, cfg.Thumbnails, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := thumbs.Run(ctx, bus); err != nil {
			log.Error("thumbnail worker stopped", zap.Error(err))
		}
	}()

	srv := server.NewServer(server.Deps{
		Config:  cfg,
		Photos:  photos,
		Remote:  client,
		Handles: handles.NewRegistry(),
		Cache:   analysisCache,
		Thumbs:  thumbs,
		Log:     log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
	return nil
}
