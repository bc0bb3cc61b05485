// Package bootstrap provides dependency initialization for the push-to-talk server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/maauso/pushtotalk/internal/config"
	"github.com/maauso/pushtotalk/internal/events"
	"github.com/maauso/pushtotalk/internal/recorder"
	"github.com/maauso/pushtotalk/internal/server"
	"github.com/maauso/pushtotalk/internal/storage"
	"github.com/maauso/pushtotalk/internal/voiceinput"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Storage  *storage.LocalStorage
	Recorder *recorder.WAVRecorder
	Manager  *voiceinput.Manager
	Hub      *server.Hub

	redis *redis.Client
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	rec := recorder.NewWAVRecorder(
		recorder.NewToneSource(cfg.ToneHz),
		recorder.WithLogger(logger),
	)

	hub := server.NewHub(cfg.AllowedOrigins, logger)
	sinks := []events.Sink{events.NewLogSink(logger), hub}

	redisClient, publisher, err := initRedis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}

	listener := events.NewListener(sinks, events.WithLogger(logger))

	recordOpts := voiceinput.DefaultRecordOptions()
	recordOpts.SampleRate = cfg.SampleRate
	recordOpts.BitRate = cfg.SampleRate * 16

	mgr, err := voiceinput.New(rec, store, listener,
		voiceinput.WithMinLength(cfg.MinLengthSec),
		voiceinput.WithMaxLength(cfg.MaxLengthSec),
		voiceinput.WithCountdownWindow(cfg.CountdownSec),
		voiceinput.WithSampleInterval(cfg.SampleInterval),
		voiceinput.WithRecordOptions(recordOpts),
		voiceinput.WithLogger(logger),
	)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("create voice input manager: %w", err)
	}

	return &Dependencies{
		Storage:  store,
		Recorder: rec,
		Manager:  mgr,
		Hub:      hub,
		redis:    redisClient,
	}, nil
}

// Close stops the manager and releases the recorder, websocket clients and
// Redis connection.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	if err := d.Manager.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := d.Recorder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close recorder: %w", err))
	}
	if err := d.Hub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event hub: %w", err))
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// initStorage creates the take directory.
func initStorage(cfg *config.Config, logger *slog.Logger) (*storage.LocalStorage, error) {
	store, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", store.Dir()),
	)
	return store, nil
}

// initRedis connects the optional Redis event publisher.
func initRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, *events.RedisPublisher, error) {
	if !cfg.RedisEnabled() {
		return nil, nil, nil
	}

	client, err := events.NewRedisClient(ctx, events.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create redis client: %w", err)
	}

	publisher, err := events.NewRedisPublisher(client, cfg.RedisChannel)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create redis publisher: %w", err)
	}
	logger.Info("redis event publishing configured",
		slog.String("addr", cfg.RedisAddr),
		slog.String("channel", publisher.Channel()),
	)
	return client, publisher, nil
}
