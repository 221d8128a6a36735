// Package app assembles the service from its configuration: it picks the
// extractor and store backend, connects the Google Cloud clients that the
// chosen backends need, and exposes the HTTP handler and the bucket event
// processor used by cmd/docqa.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentqa/internal/chatlog"
	"github.com/Lllllllleong/documentqa/internal/config"
	"github.com/Lllllllleong/documentqa/internal/gcp"
	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/Lllllllleong/documentqa/internal/server"
	"github.com/Lllllllleong/documentqa/internal/services"
	"github.com/Lllllllleong/documentqa/internal/store"
)

// ErrBucketIngestDisabled is returned by ProcessBucketEvent when no Cloud
// Storage client could be configured.
var ErrBucketIngestDisabled = errors.New("bucket ingestion is not configured")

// errAnswererDisabled is returned for questions when no Gemini model is configured.
var errAnswererDisabled = errors.New("question answering requires GOOGLE_CLOUD_PROJECT_ID")

// App holds every long-lived component of the service.
type App struct {
	Pipeline *services.Pipeline
	Answerer *services.Answerer
	Handler  http.Handler

	bucket  *services.BucketIngester
	logger  *slog.Logger
	closers []func() error
	cancel  context.CancelFunc
	sweeper <-chan struct{}
}

// New builds the service described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	storeOpts := store.Options{TTL: cfg.Store.TTL}

	var storageClient *storage.Client
	if cfg.Store.Backend == config.StoreGCS || cfg.GCP.ProjectID != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage.NewClient: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		storageClient = client
	}

	extractor, err := a.newExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	docs, err := a.newStore(ctx, cfg, storeOpts, storageClient)
	if err != nil {
		return nil, err
	}

	notifier, err := a.newNotifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Pipeline, err = services.NewPipeline(services.PipelineConfig{
		MaxChunkSizeBytes: cfg.Extraction.MaxChunkSizeBytes,
		MaxConcurrency:    cfg.Extraction.MaxConcurrency,
	}, extractor, docs, notifier, logger)
	if err != nil {
		return nil, err
	}

	chatLog, err := chatlog.NewSQLiteLog(cfg.ChatLog.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, chatLog.Close)

	generator, err := a.newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Answerer = services.NewAnswerer(a.Pipeline, generator, chatLog, logger)

	if storageClient != nil {
		a.bucket = services.NewBucketIngester(a.Pipeline, gcp.NewObjectFetcher(storageClient), logger)
	}

	a.Handler = server.NewServer(a.Pipeline, a.Answerer, chatLog, cfg.Server.MaxUploadBytes, logger).Router()
	a.startSweeper(cfg, docs)

	logger.Info("Service initialized.",
		"extractor", cfg.Extraction.Extractor,
		"store", cfg.Store.Backend,
		"ttl", cfg.Store.TTL.String(),
		"bucketIngest", a.bucket != nil,
		"workflow", cfg.Workflow.ID,
	)
	ok = true
	return a, nil
}

func (a *App) newExtractor(ctx context.Context, cfg *config.Config) (services.Extractor, error) {
	if cfg.Extraction.Extractor == config.ExtractorTextLayer {
		return services.NewTextLayerExtractor(a.logger), nil
	}

	client, err := gcp.NewDocumentAIClient(ctx, cfg.Extraction.DocAILocation)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	return services.NewDocumentAIExtractor(client, services.DocumentAIConfig{
		ProjectID:   cfg.GCP.ProjectID,
		Location:    cfg.Extraction.DocAILocation,
		ProcessorID: cfg.Extraction.DocAIProcessorID,
		Timeout:     cfg.Extraction.Timeout,
	}, a.logger)
}

func (a *App) newStore(ctx context.Context, cfg *config.Config, opts store.Options, storageClient *storage.Client) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := store.NewRedisClient(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		if err != nil {
			return nil, err
		}
		s := store.NewRedisStore(client, opts, a.logger)
		a.closers = append(a.closers, s.Close)
		return s, nil

	case config.StoreFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID, cfg.Store.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		s, err := store.NewFirestoreStore(client, cfg.Store.FirestoreCollection, opts, a.logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil

	case config.StoreGCS:
		return store.NewGCSStore(storageClient, cfg.Store.Bucket, opts, a.logger)

	default:
		return store.NewMemoryStore(opts, a.logger), nil
	}
}

func (a *App) newNotifier(ctx context.Context, cfg *config.Config) (services.Notifier, error) {
	if cfg.Workflow.ID == "" {
		return nil, nil
	}
	client, err := gcp.NewExecutionsClient(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	return services.NewWorkflowNotifier(client, services.WorkflowNotifierConfig{
		ProjectID:  cfg.GCP.ProjectID,
		Location:   cfg.Workflow.Location,
		WorkflowID: cfg.Workflow.ID,
	}, a.logger)
}

func (a *App) newGenerator(ctx context.Context, cfg *config.Config) (services.TextGenerator, error) {
	if cfg.GCP.ProjectID == "" {
		a.logger.Warn("GOOGLE_CLOUD_PROJECT_ID is not set, question answering is disabled.")
		return disabledGenerator{}, nil
	}
	client, err := gcp.NewVertexClient(ctx, cfg.GCP.ProjectID, cfg.GCP.VertexAIRegion, cfg.GCP.GeminiModel)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// startSweeper removes expired documents in the background. Redis expires
// keys itself and needs no sweeper.
func (a *App) startSweeper(cfg *config.Config, docs store.Store) {
	if cfg.Store.Backend == config.StoreRedis || cfg.Store.SweepInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if mem, ok := docs.(*store.MemoryStore); ok {
		a.sweeper = mem.StartSweeper(ctx, cfg.Store.SweepInterval)
		return
	}

	done := make(chan struct{})
	a.sweeper = done
	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Store.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.Pipeline.Sweep(ctx); err != nil && ctx.Err() == nil {
					a.logger.Error("Failed to sweep expired documents.", "error", err)
				}
			}
		}
	}()
}

// ProcessBucketEvent ingests the object named by a Cloud Storage event.
func (a *App) ProcessBucketEvent(ctx context.Context, e models.GCSEvent) (*models.IngestResult, error) {
	if a.bucket == nil {
		return nil, ErrBucketIngestDisabled
	}
	return a.bucket.Process(ctx, e)
}

// Close stops the sweeper and releases every client, in reverse order of creation.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.sweeper
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type disabledGenerator struct{}

func (disabledGenerator) Generate(context.Context, string) (string, error) {
	return "", errAnswererDisabled
}
