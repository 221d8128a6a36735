package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentqa/internal/app"
	"github.com/Lllllllleong/documentqa/internal/config"
	"github.com/Lllllllleong/documentqa/internal/models"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	instance *app.App
	once     sync.Once
	initErr  error
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	functions.HTTP("DocQA", handleDocQA)
	functions.CloudEvent("IngestFromBucket", ingestFromBucket)
}

func main() {
	port := config.GetEnv("PORT", config.DefaultPort)
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework stopped.", "error", err)
		os.Exit(1)
	}
}

// setup builds the application on first use so that cold starts which fail
// to configure report the error on every request.
func setup() (*app.App, error) {
	once.Do(func() {
		cfg, err := config.Load("")
		if err != nil {
			initErr = err
			return
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)
		instance, initErr = app.New(context.Background(), cfg, logger)
	})
	return instance, initErr
}

func handleDocQA(w http.ResponseWriter, r *http.Request) {
	a, err := setup()
	if err != nil {
		slog.Error("Critical error during function initialization.", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	a.Handler.ServeHTTP(w, r)
}

func ingestFromBucket(ctx context.Context, e cloudevents.Event) error {
	a, err := setup()
	if err != nil {
		slog.Error("Critical error during function initialization.", "error", err)
		return err
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data.", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside the pipeline.
	_, err = a.ProcessBucketEvent(ctx, gcsEvent)
	return err
}
