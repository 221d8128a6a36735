package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Lllllllleong/documentqa/internal/models"
)

// ObjectFetcher downloads a Cloud Storage object.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, object string) ([]byte, error)
}

// Ingester is satisfied by *Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, src models.SourceFile, filename string) (*models.IngestResult, error)
}

// BucketIngester ingests PDFs as they are uploaded to a bucket.
type BucketIngester struct {
	ingester Ingester
	objects  ObjectFetcher
	logger   *slog.Logger
}

func NewBucketIngester(ingester Ingester, objects ObjectFetcher, logger *slog.Logger) *BucketIngester {
	return &BucketIngester{ingester: ingester, objects: objects, logger: logger}
}

// Process downloads the object named by e and ingests it under its base name.
// Objects that are not PDFs are skipped with a nil result and nil error.
func (b *BucketIngester) Process(ctx context.Context, e models.GCSEvent) (*models.IngestResult, error) {
	logCtx := b.logger.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	if !isPDFObject(e) {
		logCtx.Info("Object is not a PDF. Skipping.", "contentType", e.ContentType)
		return nil, nil
	}

	data, err := b.objects.Fetch(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return nil, fmt.Errorf("failed to download gs://%s/%s: %w", e.Bucket, e.Name, err)
	}

	result, err := b.ingester.Ingest(ctx, models.SourceFile{Data: data, MIMEType: models.MIMETypePDF}, path.Base(e.Name))
	if err != nil {
		return nil, err
	}
	logCtx.Info("Object ingested.", "documentId", result.DocumentID, "pageCount", result.PageCount)
	return result, nil
}

func isPDFObject(e models.GCSEvent) bool {
	if e.ContentType == models.MIMETypePDF {
		return true
	}
	return strings.HasSuffix(strings.ToLower(e.Name), ".pdf")
}
