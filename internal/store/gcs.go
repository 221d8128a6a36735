package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentqa/internal/gcp"
	"github.com/Lllllllleong/documentqa/internal/models"
	"google.golang.org/api/iterator"
)

const (
	gcsObjectPrefix = "documents/"

	metaFilename  = "filename"
	metaCreatedAt = "created-at"
	metaExpiresAt = "expires-at"
)

// GCSStore keeps each document's text as a Cloud Storage object, with the
// filename and timestamps in object metadata. A bucket lifecycle rule can
// delete objects older than the TTL; Sweep does the same on demand.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	opts   Options
	logger *slog.Logger
}

// NewGCSStore creates a GCSStore writing to bucketName.
func NewGCSStore(client *storage.Client, bucketName string, opts Options, logger *slog.Logger) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client must not be nil")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name must not be empty")
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucketName),
		opts:   opts.withDefaults(),
		logger: logger,
	}, nil
}

func gcsObjectName(id string) string {
	return gcsObjectPrefix + id + ".txt"
}

func (s *GCSStore) Put(ctx context.Context, text, filename string) (string, error) {
	return putNew(ctx, s.opts, text, filename, func(ctx context.Context, doc models.StoredDocument) error {
		metadata := map[string]string{
			metaFilename:  doc.Filename,
			metaCreatedAt: doc.CreatedAt.Format(time.RFC3339Nano),
			metaExpiresAt: doc.ExpiresAt.Format(time.RFC3339Nano),
		}
		err := gcp.SaveToGCSAtomically(ctx, s.bucket, gcsObjectName(doc.ID), []byte(doc.Text), "text/plain; charset=utf-8", metadata)
		if errors.Is(err, gcp.ErrObjectExists) {
			return errIDTaken
		}
		return err
	})
}

func (s *GCSStore) Get(ctx context.Context, id string) (*models.StoredDocument, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	name := gcsObjectName(id)

	attrs, err := s.bucket.Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes of document %s: %w", id, err)
	}

	doc, err := docFromAttrs(id, attrs)
	if err != nil {
		return nil, err
	}
	if doc.Expired(s.opts.Now()) {
		return nil, ErrNotFound
	}

	// Pin the generation whose metadata was checked above.
	data, err := gcp.ReadObject(ctx, s.bucket.Object(name).Generation(attrs.Generation))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Text = string(data)
	return doc, nil
}

func docFromAttrs(id string, attrs *storage.ObjectAttrs) (*models.StoredDocument, error) {
	expiresAt, err := time.Parse(time.RFC3339Nano, attrs.Metadata[metaExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("document %s has invalid expiry metadata: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, attrs.Metadata[metaCreatedAt])
	if err != nil {
		createdAt = attrs.Created
	}
	return &models.StoredDocument{
		ID:        id,
		Filename:  attrs.Metadata[metaFilename],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *GCSStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	err := s.bucket.Object(gcsObjectName(id)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *GCSStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: gcsObjectPrefix})
	removed := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("failed to list documents: %w", err)
		}

		id := strings.TrimSuffix(path.Base(attrs.Name), ".txt")
		doc, err := docFromAttrs(id, attrs)
		if err != nil {
			s.logger.Warn("Skipping object with unreadable metadata.", "gcsObject", attrs.Name, "error", err)
			continue
		}
		if !doc.Expired(now) {
			continue
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			s.logger.Warn("Failed to delete expired document.", "gcsObject", attrs.Name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
