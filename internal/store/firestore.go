package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/documentqa/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps one Firestore document per record. The expiresAt field
// can also back a Firestore TTL policy so expired records are deleted server
// side. Firestore caps a document at 1 MiB, which bounds the text size; use
// GCSStore for larger documents.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	opts       Options
	logger     *slog.Logger
}

// NewFirestoreStore creates a FirestoreStore writing to collection.
func NewFirestoreStore(client *firestore.Client, collection string, opts Options, logger *slog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client must not be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name must not be empty")
	}
	return &FirestoreStore{client: client, collection: collection, opts: opts.withDefaults(), logger: logger}, nil
}

func (s *FirestoreStore) Put(ctx context.Context, text, filename string) (string, error) {
	return putNew(ctx, s.opts, text, filename, func(ctx context.Context, doc models.StoredDocument) error {
		_, err := s.client.Collection(s.collection).Doc(doc.ID).Create(ctx, doc)
		if status.Code(err) == codes.AlreadyExists {
			return errIDTaken
		}
		if err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		return nil
	})
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*models.StoredDocument, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	var doc models.StoredDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	doc.ID = snap.Ref.ID
	if doc.Expired(s.opts.Now()) {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	it := s.client.Collection(s.collection).Where("expiresAt", "<", now).Documents(ctx)
	defer it.Stop()

	removed := 0
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("failed to list expired documents: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			s.logger.Warn("Failed to delete expired document.", "documentId", snap.Ref.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
