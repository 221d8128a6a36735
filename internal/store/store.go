// Package store keeps extracted document text under generated identifiers for
// a fixed time-to-live. Every backend returns ErrNotFound for ids that were
// never issued and for records past their expiry, whether or not the record
// still physically exists.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/google/uuid"
)

// DefaultTTL is how long a stored document stays readable.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for unknown and expired document ids.
var ErrNotFound = errors.New("document not found")

// errIDTaken is returned by a backend's create step when the id is already in use.
var errIDTaken = errors.New("document id already taken")

const maxIDAttempts = 3

// Store persists StoredDocuments. Implementations are safe for concurrent use,
// and a record written by Put is either fully visible to Get or not at all.
type Store interface {
	// Put stores text under a new id and returns it.
	Put(ctx context.Context, text, filename string) (string, error)
	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.StoredDocument, error)
	// Delete removes the record for id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Sweep removes records that expired before now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Options are shared by every backend.
type Options struct {
	TTL time.Duration
	// Now is the clock used for createdAt, expiresAt and expiry checks.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// newRecord builds a record with a fresh random (128-bit, v4) id.
func (o Options) newRecord(text, filename string) models.StoredDocument {
	now := o.Now().UTC()
	return models.StoredDocument{
		ID:        uuid.NewString(),
		Text:      text,
		Filename:  filename,
		CreatedAt: now,
		ExpiresAt: now.Add(o.TTL),
	}
}

// putNew runs create with a fresh record, drawing a new id whenever create
// reports errIDTaken.
func putNew(ctx context.Context, opts Options, text, filename string, create func(context.Context, models.StoredDocument) error) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		doc := opts.newRecord(text, filename)
		err := create(ctx, doc)
		if err == nil {
			return doc.ID, nil
		}
		if !errors.Is(err, errIDTaken) {
			return "", err
		}
	}
	return "", fmt.Errorf("failed to allocate a document id after %d attempts", maxIDAttempts)
}

// validID rejects ids that cannot have been issued by Put, so backends never
// build keys or paths from arbitrary input.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
