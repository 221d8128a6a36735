package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Lllllllleong/documentqa/internal/models"
)

// MemoryStore keeps documents in process memory. Records are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]models.StoredDocument
	opts   Options
	logger *slog.Logger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts Options, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]models.StoredDocument),
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

func (s *MemoryStore) Put(ctx context.Context, text, filename string) (string, error) {
	return putNew(ctx, s.opts, text, filename, func(_ context.Context, doc models.StoredDocument) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.docs[doc.ID]; ok {
			return errIDTaken
		}
		s.docs[doc.ID] = doc
		return nil
	})
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.StoredDocument, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if doc.Expired(s.opts.Now()) {
		s.reap(id)
		return nil, ErrNotFound
	}
	return &doc, nil
}

// reap deletes id if it is still expired once the write lock is held.
func (s *MemoryStore) reap(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok && doc.Expired(s.opts.Now()) {
		delete(s.docs, id)
	}
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, doc := range s.docs {
		if doc.Expired(now) {
			delete(s.docs, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of records held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// StartSweeper runs Sweep every interval until ctx is cancelled. The returned
// channel is closed once the sweeper has stopped.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, _ := s.Sweep(ctx, s.opts.Now())
				if removed > 0 {
					s.logger.Info("Swept expired documents.", "removed", removed)
				}
			}
		}
	}()
	return done
}

func (s *MemoryStore) Close() error {
	return nil
}
