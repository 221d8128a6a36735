package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/Lllllllleong/documentqa/internal/store"
	"golang.org/x/sync/errgroup"
)

// Stage is a step of a single ingestion.
type Stage string

const (
	StageReceived    Stage = "RECEIVED"
	StageChunking    Stage = "CHUNKING"
	StageExtracting  Stage = "EXTRACTING"
	StageAggregating Stage = "AGGREGATING"
	StageStored      Stage = "STORED"
	StageFailed      Stage = "FAILED"
)

var errChunkEmpty = errors.New("no text extracted")

// PipelineConfig holds the chunking and fan-out limits for ingestion.
type PipelineConfig struct {
	MaxChunkSizeBytes int64
	// MaxConcurrency bounds in-flight extraction calls. Values below 1 mean 1.
	MaxConcurrency int
}

// Pipeline ingests uploaded files and serves the stored text back by id.
type Pipeline struct {
	chunker   *Chunker
	extractor Extractor
	docs      store.Store
	notifier  Notifier
	config    PipelineConfig
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline. notifier may be nil.
func NewPipeline(config PipelineConfig, extractor Extractor, docs store.Store, notifier Notifier, logger *slog.Logger) (*Pipeline, error) {
	if extractor == nil || docs == nil {
		return nil, fmt.Errorf("extractor and document store must not be nil")
	}
	if config.MaxChunkSizeBytes <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", config.MaxChunkSizeBytes)
	}
	config.MaxConcurrency = max(config.MaxConcurrency, 1)
	return &Pipeline{
		chunker:   NewChunker(logger),
		extractor: extractor,
		docs:      docs,
		notifier:  notifier,
		config:    config,
		logger:    logger,
	}, nil
}

// Ingest chunks src, extracts every chunk, and stores the combined text under
// a new document id. Nothing is stored unless at least one chunk produced
// text. An empty MIME type is taken to mean PDF.
func (p *Pipeline) Ingest(ctx context.Context, src models.SourceFile, filename string) (*models.IngestResult, error) {
	logCtx := p.logger.With("filename", filename, "sizeBytes", src.Size())
	logCtx.Info("Ingestion received.", "stage", StageReceived)

	if src.Size() == 0 {
		return nil, p.fail(logCtx, StageReceived, ErrEmptyFile)
	}
	if src.MIMEType == "" {
		src.MIMEType = models.MIMETypePDF
	}

	logCtx.Info("Chunking source.", "stage", StageChunking, "maxChunkSizeBytes", p.config.MaxChunkSizeBytes)
	chunks, err := p.chunker.Split(src, p.config.MaxChunkSizeBytes)
	if errors.Is(err, ErrMalformedInput) {
		logCtx.Warn("Source could not be split; passing it through whole.", "error", err)
		chunks = []models.Chunk{{Index: 0, Data: src.Data, MIMEType: src.MIMEType}}
	} else if err != nil {
		return nil, p.fail(logCtx, StageChunking, err)
	}

	logCtx.Info("Extracting chunks.", "stage", StageExtracting, "chunkCount", len(chunks))
	results, err := p.extractAll(ctx, logCtx, chunks)
	if err != nil {
		return nil, p.fail(logCtx, StageExtracting, err)
	}

	logCtx.Info("Aggregating results.", "stage", StageAggregating)
	doc, err := Aggregate(results)
	if err != nil {
		return nil, p.fail(logCtx, StageAggregating, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(logCtx, StageStored, err)
	}
	id, err := p.docs.Put(ctx, doc.Text, filename)
	if err != nil {
		return nil, p.fail(logCtx, StageStored, fmt.Errorf("failed to store document: %w", err))
	}

	result := &models.IngestResult{DocumentID: id, PageCount: doc.PageCount}
	logCtx.Info("Document stored.", "stage", StageStored, "documentId", id, "pageCount", doc.PageCount)
	p.notify(ctx, logCtx, *result)
	return result, nil
}

// extractAll runs the extractor over every chunk with bounded concurrency and
// returns the results in chunk order, nil where a chunk produced nothing.
func (p *Pipeline) extractAll(ctx context.Context, logCtx *slog.Logger, chunks []models.Chunk) ([]*models.ExtractionResult, error) {
	results := make([]*models.ExtractionResult, len(chunks))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.config.MaxConcurrency)
	for i, chunk := range chunks {
		eg.Go(func() error {
			res, err := p.extractor.Extract(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.Index, err)
			}
			if res == nil {
				chunkErr := &ChunkError{Index: chunk.Index, FirstPage: chunk.Pages.First, LastPage: chunk.Pages.Last, Err: errChunkEmpty}
				logCtx.Warn("Chunk contributed no text.", "chunk", chunk.Index, "firstPage", chunk.Pages.First, "lastPage", chunk.Pages.Last, "error", chunkErr)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	// A cancelled ingestion makes every chunk look empty; report the cancellation instead.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) notify(ctx context.Context, logCtx *slog.Logger, result models.IngestResult) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, result); err != nil {
		logCtx.Error("Post-ingest notification failed.", "documentId", result.DocumentID, "error", err)
	}
}

func (p *Pipeline) fail(logCtx *slog.Logger, stage Stage, err error) error {
	logCtx.Error("Ingestion failed.", "stage", StageFailed, "failedDuring", stage, "error", err)
	return err
}

// Fetch returns the text stored under id, or an error wrapping
// store.ErrNotFound for unknown and expired ids.
func (p *Pipeline) Fetch(ctx context.Context, id string) (string, error) {
	doc, err := p.Document(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// Document returns the full stored record for id.
func (p *Pipeline) Document(ctx context.Context, id string) (*models.StoredDocument, error) {
	doc, err := p.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return doc, nil
}

// Sweep removes expired documents from the store.
func (p *Pipeline) Sweep(ctx context.Context) (int, error) {
	removed, err := p.docs.Sweep(ctx, time.Now())
	if err != nil {
		return removed, fmt.Errorf("failed to sweep expired documents: %w", err)
	}
	return removed, nil
}
