package services

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Chunker cuts oversized PDFs into page-range sub-documents that fit the
// extraction service's request size limit.
type Chunker struct {
	logger *slog.Logger
}

// NewChunker creates a Chunker.
func NewChunker(logger *slog.Logger) *Chunker {
	return &Chunker{logger: logger}
}

// Split returns the chunks of src in page order. A file no larger than
// maxChunkBytes comes back as a single chunk sharing src's bytes. Sizes are an
// estimate: pages are distributed evenly, so a chunk holding unusually heavy
// pages can still exceed maxChunkBytes.
//
// Split returns an error wrapping ErrMalformedInput when src cannot be read
// as a paged document.
func (c *Chunker) Split(src models.SourceFile, maxChunkBytes int64) ([]models.Chunk, error) {
	if maxChunkBytes <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxChunkBytes)
	}

	if src.Size() <= maxChunkBytes {
		whole := models.Chunk{Index: 0, Data: src.Data, MIMEType: src.MIMEType}
		if src.MIMEType == models.MIMETypePDF {
			if n, err := api.PageCount(bytes.NewReader(src.Data), newPDFConfig()); err == nil && n > 0 {
				whole.Pages = models.PageRange{First: 1, Last: n}
			}
		}
		return []models.Chunk{whole}, nil
	}

	if src.MIMEType != models.MIMETypePDF {
		return nil, fmt.Errorf("%w: cannot split %q by pages", ErrMalformedInput, src.MIMEType)
	}

	totalPages, err := api.PageCount(bytes.NewReader(src.Data), newPDFConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get page count: %v", ErrMalformedInput, err)
	}
	if totalPages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrMalformedInput)
	}

	ranges := PlanChunks(src.Size(), totalPages, maxChunkBytes)
	c.logger.Info("Splitting PDF.", "sizeBytes", src.Size(), "pageCount", totalPages, "chunkCount", len(ranges))

	chunks := make([]models.Chunk, 0, len(ranges))
	for i, r := range ranges {
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(src.Data), &buf, []string{r.Selection()}, newPDFConfig()); err != nil {
			return nil, fmt.Errorf("%w: failed to cut pages %s: %v", ErrMalformedInput, r.Selection(), err)
		}
		chunks = append(chunks, models.Chunk{
			Index:    i,
			Pages:    r,
			Data:     buf.Bytes(),
			MIMEType: models.MIMETypePDF,
		})
	}
	return chunks, nil
}

// PlanChunks distributes totalPages over ceil(sizeBytes/maxChunkBytes)
// chunks of equal page count, the last one truncated. The chunk count is
// capped at totalPages so no range is ever empty.
func PlanChunks(sizeBytes int64, totalPages int, maxChunkBytes int64) []models.PageRange {
	if totalPages <= 0 || maxChunkBytes <= 0 {
		return nil
	}
	numChunks := int((sizeBytes + maxChunkBytes - 1) / maxChunkBytes)
	numChunks = max(numChunks, 1)
	numChunks = min(numChunks, totalPages)
	pagesPerChunk := (totalPages + numChunks - 1) / numChunks

	ranges := make([]models.PageRange, 0, numChunks)
	for first := 1; first <= totalPages; first += pagesPerChunk {
		ranges = append(ranges, models.PageRange{
			First: first,
			Last:  min(first+pagesPerChunk-1, totalPages),
		})
	}
	return ranges
}

// newPDFConfig returns a fresh pdfcpu configuration per call; pdfcpu records
// the running command on it, so it must not be shared across goroutines.
func newPDFConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	// Classic xref tables keep chunks readable by the text layer extractor.
	cfg.WriteObjectStream = false
	cfg.WriteXRefStream = false
	return cfg
}
