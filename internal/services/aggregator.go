package services

import (
	"strings"

	"github.com/Lllllllleong/documentqa/internal/models"
)

// ChunkSeparator joins the text of consecutive chunks.
const ChunkSeparator = "\n\n"

// Aggregate combines per-chunk results, given in chunk order, into one
// document. Nil entries are chunks that failed and are skipped. It returns
// ErrNoExtractableContent when every entry is nil.
func Aggregate(results []*models.ExtractionResult) (*models.AggregatedDocument, error) {
	texts := make([]string, 0, len(results))
	pageCount := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		texts = append(texts, r.Text)
		pageCount += r.PageCount
	}
	if len(texts) == 0 {
		return nil, ErrNoExtractableContent
	}
	return &models.AggregatedDocument{
		Text:      strings.Join(texts, ChunkSeparator),
		PageCount: pageCount,
	}, nil
}
