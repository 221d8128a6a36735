package models

import "fmt"

// MIMETypePDF is the only MIME type the chunker knows how to split by pages.
const MIMETypePDF = "application/pdf"

// SourceFile is an uploaded document as handed to the ingestion pipeline.
// The pipeline never modifies Data.
type SourceFile struct {
	Data     []byte
	MIMEType string
}

// Size returns the size of the file in bytes.
func (f SourceFile) Size() int64 {
	return int64(len(f.Data))
}

// PageRange is an inclusive, 1-based range of pages.
type PageRange struct {
	First int
	Last  int
}

// Pages returns the number of pages covered by the range.
func (r PageRange) Pages() int {
	if r.First == 0 || r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// Selection formats the range as a pdfcpu page selection, e.g. "15-28".
func (r PageRange) Selection() string {
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// Chunk is a standalone sub-document cut from a SourceFile.
// Pages is the zero value when the page layout of the source is unknown.
type Chunk struct {
	Index    int
	Pages    PageRange
	Data     []byte
	MIMEType string
}

// ExtractionResult is the text and page count the extraction service
// returned for one chunk.
type ExtractionResult struct {
	Text      string
	PageCount int
}

// AggregatedDocument is the combined extraction output of every chunk that succeeded.
type AggregatedDocument struct {
	Text      string
	PageCount int
}

// IngestResult is returned to the caller once an upload has been stored.
type IngestResult struct {
	DocumentID string `json:"documentId"`
	PageCount  int    `json:"pageCount"`
}
