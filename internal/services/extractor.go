package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/googleapis/gax-go/v2"
	"github.com/ledongthuc/pdf"
)

// Extractor turns one chunk into text.
//
// A nil result with a nil error means the chunk contributed nothing: the
// service failed, timed out or found no text. A non-nil error is only ever
// ErrUpstreamAuth or ErrUpstreamQuota and aborts the whole ingestion.
type Extractor interface {
	Extract(ctx context.Context, chunk models.Chunk) (*models.ExtractionResult, error)
}

// DocumentProcessor is the subset of the Document AI client used for extraction.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
}

// DocumentAIConfig identifies the processor to call.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	// Timeout bounds each ProcessDocument call. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// ProcessorName returns the fully qualified processor resource name.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIExtractor extracts text with a Document AI OCR processor.
type DocumentAIExtractor struct {
	client DocumentProcessor
	config DocumentAIConfig
	logger *slog.Logger
}

// NewDocumentAIExtractor creates a DocumentAIExtractor.
func NewDocumentAIExtractor(client DocumentProcessor, config DocumentAIConfig, logger *slog.Logger) (*DocumentAIExtractor, error) {
	if client == nil {
		return nil, fmt.Errorf("document processor client must not be nil")
	}
	if config.ProjectID == "" || config.Location == "" || config.ProcessorID == "" {
		return nil, fmt.Errorf("project, location and processor ID must all be set")
	}
	return &DocumentAIExtractor{client: client, config: config, logger: logger}, nil
}

func (e *DocumentAIExtractor) Extract(ctx context.Context, chunk models.Chunk) (*models.ExtractionResult, error) {
	logCtx := e.logger.With("chunk", chunk.Index, "sizeBytes", len(chunk.Data))

	callCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	req := &documentaipb.ProcessRequest{
		Name: e.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  chunk.Data,
				MimeType: chunk.MIMEType,
			},
		},
	}

	resp, err := e.client.ProcessDocument(callCtx, req)
	if err != nil {
		if fatal := classifyUpstreamError(err); fatal != nil {
			logCtx.Error("Extraction service rejected the request.", "error", err)
			return nil, fatal
		}
		logCtx.Warn("Extraction call failed.", "error", err)
		return nil, nil
	}

	doc := resp.GetDocument()
	if doc == nil {
		logCtx.Warn("Extraction service returned no document.")
		return nil, nil
	}
	if strings.TrimSpace(doc.GetText()) == "" {
		logCtx.Warn("Extraction service returned no text.", "pageCount", len(doc.GetPages()))
		return nil, nil
	}

	return &models.ExtractionResult{
		Text:      doc.GetText(),
		PageCount: len(doc.GetPages()),
	}, nil
}

// TextLayerExtractor reads the embedded text layer of a PDF locally. It needs
// no credentials but finds nothing in scanned documents.
type TextLayerExtractor struct {
	logger *slog.Logger
}

// NewTextLayerExtractor creates a TextLayerExtractor.
func NewTextLayerExtractor(logger *slog.Logger) *TextLayerExtractor {
	return &TextLayerExtractor{logger: logger}
}

func (e *TextLayerExtractor) Extract(ctx context.Context, chunk models.Chunk) (res *models.ExtractionResult, err error) {
	logCtx := e.logger.With("chunk", chunk.Index, "sizeBytes", len(chunk.Data))

	// The PDF reader panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			logCtx.Warn("Text layer extraction panicked.", "panic", r)
			res, err = nil, nil
		}
	}()

	if chunk.MIMEType != models.MIMETypePDF {
		logCtx.Warn("Unsupported MIME type for text layer extraction.", "mimeType", chunk.MIMEType)
		return nil, nil
	}

	r, err := pdf.NewReader(bytes.NewReader(chunk.Data), int64(len(chunk.Data)))
	if err != nil {
		logCtx.Warn("Failed to open PDF.", "error", err)
		return nil, nil
	}

	var sb strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		if ctx.Err() != nil {
			logCtx.Warn("Extraction cancelled.", "error", ctx.Err())
			return nil, nil
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logCtx.Warn("Skipping unreadable page.", "page", i, "error", err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		logCtx.Warn("No text layer found.", "pageCount", numPages)
		return nil, nil
	}
	return &models.ExtractionResult{Text: text, PageCount: numPages}, nil
}
