package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/Lllllllleong/documentqa/internal/testpdf"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeProcessor struct {
	resp  *documentaipb.ProcessResponse
	err   error
	block bool
	reqs  []*documentaipb.ProcessRequest
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, _ ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func docAIResponse(text string, pages int) *documentaipb.ProcessResponse {
	doc := &documentaipb.Document{Text: text}
	for i := 0; i < pages; i++ {
		doc.Pages = append(doc.Pages, &documentaipb.Document_Page{PageNumber: int32(i + 1)})
	}
	return &documentaipb.ProcessResponse{Document: doc}
}

var testDocAIConfig = DocumentAIConfig{ProjectID: "proj", Location: "us", ProcessorID: "proc-1", Timeout: time.Second}

func newTestDocAIExtractor(t *testing.T, p *fakeProcessor) *DocumentAIExtractor {
	t.Helper()
	e, err := NewDocumentAIExtractor(p, testDocAIConfig, discardLogger())
	require.NoError(t, err)
	return e
}

func TestDocumentAIExtractor_Success(t *testing.T) {
	p := &fakeProcessor{resp: docAIResponse("Permit No. 42\nIssued 2024", 3)}
	e := newTestDocAIExtractor(t, p)
	chunk := models.Chunk{Index: 0, Data: []byte("%PDF-fake"), MIMEType: models.MIMETypePDF}

	res, err := e.Extract(context.Background(), chunk)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Permit No. 42\nIssued 2024", res.Text)
	assert.Equal(t, 3, res.PageCount)

	require.Len(t, p.reqs, 1)
	assert.Equal(t, "projects/proj/locations/us/processors/proc-1", p.reqs[0].GetName())
	raw := p.reqs[0].GetRawDocument()
	require.NotNil(t, raw)
	assert.Equal(t, chunk.Data, raw.GetContent())
	assert.Equal(t, models.MIMETypePDF, raw.GetMimeType())
}

func TestDocumentAIExtractor_AbsentResults(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProcessor
	}{
		{name: "transport error", p: &fakeProcessor{err: errors.New("connection reset")}},
		{name: "server error status", p: &fakeProcessor{err: status.Error(codes.Internal, "boom")}},
		{name: "invalid argument", p: &fakeProcessor{err: status.Error(codes.InvalidArgument, "bad pdf")}},
		{name: "http 500", p: &fakeProcessor{err: &googleapi.Error{Code: http.StatusInternalServerError}}},
		{name: "no document", p: &fakeProcessor{resp: &documentaipb.ProcessResponse{}}},
		{name: "nil response", p: &fakeProcessor{}},
		{name: "blank text", p: &fakeProcessor{resp: docAIResponse("  \n ", 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestDocAIExtractor(t, tt.p)
			res, err := e.Extract(context.Background(), models.Chunk{Data: []byte("x"), MIMEType: models.MIMETypePDF})
			require.NoError(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestDocumentAIExtractor_TimeoutIsAbsent(t *testing.T) {
	p := &fakeProcessor{block: true}
	cfg := testDocAIConfig
	cfg.Timeout = 10 * time.Millisecond
	e, err := NewDocumentAIExtractor(p, cfg, discardLogger())
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), models.Chunk{Data: []byte("x"), MIMEType: models.MIMETypePDF})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestDocumentAIExtractor_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad token"), ErrUpstreamAuth},
		{"permission denied", status.Error(codes.PermissionDenied, "no access"), ErrUpstreamAuth},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "quota"), ErrUpstreamQuota},
		{"http 401", &googleapi.Error{Code: http.StatusUnauthorized}, ErrUpstreamAuth},
		{"http 403", &googleapi.Error{Code: http.StatusForbidden}, ErrUpstreamAuth},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}, ErrUpstreamQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestDocAIExtractor(t, &fakeProcessor{err: tt.err})
			res, err := e.Extract(context.Background(), models.Chunk{Data: []byte("x"), MIMEType: models.MIMETypePDF})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewDocumentAIExtractor_Validation(t *testing.T) {
	_, err := NewDocumentAIExtractor(nil, testDocAIConfig, discardLogger())
	require.Error(t, err)

	_, err = NewDocumentAIExtractor(&fakeProcessor{}, DocumentAIConfig{ProjectID: "p", Location: "us"}, discardLogger())
	require.Error(t, err)
}

func TestTextLayerExtractor(t *testing.T) {
	e := NewTextLayerExtractor(discardLogger())

	t.Run("reads every page", func(t *testing.T) {
		res, err := e.Extract(context.Background(), models.Chunk{Data: testpdf.Build(3), MIMEType: models.MIMETypePDF})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 3, res.PageCount)
		assert.Contains(t, res.Text, "Page 1")
		assert.Contains(t, res.Text, "Page 3")
	})

	t.Run("garbage is absent", func(t *testing.T) {
		res, err := e.Extract(context.Background(), models.Chunk{Data: []byte("not a pdf"), MIMEType: models.MIMETypePDF})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("truncated pdf is absent", func(t *testing.T) {
		data := testpdf.Build(2)
		res, err := e.Extract(context.Background(), models.Chunk{Data: data[:len(data)/2], MIMEType: models.MIMETypePDF})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("non-pdf is absent", func(t *testing.T) {
		res, err := e.Extract(context.Background(), models.Chunk{Data: []byte("GIF89a"), MIMEType: "image/gif"})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("cancelled context is absent", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := e.Extract(ctx, models.Chunk{Data: testpdf.Build(2), MIMEType: models.MIMETypePDF})
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}
