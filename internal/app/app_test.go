package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/documentqa/internal/config"
	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/Lllllllleong/documentqa/internal/testpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Extraction: config.ExtractionConfig{Extractor: config.ExtractorTextLayer},
		Store:      config.StoreConfig{Backend: config.StoreMemory},
		ChatLog:    config.ChatLogConfig{Path: filepath.Join(t.TempDir(), "chat.db")},
	}
	config.ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())
	return cfg
}

func newLocalApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), localConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func TestLocalApp_UploadAndFetch(t *testing.T) {
	a := newLocalApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "site plan.pdf")
	require.NoError(t, err)
	_, err = fw.Write(testpdf.Build(2))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "site_plan.pdf", resp.Filename)
	assert.Equal(t, 2, resp.PageCount)

	text, err := a.Pipeline.Fetch(context.Background(), resp.DocumentID)
	require.NoError(t, err)
	assert.Contains(t, text, "Page 1")
	assert.Contains(t, text, "Page 2")
}

func TestLocalApp_AskWithoutProject(t *testing.T) {
	a := newLocalApp(t)

	res, err := a.Pipeline.Ingest(context.Background(), models.SourceFile{Data: testpdf.Build(1)}, "one.pdf")
	require.NoError(t, err)

	_, err = a.Answerer.Ask(context.Background(), res.DocumentID, "What is on page one?")
	require.ErrorIs(t, err, errAnswererDisabled)
}

func TestLocalApp_BucketIngestDisabled(t *testing.T) {
	a := newLocalApp(t)

	_, err := a.ProcessBucketEvent(context.Background(), models.GCSEvent{Bucket: "b", Name: "x.pdf"})
	require.ErrorIs(t, err, ErrBucketIngestDisabled)
}

func TestNew_BadChatLogPath(t *testing.T) {
	cfg := localConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.ChatLog.Path = filepath.Join(blocker, "chat.db")

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
