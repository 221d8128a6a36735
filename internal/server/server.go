// Package server provides the HTTP API for uploading documents and asking
// questions about them.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Ingester stores an uploaded file and returns its document id.
type Ingester interface {
	Ingest(ctx context.Context, src models.SourceFile, filename string) (*models.IngestResult, error)
}

// QuestionAnswerer answers questions about stored documents.
type QuestionAnswerer interface {
	Ask(ctx context.Context, documentID, question string) (string, error)
	SuggestQuestions(ctx context.Context, documentID string) ([]string, error)
}

// ChatLogLister lists recorded questions, newest first.
type ChatLogLister interface {
	List(ctx context.Context, limit int) ([]models.ChatLogEntry, error)
}

// Server is the HTTP route layer in front of the ingestion pipeline.
type Server struct {
	ingester       Ingester
	answerer       QuestionAnswerer
	chatLog        ChatLogLister
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates a server with the given dependencies. chatLog may be nil,
// in which case /logs returns an empty list.
func NewServer(ingester Ingester, answerer QuestionAnswerer, chatLog ChatLogLister, maxUploadBytes int64, logger *slog.Logger) *Server {
	return &Server{
		ingester:       ingester,
		answerer:       answerer,
		chatLog:        chatLog,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Router returns the HTTP handler for every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/upload", s.handleUpload)
	r.Post("/ask", s.handleAsk)
	r.Post("/suggest_questions", s.handleSuggestQuestions)
	r.Get("/logs", s.handleLogs)
	r.Get("/health", s.handleHealth)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request served.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}
