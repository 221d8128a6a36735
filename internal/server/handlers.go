package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/Lllllllleong/documentqa/internal/services"
	"github.com/Lllllllleong/documentqa/internal/store"
)

const (
	multipartMemoryBytes = 32 << 20
	defaultUploadName    = "upload.pdf"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "no file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "no selected file")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		s.respondError(w, http.StatusBadRequest, "invalid file type, only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	filename := SecureFilename(header.Filename)
	if filename == "" {
		filename = defaultUploadName
	}

	result, err := s.ingester.Ingest(r.Context(), models.SourceFile{Data: data, MIMEType: models.MIMETypePDF}, filename)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.UploadResponse{
		Success:    true,
		DocumentID: result.DocumentID,
		Filename:   filename,
		PageCount:  result.PageCount,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" || strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "missing documentId or question")
		return
	}

	answer, err := s.answerer.Ask(r.Context(), req.DocumentID, req.Question)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.AskResponse{Answer: answer})
}

func (s *Server) handleSuggestQuestions(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "missing documentId")
		return
	}

	questions, err := s.answerer.SuggestQuestions(r.Context(), req.DocumentID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SuggestQuestionsResponse{Questions: questions})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.chatLog == nil {
		s.respondJSON(w, http.StatusOK, []models.ChatLogEntry{})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.chatLog.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list chat logs.", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// statusFor maps a service error onto an HTTP status and a client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEmptyFile):
		return http.StatusBadRequest, "uploaded file is empty"
	case errors.Is(err, services.ErrEmptyQuestion):
		return http.StatusBadRequest, "question is empty"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "document not found or expired"
	case errors.Is(err, services.ErrNoExtractableContent):
		return http.StatusUnprocessableEntity, "no text could be extracted from the document"
	case errors.Is(err, services.ErrUpstreamQuota):
		return http.StatusTooManyRequests, "extraction quota exceeded, try again later"
	case errors.Is(err, services.ErrUpstreamAuth):
		return http.StatusBadGateway, "extraction service rejected the request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed.", "status", code, "error", err)
	} else {
		s.logger.Warn("Request rejected.", "status", code, "error", err)
	}
	s.respondError(w, code, msg)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response.", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces an uploaded file name to a safe base name: directory
// parts are dropped, whitespace runs become underscores, and anything outside
// ASCII letters, digits, '_', '.' and '-' is removed. It may return "".
func SecureFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
