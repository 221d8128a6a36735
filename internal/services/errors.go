package services

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrEmptyFile is returned when an upload has no content.
	ErrEmptyFile = errors.New("empty file")
	// ErrMalformedInput means the source could not be parsed into pages.
	// The pipeline recovers from it by passing the file through whole.
	ErrMalformedInput = errors.New("malformed input")
	// ErrNoExtractableContent means every chunk failed extraction.
	ErrNoExtractableContent = errors.New("no extractable content")
	// ErrUpstreamAuth means the extraction service rejected our credentials.
	ErrUpstreamAuth = errors.New("extraction service authentication failed")
	// ErrUpstreamQuota means the extraction service quota is exhausted.
	ErrUpstreamQuota = errors.New("extraction service quota exceeded")
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// ChunkError records why a single chunk contributed nothing to a document.
// It is logged, never returned from Ingest.
type ChunkError struct {
	Index     int
	FirstPage int
	LastPage  int
	Err       error
}

func (e *ChunkError) Error() string {
	if e.FirstPage == 0 {
		return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("chunk %d (pages %d-%d): %v", e.Index, e.FirstPage, e.LastPage, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// classifyUpstreamError maps an extraction service error onto ErrUpstreamAuth
// or ErrUpstreamQuota. It returns nil for every other failure, which the
// caller treats as an absent chunk.
func classifyUpstreamError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrUpstreamQuota, err)
		}
		return nil
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
		case codes.ResourceExhausted:
			return fmt.Errorf("%w: %v", ErrUpstreamQuota, err)
		}
	}
	return nil
}
