package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyUpstreamError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain error", errors.New("eof"), nil},
		{"deadline", context.DeadlineExceeded, nil},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), nil},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, ""), ErrUpstreamAuth},
		{"grpc permission denied", status.Error(codes.PermissionDenied, ""), ErrUpstreamAuth},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, ""), ErrUpstreamQuota},
		{"wrapped grpc status", fmt.Errorf("process: %w", status.Error(codes.ResourceExhausted, "")), ErrUpstreamQuota},
		{"http 403", &googleapi.Error{Code: http.StatusForbidden}, ErrUpstreamAuth},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}, ErrUpstreamQuota},
		{"http 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyUpstreamError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestChunkError(t *testing.T) {
	err := &ChunkError{Index: 1, FirstPage: 15, LastPage: 28, Err: errChunkEmpty}
	assert.Equal(t, "chunk 1 (pages 15-28): no text extracted", err.Error())
	assert.ErrorIs(t, err, errChunkEmpty)

	passThrough := &ChunkError{Index: 0, Err: errChunkEmpty}
	assert.Equal(t, "chunk 0: no text extracted", passThrough.Error())
}
