package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrObjectExists is returned by SaveToGCSAtomically when the object is already present.
var ErrObjectExists = errors.New("object already exists")

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// The object becomes visible only once the write has been finalized.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string, metadata map[string]string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = metadata

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailure(err) {
			return ErrObjectExists
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailure(err) {
			return ErrObjectExists
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ReadObject returns the full content of an object. A missing object yields
// an error wrapping storage.ErrObjectNotExist.
func ReadObject(ctx context.Context, obj *storage.ObjectHandle) ([]byte, error) {
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", obj.BucketName(), obj.ObjectName(), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", obj.BucketName(), obj.ObjectName(), err)
	}
	return data, nil
}

func isPreconditionFailure(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return true
	}
	return status.Code(err) == codes.FailedPrecondition
}

// ObjectFetcher downloads whole objects from any bucket.
type ObjectFetcher struct {
	client *storage.Client
}

func NewObjectFetcher(client *storage.Client) *ObjectFetcher {
	return &ObjectFetcher{client: client}
}

func (f *ObjectFetcher) Fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	return ReadObject(ctx, f.client.Bucket(bucket).Object(object))
}
