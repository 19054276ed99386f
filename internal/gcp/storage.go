package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Archive writes immutable objects into one bucket.
type Archive struct {
	bucket *storage.BucketHandle
	name   string
}

// NewArchive wraps a bucket of an existing storage client.
func NewArchive(client *storage.Client, bucket string) *Archive {
	return &Archive{bucket: client.Bucket(bucket), name: bucket}
}

// Put stores content under objectName only if it does not exist yet. An
// existing object is treated as already archived.
func (a *Archive) Put(ctx context.Context, objectName string, content []byte) error {
	writer := a.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if alreadyExists(err) {
			slog.Info("archive object already exists", "bucket", a.name, "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if alreadyExists(err) {
			slog.Info("archive object already exists", "bucket", a.name, "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
