package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// MaxImportBytes bounds the size of an object read for import.
const MaxImportBytes = 10 << 20

var (
	// ErrInvalidURI is returned for anything that is not gs://bucket/object.
	ErrInvalidURI = errors.New("invalid GCS URI")
	// ErrObjectNotFound is returned when the bucket or object does not exist.
	ErrObjectNotFound = errors.New("GCS object not found")
	// ErrObjectTooLarge is returned when an object exceeds MaxImportBytes.
	ErrObjectTooLarge = errors.New("GCS object too large")
)

// DownloadFile reads an object, failing when it exceeds MaxImportBytes.
func DownloadFile(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucketName, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	if len(data) > MaxImportBytes {
		return nil, fmt.Errorf("%w: %s/%s exceeds %d bytes", ErrObjectTooLarge, bucketName, objectName, MaxImportBytes)
	}

	return data, nil
}
