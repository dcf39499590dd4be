package gcsuploader

import (
	"context"
	"time"
)

// StorageService provides cloud storage operations for import files.
type StorageService interface {
	// UploadFile uploads a local file to a bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchFromGCS downloads file bytes from the given gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ArchiveImport stores an imported file and returns its gs:// URI.
	ArchiveImport(ctx context.Context, bucketName, filename string, data []byte, at time.Time) (string, error)
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage. It opens a client per call,
// relying on Application Default Credentials.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, bucketName, objectName, filePath)
}

func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

func (s *GCSStorageService) ArchiveImport(ctx context.Context, bucketName, filename string, data []byte, at time.Time) (string, error) {
	return ArchiveImport(ctx, bucketName, filename, data, at)
}

var _ StorageService = (*GCSStorageService)(nil)
