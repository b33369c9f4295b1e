package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/config"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
)

// UploadPrefix is the key prefix for caller uploads awaiting analysis
const UploadPrefix = "uploads/"

// ErrObjectNotFound is returned when a key does not exist
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored video
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage keeps uploaded videos in an S3-compatible bucket until a worker
// has analyzed them
type Storage struct {
	client     *minio.Client
	bucketName string
}

// New creates a new storage client and makes sure the bucket exists
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// Bucket returns the bucket name
func (s *Storage) Bucket() string {
	return s.bucketName
}

// Upload stores a video stream under key
func (s *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64) error {
	start := time.Now()
	_, err := s.client.PutObject(ctx, s.bucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: ContentType(key),
	})
	metrics.RecordStorageOperation("upload", err == nil, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// Stat returns the object's metadata or ErrObjectNotFound
func (s *Storage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return &ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// DownloadFile downloads an object to the local filesystem
func (s *Storage) DownloadFile(ctx context.Context, key, filePath string) error {
	start := time.Now()
	err := s.client.FGetObject(ctx, s.bucketName, key, filePath, minio.GetObjectOptions{})
	metrics.RecordStorageOperation("download", err == nil, time.Since(start).Seconds())
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to download file: %w", err)
	}

	return nil
}

// Delete removes an object
func (s *Storage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
	metrics.RecordStorageOperation("delete", err == nil, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// PresignedUploadURL returns a URL a partner can PUT a video to
func (s *Storage) PresignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucketName, key, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return u.String(), nil
}

// Ping checks the bucket is reachable
func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucketName); err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}
	return nil
}

// ObjectKey builds the upload key for an analysis. Only the extension of
// filename is kept.
func ObjectKey(id, filename string) string {
	return UploadPrefix + id + strings.ToLower(filepath.Ext(filename))
}

// ValidKey reports whether key is a safe upload key
func ValidKey(key string) bool {
	if !strings.HasPrefix(key, UploadPrefix) || len(key) == len(UploadPrefix) {
		return false
	}
	return path.Clean(key) == key && !strings.Contains(key, "..")
}

// ContentType returns the content type based on file extension
func ContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
