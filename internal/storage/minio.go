package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"cv-intake-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ObjectStorage is the object store surface used by the intake pipeline.
type ObjectStorage interface {
	// UploadFile uploads an arbitrary object to the originals bucket.
	UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error)

	// DownloadFile downloads an object from the originals bucket.
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)

	// GetPresignedURL returns a time-limited download URL.
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)

	// DeleteFile removes an object from the originals bucket.
	DeleteFile(ctx context.Context, objectName string) error

	// CV-specific operations.
	UploadCVFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error)
	UploadCVFileStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)
	UploadParsedText(ctx context.Context, submissionUUID string, text string) (string, error)
	GetCVFile(ctx context.Context, objectKey string) ([]byte, error)
	GetParsedText(ctx context.Context, objectKey string) (string, error)
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO stores original CV uploads and their extracted plain text in two
// buckets with independent retention.
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	parsedBucket   string
	logger         *log.Logger
}

// NewMinIO creates the MinIO client, ensures both buckets exist and
// applies the configured lifecycle rules.
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO config cannot be nil")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	originalBucket := cfg.OriginalsBucket
	if originalBucket == "" {
		originalBucket = "cv-originals"
	}
	parsedBucket := cfg.ParsedTextBucket
	if parsedBucket == "" {
		parsedBucket = "cv-parsed-text"
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: originalBucket,
		parsedBucket:   parsedBucket,
		logger:         logger,
	}

	if err := m.ensureBucketExists(originalBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("failed to ensure originals bucket %s exists: %w", originalBucket, err)
	}
	if err := m.ensureBucketExists(parsedBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("failed to ensure parsed-text bucket %s exists: %w", parsedBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			// Lifecycle support is optional on some S3-compatible backends.
			logger.Printf("[MinIO] Warning: failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized for endpoint %s (originals=%s, parsed=%s)",
		cfg.Endpoint, originalBucket, parsedBucket)
	return m, nil
}

func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created", bucketName)
	}
	return nil
}

func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("failed to set lifecycle on bucket %s: %w", m.originalBucket, err)
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return fmt.Errorf("failed to set lifecycle on bucket %s: %w", m.parsedBucket, err)
		}
	}
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcfg := lifecycle.NewConfiguration()
	lcfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lcfg)
}

// cvObjectKey builds the object key for a submission's original file.
func cvObjectKey(submissionUUID, fileExt string) string {
	return fmt.Sprintf("cv/%s/original%s", submissionUUID, fileExt)
}

// parsedTextObjectKey builds the object key for a submission's extracted text.
func parsedTextObjectKey(submissionUUID string) string {
	return fmt.Sprintf("cv/%s/parsed_text.txt", submissionUUID)
}

// UploadFile uploads an object to the originals bucket and returns its key.
func (m *MinIO) UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.originalBucket, objectName, reader, fileSize,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s/%s: %w", m.originalBucket, objectName, err)
	}
	return objectName, nil
}

func (m *MinIO) uploadFileFromBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	return m.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType)
}

// UploadCVFile uploads an original CV file and returns its object key.
func (m *MinIO) UploadCVFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	objectName := cvObjectKey(submissionUUID, fileExt)
	return m.UploadFile(ctx, objectName, reader, fileSize, getContentType(fileExt))
}

// UploadCVFileStreaming uploads an original CV file while computing its MD5
// in the same pass over the stream. Returns the object key and the hex MD5.
func (m *MinIO) UploadCVFileStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := cvObjectKey(submissionUUID, fileExt)

	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	_, err := m.client.PutObject(ctx, m.originalBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: getContentType(fileExt)})
	if err != nil {
		return "", "", fmt.Errorf("failed to stream upload to MinIO: %w", err)
	}

	return objectName, hex.EncodeToString(md5Hash.Sum(nil)), nil
}

// UploadParsedText stores the extracted plain text of a submission.
func (m *MinIO) UploadParsedText(ctx context.Context, submissionUUID string, text string) (string, error) {
	objectName := parsedTextObjectKey(submissionUUID)
	_, err := m.client.PutObject(ctx, m.parsedBucket, objectName, strings.NewReader(text),
		int64(len(text)), minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("failed to upload parsed text %s to bucket %s: %w", objectName, m.parsedBucket, err)
	}
	return objectName, nil
}

// DownloadFile downloads an object from the originals bucket.
func (m *MinIO) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	return m.downloadFromBucket(ctx, m.originalBucket, objectName)
}

func (m *MinIO) downloadFromBucket(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucketName, objectName, err)
	}
	defer obj.Close()

	// Stat surfaces missing-object and permission errors before ReadAll.
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("failed to stat object %s/%s: %w", bucketName, objectName, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucketName, objectName, err)
	}
	return data, nil
}

// GetCVFile downloads an original CV file by its object key.
func (m *MinIO) GetCVFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.downloadFromBucket(ctx, m.originalBucket, objectKey)
}

// GetParsedText downloads a submission's extracted text by its object key.
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	data, err := m.downloadFromBucket(ctx, m.parsedBucket, objectKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetPresignedURL returns a time-limited URL for an original CV file.
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.originalBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteFile removes an object from the originals bucket.
func (m *MinIO) DeleteFile(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.originalBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectName, err)
	}
	return nil
}

// StatObject exposes the underlying StatObject for tests and tooling.
func (m *MinIO) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}

func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
