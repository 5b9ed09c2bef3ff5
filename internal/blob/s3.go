// Package blob stores applicant documents and hands back durable URLs.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"applicant-screening/internal/common/config"
	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/models"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store is the URL-returning upload primitive the screening engine relies on.
type Store interface {
	Upload(ctx context.Context, ownerID string, file *models.FileUpload) (string, error)
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client        S3API
	bucket        string
	region        string
	keyPrefix     string
	publicBaseURL string
	maxBytes      int64
	logger        logger.Logger
}

func NewS3Store(client S3API, cfg *config.Config, log logger.Logger) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        cfg.Storage.S3.Bucket,
		region:        cfg.Storage.S3.Region,
		keyPrefix:     cfg.Storage.S3.KeyPrefix,
		publicBaseURL: strings.TrimRight(cfg.Storage.S3.PublicBaseURL, "/"),
		maxBytes:      cfg.Server.MaxUploadBytes,
		logger:        logger.ForComponent(log, "blob"),
	}
}

// Upload writes the file under <prefix>/<owner>/<documentType>/<uuid>-<name>
// and returns its URL. Every failure is an UploadError.
func (s *S3Store) Upload(ctx context.Context, ownerID string, file *models.FileUpload) (string, error) {
	if file == nil || file.Body == nil {
		return "", errors.NewUploadError("", fmt.Errorf("empty upload"))
	}
	docType := string(file.DocumentType)
	if !file.DocumentType.Valid() {
		return "", errors.NewUploadError(docType, fmt.Errorf("unknown document type"))
	}

	// The SDK needs a seekable body to sign the payload.
	data, err := io.ReadAll(io.LimitReader(file.Body, s.limit()+1))
	if err != nil {
		return "", errors.NewUploadError(docType, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > s.limit() {
		return "", errors.NewUploadError(docType, fmt.Errorf("file exceeds %d bytes", s.limit()))
	}
	if len(data) == 0 {
		return "", errors.NewUploadError(docType, fmt.Errorf("file is empty"))
	}

	key := s.objectKey(ownerID, file)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: sdkaws.String(contentType),
		Metadata: map[string]string{
			"owner-id":      ownerID,
			"document-type": docType,
		},
	})
	if err != nil {
		s.logger.Error("put object failed", map[string]interface{}{
			"error":        err,
			"bucket":       s.bucket,
			"key":          key,
			"documentType": docType,
		})
		return "", errors.NewUploadError(docType, err)
	}

	url := s.objectURL(key)
	s.logger.Info("document stored", map[string]interface{}{
		"userId":       ownerID,
		"documentType": docType,
		"key":          key,
		"bytes":        len(data),
	})
	return url, nil
}

func (s *S3Store) limit() int64 {
	if s.maxBytes <= 0 {
		return 10 << 20
	}
	return s.maxBytes
}

func (s *S3Store) objectKey(ownerID string, file *models.FileUpload) string {
	name := sanitizeFileName(file.FileName)
	if name == "" {
		name = string(file.DocumentType)
	}
	return path.Join(s.keyPrefix, ownerID, string(file.DocumentType), uuid.New().String()+"-"+name)
}

func (s *S3Store) objectURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
