// Package documents validates and stores the optional PDF a visitor attaches to a booking.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 2 << 20

var (
	ErrDisabled = errors.New("documents: storage not configured")
	ErrEmpty    = errors.New("documents: file is empty")
	ErrTooLarge = errors.New("documents: file too large")
	ErrNotPDF   = errors.New("documents: only PDF files are allowed")
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes documents under documents/YYYY/MM/ in one bucket.
type S3Store struct {
	bucket   string
	client   S3API
	maxBytes int64
	now      func() time.Time
	logger   *logging.Logger
}

// NewS3Store creates a store. If bucket or client is missing, Put returns ErrDisabled.
func NewS3Store(client S3API, bucket string, maxBytes int64, logger *logging.Logger) *S3Store {
	if logger == nil {
		logger = logging.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &S3Store{
		bucket:   bucket,
		client:   client,
		maxBytes: maxBytes,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.Component("documents"),
	}
}

// Enabled reports whether uploads are accepted.
func (s *S3Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// MaxBytes is the largest accepted upload.
func (s *S3Store) MaxBytes() int64 { return s.maxBytes }

// Validate checks the file name, size and content.
func (s *S3Store) Validate(filename string, data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if !strings.EqualFold(path.Ext(filename), ".pdf") {
		return ErrNotPDF
	}
	if int64(len(data)) > s.maxBytes {
		return fmt.Errorf("%w: file size must be less than %d MB", ErrTooLarge, s.maxBytes>>20)
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return fmt.Errorf("%w: content is not a PDF", ErrNotPDF)
	}
	return nil
}

// Put validates and uploads the document, returning the object key used as the
// appointment's document reference.
func (s *S3Store) Put(ctx context.Context, filename string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if err := s.Validate(filename, data); err != nil {
		return "", err
	}

	now := s.now()
	key := fmt.Sprintf("documents/%d/%02d/%s.pdf", now.Year(), now.Month(), uuid.NewString())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(filename))),
	})
	if err != nil {
		return "", fmt.Errorf("documents: s3 put %s: %w", key, err)
	}

	s.logger.Info("documents: stored", "key", key, "bytes", len(data))
	return key, nil
}
