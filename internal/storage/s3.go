package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string // base URL objects are served from
}

// S3Storage stores exported documents in an S3-compatible bucket
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
	now       func() time.Time
	newID     func() string
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // Required for MinIO
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}, nil
}

// PutDocumentInput represents a document to store
type PutDocumentInput struct {
	Prefix      string // e.g. "capacity"
	Body        []byte
	ContentType string
}

// PutDocumentOutput represents a stored document
type PutDocumentOutput struct {
	Key      string
	URL      string
	Size     int64
	StoredAt time.Time
}

// PutDocument writes a document under <prefix>/<yyyy/mm/dd>/<uuid><ext>
func (s *S3Storage) PutDocument(ctx context.Context, in PutDocumentInput) (*PutDocumentOutput, error) {
	storedAt := s.now()
	key := ObjectKey(in.Prefix, storedAt, s.newID(), extensionFor(in.ContentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(in.Body),
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(int64(len(in.Body))),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	return &PutDocumentOutput{
		Key:      key,
		URL:      s.PublicURL(key),
		Size:     int64(len(in.Body)),
		StoredAt: storedAt,
	}, nil
}

// Delete removes a document from S3
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

// PublicURL returns the address a key is served from
func (s *S3Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", s.publicURL, key)
}

// ObjectKey builds a date-partitioned object key
func ObjectKey(prefix string, at time.Time, id, ext string) string {
	key := fmt.Sprintf("%s/%s%s", at.UTC().Format("2006/01/02"), id, ext)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/json":
		return ".json"
	case "text/csv":
		return ".csv"
	default:
		return ""
	}
}
