// Package storage archives validated uploads to S3-compatible object
// storage. It is optional: a review without a sink keeps nothing.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// defaultRegion is used when an endpoint is set without a region, which is
// the usual case for self-hosted S3-compatible stores.
const defaultRegion = "us-east-1"

// Sink stores a local file and returns the object key it was stored under.
type Sink interface {
	Store(ctx context.Context, localPath, name, contentType string) (string, error)
}

// Options configures an S3Sink.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string // empty: AWS
	Prefix          string
	AccessKeyID     string // empty: default credential chain
	SecretAccessKey string
	Logger          *slog.Logger
}

// S3Sink writes objects to one bucket under a date-partitioned prefix.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewS3Sink builds the S3 client. Requests are made once, without retries,
// matching the rest of the service.
func NewS3Sink(ctx context.Context, opts Options) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	region := opts.Region
	if region == "" && opts.Endpoint != "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}

	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired

		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Sink{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Store uploads the file at localPath. The object key is
// prefix/yyyy/mm/dd/<uuid>/name, so repeated names never collide.
func (s *S3Sink) Store(ctx context.Context, localPath, name, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("storage: stat %s: %w", localPath, err)
	}

	key := ObjectKey(s.prefix, s.now(), s.newID(), name)

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}

	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("storage: put s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Info("stored upload",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int64("size", info.Size()),
	)

	return key, nil
}

// ObjectKey builds the key for one stored file. Empty parts are skipped.
func ObjectKey(prefix string, t time.Time, id, name string) string {
	t = t.UTC()

	parts := []string{
		strings.Trim(prefix, "/"),
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
		id,
		path.Base("/" + name),
	}

	kept := parts[:0]

	for _, p := range parts {
		if p != "" && p != "/" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "/")
}
