// Package s3 mirrors the release document to an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/giantswarm/microerror"
)

// DefaultKey is the object key used when none is configured.
const DefaultKey = "timeline/document.json"

// Config holds the settings needed to connect to an S3-compatible store.
type Config struct {
	Endpoint  string // custom endpoint URL (e.g. http://localhost:3900)
	Region    string
	Bucket    string
	Key       string
	AccessKey string
	SecretKey string
}

// Client wraps an S3 client scoped to a single object.
type Client struct {
	s3     *s3.Client
	bucket string
	key    string
	logger *slog.Logger
}

// New creates an S3 Client from the given Config. Static credentials are
// used when an access key is set; otherwise the default AWS chain applies.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, microerror.Maskf(invalidConfigError, "bucket must not be empty")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, s3opts...),
		bucket: cfg.Bucket,
		key:    cfg.Key,
		logger: logger,
	}, nil
}

// Location returns the s3:// URI of the mirrored document.
func (c *Client) Location() string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, c.key)
}

// PutDocument uploads the encoded document.
func (c *Client) PutDocument(ctx context.Context, body []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &c.key,
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", c.Location(), err)
	}
	c.logger.Debug("document mirrored", "location", c.Location(), "bytes", len(body))
	return nil
}

// GetDocument downloads the mirrored document.
func (c *Client) GetDocument(ctx context.Context) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &c.key,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, microerror.Maskf(notFoundError, "%s", c.Location())
		}
		return nil, fmt.Errorf("get %s: %w", c.Location(), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.Location(), err)
	}
	return data, nil
}
