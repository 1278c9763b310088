// Package archive stores raw GS1 message bodies in object storage for
// audit and reprocessing.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

// Metadata keys written on every archived object
const (
	MetadataKind      = "gs1-kind"
	MetadataDirection = "gs1-direction"
	MetadataStatus    = "gs1-status"
)

// S3Archive implements delivery.Archive on any S3-compatible store (AWS S3,
// MinIO, localstack).
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3ArchiveOption is a functional option for configuring S3Archive
type S3ArchiveOption func(*S3Archive)

// WithLogger sets a custom logger for S3Archive
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(a *S3Archive) {
		a.logger = logger
	}
}

// NewS3Archive creates an archive from configuration. Static credentials
// are used when an access key is configured; otherwise the default AWS
// credential chain applies.
func NewS3Archive(ctx context.Context, cfg *config.StorageConfig, opts ...S3ArchiveOption) (*S3Archive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible stores do not all accept flexible checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})

	a := &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Key returns the object key of rec:
// [prefix/]<direction>/<kind>/<yyyy>/<mm>/<dd>/<id>.xml
func (a *S3Archive) Key(rec delivery.Record) string {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	key := path.Join(
		string(rec.Direction),
		string(rec.Kind),
		at.Format("2006"), at.Format("01"), at.Format("02"),
		sanitizeID(rec.ID)+".xml",
	)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	return key
}

// sanitizeID keeps identifiers from escaping their date directory
func sanitizeID(id string) string {
	id = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(id))
	if id == "" || id == "." || id == ".." {
		return "unnamed"
	}
	return id
}

// Store uploads the record body
func (a *S3Archive) Store(ctx context.Context, rec delivery.Record) error {
	key := a.Key(rec)
	ctx, span := telemetry.StartServiceSpan(ctx, "S3Archive", "Store",
		telemetry.WithAttribute("s3.bucket", a.bucket),
		telemetry.WithAttribute("s3.key", key),
	)
	defer span.End()

	metadata := map[string]string{
		MetadataKind:      string(rec.Kind),
		MetadataDirection: string(rec.Direction),
	}
	if rec.Status != "" {
		metadata[MetadataStatus] = rec.Status
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(rec.Body),
		ContentType: aws.String("application/xml"),
		Metadata:    metadata,
	})
	if err != nil {
		err = fmt.Errorf("failed to archive %s: %w", key, err)
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	a.logger.Debug("message archived", zap.String("key", key), zap.Int("size", len(rec.Body)))
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (a *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (a *S3Archive) Bucket() string {
	return a.bucket
}

var _ delivery.Archive = (*S3Archive)(nil)
