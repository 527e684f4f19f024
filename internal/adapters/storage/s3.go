package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// S3Storage keeps a GeoJSON library in an S3 bucket, or in any
// S3-compatible store reachable through Endpoint.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ output.ObjectStorage = (*S3Storage)(nil)

// S3Config holds S3 configuration.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Storage creates a new S3 storage adapter. Without static keys the
// default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket: %w", domain.ErrInvalidInput)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &domain.StorageError{Operation: "connect", Key: cfg.Bucket, Err: err}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// MinIO and friends only serve path-style requests.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// List returns the GeoJSON documents under the prefix.
func (s *S3Storage) List(ctx context.Context) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(objectName(s.prefix, "")),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &domain.StorageError{Operation: "list", Key: s.bucket, Err: s3Error(err)}
		}
		for _, obj := range page.Contents {
			if o, ok := s.toObject(obj); ok {
				objects = append(objects, o)
			}
		}
	}
	return objects, nil
}

func (s *S3Storage) toObject(obj types.Object) (output.StorageObject, bool) {
	key, ok := libraryKey(s.prefix, aws.ToString(obj.Key))
	if !ok {
		return output.StorageObject{}, false
	}
	o := output.StorageObject{
		Key:  key,
		Size: aws.ToInt64(obj.Size),
		ETag: strings.Trim(aws.ToString(obj.ETag), "\""),
	}
	if obj.LastModified != nil {
		o.LastModified = obj.LastModified.Unix()
	}
	return o, true
}

// GetReader returns the body of the object at key.
func (s *S3Storage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName(s.prefix, key)),
	})
	if err != nil {
		return nil, &domain.StorageError{Operation: "get", Key: key, Err: s3Error(err)}
	}
	return resp.Body, nil
}

// Exists checks for the object with a HEAD request.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName(s.prefix, key)),
	})
	if err == nil {
		return true, nil
	}
	if err = s3Error(err); domain.IsNotFound(err) {
		return false, nil
	}
	return false, &domain.StorageError{Operation: "exists", Key: key, Err: err}
}

// Put uploads a GeoJSON document.
func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectName(s.prefix, key)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(geoJSONContentType),
	})
	if err != nil {
		return &domain.StorageError{Operation: "put", Key: key, Err: s3Error(err)}
	}
	return nil
}

// s3Error tags missing keys and buckets with domain.ErrNotFound and
// everything else with domain.ErrStorageUnavailable.
func s3Error(err error) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		noBucket *types.NoSuchBucket
	)
	if errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
