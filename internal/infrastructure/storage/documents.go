// Package storage signs proof-of-delivery uploads and downloads against an
// S3-compatible bucket. Document bytes never pass through the API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	"github.com/freightmarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultRegion = "us-east-1"
	defaultExpiry = 15 * time.Minute
)

var errEmptyKey = errors.New("document key is required")

// DocumentStore presigns delivery documents on AWS S3, MinIO or any other
// S3-compatible endpoint.
type DocumentStore struct {
	api    *s3.Client
	signer *s3.PresignClient
	bucket string
	expiry time.Duration
	log    *zap.Logger
}

var _ marketplaceapp.ObjectStorageService = (*DocumentStore)(nil)

// NewDocumentStore builds the client without touching the network. A zero
// expiry falls back to cfg.PresignExpiration, then to fifteen minutes.
func NewDocumentStore(cfg *config.StorageConfig, log *zap.Logger, expiry time.Duration) (*DocumentStore, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("storage configuration is required")
	case cfg.Bucket == "":
		return nil, errors.New("storage bucket is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, errors.New("storage access key and secret key are required")
	}
	endpoint, err := endpointURL(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage credentials: %w", err)
	}
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	for _, d := range []time.Duration{expiry, cfg.PresignExpiration, defaultExpiry} {
		if d > 0 {
			expiry = d
			break
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentStore{
		api:    api,
		signer: s3.NewPresignClient(api),
		bucket: cfg.Bucket,
		expiry: expiry,
		log:    log.Named("documents"),
	}, nil
}

// endpointURL adds a scheme to a bare host. An empty endpoint means AWS.
func endpointURL(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid storage endpoint %q", endpoint)
	}
	return u.String(), nil
}

func (d *DocumentStore) Bucket() string { return d.bucket }

// EnsureBucket creates the bucket on first start.
func (d *DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := d.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(d.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("head bucket %s: %w", d.bucket, err)
	}

	d.log.Info("Creating document bucket", zap.String("bucket", d.bucket))
	_, err = d.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(d.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", d.bucket, err)
	}
	return nil
}

// GenerateUploadURL signs a PUT. The uploader must send the same
// Content-Type it was signed with.
func (d *DocumentStore) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	return d.presign("upload", key, expiresIn, func(opt func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return d.signer.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(d.bucket),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		}, opt)
	})
}

// GenerateDownloadURL signs a GET.
func (d *DocumentStore) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return d.presign("download", key, expiresIn, func(opt func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return d.signer.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(key),
		}, opt)
	})
}

func (d *DocumentStore) presign(op, key string, expiresIn time.Duration, sign func(func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = d.expiry
	}
	req, err := sign(s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", op, err)
	}
	d.log.Debug("Presigned document URL",
		zap.String("op", op),
		zap.String("key", key),
		zap.Duration("expires_in", expiresIn),
	)
	return req.URL, time.Now().Add(expiresIn), nil
}
