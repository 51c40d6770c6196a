package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	appconfig "github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
)

// minPartSize is the smallest part S3 accepts for multipart uploads.
const minPartSize = 5 * 1024 * 1024

type S3Storage struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

// NewS3 creates an S3Storage for AWS or any S3-compatible endpoint.
func NewS3(ctx context.Context, cfg *appconfig.S3Config) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(cfg.MaxRetries),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if !cfg.VerifySSL {
		httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		})
		opts = append(opts, config.WithHTTPClient(httpClient))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	partSize := cfg.MultipartThreshold
	if partSize < minPartSize {
		partSize = minPartSize
	}
	uploader := s3manager.NewUploader(client, func(u *s3manager.Uploader) {
		u.PartSize = partSize
	})

	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

func (s *S3Storage) key(name string) string {
	return path.Join(s.prefix, name)
}

// Stat returns the stored size and ETag of name.
func (s *S3Storage) Stat(ctx context.Context, name string) (*domain.RemoteObject, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", name, domain.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to head S3 object: %w", err)
	}

	etag := strings.Trim(aws.ToString(out.ETag), `"`)
	return &domain.RemoteObject{
		Name:      name,
		Size:      aws.ToInt64(out.ContentLength),
		Checksum:  etag,
		Multipart: strings.Contains(etag, "-"),
	}, nil
}

// Upload uploads a local file to S3
func (s *S3Storage) Upload(ctx context.Context, localPath, name string, metadata map[string]string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key(name)),
		Body:         file,
		StorageClass: s3types.StorageClassStandard,
		Metadata:     metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// Delete removes a file from S3
func (s *S3Storage) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}
