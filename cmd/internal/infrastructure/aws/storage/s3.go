package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/labstack/gommon/log"
)

// S3API is the subset of the S3 client the store relies on.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional custom endpoint for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Store maps blob containers onto key prefixes of a single bucket.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string

	mu    sync.Mutex
	ready bool
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3StoreWithClient(client, cfg.Bucket), nil
}

func NewS3StoreWithClient(client S3API, bucket string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}
}

func (s *S3Store) Put(ctx context.Context, container, name, contentType string, data []byte) error {
	key, err := objectKey(container, name)
	if err != nil {
		return &Error{Op: "put", Key: name, Err: err}
	}

	if err := s.ensureBucket(ctx); err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, container, name string) ([]byte, error) {
	key, err := objectKey(container, name)
	if err != nil {
		return nil, &Error{Op: "get", Key: name, Err: err}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil, &Error{Op: "get", Key: key, Err: ErrNotFound}
	}

	if err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, container, name string) error {
	key, err := objectKey(container, name)
	if err != nil {
		return &Error{Op: "delete", Key: name, Err: err}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	var noKey *types.NoSuchKey
	if err != nil && !errors.As(err, &noKey) {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *S3Store) DeleteByPrefix(ctx context.Context, container, prefix string) (int, error) {
	base, err := containerPrefix(container)
	if err != nil {
		return 0, &Error{Op: "delete-prefix", Key: prefix, Err: err}
	}
	full := base + prefix

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, &Error{Op: "delete-prefix", Key: full, Err: err}
		}

		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			ids[i] = types.ObjectIdentifier{Key: obj.Key}
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, &Error{Op: "delete-prefix", Key: full, Err: err}
		}

		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted + len(ids) - len(out.Errors), &Error{
				Op:  "delete-prefix",
				Key: aws.ToString(first.Key),
				Err: fmt.Errorf("%d objects failed, first: %s", len(out.Errors), aws.ToString(first.Message)),
			}
		}
		deleted += len(ids)
	}
	return deleted, nil
}

// ensureBucket creates the bucket the first time it is needed.
func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		s.ready = true
		return nil
	}

	if !bucketMissing(err) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	log.Infof("created bucket %s", s.bucket)
	s.ready = true
	return nil
}

// bucketMissing also accepts the untyped NoSuchBucket code some S3
// compatible servers answer HeadBucket with.
func bucketMissing(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}
