package db

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/findmenow/config"
)

// BlobStore stores a photo and returns a publicly fetchable URL for it.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// S3API is the part of the S3 client used for uploads.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3BlobStore struct {
	client S3API
	bucket string
	region string
	folder string
}

func NewS3BlobStore(client S3API, bucket, region, folder string) BlobStore {
	return &s3BlobStore{client: client, bucket: bucket, region: region, folder: folder}
}

// CreateS3Client builds an S3 client from static credentials, or the default chain when none are set.
func CreateS3Client(ctx context.Context, c *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.AWSRegion)}
	if c.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AWSAccessKeyID,
			c.AWSSecretAccessKey,
			"",
		)))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *s3BlobStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s%s", s.folder, uuid.NewString(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "put %s", key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func extensionFor(contentType string) string {
	if m := mimetype.Lookup(contentType); m != nil {
		return m.Extension()
	}
	return ""
}

type inlineBlobStore struct{}

// NewInlineBlobStore returns a BlobStore that embeds the photo in a data URL.
// Used with the local backend, which has no object storage.
func NewInlineBlobStore() BlobStore {
	return inlineBlobStore{}
}

func (inlineBlobStore) Upload(_ context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty photo")
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
