package client

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage stores objects through the S3 protocol. It is used against the
// Supabase Storage S3 endpoint, but any S3-compatible store (R2, MinIO) works.
type S3Storage struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewS3Storage creates a new S3-compatible object store.
func NewS3Storage(ctx context.Context, accessKeyID, secretKey, endpoint, region, bucketName, publicURL string) (*S3Storage, error) {
	if region == "" {
		region = "auto"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		// Supabase Storage requires path-style addressing.
		o.UsePathStyle = true
	})

	return &S3Storage{
		s3Client:  s3Client,
		bucket:    bucketName,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Upload uploads an object and returns the public URL.
func (c *S3Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}

	return c.PublicURL(key), nil
}

// Delete removes an object.
func (c *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

// PublicURL returns the public URL for key.
func (c *S3Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", c.publicURL, key)
}
