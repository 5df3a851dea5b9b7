package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStorage stores generated media and returns a public URL for it.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// GCSStorage stores objects in a Google Cloud Storage bucket.
type GCSStorage struct {
	client     *storage.Client
	bucketName string
	publicURL  string
}

// NewGCSStorage creates a GCS-backed object store. credentialsFile may be
// empty to use application default credentials.
func NewGCSStorage(ctx context.Context, bucketName, credentialsFile, publicURL string) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + bucketName
	}

	return &GCSStorage{
		client:     client,
		bucketName: bucketName,
		publicURL:  strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Close closes the client.
func (c *GCSStorage) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Upload writes data to the bucket and returns its public URL.
func (c *GCSStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := c.client.Bucket(c.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize gcs upload: %w", err)
	}

	return c.PublicURL(key), nil
}

// Download reads an object.
func (c *GCSStorage) Download(ctx context.Context, key string) ([]byte, error) {
	r, err := c.client.Bucket(c.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Delete removes an object. Deleting a missing object is not an error.
func (c *GCSStorage) Delete(ctx context.Context, key string) error {
	err := c.client.Bucket(c.bucketName).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// PublicURL returns the public URL for key.
func (c *GCSStorage) PublicURL(key string) string {
	return c.publicURL + "/" + key
}
