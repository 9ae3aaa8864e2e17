package remote

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	Region   string
	// use http instead of https, for local minio servers
	Insecure     bool
	RequestTrace io.Writer
}

func (c *S3Config) Validate() error {
	if c == nil {
		return errNoConfig
	}
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Access == "" {
		missing = append(missing, "access")
	}
	if c.Secret == "" {
		missing = append(missing, "secret")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return fmt.Errorf("remote: s3 config is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

type S3 struct {
	Client *minio.Client
	Bucket string
}

// NewS3 connects to the endpoint and checks that the bucket exists
func NewS3(ctx context.Context, config *S3Config) (*S3, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("remote: bucket '%s' doesn't exist", c.Bucket)
	}
	return &S3{
		Client: mc,
		Bucket: c.Bucket,
	}, nil
}

func (s *S3) Upload(ctx context.Context, remotePath string, localPath string) error {
	opts := minio.PutObjectOptions{
		ContentType: contentTypeForPath(remotePath),
	}
	_, err := s.Client.FPutObject(ctx, s.Bucket, objectName(remotePath), localPath, opts)
	return err
}

// Download writes remotePath to localPath. The file only appears
// at localPath after the download completes.
func (s *S3) Download(ctx context.Context, localPath string, remotePath string) error {
	// ensure there's a dir for destination file
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	err := s.Client.FGetObject(ctx, s.Bucket, objectName(remotePath), localPath, minio.GetObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("'%s': %w", remotePath, os.ErrNotExist)
		}
		return err
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, remotePath string) bool {
	_, err := s.Client.StatObject(ctx, s.Bucket, objectName(remotePath), minio.StatObjectOptions{})
	return err == nil
}

// Close is a no-op, minio client has no persistent connection to release
func (s *S3) Close() error {
	return nil
}

func objectName(remotePath string) string {
	return strings.TrimPrefix(filepath.ToSlash(remotePath), "/")
}

// compressed dumps are stored as opaque blobs
func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return "application/gzip"
	case ".zst":
		return "application/zstd"
	case ".br", ".bin":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
