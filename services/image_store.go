package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageStore writes an uploaded image under key and returns its public URL.
// Keys use forward slashes: images/projects/<slug>/<file>.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// LocalImageStore writes below root on disk. The site serves root/images
// at /images, so the URL is publicBase + "/" + key.
type LocalImageStore struct {
	root       string
	publicBase string
}

func NewLocalImageStore(root, publicBase string) *LocalImageStore {
	return &LocalImageStore{root: root, publicBase: strings.TrimSuffix(publicBase, "/")}
}

func (s *LocalImageStore) Put(ctx context.Context, key, _ string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := path.Clean("/" + key)
	dest := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}

	return s.publicBase + clean, nil
}

// S3PutObjectAPI is the part of *s3.Client the S3 store uses.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3ImageStore struct {
	client     S3PutObjectAPI
	bucket     string
	publicBase string
}

// NewS3ImageStore builds URLs from publicBase (a CDN or bucket website
// origin) and falls back to the virtual-hosted bucket URL.
func NewS3ImageStore(client S3PutObjectAPI, bucket, publicBase string) *S3ImageStore {
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3ImageStore{client: client, bucket: bucket, publicBase: strings.TrimSuffix(publicBase, "/")}
}

func (s *S3ImageStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return s.publicBase + "/" + key, nil
}
