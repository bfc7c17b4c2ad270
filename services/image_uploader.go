package services

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nextlinkuae/site-backend/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	MaxImageSize     = 8 << 20
	uploadWriteLimit = 4
	defaultImageExt  = ".jpg"
)

var allowedImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".avif": true,
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadResult struct {
	URLs []string `json:"urls"`
	Slug string   `json:"slug"`
}

// ImageUploader validates project gallery uploads and stores them under
// images/projects/<slug>/. Returned URLs feed gallery[].url.
type ImageUploader struct {
	store   ImageStore
	maxSize int64
	logger  zerolog.Logger
}

func NewImageUploader(store ImageStore) *ImageUploader {
	return &ImageUploader{
		store:   store,
		maxSize: MaxImageSize,
		logger:  log.With().Str("service", "imageUploader").Logger(),
	}
}

// Upload rejects the whole batch when any file is not an image or is too
// large, then writes files concurrently. URLs keep the input order.
func (u *ImageUploader) Upload(ctx context.Context, projectSlug string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, errs.NewMissingRequiredFieldError("files")
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, errs.NewUnsupportedMediaTypeError(f.ContentType, []string{"image/*"})
		}
		if f.Size > u.maxSize {
			return nil, errs.NewMaxBodySizeExceededError(u.maxSize)
		}
	}

	slug := DeriveSlug(projectSlug)
	urls := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWriteLimit)
	for i, f := range files {
		g.Go(func() error {
			body, err := f.Open()
			if err != nil {
				return err
			}
			defer body.Close()

			key := path.Join("images", "projects", slug, uuid.NewString()+imageExt(f.Name))
			url, err := u.store.Put(gctx, key, f.ContentType, body)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.NewInternalErrorWithCause("failed to store uploaded images", err)
	}

	u.logger.Info().Str("slug", slug).Int("files", len(files)).Msg("project images uploaded")
	return &UploadResult{URLs: urls, Slug: slug}, nil
}

func imageExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if allowedImageExts[ext] {
		return ext
	}
	return defaultImageExt
}
