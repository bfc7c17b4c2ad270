package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/nextlinkuae/site-backend/errs"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxUploadFiles   = 20
	maxMultipartSize = maxUploadFiles*services.MaxImageSize + 1<<20
	multipartMemory  = 32 << 20
)

type uploadHandler struct {
	responder Responder
	logger    zerolog.Logger
	uploader  *services.ImageUploader
}

func newUploadHandler(uploader *services.ImageUploader) uploadHandler {
	logger := log.With().Str("handlerName", "uploadHandler").Logger()

	return uploadHandler{
		responder: NewResponder(logger),
		logger:    logger,
		uploader:  uploader,
	}
}

// uploadProjectImages stores gallery images for a project
// @Summary Upload project images
// @Description Accepts multipart "files" (images up to 8 MiB each) and an optional "projectSlug". Returns the public URLs in upload order.
// @Tags Uploads
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Success 201 {object} services.UploadResult
// @Failure 400 {object} ErrorResponse "Bad Request - No files"
// @Failure 413 {object} ErrorResponse "Request Entity Too Large"
// @Failure 415 {object} ErrorResponse "Unsupported Media Type"
// @Router /api/uploads/project-images [post]
func (h uploadHandler) uploadProjectImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartSize)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(maxErr.Limit))
				return
			}
			h.responder.WriteError(w, errs.NewUnsupportedMediaTypeError(r.Header.Get("Content-Type"), []string{"multipart/form-data"}))
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["files"]
		if len(headers) > maxUploadFiles {
			h.responder.WriteError(w, errs.NewInvalidFieldError("files", "too many files in one upload"))
			return
		}

		files := make([]services.UploadFile, 0, len(headers))
		for _, fh := range headers {
			files = append(files, uploadFileFromHeader(fh))
		}

		result, err := h.uploader.Upload(r.Context(), r.FormValue("projectSlug"), files)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		h.responder.WriteJSONStatus(w, http.StatusCreated, result)
	}
}

func uploadFileFromHeader(fh *multipart.FileHeader) services.UploadFile {
	return services.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
