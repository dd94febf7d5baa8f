package handler

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
	"github.com/shams-connect/school-needs-api/pkg/response"
	"github.com/shams-connect/school-needs-api/pkg/storage"
)

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	PublicBaseURL    string
}

// UploadHandler stores school and need images in local object storage.
type UploadHandler struct {
	store  *storage.LocalStorage
	config UploadConfig
}

// NewUploadHandler creates a new handler.
func NewUploadHandler(store *storage.LocalStorage, config UploadConfig) *UploadHandler {
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 5 << 20
	}
	return &UploadHandler{store: store, config: config}
}

// Upload godoc
// @Summary Upload an image
// @Description Accepts an image for a school or need and returns its public URL
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	if header.Size > h.config.MaxFileSizeBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrUploadTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", h.config.MaxFileSizeBytes)))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !h.allowed(contentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedMedia,
			fmt.Sprintf("content type %q is not accepted", contentType)))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	name := path.Join("uploads", uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))
	if _, err := h.store.SaveStream(name, file); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}

	url := name
	if h.config.PublicBaseURL != "" {
		url = strings.TrimRight(h.config.PublicBaseURL, "/") + "/" + name
	}
	response.Created(c, gin.H{"path": name, "url": url})
}

func (h *UploadHandler) allowed(contentType string) bool {
	if len(h.config.AllowedMIMEs) == 0 {
		return true
	}
	for _, mime := range h.config.AllowedMIMEs {
		if strings.EqualFold(mime, contentType) {
			return true
		}
	}
	return false
}
