package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/blog-api/backend/internal/models"
	"github.com/ayush/blog-api/backend/internal/store"
)

// multipart framing allowance on top of the image size limit
const multipartSlack = 1 << 20

// UploadImage accepts a multipart "file" field and returns the stored image URL.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes()+multipartSlack)

	file, header, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeDetail(w, http.StatusBadRequest, "File size exceeds the limit")
		return
	case errors.Is(err, http.ErrMissingFile):
		writeDetail(w, http.StatusBadRequest, "No file provided")
		return
	case err != nil:
		writeDetail(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer file.Close()

	url, err := h.uploads.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ImageUpload{URL: url})
}

// ServeImage streams a stored image.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.images.Open(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	io.Copy(w, rc)
}
