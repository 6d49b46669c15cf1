package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"slices"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/storage"
)

const (
	uploadField   = "file"
	sniffLen      = 512
	multipartSlop = 1 << 20
)

type uploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Upload stores one image sent as multipart form field "file". The type is
// taken from the content itself, not from the client's header.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, found := callerFrom(w, r); !found {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartSlop)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.Validation("File exceeds the %d byte limit", h.opts.MaxUploadBytes))
			return
		}
		writeError(w, r, apperr.Validation("Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, r, apperr.ValidationFields(map[string]string{uploadField: "is required"}))
		return
	}
	defer file.Close()

	if header.Size > h.opts.MaxUploadBytes {
		writeError(w, r, apperr.Validation("File exceeds the %d byte limit", h.opts.MaxUploadBytes))
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, r, apperr.Internal("read upload", err))
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !h.typeAllowed(contentType) {
		writeError(w, r, apperr.Validation("Unsupported file type %q", contentType))
		return
	}

	key, err := storage.NewKey(contentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.blobs.Save(r.Context(), key, io.MultiReader(bytes.NewReader(head), file)); err != nil {
		writeError(w, r, err)
		return
	}

	logger.InfoContext(r.Context(), "File uploaded", "key", key, "content_type", contentType, "size", header.Size)
	created(w, "File uploaded", uploadResult{
		Key:         key,
		URL:         h.blobs.URL(key),
		ContentType: contentType,
		Size:        header.Size,
	})
}

func (h *Handler) typeAllowed(contentType string) bool {
	if len(h.opts.AllowedTypes) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedTypes, contentType)
}

// ServeFile streams a stored upload.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := pathVar(r, "key")
	if !storage.ValidKey(key) {
		writeError(w, r, apperr.NotFound("File"))
		return
	}

	file, err := h.blobs.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", storage.ContentType(key))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, file); err != nil {
		logger.WarnContext(r.Context(), "Failed to stream file", "key", key, "error", err)
	}
}
