package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// DocumentService defines the document analysis operation
type DocumentService interface {
	Analyze(ctx context.Context, upload services.DocumentUpload, locale entities.Locale) (*services.DocumentResult, error)
}

// DocumentHandler handles medical document uploads
type DocumentHandler struct {
	service  DocumentService
	maxBytes int64
}

// NewDocumentHandler creates a new document handler accepting uploads up to maxBytes
func NewDocumentHandler(service DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{service: service, maxBytes: maxBytes}
}

// AnalyzeDocument handles POST /api/documents/analyze
func (h *DocumentHandler) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	// multipart framing on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB")
			return
		}
		respondWithError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("document")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	result, err := h.service.Analyze(r.Context(), services.DocumentUpload{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Body:         file,
	}, entities.ParseLocale(r.FormValue("language")))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": result.Analysis,
		"file":     result.File,
	})
}
