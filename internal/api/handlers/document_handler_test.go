package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/api/handlers"
	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

type stubDocumentService struct {
	gotName   string
	gotBody   string
	gotLocale entities.Locale
	err       error
}

func (s *stubDocumentService) Analyze(_ context.Context, upload services.DocumentUpload, locale entities.Locale) (*services.DocumentResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, _ := io.ReadAll(upload.Body)
	s.gotName, s.gotBody, s.gotLocale = upload.OriginalName, string(body), locale
	return &services.DocumentResult{
		Analysis: &entities.DocumentAnalysis{Summary: "Blood report", AIPowered: false},
		File:     entities.UploadedFile{OriginalName: upload.OriginalName, Size: int64(len(body)), Path: "/uploads/x.txt"},
	}, nil
}

func multipartRequest(t *testing.T, field, filename, content, language string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if language != "" {
		require.NoError(t, writer.WriteField("language", language))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDocumentHandler_AnalyzeDocument(t *testing.T) {
	service := &stubDocumentService{}
	handler := handlers.NewDocumentHandler(service, 10<<20)

	req := multipartRequest(t, "document", "cbc.txt", "Hb 9.1 g/dL", "hi-IN")
	w := httptest.NewRecorder()

	handler.AnalyzeDocument(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cbc.txt", service.gotName)
	assert.Equal(t, "Hb 9.1 g/dL", service.gotBody)
	assert.Equal(t, entities.LocaleHindi, service.gotLocale)

	response := decodeBody(t, w)
	assert.Equal(t, "Blood report", response["analysis"].(map[string]interface{})["summary"])
	assert.Equal(t, "cbc.txt", response["file"].(map[string]interface{})["originalName"])
}

func TestDocumentHandler_MissingFile(t *testing.T) {
	handler := handlers.NewDocumentHandler(&stubDocumentService{}, 10<<20)

	req := multipartRequest(t, "", "", "", "en-US")
	w := httptest.NewRecorder()

	handler.AnalyzeDocument(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decodeBody(t, w)["error"])
}

func TestDocumentHandler_TooLarge(t *testing.T) {
	handler := handlers.NewDocumentHandler(&stubDocumentService{}, 16)

	req := multipartRequest(t, "document", "big.txt", string(bytes.Repeat([]byte("x"), 2<<20)), "")
	w := httptest.NewRecorder()

	handler.AnalyzeDocument(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDocumentHandler_RejectedType(t *testing.T) {
	service := &stubDocumentService{err: apperrors.NewValidationError("File type not allowed. Accepted: PDF, JPG, PNG, WEBP, DOC, DOCX, TXT")}
	handler := handlers.NewDocumentHandler(service, 10<<20)

	req := multipartRequest(t, "document", "run.exe", "MZ", "")
	w := httptest.NewRecorder()

	handler.AnalyzeDocument(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "File type not allowed")
}
