package services

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

const documentExcerptBytes = 2000

var allowedDocumentExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".doc": true, ".docx": true, ".txt": true,
}

// DocumentUpload is an incoming file
type DocumentUpload struct {
	OriginalName string
	ContentType  string
	Body         io.Reader
}

// DocumentResult is the stored file and its analysis
type DocumentResult struct {
	Analysis *entities.DocumentAnalysis `json:"analysis"`
	File     entities.UploadedFile      `json:"file"`
}

// DocumentService stores uploaded medical documents and has them analysed
type DocumentService struct {
	dir      string
	maxBytes int64
	triage   *TriageService
}

// NewDocumentService creates a document service storing files under dir
func NewDocumentService(dir string, maxBytes int64, triage *TriageService) *DocumentService {
	return &DocumentService{dir: dir, maxBytes: maxBytes, triage: triage}
}

// Dir returns the upload directory
func (s *DocumentService) Dir() string {
	return s.dir
}

// Analyze validates, stores and analyses an upload
func (s *DocumentService) Analyze(ctx context.Context, upload DocumentUpload, locale entities.Locale) (*DocumentResult, error) {
	ext := strings.ToLower(filepath.Ext(upload.OriginalName))
	if !allowedDocumentExtensions[ext] {
		return nil, apperrors.NewValidationError("File type not allowed. Accepted: PDF, JPG, PNG, WEBP, DOC, DOCX, TXT")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperrors.NewInternalError("failed to create upload directory", err)
	}

	name := fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Int64N(1_000_000_000), ext)
	path := filepath.Join(s.dir, name)

	size, err := s.store(path, upload.Body)
	if err != nil {
		return nil, err
	}

	file := entities.UploadedFile{
		OriginalName: upload.OriginalName,
		Size:         size,
		Type:         upload.ContentType,
		Path:         path,
	}

	excerpt := ""
	if ext == ".txt" {
		excerpt = readExcerpt(path)
	}

	analysis := s.triage.AnalyzeDocument(ctx, providers.DocumentInput{
		File:    file,
		Excerpt: excerpt,
		Locale:  locale,
	})

	return &DocumentResult{Analysis: analysis, File: file}, nil
}

func (s *DocumentService) store(path string, body io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to store document", err)
	}

	size, err := io.Copy(out, io.LimitReader(body, s.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, apperrors.NewInternalError("failed to store document", err)
	}
	if size > s.maxBytes {
		os.Remove(path)
		return 0, apperrors.NewValidationError(fmt.Sprintf("File too large. Maximum size is %dMB", s.maxBytes/(1024*1024)))
	}
	return size, nil
}

func readExcerpt(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "[File content could not be read]"
	}
	defer f.Close()

	buf := make([]byte, documentExcerptBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "[File content could not be read]"
	}
	buf = buf[:n]
	// drop a rune split by the byte limit
	for len(buf) > 0 && !utf8.Valid(buf) {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}
