package dto

import (
	"errors"
	"mime/multipart"
	"strings"
)

var (
	ErrFileRequired     = errors.New("file is required")
	ErrTemplateRequired = errors.New("template is required")
	ErrNotPDF           = errors.New("invalid file type. Supported: PDF")
)

// ExtractRequest represents the multipart extraction request
type ExtractRequest struct {
	File     *multipart.FileHeader `form:"file" binding:"required"`
	Template string                `form:"template" binding:"required"`
	Password string                `form:"password"`
	// Table is an optional JSON array of rows (header row first) for
	// lattice templates when no table extractor is configured.
	Table string `form:"table"`
}

// Validate performs basic validation on the request
func (r *ExtractRequest) Validate() error {
	if r.File == nil {
		return ErrFileRequired
	}
	if strings.TrimSpace(r.Template) == "" {
		return ErrTemplateRequired
	}
	if !strings.HasSuffix(strings.ToLower(r.File.Filename), ".pdf") {
		return ErrNotPDF
	}
	return nil
}
