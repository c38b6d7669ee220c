package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Source  string `json:"source,omitempty"`
}

// ExtractResponse is the result of one successful extraction
type ExtractResponse struct {
	RequestID   string         `json:"request_id"`
	Source      string         `json:"source"`
	Template    string         `json:"template"`
	Invoice     *InvoiceRecord `json:"invoice"`
	Notes       []string       `json:"notes,omitempty"`
	ProcessedAt string         `json:"processed_at"`
}

// BatchResult holds the outcome for one document of a batch. Exactly one of
// Invoice or Error is set.
type BatchResult struct {
	Source  string         `json:"source"`
	Invoice *InvoiceRecord `json:"invoice,omitempty"`
	Notes   []string       `json:"notes,omitempty"`
	Kind    string         `json:"kind,omitempty"`
	Error   string         `json:"error,omitempty"`
	Err     error          `json:"-"`
}

// TemplateInfo describes a loaded vendor template
type TemplateInfo struct {
	Name           string         `json:"name"`
	ExtractionMode ExtractionMode `json:"extraction_mode"`
	TaxMode        TaxMode        `json:"tax_mode"`
}
