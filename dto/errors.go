package dto

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Every stage wraps one of these with eris.Wrapf so callers can branch on
// errors.Is while still getting the detailed message.
var (
	ErrDocumentUnavailable = eris.New("document unavailable")
	ErrUnsupportedDocument = eris.New("unsupported document")
	ErrTableExtraction     = eris.New("table extraction failed")
	ErrHeaderExtraction    = eris.New("header extraction failed")
	ErrMissingField        = eris.New("missing field")
	ErrGSTValidation       = eris.New("invalid GSTIN")
	ErrNoLineItems         = eris.New("no line items")
	ErrArithmeticMismatch  = eris.New("arithmetic mismatch")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrDocumentUnavailable, "DocumentUnavailableError"},
	{ErrUnsupportedDocument, "UnsupportedDocumentError"},
	{ErrTableExtraction, "TableExtractionError"},
	{ErrHeaderExtraction, "HeaderExtractionError"},
	{ErrMissingField, "MissingFieldError"},
	{ErrGSTValidation, "GSTValidationError"},
	{ErrNoLineItems, "NoLineItemsError"},
	{ErrArithmeticMismatch, "ArithmeticMismatchError"},
}

// ErrorKind names the taxonomy entry of err, or "UnexpectedError" when err
// does not wrap any of the sentinels above.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "UnexpectedError"
}

// IsExtractionFailure reports whether err is a document-level extraction or
// validation failure (as opposed to a bad request or an internal error).
func IsExtractionFailure(err error) bool {
	switch ErrorKind(err) {
	case "", "UnexpectedError", "DocumentUnavailableError", "UnsupportedDocumentError":
		return false
	}
	return true
}
