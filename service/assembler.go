package service

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/utils"
)

var gstinRegex = regexp.MustCompile(`^[0-9A-Z]{15}$`)

// NormalizeGSTIN upper-cases and trims a GSTIN, then checks it is either
// 15 alphanumerics or the UNREGISTERED sentinel.
func NormalizeGSTIN(raw string) (string, error) {
	gstin := strings.ToUpper(strings.TrimSpace(raw))
	if gstin == dto.UnregisteredGSTIN || gstinRegex.MatchString(gstin) {
		return gstin, nil
	}
	return "", eris.Wrapf(dto.ErrGSTValidation,
		"GSTIN must be 15 alphanumeric characters or %s, got '%s'", dto.UnregisteredGSTIN, raw)
}

// Assemble builds the canonical record. The tax mode is chosen by the caller
// from the vendor template, never inferred from the layout.
func Assemble(headers dto.ExtractedHeaders, items []dto.LineItem, total dto.GrandTotal, mode dto.TaxMode) (*dto.InvoiceRecord, error) {
	if len(items) == 0 {
		return nil, eris.Wrap(dto.ErrNoLineItems, "no line items extracted from invoice")
	}

	gstin, err := NormalizeGSTIN(headers.Text(dto.FieldVendorGST))
	if err != nil {
		return nil, err
	}

	date, _ := headers.Date(dto.FieldInvoiceDate)

	return &dto.InvoiceRecord{
		InvoiceNumber:     headers.Text(dto.FieldInvoiceNumber),
		InvoiceDate:       date,
		VendorName:        headers.Text(dto.FieldVendorName),
		VendorGSTIN:       gstin,
		CustomerName:      headers.Text(dto.FieldCustomerName),
		State:             utils.CleanState(headers.Text(dto.FieldState)),
		LineItems:         items,
		GrandTotalRaw:     total.Raw,
		GrandTotalRounded: total.Rounded,
		TaxMode:           mode,
		OrderID:           headers.Text(dto.FieldOrderID),
		HSNCode:           headers.Text(dto.FieldHSNCode),
	}, nil
}
