package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaxMode selects which tax components a vendor's invoices carry.
type TaxMode string

const (
	TaxModeCGSTSGST TaxMode = "CGST_SGST"
	TaxModeIGST     TaxMode = "IGST"
)

// ParseTaxMode accepts "cgst_sgst" / "igst" in any case.
func ParseTaxMode(s string) (TaxMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(TaxModeCGSTSGST), "CGST+SGST":
		return TaxModeCGSTSGST, nil
	case string(TaxModeIGST), "IGST+CESS":
		return TaxModeIGST, nil
	}
	return "", fmt.Errorf("unknown tax mode %q", s)
}

// ExtractionMode selects the layout parser used for a vendor template.
type ExtractionMode string

const (
	ExtractionModeLattice ExtractionMode = "lattice"
	ExtractionModeText    ExtractionMode = "text"
)

// DefaultTaxMode is the tax mode historically tied to each layout.
func (m ExtractionMode) DefaultTaxMode() TaxMode {
	if m == ExtractionModeText {
		return TaxModeIGST
	}
	return TaxModeCGSTSGST
}

// UnregisteredGSTIN is the sentinel used by vendors without a registration.
const UnregisteredGSTIN = "UNREGISTERED"

// Canonical header field names.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldVendorName    = "vendor_name"
	FieldVendorGST     = "vendor_gst"
	FieldCustomerName  = "customer_name"
	FieldState         = "state"
	FieldOrderID       = "order_id"
	FieldHSNCode       = "hsn_code"
)

// LineItem is one product row. Rates are percentage numbers (5.00 means 5%).
type LineItem struct {
	Description string          `json:"description"`
	GrossValue  decimal.Decimal `json:"gross_value"`
	Discount    decimal.Decimal `json:"discount"`
	NetValue    decimal.Decimal `json:"net_value"`
	CGSTRate    decimal.Decimal `json:"cgst_rate"`
	CGSTAmount  decimal.Decimal `json:"cgst_amount"`
	SGSTRate    decimal.Decimal `json:"sgst_rate"`
	SGSTAmount  decimal.Decimal `json:"sgst_amount"`
	IGSTRate    decimal.Decimal `json:"igst_rate"`
	IGSTAmount  decimal.Decimal `json:"igst_amount"`
	CessAmount  decimal.Decimal `json:"cess_amount"`
	Total       decimal.Decimal `json:"total"`
}

// TaxAmount sums the tax components that apply under mode.
func (l LineItem) TaxAmount(mode TaxMode) decimal.Decimal {
	if mode == TaxModeIGST {
		return l.IGSTAmount.Add(l.CessAmount)
	}
	return l.CGSTAmount.Add(l.SGSTAmount)
}

// InvoiceRecord is the canonical, assembled invoice.
type InvoiceRecord struct {
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	VendorName        string          `json:"vendor_name"`
	VendorGSTIN       string          `json:"vendor_gst"`
	CustomerName      string          `json:"customer_name"`
	State             string          `json:"state"`
	LineItems         []LineItem      `json:"line_items"`
	GrandTotalRaw     decimal.Decimal `json:"grand_total_raw"`
	GrandTotalRounded decimal.Decimal `json:"grand_total_rounded"`
	TaxMode           TaxMode         `json:"tax_mode"`
	OrderID           string          `json:"order_id,omitempty"`
	HSNCode           string          `json:"hsn_code,omitempty"`
}

// LineItemsTotal is the sum of every line item's total.
func (r *InvoiceRecord) LineItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.LineItems {
		sum = sum.Add(item.Total)
	}
	return sum
}

// GrandTotal pairs the extracted total with its 2-place rounding.
type GrandTotal struct {
	Raw     decimal.Decimal
	Rounded decimal.Decimal
}

// NewGrandTotal rounds raw half-up (away from zero) to 2 places.
func NewGrandTotal(raw decimal.Decimal) GrandTotal {
	return GrandTotal{Raw: raw, Rounded: raw.Round(2)}
}
