package service

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
)

// DefaultTolerance is the largest difference, in currency units, accepted
// between the two sides of an arithmetic identity.
var DefaultTolerance = decimal.New(2, -2)

type ValidatorConfig struct {
	Tolerance decimal.Decimal
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{Tolerance: DefaultTolerance}
}

// Validator checks an assembled record. It never modifies the record.
type Validator struct {
	tolerance decimal.Decimal
}

func NewValidator(cfg ValidatorConfig) *Validator {
	tol := cfg.Tolerance
	if tol.IsNegative() {
		tol = DefaultTolerance
	}
	return &Validator{tolerance: tol}
}

// Tolerance returns the configured tolerance.
func (v *Validator) Tolerance() decimal.Decimal { return v.tolerance }

// Validate runs the checks in order and returns the first violation:
// required headers, line item presence, per-item identities, then the
// invoice total.
func (v *Validator) Validate(record *dto.InvoiceRecord) error {
	if err := v.checkRequiredFields(record); err != nil {
		return err
	}
	if len(record.LineItems) == 0 {
		return eris.Wrap(dto.ErrNoLineItems, "invoice has no line items")
	}
	for i, item := range record.LineItems {
		if err := v.checkLineItem(i, item, record.TaxMode); err != nil {
			return err
		}
	}
	if err := v.checkGrandTotal(record); err != nil {
		return err
	}

	zap.L().Info("invoice validated",
		zap.String("invoice_number", record.InvoiceNumber),
		zap.Int("line_items", len(record.LineItems)),
	)
	return nil
}

func (v *Validator) checkRequiredFields(record *dto.InvoiceRecord) error {
	required := []struct {
		name  string
		blank bool
	}{
		{dto.FieldInvoiceNumber, strings.TrimSpace(record.InvoiceNumber) == ""},
		{dto.FieldInvoiceDate, record.InvoiceDate.IsZero()},
		{dto.FieldVendorName, strings.TrimSpace(record.VendorName) == ""},
		{dto.FieldVendorGST, strings.TrimSpace(record.VendorGSTIN) == ""},
		{dto.FieldCustomerName, strings.TrimSpace(record.CustomerName) == ""},
		{dto.FieldState, strings.TrimSpace(record.State) == ""},
	}
	for _, f := range required {
		if f.blank {
			return eris.Wrapf(dto.ErrMissingField, "required field '%s' is missing or empty", f.name)
		}
	}
	return nil
}

func (v *Validator) checkLineItem(idx int, item dto.LineItem, mode dto.TaxMode) error {
	expectedNet := item.GrossValue.Sub(item.Discount)

	if mode == dto.TaxModeIGST {
		if diff := expectedNet.Sub(item.Total).Abs(); diff.GreaterThan(v.tolerance) {
			return mismatch(idx, item, "gross - discount", expectedNet, "total", item.Total, diff)
		}
	} else {
		if diff := item.NetValue.Sub(expectedNet).Abs(); diff.GreaterThan(v.tolerance) {
			return mismatch(idx, item, "net value", item.NetValue, "gross - discount", expectedNet, diff)
		}
	}

	expectedTotal := item.NetValue.Add(item.TaxAmount(mode))
	if diff := item.Total.Sub(expectedTotal).Abs(); diff.GreaterThan(v.tolerance) {
		return mismatch(idx, item, "total", item.Total, "net + tax", expectedTotal, diff)
	}
	return nil
}

func (v *Validator) checkGrandTotal(record *dto.InvoiceRecord) error {
	sum := record.LineItemsTotal()
	if diff := sum.Sub(record.GrandTotalRaw).Abs(); diff.GreaterThan(v.tolerance) {
		return eris.Wrapf(dto.ErrArithmeticMismatch,
			"sum of line item totals (%s) != grand total (%s). Difference: %s",
			sum.StringFixed(2), record.GrandTotalRaw.StringFixed(2), diff.String())
	}
	return nil
}

func mismatch(idx int, item dto.LineItem, leftName string, left decimal.Decimal, rightName string, right, diff decimal.Decimal) error {
	return eris.Wrapf(dto.ErrArithmeticMismatch,
		"line item %d '%s': %s (%s) != %s (%s). Difference: %s",
		idx+1, item.Description, leftName, left.StringFixed(2), rightName, right.StringFixed(2), diff.String())
}
