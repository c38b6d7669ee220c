// Package textinvoice extracts invoices whose product table is not ruled:
// the page is read as plain text and line items are rebuilt line by line.
package textinvoice

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/utils"
)

var grandTotalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Grand\s*Total\s*(?:Rs\.?|INR|₹)?\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?im)TOTAL\s*PRICE:\s*([\d,]+\.?\d*)`),
}

var productMarkers = []string{"TOTAL PRICE", "Grand Total", "Total items"}

// Result is everything the text path pulls out of one invoice page.
type Result struct {
	Headers    dto.ExtractedHeaders
	Items      []dto.LineItem
	GrandTotal dto.GrandTotal
	Page       int
}

// FindInvoicePage returns the index of the product tax invoice page. Pages
// are scanned from the last one backwards since marketplace bundles put
// shipping labels first.
func FindInvoicePage(pages []string) (int, bool) {
	for i := len(pages) - 1; i >= 0; i-- {
		text := pages[i]
		if !strings.Contains(text, "Tax Invoice") {
			continue
		}
		if hasAny(text, productMarkers) || (strings.Contains(text, "Order") && strings.Contains(text, "OD")) {
			return i, true
		}
	}
	return -1, false
}

func hasAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// ExtractGrandTotal returns the first positive grand total found on the page.
func ExtractGrandTotal(text string) (dto.GrandTotal, error) {
	for _, re := range grandTotalPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if total := utils.ParseAmount(m[1]); total.IsPositive() {
			return dto.NewGrandTotal(total), nil
		}
	}
	return dto.GrandTotal{}, eris.Wrap(dto.ErrTableExtraction, "could not extract grand total from invoice text")
}

// Parse locates the invoice page among pages and extracts headers, line
// items and the grand total from it.
func Parse(pages []string, dateLayout string) (*Result, error) {
	idx, ok := FindInvoicePage(pages)
	if !ok {
		return nil, eris.Wrap(dto.ErrTableExtraction, "could not find product invoice page in the document")
	}
	text := pages[idx]
	zap.L().Info("found product invoice page", zap.Int("page", idx+1), zap.Int("chars", len(text)))

	headers, err := ExtractHeaders(text, dateLayout)
	if err != nil {
		return nil, err
	}

	items, hsn, err := ScanLineItems(text)
	if err != nil {
		return nil, err
	}
	if hsn != "" {
		headers.SetText(dto.FieldHSNCode, hsn)
	}

	total, err := ExtractGrandTotal(text)
	if err != nil {
		return nil, err
	}

	zap.L().Info("text invoice parsed",
		zap.Int("line_items", len(items)),
		zap.String("grand_total", total.Raw.String()),
	)
	return &Result{Headers: headers, Items: items, GrandTotal: total, Page: idx}, nil
}
