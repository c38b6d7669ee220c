package utils

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
)

// Default canonical column names used by the ruled-table path.
const (
	DefaultDescriptionColumn = "description"
	DefaultTotalColumn       = "total"
)

// RowRules builds the ordered classification chain. Total (exclude)
// keywords are checked before summary keywords so "Total Value" can never be
// labelled a summary row; anything unmatched is a line item.
func RowRules(summaryKeywords, excludeKeywords []string) Chain[string, dto.RowKind] {
	return Chain[string, dto.RowKind]{
		{Name: "total", Try: keywordRule(excludeKeywords, dto.RowKindTotal)},
		{Name: "summary", Try: keywordRule(summaryKeywords, dto.RowKindSummary)},
		{Name: "line_item", Try: func(string) (dto.RowKind, bool) { return dto.RowKindLineItem, true }},
	}
}

func keywordRule(keywords []string, kind dto.RowKind) func(string) (dto.RowKind, bool) {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return func(desc string) (dto.RowKind, bool) {
		for _, kw := range lowered {
			if strings.Contains(desc, kw) {
				return kind, true
			}
		}
		return "", false
	}
}

// ClassifyRows labels every row of table in source order. No row is dropped.
func ClassifyRows(table dto.Table, summaryKeywords, excludeKeywords []string, descriptionColumn string) []dto.ClassifiedRow {
	if descriptionColumn == "" {
		descriptionColumn = DefaultDescriptionColumn
	}
	rules := RowRules(summaryKeywords, excludeKeywords)

	classified := make([]dto.ClassifiedRow, 0, len(table.Rows))
	counts := map[dto.RowKind]int{}
	for idx, row := range table.Rows {
		desc := strings.ToLower(strings.TrimSpace(row.Cell(descriptionColumn)))
		kind, _, _ := rules.First(desc)
		counts[kind]++
		classified = append(classified, dto.ClassifiedRow{Index: idx, Kind: kind, Row: row})
		zap.L().Debug("classified row", zap.Int("row", idx), zap.String("description", desc), zap.String("kind", string(kind)))
	}

	zap.L().Info("row classification done",
		zap.Int("line_items", counts[dto.RowKindLineItem]),
		zap.Int("summaries", counts[dto.RowKindSummary]),
		zap.Int("totals", counts[dto.RowKindTotal]),
	)
	return classified
}

// DetectGrandTotal returns the total column of the first TOTAL row, raw and
// rounded to 2 places.
func DetectGrandTotal(rows []dto.ClassifiedRow, totalColumn string) (dto.GrandTotal, error) {
	if totalColumn == "" {
		totalColumn = DefaultTotalColumn
	}
	for _, r := range rows {
		if r.Kind != dto.RowKindTotal {
			continue
		}
		total := dto.NewGrandTotal(ParseAmount(r.Row.Cell(totalColumn)))
		zap.L().Info("grand total detected",
			zap.Int("row", r.Index),
			zap.String("raw", total.Raw.String()),
			zap.String("rounded", total.Rounded.StringFixed(2)),
		)
		return total, nil
	}
	return dto.GrandTotal{}, eris.Wrap(dto.ErrMissingField, "no total row found in the table")
}

// LineItemRows keeps only the LINE_ITEM rows, in order.
func LineItemRows(rows []dto.ClassifiedRow) []dto.ClassifiedRow {
	out := make([]dto.ClassifiedRow, 0, len(rows))
	for _, r := range rows {
		if r.Kind == dto.RowKindLineItem {
			out = append(out, r)
		}
	}
	return out
}

// BuildLineItem reads a ruled-table row whose cells are keyed by canonical
// field names (gross_value, cgst_rate, ...). The description and total cells
// come from the template's configured columns; empty names mean the defaults.
func BuildLineItem(row dto.TableRow, descriptionColumn, totalColumn string) dto.LineItem {
	if descriptionColumn == "" {
		descriptionColumn = DefaultDescriptionColumn
	}
	if totalColumn == "" {
		totalColumn = DefaultTotalColumn
	}
	return dto.LineItem{
		Description: NormalizeWhitespace(row.Cell(descriptionColumn)),
		GrossValue:  ParseAmount(row.Cell("gross_value")),
		Discount:    ParseAmount(row.Cell("discount")),
		NetValue:    ParseAmount(row.Cell("net_value")),
		CGSTRate:    ParsePercentage(row.Cell("cgst_rate")),
		CGSTAmount:  ParseAmount(row.Cell("cgst_amount")),
		SGSTRate:    ParsePercentage(row.Cell("sgst_rate")),
		SGSTAmount:  ParseAmount(row.Cell("sgst_amount")),
		IGSTRate:    ParsePercentage(row.Cell("igst_rate")),
		IGSTAmount:  ParseAmount(row.Cell("igst_amount")),
		CessAmount:  ParseAmount(row.Cell("cess_amount")),
		Total:       ParseAmount(row.Cell(totalColumn)),
	}
}
