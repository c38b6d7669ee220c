package service

import (
	"fmt"
	"io"
	"regexp"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Aashish23092/invoice-extractor/dto"
)

const (
	SummarySheet   = "Invoice Summary"
	LineItemsSheet = "Line Items"

	moneyFormat   = `#,##0.00`
	percentFormat = `0.00"%"`

	headerFill  = "D9E1F2"
	altRowFill  = "E8F0FE"
	summaryTab  = "4472C4"
	lineItemTab = "70AD47"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type reportColumn struct {
	header string
	width  float64
	format string
	value  func(dto.LineItem) interface{}
}

func numeric(get func(dto.LineItem) decimal.Decimal) func(dto.LineItem) interface{} {
	return func(item dto.LineItem) interface{} { return get(item).InexactFloat64() }
}

func description(item dto.LineItem) interface{} { return item.Description }

var cgstSGSTColumns = []reportColumn{
	{"Description", 35, "", description},
	{"Gross", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.GrossValue })},
	{"Discount", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.Discount })},
	{"Net", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.NetValue })},
	{"CGST Rate", 12, percentFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.CGSTRate })},
	{"CGST Amount", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.CGSTAmount })},
	{"SGST Rate", 12, percentFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.SGSTRate })},
	{"SGST Amount", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.SGSTAmount })},
	{"Total", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.Total })},
}

var igstColumns = []reportColumn{
	{"Description", 40, "", description},
	{"Gross", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.GrossValue })},
	{"Discount", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.Discount })},
	{"Taxable Value", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.NetValue })},
	{"IGST Rate", 12, percentFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.IGSTRate })},
	{"IGST Amount", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.IGSTAmount })},
	{"CESS", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.CessAmount })},
	{"Total", 14, moneyFormat, numeric(func(i dto.LineItem) decimal.Decimal { return i.Total })},
}

// ReportWriter renders an invoice as a two-sheet workbook.
type ReportWriter interface {
	Write(record *dto.InvoiceRecord, w io.Writer) error
}

type excelReportWriter struct{}

func NewReportWriter() ReportWriter {
	return &excelReportWriter{}
}

// ReportFileName is the default output name for record.
func ReportFileName(record *dto.InvoiceRecord) string {
	name := unsafeFileChars.ReplaceAllString(record.InvoiceNumber, "_")
	if name == "" {
		name = "invoice"
	}
	return name + "_extracted.xlsx"
}

func (r *excelReportWriter) Write(record *dto.InvoiceRecord, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	styles := newStyleCache(f)

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return eris.Wrap(err, "failed to rename summary sheet")
	}
	if err := writeSummarySheet(f, styles, record); err != nil {
		return err
	}

	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		return eris.Wrap(err, "failed to create line items sheet")
	}
	columns := cgstSGSTColumns
	if record.TaxMode == dto.TaxModeIGST {
		columns = igstColumns
	}
	if err := writeLineItemsSheet(f, styles, record.LineItems, columns); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "failed to write workbook")
	}
	return nil
}

func writeSummarySheet(f *excelize.File, styles *styleCache, record *dto.InvoiceRecord) error {
	sheet := SummarySheet
	setTabColor(f, sheet, summaryTab)
	_ = f.SetColWidth(sheet, "A", "A", 25)
	_ = f.SetColWidth(sheet, "B", "B", 40)

	if err := f.SetCellValue(sheet, "A1", SummarySheet); err != nil {
		return eris.Wrap(err, "failed to write summary title")
	}
	_ = f.MergeCell(sheet, "A1", "B1")
	if id, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14, Color: summaryTab}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "A1", id)
	}

	type entry struct {
		label string
		value interface{}
	}
	entries := []entry{{"Invoice Number", record.InvoiceNumber}}
	if record.OrderID != "" {
		entries = append(entries, entry{"Order ID", record.OrderID})
	}
	entries = append(entries,
		entry{"Invoice Date", record.InvoiceDate.Format("02/01/2006")},
		entry{"Vendor Name", record.VendorName},
		entry{"Vendor GST", record.VendorGSTIN},
		entry{"Customer Name", record.CustomerName},
		entry{"State", record.State},
		entry{"Tax Mode", string(record.TaxMode)},
	)
	if record.HSNCode != "" {
		entries = append(entries, entry{"HSN Code", record.HSNCode})
	}
	entries = append(entries,
		entry{"Grand Total (Raw)", record.GrandTotalRaw.InexactFloat64()},
		entry{"Grand Total (Rounded)", record.GrandTotalRounded.InexactFloat64()},
	)

	for i, e := range entries {
		row := i + 3
		labelCell := fmt.Sprintf("A%d", row)
		valueCell := fmt.Sprintf("B%d", row)
		if err := f.SetCellValue(sheet, labelCell, e.label); err != nil {
			return eris.Wrapf(err, "failed to write %s", e.label)
		}
		if err := f.SetCellValue(sheet, valueCell, e.value); err != nil {
			return eris.Wrapf(err, "failed to write %s", e.label)
		}
		_ = f.SetCellStyle(sheet, labelCell, labelCell, styles.header())
		if _, isNumber := e.value.(float64); isNumber {
			_ = f.SetCellStyle(sheet, valueCell, valueCell, styles.cell(moneyFormat, false))
		} else {
			_ = f.SetCellStyle(sheet, valueCell, valueCell, styles.cell("", false))
		}
	}
	return nil
}

func writeLineItemsSheet(f *excelize.File, styles *styleCache, items []dto.LineItem, columns []reportColumn) error {
	sheet := LineItemsSheet
	setTabColor(f, sheet, lineItemTab)

	for c, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(sheet, cell, col.header); err != nil {
			return eris.Wrapf(err, "failed to write header %s", col.header)
		}
		_ = f.SetCellStyle(sheet, cell, cell, styles.header())
		name, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(sheet, name, name, col.width)
	}

	for r, item := range items {
		row := r + 2
		alt := row%2 == 0
		for c, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheet, cell, col.value(item)); err != nil {
				return eris.Wrapf(err, "failed to write line item %d", r+1)
			}
			_ = f.SetCellStyle(sheet, cell, cell, styles.cell(col.format, alt))
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(columns), len(items)+1)
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return eris.Wrap(err, "failed to set auto-filter")
	}
	return nil
}

func setTabColor(f *excelize.File, sheet, color string) {
	_ = f.SetSheetProps(sheet, &excelize.SheetPropsOptions{TabColorRGB: &color})
}

// styleCache creates each distinct cell style once per workbook.
type styleCache struct {
	f   *excelize.File
	ids map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: map[string]int{}}
}

func (s *styleCache) header() int {
	return s.get("header", func() *excelize.Style {
		return &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 11, Color: "000000"},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
			Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
		}
	})
}

func (s *styleCache) cell(format string, alt bool) int {
	key := fmt.Sprintf("cell|%s|%t", format, alt)
	return s.get(key, func() *excelize.Style {
		style := &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"}}
		if format != "" {
			fmtCopy := format
			style.CustomNumFmt = &fmtCopy
			style.Alignment.Horizontal = "right"
		}
		if alt {
			style.Fill = excelize.Fill{Type: "pattern", Color: []string{altRowFill}, Pattern: 1}
		}
		return style
	})
}

func (s *styleCache) get(key string, build func() *excelize.Style) int {
	if id, ok := s.ids[key]; ok {
		return id
	}
	id, err := s.f.NewStyle(build())
	if err != nil {
		return 0
	}
	s.ids[key] = id
	return id
}
