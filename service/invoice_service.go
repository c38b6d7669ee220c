package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aashish23092/invoice-extractor/client"
	"github.com/Aashish23092/invoice-extractor/config"
	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/utils"
	"github.com/Aashish23092/invoice-extractor/utils/textinvoice"
)

// ExtractSource is one document to extract.
type ExtractSource struct {
	// Name identifies the document in logs and results (file name or path).
	Name     string
	Data     []byte
	Template string
	Password string
	// Path is an on-disk copy of Data for the table extractor. When empty a
	// temporary file is written.
	Path string
	// Table holds pre-extracted rows (header first); it bypasses the table
	// extractor.
	Table [][]string
}

// SourceFromFile reads path into an ExtractSource.
func SourceFromFile(path, template, password string) (ExtractSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExtractSource{}, eris.Wrapf(dto.ErrDocumentUnavailable, "cannot read %s: %v", path, err)
	}
	return ExtractSource{Name: path, Data: data, Template: template, Password: password, Path: path}, nil
}

// ExtractResult is a validated invoice plus cross-check notes.
type ExtractResult struct {
	Record   *dto.InvoiceRecord
	Template *config.Template
	Notes    []string
}

type InvoiceService struct {
	pdfProcessor PDFProcessor
	tableClient  client.TableClient
	templates    *config.TemplateStore
	qrDecoder    QRDecoder
	tolerance    decimal.Decimal
}

// NewInvoiceService wires the pipelines. tableClient and qrDecoder may be nil:
// lattice documents then need pre-extracted rows and QR cross-checks are
// skipped.
func NewInvoiceService(
	pdfProcessor PDFProcessor,
	tableClient client.TableClient,
	templates *config.TemplateStore,
	qrDecoder QRDecoder,
	validatorConfig ValidatorConfig,
) *InvoiceService {
	return &InvoiceService{
		pdfProcessor: pdfProcessor,
		tableClient:  tableClient,
		templates:    templates,
		qrDecoder:    qrDecoder,
		tolerance:    NewValidator(validatorConfig).Tolerance(),
	}
}

// Templates lists the available vendor templates.
func (s *InvoiceService) Templates() []dto.TemplateInfo {
	return s.templates.List()
}

func (s *InvoiceService) validatorFor(tpl *config.Template) *Validator {
	return NewValidator(ValidatorConfig{Tolerance: tpl.Tolerance(s.tolerance)})
}

// ExtractLattice runs the ruled-table pipeline: headers from page 1, then the
// table from tables, row classification, grand total, line items, assembly
// and validation.
func (s *InvoiceService) ExtractLattice(ctx context.Context, doc *dto.Document, tables client.TableClient, pdfPath string, tpl *config.Template) (*dto.InvoiceRecord, error) {
	return s.extractLattice(ctx, doc, tables, pdfPath, tpl, nil)
}

func (s *InvoiceService) extractLattice(ctx context.Context, doc *dto.Document, tables client.TableClient, pdfPath string, tpl *config.Template, qr *dto.EInvoiceQR) (*dto.InvoiceRecord, error) {
	log := zap.L().With(zap.String("source", doc.Source), zap.String("template", tpl.Name))

	headers, err := utils.ExtractHeaders(doc.FirstPage(), tpl.HeaderExtraction.Fields)
	if err != nil {
		return nil, err
	}
	log.Info("header fields extracted", zap.Int("fields", len(headers)))

	if tables == nil {
		return nil, eris.Wrap(dto.ErrTableExtraction, "no table extractor configured and no table supplied")
	}
	rows, err := tables.ExtractTable(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	table, err := utils.MapTableColumns(rows, tpl.TableExtraction.ColumnMapping)
	if err != nil {
		return nil, err
	}
	log.Info("table extracted", zap.Int("rows", len(table.Rows)), zap.Strings("columns", table.Columns))

	classified := utils.ClassifyRows(table,
		tpl.RowClassification.SummaryKeywords,
		tpl.RowClassification.ExcludeKeywords,
		tpl.TableExtraction.DescriptionColumn,
	)

	total, err := utils.DetectGrandTotal(classified, tpl.TableExtraction.TotalColumn)
	if err != nil {
		return nil, err
	}

	lineRows := utils.LineItemRows(classified)
	items := make([]dto.LineItem, 0, len(lineRows))
	for _, r := range lineRows {
		items = append(items, utils.BuildLineItem(r.Row,
			tpl.TableExtraction.DescriptionColumn,
			tpl.TableExtraction.TotalColumn,
		))
	}

	return s.assembleAndValidate(headers, items, total, tpl, qr)
}

// ExtractText runs the free-text pipeline over every page of doc.
func (s *InvoiceService) ExtractText(ctx context.Context, doc *dto.Document, tpl *config.Template) (*dto.InvoiceRecord, error) {
	return s.extractText(ctx, doc, tpl, nil)
}

func (s *InvoiceService) extractText(ctx context.Context, doc *dto.Document, tpl *config.Template, qr *dto.EInvoiceQR) (*dto.InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "extraction cancelled")
	}

	res, err := textinvoice.Parse(doc.Pages, utils.DateLayout(tpl.DateFormat()))
	if err != nil {
		return nil, err
	}
	return s.assembleAndValidate(res.Headers, res.Items, res.GrandTotal, tpl, qr)
}

// assembleAndValidate builds and validates the record. QR data only fills
// gaps in the headers here; the record is final once validated.
func (s *InvoiceService) assembleAndValidate(headers dto.ExtractedHeaders, items []dto.LineItem, total dto.GrandTotal, tpl *config.Template, qr *dto.EInvoiceQR) (*dto.InvoiceRecord, error) {
	applyQRHSN(headers, qr)
	record, err := Assemble(headers, items, total, tpl.TaxMode)
	if err != nil {
		return nil, err
	}
	if err := s.validatorFor(tpl).Validate(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Extract loads src, dispatches on the template's extraction mode and, when
// the template asks for it, cross-checks the result against the e-invoice QR.
func (s *InvoiceService) Extract(ctx context.Context, src ExtractSource) (*ExtractResult, error) {
	start := time.Now()

	tpl, err := s.templates.Get(src.Template)
	if err != nil {
		return nil, err
	}

	doc, err := s.pdfProcessor.Load(src.Name, src.Data, src.Password)
	if err != nil {
		return nil, err
	}

	var (
		qr    *dto.EInvoiceQR
		notes []string
	)
	if tpl.QRCrossCheck && s.qrDecoder != nil {
		var note string
		if qr, note = s.readQR(src); note != "" {
			notes = append(notes, note)
		}
	}

	var record *dto.InvoiceRecord
	switch tpl.ExtractionMode {
	case dto.ExtractionModeText:
		record, err = s.extractText(ctx, doc, tpl, qr)
	default:
		record, err = s.extractLatticeSource(ctx, doc, src, tpl, qr)
	}
	if err != nil {
		zap.L().Warn("extraction failed",
			zap.String("source", src.Name),
			zap.String("kind", dto.ErrorKind(err)),
			zap.Error(err),
		)
		return nil, err
	}

	if qr != nil {
		notes = append(notes, crossCheckQR(record, qr, tpl.Tolerance(s.tolerance))...)
	}
	result := &ExtractResult{Record: record, Template: tpl, Notes: notes}

	zap.L().Info("invoice extracted",
		zap.String("source", src.Name),
		zap.String("template", tpl.Name),
		zap.String("invoice_number", record.InvoiceNumber),
		zap.Int("line_items", len(record.LineItems)),
		zap.String("grand_total", record.GrandTotalRounded.StringFixed(2)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

func (s *InvoiceService) extractLatticeSource(ctx context.Context, doc *dto.Document, src ExtractSource, tpl *config.Template, qr *dto.EInvoiceQR) (*dto.InvoiceRecord, error) {
	if len(src.Table) > 0 {
		return s.extractLattice(ctx, doc, client.StaticTableClient{Rows: src.Table}, src.Path, tpl, qr)
	}
	if s.tableClient == nil {
		return s.extractLattice(ctx, doc, nil, src.Path, tpl, qr)
	}

	path := src.Path
	if path == "" {
		tmp, err := writeTempPDF(src.Data)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		path = tmp
	}
	return s.extractLattice(ctx, doc, s.tableClient, path, tpl, qr)
}

func writeTempPDF(data []byte) (string, error) {
	f, err := os.CreateTemp("", "invoice-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "failed to create temp file")
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", eris.Wrap(err, "failed to write temp file")
	}
	return f.Name(), nil
}

// readQR looks for the e-invoice QR in the page images. When there is none
// the returned note says why.
func (s *InvoiceService) readQR(src ExtractSource) (*dto.EInvoiceQR, string) {
	images, err := s.pdfProcessor.ExtractImages(src.Data, src.Password)
	if err != nil {
		zap.L().Warn("QR cross-check skipped", zap.String("source", src.Name), zap.Error(err))
		return nil, "e-invoice QR check skipped: images could not be extracted"
	}
	qr, ok := findEInvoiceQR(s.qrDecoder, images)
	if !ok {
		return nil, "no e-invoice QR code found"
	}
	return qr, ""
}

// ExtractBatch extracts every source with at most workers documents in
// flight. Results keep the order of sources; a failed document never stops
// the others.
func (s *InvoiceService) ExtractBatch(ctx context.Context, sources []ExtractSource, workers int) []dto.BatchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]dto.BatchResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = s.extractOne(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	zap.L().Info("batch finished",
		zap.Int("documents", len(sources)),
		zap.Int("failed", failed),
		zap.Int("workers", workers),
	)
	return results
}

func (s *InvoiceService) extractOne(ctx context.Context, src ExtractSource) dto.BatchResult {
	result := dto.BatchResult{Source: filepath.Base(src.Name)}
	res, err := s.Extract(ctx, src)
	if err != nil {
		result.Err = err
		result.Kind = dto.ErrorKind(err)
		result.Error = err.Error()
		return result
	}
	result.Invoice = res.Record
	result.Notes = res.Notes
	return result
}
