package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/invoice-extractor/client"
	"github.com/Aashish23092/invoice-extractor/config"
	"github.com/Aashish23092/invoice-extractor/dto"
)

const restaurantPage = `ORDER ID: 123456789
Invoice No. : ZOM2024001
Invoice Date : 15-01-2024
Restaurant Name : Pizza Palace
Restaurant GSTIN : 29ABCDE1234F1Z5
Customer Name : Ravi Kumar
State name & Place of Supply : Karnataka(29)`

const marketplacePage = `Tax Invoice
Order ID: OD331234567890123456 Invoice Number: FAKJH2300012345
Order Date: 10-03-2024 Invoice Date: 12-03-2024
Sold By: Acme Retail Private Limited , Ship-from Address: Plot 12, Bhiwandi, Maharashtra
GSTIN - 27AABCA1234B1Z5
Bill To
Asha Rao Asha Rao
12 MG Road, Bengaluru, Karnataka - 560001, IN-KA
Product Title Qty Gross Amount Discounts Taxable Value IGST Total
₹ ₹ ₹ ₹ ₹
Boat Rockerz 450 Bluetooth
Headset Black
HSN/SAC: 85183000
IGST: 18.00 %
1 1299.00 -100.00 1016.10 182.90 1199.00
Total 1 1299.00 -100.00 1016.10 182.90 1199.00
Grand Total ₹ 1199.00
Authorized Signatory`

func pizzaTable() [][]string {
	return [][]string{
		{"Particulars", "Gross value", "Discount", "Net value", "CGST Rate", "CGST INR", "SGST Rate", "SGST INR", "Total INR"},
		{"Pizza", "100.00", "10.00", "90.00", "2.50%", "2.25", "2.50%", "2.25", "94.50"},
		{"Taxes", "", "", "", "", "", "", "", "4.50"},
		{"Total Value", "", "", "", "", "", "", "", "94.50"},
	}
}

// fakePDF treats the input bytes as page text; pages are separated by \f.
type fakePDF struct {
	images    []image.Image
	imagesErr error
}

func (f *fakePDF) Load(source string, data []byte, password string) (*dto.Document, error) {
	if len(data) == 0 {
		return nil, eris.Wrapf(dto.ErrDocumentUnavailable, "file is empty: %s", source)
	}
	return &dto.Document{Source: source, Pages: strings.Split(string(data), "\f")}, nil
}

func (f *fakePDF) ExtractImages(pdfData []byte, password string) ([]image.Image, error) {
	return f.images, f.imagesErr
}

type fakeDecoder struct {
	text string
	err  error
}

func (f fakeDecoder) Decode(image.Image) (string, error) { return f.text, f.err }

func eInvoiceToken(t *testing.T, data map[string]any) string {
	t.Helper()
	inner, err := json.Marshal(data)
	require.NoError(t, err)
	claims, err := json.Marshal(map[string]string{"data": string(inner)})
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." + enc.EncodeToString(claims) + ".sig"
}

func newTestService(t *testing.T, pdf PDFProcessor, tables client.TableClient, qr QRDecoder) *InvoiceService {
	t.Helper()
	store, err := config.LoadTemplates("")
	require.NoError(t, err)
	return NewInvoiceService(pdf, tables, store, qr, DefaultValidatorConfig())
}

func templateNamed(t *testing.T, s *InvoiceService, name string) *config.Template {
	t.Helper()
	tpl, err := s.templates.Get(name)
	require.NoError(t, err)
	return tpl
}

func TestExtractLatticePizza(t *testing.T) {
	s := newTestService(t, &fakePDF{}, nil, nil)
	doc := &dto.Document{Source: "pizza.pdf", Pages: []string{restaurantPage}}

	rec, err := s.ExtractLattice(context.Background(), doc, client.StaticTableClient{Rows: pizzaTable()}, "", templateNamed(t, s, "zomato"))
	require.NoError(t, err)

	require.Len(t, rec.LineItems, 1)
	assert.Equal(t, "Pizza", rec.LineItems[0].Description)
	assert.Equal(t, "94.50", rec.LineItems[0].Total.StringFixed(2))
	assert.Equal(t, "2.5", rec.LineItems[0].CGSTRate.String())
	assert.Equal(t, "94.50", rec.GrandTotalRaw.StringFixed(2))
	assert.Equal(t, "94.50", rec.GrandTotalRounded.StringFixed(2))
	assert.Equal(t, "ZOM2024001", rec.InvoiceNumber)
	assert.Equal(t, "Pizza Palace", rec.VendorName)
	assert.Equal(t, "29ABCDE1234F1Z5", rec.VendorGSTIN)
	assert.Equal(t, "Ravi Kumar", rec.CustomerName)
	assert.Equal(t, "Karnataka", rec.State)
	assert.Equal(t, dto.TaxModeCGSTSGST, rec.TaxMode)
}

func TestExtractLatticeFailures(t *testing.T) {
	s := newTestService(t, &fakePDF{}, nil, nil)
	tpl := templateNamed(t, s, "zomato")
	ctx := context.Background()
	doc := &dto.Document{Source: "pizza.pdf", Pages: []string{restaurantPage}}

	_, err := s.ExtractLattice(ctx, doc, nil, "", tpl)
	assert.True(t, errors.Is(err, dto.ErrTableExtraction))

	noTotal := pizzaTable()[:3]
	_, err = s.ExtractLattice(ctx, doc, client.StaticTableClient{Rows: noTotal}, "", tpl)
	assert.True(t, errors.Is(err, dto.ErrMissingField))

	onlySummary := [][]string{pizzaTable()[0], pizzaTable()[2], pizzaTable()[3]}
	_, err = s.ExtractLattice(ctx, doc, client.StaticTableClient{Rows: onlySummary}, "", tpl)
	assert.True(t, errors.Is(err, dto.ErrNoLineItems))

	noCustomer := &dto.Document{Source: "x.pdf", Pages: []string{strings.Replace(restaurantPage, "Customer Name", "Guest", 1)}}
	_, err = s.ExtractLattice(ctx, noCustomer, client.StaticTableClient{Rows: pizzaTable()}, "", tpl)
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))
	assert.Contains(t, err.Error(), "customer_name")
}

func TestExtractText(t *testing.T) {
	s := newTestService(t, &fakePDF{}, nil, nil)
	doc := &dto.Document{Source: "order.pdf", Pages: []string{"Shipping label", marketplacePage}}

	rec, err := s.ExtractText(context.Background(), doc, templateNamed(t, s, "flipkart"))
	require.NoError(t, err)

	assert.Equal(t, dto.TaxModeIGST, rec.TaxMode)
	assert.Equal(t, "FAKJH2300012345", rec.InvoiceNumber)
	assert.Equal(t, "OD331234567890123456", rec.OrderID)
	assert.Equal(t, "85183000", rec.HSNCode)
	assert.Equal(t, "Karnataka", rec.State)
	require.Len(t, rec.LineItems, 1)
	assert.Equal(t, "1199.00", rec.GrandTotalRounded.StringFixed(2))
}

func TestExtractDispatchesOnTemplate(t *testing.T) {
	s := newTestService(t, &fakePDF{}, nil, nil)
	ctx := context.Background()

	res, err := s.Extract(ctx, ExtractSource{Name: "pizza.pdf", Data: []byte(restaurantPage), Template: "zomato", Table: pizzaTable()})
	require.NoError(t, err)
	assert.Equal(t, "zomato", res.Template.Name)
	assert.Equal(t, "ZOM2024001", res.Record.InvoiceNumber)
	assert.Empty(t, res.Notes)

	res, err = s.Extract(ctx, ExtractSource{Name: "order.pdf", Data: []byte(marketplacePage), Template: "Flipkart"})
	require.NoError(t, err)
	assert.Equal(t, "FAKJH2300012345", res.Record.InvoiceNumber)

	_, err = s.Extract(ctx, ExtractSource{Name: "pizza.pdf", Data: []byte(restaurantPage), Template: "zomato"})
	assert.True(t, errors.Is(err, dto.ErrTableExtraction))

	_, err = s.Extract(ctx, ExtractSource{Name: "pizza.pdf", Data: []byte(restaurantPage), Template: "unknown"})
	assert.True(t, errors.Is(err, config.ErrTemplateNotFound))
}

func TestExtractUsesTableClient(t *testing.T) {
	s := newTestService(t, &fakePDF{}, client.StaticTableClient{Rows: pizzaTable()}, nil)

	res, err := s.Extract(context.Background(), ExtractSource{Name: "pizza.pdf", Data: []byte(restaurantPage), Template: "zomato"})
	require.NoError(t, err)
	assert.Len(t, res.Record.LineItems, 1)
}

func TestExtractQRCrossCheck(t *testing.T) {
	token := eInvoiceToken(t, map[string]any{
		"SellerGstin": "29ABCDE1234F1Z5",
		"DocNo":       "ZOM2024001",
		"TotInvVal":   99.0,
		"ItemCnt":     1,
		"MainHsnCode": "996331",
	})
	pdf := &fakePDF{images: []image.Image{image.NewGray(image.Rect(0, 0, 4, 4))}}
	s := newTestService(t, pdf, nil, fakeDecoder{text: token})

	res, err := s.Extract(context.Background(), ExtractSource{Name: "pizza.pdf", Data: []byte(restaurantPage), Template: "zomato", Table: pizzaTable()})
	require.NoError(t, err)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "total 99.00 differs from extracted 94.50")
	assert.Equal(t, "996331", res.Record.HSNCode)
}

func TestExtractQRCrossCheckNoCode(t *testing.T) {
	pdf := &fakePDF{images: []image.Image{image.NewGray(image.Rect(0, 0, 4, 4))}}
	s := newTestService(t, pdf, nil, fakeDecoder{err: errors.New("not found")})

	res, err := s.Extract(context.Background(), ExtractSource{Name: "pizza.pdf", Data: []byte(restaurantPage), Template: "zomato", Table: pizzaTable()})
	require.NoError(t, err)
	assert.Equal(t, []string{"no e-invoice QR code found"}, res.Notes)
}

func TestCrossCheckQRMatches(t *testing.T) {
	rec := pizzaRecord()
	notes := crossCheckQR(rec, &dto.EInvoiceQR{SellerGstin: "29abcde1234f1z5", DocNo: "ZOM2024001", TotInvVal: 94.5, ItemCnt: 1}, DefaultTolerance)
	assert.Equal(t, []string{"e-invoice QR matches extracted invoice"}, notes)

	notes = crossCheckQR(rec, &dto.EInvoiceQR{SellerGstin: "27AAAAA0000A1Z5", DocNo: "OTHER", ItemCnt: 3}, DefaultTolerance)
	assert.Len(t, notes, 3)
}

func TestCrossCheckQRLeavesRecordUntouched(t *testing.T) {
	rec := pizzaRecord()
	notes := crossCheckQR(rec, &dto.EInvoiceQR{DocNo: "ZOM2024001", MainHsnCode: "996331"}, DefaultTolerance)
	assert.Equal(t, []string{"e-invoice QR matches extracted invoice"}, notes)
	assert.Empty(t, rec.HSNCode)
}

func TestApplyQRHSN(t *testing.T) {
	headers := pizzaHeaders("29ABCDE1234F1Z5")
	applyQRHSN(headers, nil)
	assert.Empty(t, headers.Text(dto.FieldHSNCode))

	applyQRHSN(headers, &dto.EInvoiceQR{MainHsnCode: "996331"})
	assert.Equal(t, "996331", headers.Text(dto.FieldHSNCode))

	// a printed HSN code wins over the QR
	applyQRHSN(headers, &dto.EInvoiceQR{MainHsnCode: "111111"})
	assert.Equal(t, "996331", headers.Text(dto.FieldHSNCode))
}

const renamedColumnsTemplate = `
name: bistro
extraction_mode: lattice
tax_mode: cgst_sgst
header_extraction:
  fields:
    invoice_number:
      regex: 'Invoice\s*No\.?\s*:?\s*(\S+)'
    invoice_date:
      regex: 'Invoice\s*Date\s*:?\s*(\d{1,2}-\d{1,2}-\d{4})'
      date_format: "%d-%m-%Y"
    vendor_name:
      regex: 'Restaurant\s*Name\s*:?\s*([^\n]+)'
    vendor_gst:
      regex: 'Restaurant\s*GSTIN\s*:?\s*([0-9A-Z]{15})'
    customer_name:
      regex: 'Customer\s*Name\s*:?\s*([^\n]+)'
    state:
      regex: 'Place\s*of\s*Supply\s*:?\s*([^\n]+)'
table_extraction:
  description_column: item
  total_column: amount
  column_mapping:
    "Particulars": item
    "Gross value": gross_value
    "Discount": discount
    "Net value": net_value
    "CGST INR": cgst_amount
    "SGST INR": sgst_amount
    "Total INR": amount
row_classification:
  summary_keywords: ["taxes"]
  exclude_keywords: ["total value"]
`

func TestExtractLatticeRenamedColumns(t *testing.T) {
	tpl, err := config.ParseTemplate([]byte(renamedColumnsTemplate))
	require.NoError(t, err)

	s := newTestService(t, &fakePDF{}, nil, nil)
	doc := &dto.Document{Source: "bistro.pdf", Pages: []string{strings.Replace(restaurantPage, "15-01-2024", "5-1-2024", 1)}}
	rows := [][]string{
		{"Particulars", "Gross value", "Discount", "Net value", "CGST INR", "SGST INR", "Total INR"},
		{"Pizza", "100.00", "10.00", "90.00", "2.25", "2.25", "94.50"},
		{"Taxes", "", "", "", "", "", "4.50"},
		{"Total Value", "", "", "", "", "", "94.50"},
	}

	rec, err := s.ExtractLattice(context.Background(), doc, client.StaticTableClient{Rows: rows}, "", tpl)
	require.NoError(t, err)
	require.Len(t, rec.LineItems, 1)
	assert.Equal(t, "Pizza", rec.LineItems[0].Description)
	assert.Equal(t, "94.50", rec.LineItems[0].Total.StringFixed(2))
	assert.Equal(t, "94.50", rec.GrandTotalRaw.StringFixed(2))
	assert.Equal(t, 5, rec.InvoiceDate.Day())
}

func TestExtractBatch(t *testing.T) {
	s := newTestService(t, &fakePDF{}, nil, nil)
	sources := []ExtractSource{
		{Name: "in/pizza.pdf", Data: []byte(restaurantPage), Template: "zomato", Table: pizzaTable()},
		{Name: "in/empty.pdf", Template: "zomato"},
		{Name: "in/order.pdf", Data: []byte(marketplacePage), Template: "flipkart"},
		{Name: "in/bad.pdf", Data: []byte(strings.Replace(marketplacePage, "Grand Total ₹ 1199.00", "Grand Total ₹ 1200.00", 1)), Template: "flipkart"},
	}

	results := s.ExtractBatch(context.Background(), sources, 2)
	require.Len(t, results, 4)

	assert.Equal(t, "pizza.pdf", results[0].Source)
	assert.NotNil(t, results[0].Invoice)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, "empty.pdf", results[1].Source)
	assert.Nil(t, results[1].Invoice)
	assert.Equal(t, "DocumentUnavailableError", results[1].Kind)

	assert.NotNil(t, results[2].Invoice)

	assert.Equal(t, "ArithmeticMismatchError", results[3].Kind)
	assert.NotEmpty(t, results[3].Error)
}
