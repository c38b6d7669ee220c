package textinvoice

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/invoice-extractor/dto"
)

const shippingLabel = `Ship To: Asha Rao
Courier: Ekart Logistics
Not for resale. Handover to courier.`

const marketplaceInvoice = `Tax Invoice
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

func TestFindInvoicePage(t *testing.T) {
	idx, ok := FindInvoicePage([]string{shippingLabel, marketplaceInvoice})
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = FindInvoicePage([]string{shippingLabel})
	assert.False(t, ok)

	// "Tax Invoice" alone is not enough
	_, ok = FindInvoicePage([]string{"Tax Invoice\nThank you for shopping"})
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	res, err := Parse([]string{shippingLabel, marketplaceInvoice}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Page)
	assert.Equal(t, "FAKJH2300012345", res.Headers.Text(dto.FieldInvoiceNumber))
	date, ok := res.Headers.Date(dto.FieldInvoiceDate)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), date)
	assert.Equal(t, "OD331234567890123456", res.Headers.Text(dto.FieldOrderID))
	assert.Equal(t, "Acme Retail Private Limited", res.Headers.Text(dto.FieldVendorName))
	assert.Equal(t, "27AABCA1234B1Z5", res.Headers.Text(dto.FieldVendorGST))
	assert.Equal(t, "Asha Rao", res.Headers.Text(dto.FieldCustomerName))
	assert.Equal(t, "Karnataka", res.Headers.Text(dto.FieldState))
	assert.Equal(t, "85183000", res.Headers.Text(dto.FieldHSNCode))

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "Boat Rockerz 450 Bluetooth Headset Black", item.Description)
	assert.Equal(t, "1299.00", item.GrossValue.StringFixed(2))
	assert.Equal(t, "100.00", item.Discount.StringFixed(2))
	assert.Equal(t, "1016.10", item.NetValue.StringFixed(2))
	assert.Equal(t, "18.00", item.IGSTRate.StringFixed(2))
	assert.Equal(t, "182.90", item.IGSTAmount.StringFixed(2))
	assert.True(t, item.CessAmount.IsZero())
	assert.Equal(t, "1199.00", item.Total.StringFixed(2))

	assert.Equal(t, "1199.00", res.GrandTotal.Raw.StringFixed(2))
}

func TestParseNoInvoicePage(t *testing.T) {
	_, err := Parse([]string{shippingLabel}, "")
	assert.True(t, errors.Is(err, dto.ErrTableExtraction))
}

func TestScannerTransitions(t *testing.T) {
	s := NewScanner()
	assert.Equal(t, StateSearching, s.State())

	s.Feed("Some preamble with 1 2 3 4 5 6")
	assert.Equal(t, StateSearching, s.State())
	assert.Empty(t, s.Items())

	s.Feed("Particulars Quantity Rate Amount Total")
	assert.Equal(t, StateAccumulating, s.State())

	s.Feed("Phone Case 2 500.00 0.00 423.73 76.27 0.00 500.00")
	assert.Equal(t, StateEmit, s.State())
	require.Len(t, s.Items(), 1)
	assert.Equal(t, "Phone Case", s.Items()[0].Description)
	assert.Equal(t, "0.00", s.Items()[0].CessAmount.StringFixed(2))

	s.Feed("Screen Guard")
	assert.Equal(t, StateAccumulating, s.State())
}

func TestScannerRateResetsAfterEmit(t *testing.T) {
	text := `Product Qty Gross Discount Taxable IGST Total
IGST: 18.00 %
Charger
1 590.00 0.00 500.00 90.00 590.00
Cable
1 100.00 0.00 100.00 0.00 100.00`

	items, _, err := ScanLineItems(text)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "18.00", items[0].IGSTRate.StringFixed(2))
	assert.True(t, items[1].IGSTRate.IsZero())
}

func TestScannerDiscardsSummaryRows(t *testing.T) {
	text := `Product Qty Gross Discount Taxable IGST Total
Total
1 590.00 0.00 500.00 90.00 590.00
1 590.00 0.00 500.00 90.00 590.00
Charger
1 590.00 0.00 500.00 90.00 590.00`

	s := NewScanner()
	for _, line := range splitLines(text) {
		s.Feed(line)
	}
	require.Len(t, s.Items(), 1)
	assert.Equal(t, "Charger", s.Items()[0].Description)
	assert.Equal(t, 2, s.Discarded())
}

func TestScannerSkipsNoise(t *testing.T) {
	text := `Product Qty Gross Discount Taxable IGST Total
Wireless Mouse
FSN: ACCFZ8GZHXYZ
IMEI/Serial No: 3548XXXXXXXX
Page 1 of 2
1 500.00 0.00 423.73 76.27 500.00`

	items, _, err := ScanLineItems(text)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wireless Mouse", items[0].Description)
}

func TestScanLineItemsEmpty(t *testing.T) {
	_, _, err := ScanLineItems("Tax Invoice\nnothing here")
	assert.True(t, errors.Is(err, dto.ErrTableExtraction))

	_, _, err = ScanLineItems("Product Qty Total\nOnly words here")
	assert.True(t, errors.Is(err, dto.ErrTableExtraction))
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want LineEvent
	}{
		{"Amount Value", EventSubHeader},
		{"IGST: 5.00 %", EventRate},
		{"HSN: 1234", EventHSN},
		{"Grand Total 100.00", EventNoise},
		{"ABCDEFGHIJ1234", EventNoise},
		{"Headphones with mic", EventText},
		{"1 10.00 0.00 10.00 0.00 10.00", EventNumeric},
		{"| x", EventOther},
		{"ab", EventOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLine(StateAccumulating, tt.line), tt.line)
	}
	assert.Equal(t, EventOther, ClassifyLine(StateSearching, "Headphones with mic"))
}

func TestExtractHeadersFallbacks(t *testing.T) {
	text := `Invoice No: INV-9 Invoice Date: 01-02-2024
Sold By
Gadget Hub, Ravi Kumar , Ravi Kumar ,
Delivered to Pune, Maharashtra`

	headers, err := ExtractHeaders(text, "")
	require.NoError(t, err)
	assert.Equal(t, "INV-9", headers.Text(dto.FieldInvoiceNumber))
	assert.Equal(t, "Gadget Hub", headers.Text(dto.FieldVendorName))
	assert.Equal(t, dto.UnregisteredGSTIN, headers.Text(dto.FieldVendorGST))
	assert.Equal(t, "Ravi Kumar", headers.Text(dto.FieldCustomerName))
	assert.Equal(t, "Maharashtra", headers.Text(dto.FieldState))
	assert.Equal(t, "", headers.Text(dto.FieldOrderID))
}

func TestExtractHeadersStateFromISOCode(t *testing.T) {
	text := `Invoice Number: A1 Invoice Date: 05-06-2024
Seller: IN-MH warehouse
Customer address IN-TN`

	headers, err := ExtractHeaders(text, "")
	require.NoError(t, err)
	assert.Equal(t, "Tamil Nadu", headers.Text(dto.FieldState))
	assert.Equal(t, "Unknown", headers.Text(dto.FieldCustomerName))
}

func TestExtractHeadersMissingDate(t *testing.T) {
	_, err := ExtractHeaders("Invoice Number: A1", "")
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))

	_, err = ExtractHeaders("Invoice Number: A1 Invoice Date: 31-02-2024", "")
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))
}

func TestCollapseRepeatedName(t *testing.T) {
	assert.Equal(t, "Asha Rao", collapseRepeatedName("Asha Rao Asha Rao"))
	assert.Equal(t, "Asha Rao Kumar Singh", collapseRepeatedName("Asha Rao Kumar Singh"))
	assert.Equal(t, "Asha Rao", collapseRepeatedName("Asha Rao"))
}

func TestExtractGrandTotal(t *testing.T) {
	total, err := ExtractGrandTotal("TOTAL PRICE: 1,250.50")
	require.NoError(t, err)
	assert.Equal(t, "1250.50", total.Raw.StringFixed(2))

	_, err = ExtractGrandTotal("Grand Total 0.00")
	assert.True(t, errors.Is(err, dto.ErrTableExtraction))
}
