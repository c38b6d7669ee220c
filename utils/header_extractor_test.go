package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/invoice-extractor/dto"
)

const restaurantPage = `ORDER SUMMARY
Invoice No. : 2024ZOM0099
Invoice Date: 15-01-2024
Restaurant Name : Pizza Palace
Restaurant GSTIN : 29ABCDE1234F1Z5
Customer Name : Ravi   Kumar
State name & Place of Supply : Karnataka(29)`

func restaurantRules() dto.FieldRules {
	return dto.FieldRules{
		{Name: dto.FieldInvoiceNumber, Regex: `Invoice No\.?\s*:\s*(\S+)`},
		{Name: dto.FieldInvoiceDate, Regex: `Invoice Date\s*:\s*([\d-]+)`, DateFormat: "%d-%m-%Y"},
		{Name: dto.FieldVendorName, Keywords: []string{"Restaurant Name"}},
		{Name: dto.FieldVendorGST, Regex: `GSTIN\s*:\s*([0-9A-Z]{15})`},
		{Name: dto.FieldCustomerName, Keywords: []string{"Customer Name", "Bill To"}},
		{Name: dto.FieldState, Regex: `Place of Supply\s*:\s*([^\n]+)`},
	}
}

func TestExtractHeaders(t *testing.T) {
	headers, err := ExtractHeaders(restaurantPage, restaurantRules())
	require.NoError(t, err)

	assert.Equal(t, "2024ZOM0099", headers.Text(dto.FieldInvoiceNumber))
	date, ok := headers.Date(dto.FieldInvoiceDate)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), date)
	assert.Equal(t, "Pizza Palace", headers.Text(dto.FieldVendorName))
	assert.Equal(t, "29ABCDE1234F1Z5", headers.Text(dto.FieldVendorGST))
	assert.Equal(t, "Ravi Kumar", headers.Text(dto.FieldCustomerName))
	assert.Equal(t, "Karnataka(29)", headers.Text(dto.FieldState))
	assert.Equal(t, "Karnataka", CleanState(headers.Text(dto.FieldState)))
}

func TestExtractHeadersIsCaseInsensitive(t *testing.T) {
	rules := dto.FieldRules{{Name: "vendor_name", Regex: `restaurant name\s*:\s*([^\n]+)`}}
	headers, err := ExtractHeaders(restaurantPage, rules)
	require.NoError(t, err)
	assert.Equal(t, "Pizza Palace", headers.Text("vendor_name"))
}

func TestExtractHeadersFailsOnFirstMissingField(t *testing.T) {
	rules := restaurantRules()
	rules = append(dto.FieldRules{{Name: "po_number", Regex: `PO Number\s*:\s*(\S+)`}}, rules...)

	_, err := ExtractHeaders(restaurantPage, rules)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))
	assert.Contains(t, err.Error(), "po_number")
}

func TestExtractHeadersBadDate(t *testing.T) {
	rules := dto.FieldRules{{Name: dto.FieldInvoiceDate, Regex: `Invoice Date\s*:\s*([\d-]+)`, DateFormat: "%Y/%m/%d"}}

	_, err := ExtractHeaders(restaurantPage, rules)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))
	assert.Contains(t, err.Error(), "15-01-2024")
	assert.Contains(t, err.Error(), "%Y/%m/%d")
}

func TestCompileFieldRule(t *testing.T) {
	_, err := CompileFieldRule(dto.FieldRule{Name: "x"})
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))

	_, err = CompileFieldRule(dto.FieldRule{Name: "x", Regex: `(unclosed`})
	assert.True(t, errors.Is(err, dto.ErrHeaderExtraction))

	re, err := CompileFieldRule(dto.FieldRule{Name: "x", Keywords: []string{"Inv. No"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"inv. no: 42", "42"}, re.FindStringSubmatch("inv. no: 42"))
}

func TestCleanState(t *testing.T) {
	assert.Equal(t, "Maharashtra", CleanState("Maharashtra(27)"))
	assert.Equal(t, "Tamil Nadu", CleanState("Tamil Nadu ( 33 )"))
	assert.Equal(t, "Goa", CleanState("Goa"))
}

func TestDateLayout(t *testing.T) {
	assert.Equal(t, "2-1-2006", DateLayout("%d-%m-%Y"))
	assert.Equal(t, "2 Jan 2006", DateLayout("%d %b %Y"))
	assert.Equal(t, "2006-01-02", DateLayout("2006-01-02"))

	d, err := ParseDate(" 03/04/2024 ", "%d/%m/%Y")
	require.NoError(t, err)
	assert.Equal(t, time.April, d.Month())
}

func TestParseDateSingleDigitDayAndMonth(t *testing.T) {
	cases := map[string]time.Time{
		"1-03-2024":  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"01-3-2024":  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"5-7-2024":   time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
		"15-01-2024": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDate(in, "%d-%m-%Y")
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("32-01-2024", "%d-%m-%Y")
	assert.Error(t, err)
}
