package textinvoice

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/utils"
)

// DefaultDateLayout is the marketplace invoice date layout (dd-mm-yyyy).
const DefaultDateLayout = "02-01-2006"

const unknownValue = "Unknown"

var (
	invoiceNumberRegex = regexp.MustCompile(`Invoice\s*(?:No|Number)\s*[:#]?\s*(\S+)`)
	invoiceDateRegex   = regexp.MustCompile(`Invoice\s*Date\s*[:#]?\s*(\d{2}-\d{2}-\d{4})`)
	orderIDRegex       = regexp.MustCompile(`Order\s*(?:Id|ID)\s*[:#]?\s*(OD\d+)`)
	bareOrderIDRegex   = regexp.MustCompile(`(OD\d{10,})`)
	soldByInlineRegex  = regexp.MustCompile(`Sold\s*By\s*:\s*([^,\n]+)`)
	soldByRegex        = regexp.MustCompile(`Sold\s*By`)
	gstinRegex         = regexp.MustCompile(`GSTIN?\s*[-:#]?\s*([0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9A-Z][A-Z][0-9A-Z])`)
	looseGSTRegex      = regexp.MustCompile(`GST\s*[:#]?\s*([0-9A-Z]{15})`)
	billToRegex        = regexp.MustCompile(`(?i)Bill\s*To`)
	addressBlockRegex  = regexp.MustCompile(`(?i)Bill\s*To|Ship\s*To`)
	personNameRegex    = regexp.MustCompile(`(?:OD\d+\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	properNameRegex    = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*$`)
	isoStateRegex      = regexp.MustCompile(`IN-([A-Z]{2})`)
	stateNoiseRegex    = regexp.MustCompile(`\(\d+\)|IN-\w+`)
)

// stateCode pairs an ISO 3166-2:IN subdivision suffix with its state name.
type stateCode struct {
	Code string
	Name string
}

// stateCodes is ordered; name scans walk it front to back.
var stateCodes = []stateCode{
	{"MH", "Maharashtra"}, {"KA", "Karnataka"}, {"DL", "Delhi"},
	{"UP", "Uttar Pradesh"}, {"TN", "Tamil Nadu"}, {"GJ", "Gujarat"},
	{"RJ", "Rajasthan"}, {"AP", "Andhra Pradesh"}, {"TS", "Telangana"},
	{"KL", "Kerala"}, {"WB", "West Bengal"}, {"HR", "Haryana"},
	{"PB", "Punjab"}, {"BR", "Bihar"}, {"OR", "Odisha"},
	{"GA", "Goa"}, {"MP", "Madhya Pradesh"}, {"CG", "Chhattisgarh"},
	{"JH", "Jharkhand"}, {"UK", "Uttarakhand"}, {"HP", "Himachal Pradesh"},
	{"AS", "Assam"},
}

// StateName resolves a two-letter code; unknown codes are returned as-is.
func StateName(code string) string {
	for _, s := range stateCodes {
		if s.Code == code {
			return s.Name
		}
	}
	return code
}

type page struct {
	text  string
	lines []string
}

func newPage(text string) page {
	return page{text: text, lines: splitLines(text)}
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

func regexStrategy(name string, re *regexp.Regexp) utils.Strategy[page, string] {
	return utils.Strategy[page, string]{
		Name: name,
		Try:  func(p page) (string, bool) { return firstGroup(re, p.text) },
	}
}

var orderIDChain = utils.Chain[page, string]{
	regexStrategy("labelled", orderIDRegex),
	regexStrategy("bare", bareOrderIDRegex),
}

var vendorChain = utils.Chain[page, string]{
	regexStrategy("inline", soldByInlineRegex),
	{Name: "next_line", Try: vendorFromNextLine},
}

var gstinChain = utils.Chain[page, string]{
	regexStrategy("structured", gstinRegex),
	regexStrategy("loose", looseGSTRegex),
}

var stateChain = utils.Chain[page, string]{
	{Name: "address_block", Try: stateNearAddress},
	{Name: "iso_code", Try: stateFromISOCode},
	{Name: "anywhere", Try: stateAnywhere},
}

func vendorFromNextLine(p page) (string, bool) {
	for i, line := range p.lines {
		if !soldByRegex.MatchString(line) {
			continue
		}
		if i+1 >= len(p.lines) {
			return "", false
		}
		v := strings.TrimSpace(strings.Split(strings.TrimSpace(p.lines[i+1]), ",")[0])
		return v, v != ""
	}
	return "", false
}

func customerFromBillTo(p page) (string, bool) {
	for i, line := range p.lines {
		if !billToRegex.MatchString(line) {
			continue
		}
		for j := i + 1; j < len(p.lines) && j < i+3; j++ {
			if name, ok := firstGroup(personNameRegex, strings.TrimSpace(p.lines[j])); ok {
				return collapseRepeatedName(name), true
			}
		}
	}
	return "", false
}

// collapseRepeatedName turns "Asha Rao Asha Rao" into "Asha Rao". Only
// names of four or more words are considered.
func collapseRepeatedName(name string) string {
	words := strings.Fields(name)
	if len(words) < 4 {
		return name
	}
	half := len(words) / 2
	first := strings.Join(words[:half], " ")
	if first == strings.Join(words[half:], " ") {
		return first
	}
	return name
}

func customerInline(vendor string) utils.Strategy[page, string] {
	return utils.Strategy[page, string]{
		Name: "inline",
		Try: func(p page) (string, bool) {
			if vendor == "" {
				return "", false
			}
			for _, line := range p.lines {
				if !strings.Contains(line, vendor) {
					continue
				}
				parts := strings.Split(line, ",")
				if len(parts) < 2 {
					continue
				}
				if c := strings.TrimSpace(parts[1]); c != "" && properNameRegex.MatchString(c) {
					return c, true
				}
			}
			return "", false
		},
	}
}

func stateNearAddress(p page) (string, bool) {
	start := -1
	for i, line := range p.lines {
		if addressBlockRegex.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}
	for j := start; j < len(p.lines) && j < start+12; j++ {
		for _, s := range stateCodes {
			if strings.Contains(p.lines[j], s.Name) {
				return s.Name, true
			}
		}
	}
	return "", false
}

func stateFromISOCode(p page) (string, bool) {
	matches := isoStateRegex.FindAllStringSubmatch(p.text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return StateName(matches[len(matches)-1][1]), true
}

// stateAnywhere picks the state name that occurs earliest in the text.
func stateAnywhere(p page) (string, bool) {
	best, bestIdx := "", -1
	for _, s := range stateCodes {
		if idx := strings.Index(p.text, s.Name); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = s.Name, idx
		}
	}
	return best, bestIdx >= 0
}

// cleanTextState strips numeric codes and ISO subdivision tags.
func cleanTextState(raw string) string {
	s := utils.NormalizeWhitespace(stateNoiseRegex.ReplaceAllString(raw, ""))
	return strings.TrimSpace(strings.TrimRight(s, ", "))
}

// ExtractHeaders reads the header fields of a marketplace text invoice.
// Invoice number and date are mandatory; the rest fall back to
// UNREGISTERED or Unknown, or are left empty.
func ExtractHeaders(text, dateLayout string) (dto.ExtractedHeaders, error) {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	p := newPage(text)
	headers := dto.ExtractedHeaders{}

	number, ok := firstGroup(invoiceNumberRegex, text)
	if !ok {
		return nil, eris.Wrapf(dto.ErrHeaderExtraction,
			"could not extract required field '%s' (regex: %s)", dto.FieldInvoiceNumber, invoiceNumberRegex.String())
	}
	headers.SetText(dto.FieldInvoiceNumber, number)

	rawDate, ok := firstGroup(invoiceDateRegex, text)
	if !ok {
		return nil, eris.Wrapf(dto.ErrHeaderExtraction,
			"could not extract required field '%s' (regex: %s)", dto.FieldInvoiceDate, invoiceDateRegex.String())
	}
	date, err := utils.ParseDate(rawDate, dateLayout)
	if err != nil {
		return nil, eris.Wrapf(dto.ErrHeaderExtraction,
			"could not parse date for field '%s': '%s' with format '%s'", dto.FieldInvoiceDate, rawDate, dateLayout)
	}
	headers.SetDate(dto.FieldInvoiceDate, rawDate, date)

	if orderID, via, ok := orderIDChain.First(p); ok {
		headers.SetText(dto.FieldOrderID, orderID)
		logStrategy(dto.FieldOrderID, via, orderID)
	}

	vendor, via, _ := vendorChain.First(p)
	headers.SetText(dto.FieldVendorName, vendor)
	logStrategy(dto.FieldVendorName, via, vendor)

	gstin, via, ok := gstinChain.First(p)
	if !ok {
		gstin, via = dto.UnregisteredGSTIN, "default"
	}
	headers.SetText(dto.FieldVendorGST, gstin)
	logStrategy(dto.FieldVendorGST, via, gstin)

	customerChain := utils.Chain[page, string]{
		{Name: "bill_to", Try: customerFromBillTo},
		customerInline(vendor),
	}
	customer, via, ok := customerChain.First(p)
	if !ok {
		customer, via = unknownValue, "default"
	}
	headers.SetText(dto.FieldCustomerName, customer)
	logStrategy(dto.FieldCustomerName, via, customer)

	state, via, ok := stateChain.First(p)
	if ok {
		state = cleanTextState(state)
	}
	if state == "" {
		state, via = unknownValue, "default"
	}
	headers.SetText(dto.FieldState, state)
	logStrategy(dto.FieldState, via, state)

	return headers, nil
}

func logStrategy(field, strategy, value string) {
	zap.L().Info("text header extracted",
		zap.String("field", field),
		zap.String("strategy", strategy),
		zap.String("value", value),
	)
}
