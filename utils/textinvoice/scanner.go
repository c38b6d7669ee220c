package textinvoice

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/utils"
)

// ScanState is the scanner's current state.
type ScanState int

const (
	// StateSearching waits for the column header line of the product table.
	StateSearching ScanState = iota
	// StateAccumulating collects description fragments.
	StateAccumulating
	// StateEmit is entered on a numeric-column line; the next line is
	// handled exactly like StateAccumulating.
	StateEmit
)

func (s ScanState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateAccumulating:
		return "accumulating"
	case StateEmit:
		return "emit"
	}
	return "unknown"
}

// LineEvent is the classification of a single text line.
type LineEvent int

const (
	EventOther LineEvent = iota
	EventTableHeader
	EventSubHeader
	EventRate
	EventHSN
	EventNoise
	EventNumeric
	EventText
)

func (e LineEvent) String() string {
	return [...]string{"other", "table_header", "sub_header", "rate", "hsn", "noise", "numeric", "text"}[e]
}

var (
	tableHeaderRegex = regexp.MustCompile(`(?i)(?:Product|Particulars).*(?:Qty|Quantity).*(?:Total)`)
	subHeaderRegex   = regexp.MustCompile(`^\s*(?:Amount|Value|₹|\s)+\s*$`)
	rateRegex        = regexp.MustCompile(`IGST:\s*([\d.]+)\s*%`)
	hsnRegex         = regexp.MustCompile(`HSN(?:/SAC)?\s*:\s*(\d+)`)

	// qty gross discount taxable igst [cess] total
	numericRowRegex = regexp.MustCompile(
		`\b(\d+)\s+` +
			`([\d,]+\.?\d*)\s+` +
			`(-?[\d,]+\.?\d*)\s+` +
			`([\d,]+\.?\d*)\s+` +
			`([\d,]+\.?\d*)\s+` +
			`(?:([\d,]+\.?\d*)\s+)?` +
			`([\d,]+\.?\d*)\s*$`)

	noiseRegexes = compileAll(
		`^fsn:`, `imei`, `^\|.*cess`, `fksb_`, `handling\s*fee.*0\.00`,
		`total\s*items`, `total\s*price`, `total\s*qty`, `all\s*values`,
		`grand\s*total`, `seller\s*registered`, `fssai`, `ordered\s*through`,
		`authorized`, `e\.\s*&\s*o\.e`, `signature`, `returns\s*policy`,
		`regd\.\s*office`, `contact\s*flipkart`, `page\s+\d+\s+of\s+\d+`,
		`^\|\s*$`, `^the\s+goods\s+sold`,
	)

	// serial and barcode strings; case-sensitive so long words survive
	codeLineRegexes = []*regexp.Regexp{
		regexp.MustCompile(`^[A-Z0-9]{10,}$`),
		regexp.MustCompile(`^[A-Z0-9]{10,}\s+`),
	}
)

// summaryCaptions are descriptions that mark a totals row, never a product.
var summaryCaptions = map[string]bool{
	"Total":       true,
	"TOTAL":       true,
	"Total Price": true,
	"TOTAL PRICE": true,
	"Grand Total": true,
	"GRAND TOTAL": true,
}

// summaryPrefixes are matched case-insensitively against the text that
// precedes the numbers on the same line.
var summaryPrefixes = map[string]bool{
	"total":       true,
	"total price": true,
	"grand total": true,
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// ClassifyLine labels a trimmed line. While searching only the table header
// matters; once inside the table the checks run in a fixed priority order.
func ClassifyLine(state ScanState, line string) LineEvent {
	if state == StateSearching {
		if tableHeaderRegex.MatchString(line) {
			return EventTableHeader
		}
		return EventOther
	}

	switch {
	case subHeaderRegex.MatchString(line):
		return EventSubHeader
	case rateRegex.MatchString(line):
		return EventRate
	case hsnRegex.MatchString(line):
		return EventHSN
	case isNoise(line):
		return EventNoise
	case numericRowRegex.MatchString(line):
		return EventNumeric
	case len(line) > 2 && !strings.HasPrefix(line, "|") && !strings.HasPrefix(line, "#"):
		return EventText
	}
	return EventOther
}

func isNoise(line string) bool {
	for _, re := range noiseRegexes {
		if re.MatchString(line) {
			return true
		}
	}
	for _, re := range codeLineRegexes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

type action func(s *Scanner, line string)

type transition struct {
	next ScanState
	act  action
}

// inTable is shared by the accumulating and emit states.
var inTable = map[LineEvent]transition{
	EventSubHeader: {StateAccumulating, nil},
	EventRate:      {StateAccumulating, (*Scanner).setRate},
	EventHSN:       {StateAccumulating, (*Scanner).setHSN},
	EventNoise:     {StateAccumulating, nil},
	EventNumeric:   {StateEmit, (*Scanner).emit},
	EventText:      {StateAccumulating, (*Scanner).appendDescription},
	EventOther:     {StateAccumulating, nil},
}

// transitions is the scanner's full state table.
var transitions = map[ScanState]map[LineEvent]transition{
	StateSearching: {
		EventTableHeader: {StateAccumulating, nil},
		EventOther:       {StateSearching, nil},
	},
	StateAccumulating: inTable,
	StateEmit:         inTable,
}

// Scanner reconstructs line items from free-flowing invoice text.
type Scanner struct {
	state       ScanState
	description []string
	rate        decimal.Decimal
	hsnCode     string
	items       []dto.LineItem
	discarded   int
}

// NewScanner returns a scanner in the searching state.
func NewScanner() *Scanner {
	return &Scanner{state: StateSearching, rate: decimal.Zero}
}

// State returns the current state.
func (s *Scanner) State() ScanState { return s.state }

// Items returns the line items emitted so far.
func (s *Scanner) Items() []dto.LineItem { return s.items }

// HSNCode returns the first HSN/SAC code seen inside the table.
func (s *Scanner) HSNCode() string { return s.hsnCode }

// Discarded counts numeric rows dropped as summary rows or for lack of a description.
func (s *Scanner) Discarded() int { return s.discarded }

// Feed consumes one raw line and applies the matching transition.
func (s *Scanner) Feed(raw string) {
	line := strings.TrimSpace(raw)
	event := ClassifyLine(s.state, line)

	t, ok := transitions[s.state][event]
	if !ok {
		return
	}
	if t.act != nil {
		t.act(s, line)
	}
	if t.next != s.state {
		zap.L().Debug("scanner transition",
			zap.Stringer("from", s.state),
			zap.Stringer("to", t.next),
			zap.Stringer("event", event),
		)
	}
	s.state = t.next
}

func (s *Scanner) setRate(line string) {
	if m := rateRegex.FindStringSubmatch(line); len(m) > 1 {
		s.rate = utils.ParsePercentage(m[1])
	}
}

func (s *Scanner) setHSN(line string) {
	if m := hsnRegex.FindStringSubmatch(line); len(m) > 1 && s.hsnCode == "" {
		s.hsnCode = m[1]
	}
}

func (s *Scanner) appendDescription(line string) {
	s.description = append(s.description, line)
}

func (s *Scanner) reset() {
	s.description = nil
	s.rate = decimal.Zero
}

func (s *Scanner) emit(line string) {
	loc := numericRowRegex.FindStringSubmatchIndex(line)
	if loc == nil {
		return
	}
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return line[loc[2*i]:loc[2*i+1]]
	}

	prefix := strings.TrimSpace(line[:loc[0]])
	if summaryPrefixes[strings.ToLower(prefix)] {
		s.discard("summary prefix", prefix)
		return
	}
	if prefix != "" {
		s.description = append(s.description, prefix)
	}

	description := utils.NormalizeWhitespace(strings.Join(s.description, " "))
	if description == "" {
		s.discard("empty description", "")
		return
	}
	if summaryCaptions[description] {
		s.discard("summary caption", description)
		return
	}

	item := dto.LineItem{
		Description: description,
		GrossValue:  utils.ParseAmount(group(2)),
		Discount:    utils.ParseAmount(group(3)).Abs(),
		NetValue:    utils.ParseAmount(group(4)),
		IGSTRate:    s.rate,
		IGSTAmount:  utils.ParseAmount(group(5)),
		CessAmount:  utils.ParseAmount(group(6)),
		Total:       utils.ParseAmount(group(7)),
	}
	s.items = append(s.items, item)
	zap.L().Debug("line item emitted", zap.String("description", description), zap.String("total", item.Total.String()))
	s.reset()
}

func (s *Scanner) discard(reason, text string) {
	s.discarded++
	zap.L().Debug("numeric row discarded", zap.String("reason", reason), zap.String("text", text))
	s.reset()
}

// ScanLineItems runs a fresh scanner over text. Zero emitted items is a
// TableExtractionError.
func ScanLineItems(text string) ([]dto.LineItem, string, error) {
	s := NewScanner()
	for _, line := range splitLines(text) {
		s.Feed(line)
	}
	if len(s.items) == 0 {
		if s.state == StateSearching {
			return nil, "", eris.Wrap(dto.ErrTableExtraction, "no product table header found in invoice text")
		}
		return nil, "", eris.Wrap(dto.ErrTableExtraction, "no line items could be extracted from invoice text")
	}
	return s.items, s.hsnCode, nil
}

// splitLines keeps blank lines so line offsets stay meaningful.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
}
