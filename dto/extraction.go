package dto

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldRule is one header extraction rule from a vendor template. Regex is
// matched case-insensitively against the page text and its first capture
// group is the value. When Regex is empty the Keywords are turned into a
// "<keyword>: value" pattern.
type FieldRule struct {
	Name       string   `yaml:"-" json:"name"`
	Keywords   []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Regex      string   `yaml:"regex,omitempty" json:"regex,omitempty"`
	DateFormat string   `yaml:"date_format,omitempty" json:"date_format,omitempty"`
}

// FieldRules keeps the declaration order of a YAML mapping so the first
// failing field is deterministic.
type FieldRules []FieldRule

// UnmarshalYAML decodes a mapping of field name -> rule in document order.
func (f *FieldRules) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &yaml.TypeError{Errors: []string{"header fields must be a mapping"}}
	}
	rules := make(FieldRules, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var rule FieldRule
		if err := node.Content[i+1].Decode(&rule); err != nil {
			return err
		}
		rule.Name = node.Content[i].Value
		rules = append(rules, rule)
	}
	*f = rules
	return nil
}

// Lookup returns the rule with the given name.
func (f FieldRules) Lookup(name string) (FieldRule, bool) {
	for _, r := range f {
		if r.Name == name {
			return r, true
		}
	}
	return FieldRule{}, false
}

// HeaderValue is either free text or a parsed date.
type HeaderValue struct {
	Text   string
	Date   time.Time
	IsDate bool
}

// ExtractedHeaders maps canonical field name -> value.
type ExtractedHeaders map[string]HeaderValue

// SetText stores a text value.
func (h ExtractedHeaders) SetText(name, value string) {
	h[name] = HeaderValue{Text: value}
}

// SetDate stores a date value together with the raw text it came from.
func (h ExtractedHeaders) SetDate(name, raw string, t time.Time) {
	h[name] = HeaderValue{Text: raw, Date: t, IsDate: true}
}

// Text returns the trimmed text of a field, or "" when absent.
func (h ExtractedHeaders) Text(name string) string {
	return strings.TrimSpace(h[name].Text)
}

// Date returns the parsed date of a field.
func (h ExtractedHeaders) Date(name string) (time.Time, bool) {
	v, ok := h[name]
	if !ok || !v.IsDate {
		return time.Time{}, false
	}
	return v.Date, true
}

// RowKind labels a table row.
type RowKind string

const (
	RowKindLineItem RowKind = "line_item"
	RowKindSummary  RowKind = "summary"
	RowKindTotal    RowKind = "total"
)

// TableRow holds one row's cells keyed by canonical column name.
type TableRow map[string]string

// Cell returns the named cell, "" when the column does not exist.
func (r TableRow) Cell(column string) string {
	return r[column]
}

// Table is a decoded ruled table: ordered columns and rows, header row removed.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// ClassifiedRow is a table row with its derived kind. Index is the row's
// position in the source table.
type ClassifiedRow struct {
	Index int
	Kind  RowKind
	Row   TableRow
}

// Document is the already-extracted text of an input file, one string per page.
type Document struct {
	Source string
	Pages  []string
}

// FirstPage returns page one's text.
func (d *Document) FirstPage() string {
	if d == nil || len(d.Pages) == 0 {
		return ""
	}
	return d.Pages[0]
}
