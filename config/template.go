package config

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Aashish23092/invoice-extractor/dto"
)

//go:embed templates/*.yaml
var builtinTemplates embed.FS

var ErrTemplateNotFound = eris.New("template not found")

// Template is a per-vendor extraction configuration.
type Template struct {
	Name              string             `yaml:"name"`
	ExtractionMode    dto.ExtractionMode `yaml:"extraction_mode"`
	TaxMode           dto.TaxMode        `yaml:"tax_mode"`
	QRCrossCheck      bool               `yaml:"qr_crosscheck"`
	HeaderExtraction  HeaderExtraction   `yaml:"header_extraction"`
	TableExtraction   TableExtraction    `yaml:"table_extraction"`
	RowClassification RowClassification  `yaml:"row_classification"`
	Validation        TemplateValidation `yaml:"validation"`
}

type HeaderExtraction struct {
	Fields dto.FieldRules `yaml:"fields"`
}

type TableExtraction struct {
	ColumnMapping     map[string]string `yaml:"column_mapping"`
	DescriptionColumn string            `yaml:"description_column"`
	TotalColumn       string            `yaml:"total_column"`
}

type RowClassification struct {
	SummaryKeywords []string `yaml:"summary_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

type TemplateValidation struct {
	Tolerance string `yaml:"tolerance"`
}

// DateFormat is the invoice_date format, "" when not configured.
func (t *Template) DateFormat() string {
	if rule, ok := t.HeaderExtraction.Fields.Lookup(dto.FieldInvoiceDate); ok {
		return rule.DateFormat
	}
	return ""
}

// Tolerance returns the template override, or fallback when none is set.
func (t *Template) Tolerance(fallback decimal.Decimal) decimal.Decimal {
	if strings.TrimSpace(t.Validation.Tolerance) == "" {
		return fallback
	}
	d, err := decimal.NewFromString(strings.TrimSpace(t.Validation.Tolerance))
	if err != nil {
		return fallback
	}
	return d
}

// Info summarizes the template for listings.
func (t *Template) Info() dto.TemplateInfo {
	return dto.TemplateInfo{Name: t.Name, ExtractionMode: t.ExtractionMode, TaxMode: t.TaxMode}
}

// normalize fills defaults and rejects templates the pipelines cannot run.
func (t *Template) normalize() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return eris.New("template: name is required")
	}

	switch dto.ExtractionMode(strings.ToLower(string(t.ExtractionMode))) {
	case "", dto.ExtractionModeLattice:
		t.ExtractionMode = dto.ExtractionModeLattice
	case dto.ExtractionModeText:
		t.ExtractionMode = dto.ExtractionModeText
	default:
		return eris.Errorf("template %s: unknown extraction_mode %q", t.Name, t.ExtractionMode)
	}

	if t.TaxMode == "" {
		t.TaxMode = t.ExtractionMode.DefaultTaxMode()
		zap.L().Warn("template has no tax_mode, deriving it from extraction_mode",
			zap.String("template", t.Name),
			zap.String("extraction_mode", string(t.ExtractionMode)),
			zap.String("tax_mode", string(t.TaxMode)),
		)
	} else {
		mode, err := dto.ParseTaxMode(string(t.TaxMode))
		if err != nil {
			return eris.Wrapf(err, "template %s", t.Name)
		}
		t.TaxMode = mode
	}

	if t.ExtractionMode == dto.ExtractionModeLattice {
		if len(t.HeaderExtraction.Fields) == 0 {
			return eris.Errorf("template %s: lattice templates need header_extraction.fields", t.Name)
		}
		for _, rule := range t.HeaderExtraction.Fields {
			if rule.Regex == "" && len(rule.Keywords) == 0 {
				return eris.Errorf("template %s: field %s has neither regex nor keywords", t.Name, rule.Name)
			}
			if rule.Name == dto.FieldInvoiceDate && strings.TrimSpace(rule.DateFormat) == "" {
				return eris.Errorf("template %s: field %s needs a date_format", t.Name, rule.Name)
			}
		}
		if len(t.TableExtraction.ColumnMapping) == 0 {
			return eris.Errorf("template %s: lattice templates need table_extraction.column_mapping", t.Name)
		}
		if len(t.RowClassification.SummaryKeywords) == 0 || len(t.RowClassification.ExcludeKeywords) == 0 {
			return eris.Errorf("template %s: lattice templates need row_classification.summary_keywords and exclude_keywords", t.Name)
		}
	}

	if tol := strings.TrimSpace(t.Validation.Tolerance); tol != "" {
		d, err := decimal.NewFromString(tol)
		if err != nil || d.IsNegative() {
			return eris.Errorf("template %s: invalid validation.tolerance %q", t.Name, tol)
		}
	}
	return nil
}

// ParseTemplate decodes and normalizes one YAML template.
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "template: parse yaml")
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

// TemplateStore holds the loaded vendor templates by name.
type TemplateStore struct {
	templates map[string]*Template
}

// LoadTemplates loads the built-in templates, then every *.yaml / *.yml
// file in dir (if set). A file template replaces a built-in one of the same
// name.
func LoadTemplates(dir string) (*TemplateStore, error) {
	store := &TemplateStore{templates: map[string]*Template{}}

	if err := store.loadFS(builtinTemplates, "templates"); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := store.loadFS(os.DirFS(dir), "."); err != nil {
			return nil, eris.Wrapf(err, "template dir %s", dir)
		}
	}

	zap.L().Info("templates loaded", zap.Strings("names", store.Names()))
	return store, nil
}

func (s *TemplateStore) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return eris.Wrap(err, "template: read dir")
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, e.Name())))
		if err != nil {
			return eris.Wrapf(err, "template: read %s", e.Name())
		}
		t, err := ParseTemplate(data)
		if err != nil {
			return eris.Wrapf(err, "template file %s", e.Name())
		}
		s.Add(t)
	}
	return nil
}

// Add registers t, replacing any template with the same name.
func (s *TemplateStore) Add(t *Template) {
	s.templates[strings.ToLower(t.Name)] = t
}

// Get looks a template up by case-insensitive name.
func (s *TemplateStore) Get(name string) (*Template, error) {
	t, ok := s.templates[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, eris.Wrapf(ErrTemplateNotFound, "unknown template '%s' (available: %s)", name, strings.Join(s.Names(), ", "))
	}
	return t, nil
}

// Names lists template names in sorted order.
func (s *TemplateStore) Names() []string {
	names := make([]string, 0, len(s.templates))
	for _, t := range s.templates {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// List describes every template, sorted by name.
func (s *TemplateStore) List() []dto.TemplateInfo {
	out := make([]dto.TemplateInfo, 0, len(s.templates))
	for _, name := range s.Names() {
		out = append(out, s.templates[strings.ToLower(name)].Info())
	}
	return out
}
