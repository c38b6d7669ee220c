package service

import (
	"github.com/Aashish23092/invoice-extractor/client"
	"github.com/Aashish23092/invoice-extractor/config"
)

// NewInvoiceServiceFromConfig loads the templates and wires the camelot
// table extractor (unless table.disabled) and the QR decoder.
func NewInvoiceServiceFromConfig(cfg *config.Config) (*InvoiceService, error) {
	templates, err := config.LoadTemplates(cfg.Templates.Dir)
	if err != nil {
		return nil, err
	}

	tolerance, err := cfg.Validation.ToleranceDecimal()
	if err != nil {
		return nil, err
	}

	var tableClient client.TableClient
	if !cfg.Table.Disabled {
		tableClient = client.NewCamelotClient(cfg.Table.Python, cfg.Table.Timeout())
	}

	return NewInvoiceService(
		NewPDFProcessor(),
		tableClient,
		templates,
		NewQRDecoder(),
		ValidatorConfig{Tolerance: tolerance},
	), nil
}
