package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Aashish23092/invoice-extractor/client"
	"github.com/Aashish23092/invoice-extractor/service"
)

var (
	extractInput    string
	extractTemplate string
	extractOutput   string
	extractTable    string
	extractPassword string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one invoice and write its Excel report",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		src, err := service.SourceFromFile(extractInput, extractTemplate, extractPassword)
		if err != nil {
			return &fileError{path: extractInput, err: err}
		}
		if extractTable != "" {
			data, err := os.ReadFile(extractTable)
			if err != nil {
				return eris.Wrapf(err, "read table %s", extractTable)
			}
			rows, err := client.ParseTableJSON(data)
			if err != nil {
				return &fileError{path: extractTable, err: err}
			}
			src.Table = rows
		}

		result, err := svc.Extract(cmd.Context(), src)
		if err != nil {
			return &fileError{path: extractInput, err: err}
		}

		output := extractOutput
		if output == "" {
			output = filepath.Join(filepath.Dir(extractInput), service.ReportFileName(result.Record))
		}
		if err := writeReport(result, output); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printSuccess(out, filepath.Base(extractInput), result.Record, result.Notes)
		fmt.Fprintf(out, "Report: %s\n", output)
		return nil
	},
}

func writeReport(result *service.ExtractResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create report %s", path)
	}
	defer f.Close()
	if err := service.NewReportWriter().Write(result.Record, f); err != nil {
		return eris.Wrapf(err, "write report %s", path)
	}
	return nil
}

func init() {
	extractCmd.Flags().StringVar(&extractInput, "input", "", "invoice PDF")
	extractCmd.Flags().StringVar(&extractTemplate, "template", "", "vendor template name")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "report path (default <invoice_number>_extracted.xlsx next to the input)")
	extractCmd.Flags().StringVar(&extractTable, "table", "", "JSON file with pre-extracted table rows, header first")
	extractCmd.Flags().StringVar(&extractPassword, "password", "", "PDF password")
	_ = extractCmd.MarkFlagRequired("input")
	_ = extractCmd.MarkFlagRequired("template")
	rootCmd.AddCommand(extractCmd)
}
