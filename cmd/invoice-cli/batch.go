package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/service"
)

var (
	batchTemplate  string
	batchWorkers   int
	batchOutputDir string
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Extract many invoices with one template",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		workers := batchWorkers
		if workers <= 0 {
			workers = cfg.Batch.Workers
		}

		if batchOutputDir != "" {
			if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
				return eris.Wrapf(err, "create output dir %s", batchOutputDir)
			}
		}

		out := cmd.OutOrStdout()
		failed := 0
		sources := make([]service.ExtractSource, 0, len(args))
		for _, path := range args {
			src, err := service.SourceFromFile(path, batchTemplate, "")
			if err != nil {
				reportError(out, &fileError{path: path, err: err})
				failed++
				continue
			}
			sources = append(sources, src)
		}

		results := svc.ExtractBatch(cmd.Context(), sources, workers)
		for i, r := range results {
			path := sources[i].Name
			if r.Err != nil {
				reportError(out, &fileError{path: path, err: r.Err})
				failed++
				continue
			}
			printSuccess(out, r.Source, r.Invoice, r.Notes)
			if batchOutputDir != "" {
				report := filepath.Join(batchOutputDir, service.ReportFileName(r.Invoice))
				if err := writeReport(&service.ExtractResult{Record: r.Invoice}, report); err != nil {
					return err
				}
				fmt.Fprintf(out, "Report: %s\n", report)
			}
		}

		if failed > 0 {
			return eris.Errorf("%d of %d documents failed", failed, len(args))
		}
		return nil
	},
}

func printSuccess(w io.Writer, source string, record *dto.InvoiceRecord, notes []string) {
	fmt.Fprintf(w, "[OK] %s: invoice %s, %d line items, grand total %s\n",
		source, record.InvoiceNumber, len(record.LineItems), record.GrandTotalRounded.StringFixed(2))
	for _, n := range notes {
		fmt.Fprintf(w, "  note: %s\n", n)
	}
}

func init() {
	batchCmd.Flags().StringVar(&batchTemplate, "template", "", "vendor template name")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "documents processed concurrently (default batch.workers)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "write an Excel report per invoice into this directory")
	_ = batchCmd.MarkFlagRequired("template")
	rootCmd.AddCommand(batchCmd)
}
