package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/config"
	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/service"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "invoice-cli",
	Short:         "Extract and validate invoices from PDF files",
	Long:          "Reads vendor invoices using YAML templates, validates their arithmetic and writes Excel reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newService is swapped in tests.
var newService = service.NewInvoiceServiceFromConfig

// fileError ties an extraction failure to the file it came from.
type fileError struct {
	path string
	err  error
}

func (e *fileError) Error() string { return e.path + ": " + e.err.Error() }

func (e *fileError) Unwrap() error { return e.err }

// reportError prints err in the "[ERROR] <Kind>: <message>" form.
func reportError(w io.Writer, err error) {
	var fe *fileError
	if errors.As(err, &fe) {
		fmt.Fprintf(w, "[ERROR] %s: %s\n", dto.ErrorKind(fe.err), fe.err.Error())
		fmt.Fprintf(w, "File: %s\n", fe.path)
		return
	}
	fmt.Fprintf(w, "[ERROR] %s\n", err.Error())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}
