package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the available vendor templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cfg)
		if err != nil {
			return err
		}
		for _, t := range svc.Templates() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-8s %s\n", t.Name, t.ExtractionMode, t.TaxMode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
