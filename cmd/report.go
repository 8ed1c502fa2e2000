package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/engine"
)

var (
	reportTaxonomy string
	reportFile     string
	reportJSON     bool
	exportFormat   string
	exportOutDir   string
	diffBaseFile   string
	diffCurFile    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show, export and compare scan session reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print the severity report for a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(reportTaxonomy)
		if err != nil {
			return err
		}
		r, err := e.report(cmd.Context(), firstArg(args), reportFile)
		if err != nil {
			return err
		}

		if reportJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		out, err := engine.Summary(r)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write the session report as CSV or PDF",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFormat)
		if format != "csv" && format != "pdf" {
			return fmt.Errorf("unsupported format %q (use csv or pdf)", exportFormat)
		}

		e, err := loadEnv(reportTaxonomy)
		if err != nil {
			return err
		}
		r, err := e.report(cmd.Context(), firstArg(args), reportFile)
		if err != nil {
			return err
		}

		var path string
		if format == "csv" {
			path, err = e.exportTabular(r, exportOutDir)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), "Rendering report in headless browser...")
			path, err = e.exportDocument(cmd.Context(), r, exportOutDir)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
		return nil
	},
}

var reportDiffCmd = &cobra.Command{
	Use:   "diff [baseline-id] [current-id]",
	Short: "Compare a session against a baseline session",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(reportTaxonomy)
		if err != nil {
			return err
		}

		var baseID, curID string
		switch {
		case len(args) == 2:
			baseID, curID = args[0], args[1]
		case len(args) == 1 && diffBaseFile != "":
			curID = args[0]
		case len(args) == 1:
			baseID = args[0]
		}

		baseline, err := e.report(cmd.Context(), baseID, diffBaseFile)
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		current, err := e.report(cmd.Context(), curID, diffCurFile)
		if err != nil {
			return fmt.Errorf("current: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), engine.Compare(baseline, current).String())
		return nil
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	reportCmd.PersistentFlags().StringVarP(&reportTaxonomy, "taxonomy", "t", "", "Taxonomy name (report, extended) or YAML path; defaults to config")

	reportShowCmd.Flags().StringVarP(&reportFile, "file", "f", "", "Read the session from a JSON file instead of the service")
	reportShowCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report model as JSON")

	reportExportCmd.Flags().StringVarP(&reportFile, "file", "f", "", "Read the session from a JSON file instead of the service")
	reportExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format: csv or pdf")
	reportExportCmd.Flags().StringVarP(&exportOutDir, "out", "o", "", "Output directory; defaults to config output_dir")

	reportDiffCmd.Flags().StringVar(&diffBaseFile, "baseline-file", "", "Read the baseline session from a JSON file")
	reportDiffCmd.Flags().StringVar(&diffCurFile, "current-file", "", "Read the current session from a JSON file")

	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportExportCmd)
	reportCmd.AddCommand(reportDiffCmd)
	rootCmd.AddCommand(reportCmd)
}
