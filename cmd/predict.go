package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/engine"
)

var predictCmd = &cobra.Command{
	Use:   "predict <file>...",
	Short: "Upload files for classification and start a new scan session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv("")
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %d file(s)...\n", len(args))
		sub, err := e.client.PredictFiles(cmd.Context(), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session #%s created.\n", sub.SessionID)
		c := e.builder.Classifier()
		for _, f := range sub.Results {
			cls := c.Classify(f.Label)
			fmt.Fprintf(out, "  [%s] %s (%s)\n", cls.Severity, f.Filename, displayLabel(f))
		}
		for _, f := range sub.Failures {
			fmt.Fprintf(out, "  [FAILED] %s: %s\n", f.Filename, f.Error)
		}
		fmt.Fprintf(out, "\nRun 'malscan-report report show %s' for the full report.\n", sub.SessionID)
		return nil
	},
}

func displayLabel(f engine.FileResult) string {
	if f.Label == "" {
		return engine.UnlabeledType
	}
	return f.Label
}

func init() {
	rootCmd.AddCommand(predictCmd)
}
