package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "malscan-report",
	Short: "Severity reports and exports for malware scan sessions",
	Long: `malscan-report fetches malware prediction sessions from the scan service,
scores every file against a severity taxonomy and renders the result as a
terminal summary, a CSV table or a paginated PDF.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetDebug(DebugMode)
	},
}

var DebugMode bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
}
