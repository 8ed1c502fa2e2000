package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect and validate severity taxonomies",
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show [name|path]",
	Short: "Print a taxonomy table as YAML (default: the configured one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := firstArg(args)
		if ref == "" {
			e, err := loadEnv("")
			if err != nil {
				return err
			}
			ref = e.cfg.Taxonomy
		}
		t, err := taxonomy.Resolve(ref)
		if err != nil {
			return err
		}
		data, err := t.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var taxonomyValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check a taxonomy YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := taxonomy.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (version %s), %d labels, tiers %v, fallback %s\n",
			args[0], t.Version, len(t.Rules), t.Severities, t.Fallback.Severity)
		return nil
	},
}

func init() {
	taxonomyCmd.AddCommand(taxonomyShowCmd)
	taxonomyCmd.AddCommand(taxonomyValidateCmd)
	rootCmd.AddCommand(taxonomyCmd)
}
