package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (backend, taxonomy, export settings)",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", path)
		for _, key := range config.Keys() {
			v, _ := cfg.Get(key)
			if key == "token" && v != "" {
				v = "********"
			}
			fmt.Fprintf(out, "%-26s %s\n", key, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file. Environment variables
named MALSCAN_<KEY> (dots become underscores) override the file at run time.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Edit the file as stored so env overrides are not persisted.
		cfg, err := config.LoadFile()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration updated: %s\n", args[0])
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys and their environment variables",
	Run: func(cmd *cobra.Command, args []string) {
		for _, key := range config.Keys() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", key, config.EnvName(key))
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}
