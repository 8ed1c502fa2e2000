package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/engine"
)

var (
	dashboardTaxonomy string
	dashboardJSON     bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse scan session history",
}

// privilegedEnv loads the environment for history views, which only
// privileged accounts may use.
func privilegedEnv(taxonomyRef string) (*env, error) {
	e, err := loadEnv(taxonomyRef)
	if err != nil {
		return nil, err
	}
	if !e.cfg.Privileged {
		return nil, fmt.Errorf("session history requires a privileged account (set 'privileged: true' with 'malscan-report config set privileged true')")
	}
	return e, nil
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scan sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := privilegedEnv("")
		if err != nil {
			return err
		}

		list, err := e.client.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scan sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSCANNED AT\tFILES\tTHREATS")
		for _, s := range list {
			r, err := e.builder.Build(s.Session)
			if err != nil {
				fmt.Fprintf(w, "#%s\t%s\t%d\tinvalid\n", s.ID, scannedAtColumn(s.ScannedAt), s.FileCount)
				continue
			}
			fmt.Fprintf(w, "#%s\t%s\t%d\t%d\n", s.ID, scannedAtColumn(s.ScannedAt), s.FileCount, r.ThreatCount())
		}
		return w.Flush()
	},
}

var sessionsDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Threat overview across all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := privilegedEnv(dashboardTaxonomy)
		if err != nil {
			return err
		}

		list, err := e.client.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		sessions := make([]engine.Session, len(list))
		for i, s := range list {
			sessions[i] = s.Session
		}

		d := e.builder.Dashboard(sessions, time.Now())
		if dashboardJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		fmt.Fprint(cmd.OutOrStdout(), d.String())
		return nil
	},
}

func scannedAtColumn(ts engine.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.DateTime)
}

func init() {
	sessionsDashboardCmd.Flags().StringVarP(&dashboardTaxonomy, "taxonomy", "t", "extended", "Taxonomy name or YAML path used for the risk breakdown")
	sessionsDashboardCmd.Flags().BoolVar(&dashboardJSON, "json", false, "Print the dashboard as JSON")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDashboardCmd)
	rootCmd.AddCommand(sessionsCmd)
}
