package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/backend"
	"github.com/user/malscan-report/pkg/engine"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Browse scan sessions interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv("")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		loader := backend.NewLoader(e.client)
		defer loader.Close()

		var (
			mu      sync.Mutex
			current *engine.SessionReport
		)

		open := func(id string) {
			fmt.Printf("Loading session #%s...\n", id)
			go func() {
				s, err := loader.Load(ctx, engine.SessionID(id))
				if errors.Is(err, backend.ErrFetchCancelled) {
					return
				}
				if err != nil {
					fmt.Printf("\r\033[KError: %v\n> ", err)
					return
				}
				r, err := e.builder.Build(*s)
				if err != nil {
					fmt.Printf("\r\033[KError: %v\n> ", err)
					return
				}
				out, err := engine.Summary(r)
				if err != nil {
					fmt.Printf("\r\033[KError: %v\n> ", err)
					return
				}
				mu.Lock()
				current = r
				mu.Unlock()
				fmt.Printf("\r\033[K%s\n> ", out)
			}()
		}

		withCurrent := func(fn func(r *engine.SessionReport)) {
			mu.Lock()
			r := current
			mu.Unlock()
			if r == nil {
				fmt.Println("No session open. Use 'open <id>' first.")
				return
			}
			fn(r)
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Println("\n---------------------------------------------------------")
		fmt.Printf("Connected to %s (taxonomy %s).\n", e.cfg.BackendURL, e.builder.Classifier().Table().Name)
		fmt.Println("Commands: open <id>, plan, csv, pdf, quit")
		fmt.Println("Opening a session while another is loading replaces it.")
		fmt.Println("---------------------------------------------------------")

		for {
			fmt.Print("\n> ")
			if !scanner.Scan() {
				break
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}

			switch strings.ToLower(fields[0]) {
			case "quit", "exit":
				return nil
			case "open":
				if len(fields) != 2 {
					fmt.Println("Usage: open <session-id>")
					continue
				}
				open(fields[1])
			case "plan":
				withCurrent(func(r *engine.SessionReport) {
					plan := engine.ActionPlan(r)
					if len(plan) == 0 {
						fmt.Println("Nothing to do: no threats in this session.")
						return
					}
					for _, item := range plan {
						fmt.Printf("[%s] %s: %s\n", item.Severity, item.Recommendation, strings.Join(item.Files, ", "))
					}
				})
			case "csv":
				withCurrent(func(r *engine.SessionReport) {
					path, err := e.exportTabular(r, "")
					if err != nil {
						fmt.Printf("Error: %v\n", err)
						return
					}
					fmt.Printf("Report written to %s\n", path)
				})
			case "pdf":
				withCurrent(func(r *engine.SessionReport) {
					fmt.Println("Rendering report in headless browser...")
					path, err := e.exportDocument(ctx, r, "")
					if err != nil {
						fmt.Printf("Error: %v\n", err)
						return
					}
					fmt.Printf("Report written to %s\n", path)
				})
			default:
				// A bare id opens that session.
				if len(fields) == 1 {
					open(fields[0])
					continue
				}
				fmt.Println("Unknown command. Try: open <id>, plan, csv, pdf, quit")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
