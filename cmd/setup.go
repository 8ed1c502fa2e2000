package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/malscan-report/pkg/backend"
	"github.com/user/malscan-report/pkg/config"
	"github.com/user/malscan-report/pkg/taxonomy"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Run: func(cmd *cobra.Command, args []string) {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("Welcome to malscan-report Setup Wizard")
		fmt.Println("--------------------------------------")

		cfg, err := config.LoadFile()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		// 1. Backend
		fmt.Printf("Step 1: Scan service URL [%s]\n", cfg.BackendURL)
		fmt.Print("> ")
		scanner.Scan()
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			cfg.BackendURL = strings.TrimRight(v, "/")
		}

		// 2. Token
		fmt.Println("\nStep 2: Access token (leave empty to keep the current one)")
		fmt.Print("> ")
		scanner.Scan()
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			cfg.Token = v
		}

		// 3. Check the service answers
		fmt.Println("\nStep 3: Checking the scan service...")
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		sessions, err := backend.NewClient(cfg.BackendURL, cfg.Token).ListSessions(ctx)
		cancel()
		if err != nil {
			fmt.Printf("Warning: Could not reach the service: %v\n", err)
			fmt.Println("The settings will be saved anyway.")
		} else {
			fmt.Printf("Connected. %d session(s) visible to this account.\n", len(sessions))
		}

		// 4. Taxonomy
		fmt.Println("\nStep 4: Choose the severity taxonomy")
		fmt.Println("1. report   (High / Medium / None)")
		fmt.Println("2. extended (High / Medium / Low / None)")
		fmt.Println("Or enter a path to a taxonomy YAML file.")
		fmt.Printf("Enter number, name or path [%s] > ", cfg.Taxonomy)
		scanner.Scan()
		choice := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(choice) {
		case "":
		case "1", "report":
			cfg.Taxonomy = "report"
		case "2", "extended":
			cfg.Taxonomy = "extended"
		default:
			if _, err := taxonomy.Load(choice); err != nil {
				fmt.Printf("Invalid taxonomy: %v. Keeping %s.\n", err, cfg.Taxonomy)
			} else {
				cfg.Taxonomy = choice
			}
		}

		// 5. Save Configuration
		fmt.Println("\nStep 5: Saving Configuration...")
		if err := config.SaveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}

		fmt.Println("--------------------------------------")
		fmt.Println("Setup Complete!")
		fmt.Printf("Service:  %s\n", cfg.BackendURL)
		fmt.Printf("Taxonomy: %s\n", cfg.Taxonomy)
		fmt.Println("You can now run 'malscan-report interactive'")
	},
}

func init() {
	configCmd.AddCommand(setupCmd)
}
