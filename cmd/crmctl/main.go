// Command crmctl is the operator CLI for the console: KPI reports and SMS
// template rendering against the CRM backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	envFile    string
	backendURL string
	token      string
)

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Operator tools for the contract console",
	Long: `crmctl talks to the CRM backend directly.

Backend settings come from BACKEND_URL, BACKEND_TOKEN and BACKEND_TIMEOUT
(a .env file is read first when present); flags override them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "CRM backend base URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (overrides BACKEND_TOKEN)")

	rootCmd.AddCommand(kpiCmd, renderCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
