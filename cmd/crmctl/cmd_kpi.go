package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"contract-sender/internal/backend"
	"contract-sender/internal/config"
	"contract-sender/internal/reporting"

	"github.com/spf13/cobra"
)

var (
	kpiRange string
	kpiXLSX  string
)

// kpiCmd prints or exports the KPI report
var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Compute the call KPI report",
	Long: `Fetch call logs and the user roster from the backend and aggregate them.

Ranges: today, 7, 30, 90, 365, all. The report is printed as JSON unless
--xlsx is given, in which case a workbook is written instead.`,
	RunE: runKPI,
}

func init() {
	kpiCmd.Flags().StringVarP(&kpiRange, "range", "r", "30", "date range: today, 7, 30, 90, 365 or all")
	kpiCmd.Flags().StringVar(&kpiXLSX, "xlsx", "", "write an xlsx workbook to this path (a directory gets the default file name)")
}

func newClient() (*backend.Client, error) {
	cfg, err := config.LoadBackend(envFile)
	if backendURL != "" {
		cfg.BaseURL = backendURL
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := backend.NewClient(cfg.BaseURL, cfg.Timeout)
	if cfg.CallLogLimit > 0 {
		c.CallLogLimit = cfg.CallLogLimit
	}
	c.Token = cfg.Token
	if token != "" {
		c.Token = token
	}
	return c, nil
}

func runKPI(cmd *cobra.Command, args []string) error {
	r, err := reporting.ParseRange(kpiRange)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := reporting.NewService(client).Report(ctx, r)
	if err != nil {
		return fmt.Errorf("kpi report: %w", err)
	}

	if kpiXLSX == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	data, err := reporting.ExportXLSX(report)
	if err != nil {
		return err
	}
	path := kpiXLSX
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = path + string(os.PathSeparator) + reporting.ExportFilename(report)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d users, %d calls)\n", path, len(report.Users), report.Overall.TotalCalls)
	return nil
}
