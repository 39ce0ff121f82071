package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models/reports"
	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/spf13/cobra"
)

func newAnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Invoice analytics across all users",
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the invoice analytics workbook (XLSX)",
		Long: `Write the invoice analytics workbook for every user's invoices.

Without --start-date and --end-date the last month is used. Both must be given together
and are read as UTC days: the range runs from the start of --start-date to the end
of --end-date, the same as the HTTP analytics query.`,
		Example: `  invoice-tools analytics export --out ./reports/
  invoice-tools analytics export --start-date 2024-01-01 --end-date 2024-03-31 --out q1.xlsx`,
		Args: cobra.NoArgs,
		RunE: runAnalyticsExport,
	}
	export.Flags().String("start-date", "", "first day to include (YYYY-MM-DD)")
	export.Flags().String("end-date", "", "last day to include (YYYY-MM-DD)")
	export.Flags().String("out", ".", "output file, or a directory to write the default file name into")

	cmd.AddCommand(export)
	return cmd
}

func runAnalyticsExport(cmd *cobra.Command, _ []string) error {
	rawStart, _ := cmd.Flags().GetString("start-date")
	rawEnd, _ := cmd.Flags().GetString("end-date")
	out, _ := cmd.Flags().GetString("out")

	dateRange, err := parseDateRange(rawStart, rawEnd)
	if err != nil {
		return err
	}

	return withInvoiceService(cmd.Context(), func(svc *workflow.InvoiceService) error {
		buf, fileName, err := svc.ExportInvoiceAnalytics(cmd.Context(), operator, dateRange)
		if err != nil {
			return err
		}
		path := out
		if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
			path = filepath.Join(out, fileName)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, buf.Len())
		return nil
	})
}

func parseDateRange(rawStart string, rawEnd string) (*reports.DateRange, error) {
	rawStart, rawEnd = strings.TrimSpace(rawStart), strings.TrimSpace(rawEnd)
	if rawStart == "" && rawEnd == "" {
		return nil, nil
	}
	if rawStart == "" || rawEnd == "" {
		return nil, fmt.Errorf("--start-date and --end-date must be given together")
	}
	start, err := time.Parse("2006-01-02", rawStart)
	if err != nil {
		return nil, fmt.Errorf("invalid --start-date %q: %w", rawStart, err)
	}
	end, err := time.Parse("2006-01-02", rawEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid --end-date %q: %w", rawEnd, err)
	}
	return &reports.DateRange{StartDate: start, EndDate: reports.EndOfDay(end)}, nil
}
