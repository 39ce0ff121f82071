// invoice-tools runs operational jobs against the invoice store.
//
// Usage (from backend directory):
//
//	go run ./cmd/invoice-tools followups retry --limit 200
//	go run ./cmd/invoice-tools followups replay <follow-up-id>
//	go run ./cmd/invoice-tools analytics export --start-date 2024-01-01 --end-date 2024-03-31 --out ./analytics.xlsx
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/store/backend"
	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// operator is the identity CLI jobs act as.
var operator = workflow.Actor{UserId: "invoice-tools", Role: models.UserRoleAdmin}

var rootCmd = &cobra.Command{
	Use:           "invoice-tools",
	Short:         "Operational jobs for the invoicing backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		config.GetLogger().WithFields(logrus.Fields{"field": "invoice-tools"}).Error(err.Error())
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newFollowUpsCmd(), newAnalyticsCmd())
}

// withInvoiceService opens the configured store and hands fn an invoice service bound to it.
func withInvoiceService(ctx context.Context, fn func(svc *workflow.InvoiceService) error) error {
	st, err := backend.Open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore(st)

	svc := workflow.NewInvoiceService(st, config.GetLogger())
	svc.MaxFollowUpAttempts = config.FollowUpMaxAttempts()
	svc.FollowUpStaleAfter = config.FollowUpStaleAfter()
	return fn(svc)
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		config.GetLogger().WithFields(logrus.Fields{"field": "store"}).Warn("close store: " + err.Error())
	}
}
