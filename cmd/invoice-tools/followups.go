package main

import (
	"fmt"

	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/spf13/cobra"
)

func newFollowUpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followups",
		Short: "Inspect and re-apply customer follow-ups recorded by invoice creation",
	}

	retry := &cobra.Command{
		Use:   "retry",
		Short: "Apply PENDING and FAILED follow-ups that still have attempts left",
		Example: `  invoice-tools followups retry
  invoice-tools followups retry --limit 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			return withInvoiceService(cmd.Context(), func(svc *workflow.InvoiceService) error {
				processed, failed, err := svc.ProcessPendingFollowUps(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed=%d succeeded=%d failed=%d\n", processed, processed-failed, failed)
				return nil
			})
		},
	}
	retry.Flags().Int("limit", 100, "maximum number of follow-ups to apply")

	replay := &cobra.Command{
		Use:   "replay <follow-up-id>",
		Short: "Apply one follow-up again regardless of its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInvoiceService(cmd.Context(), func(svc *workflow.InvoiceService) error {
				fu, err := svc.ReplayFollowUp(cmd.Context(), operator, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "follow-up %s: status=%s attempts=%d\n", fu.ID, fu.Status, fu.Attempts)
				return nil
			})
		},
	}

	cmd.AddCommand(retry, replay)
	return cmd
}
