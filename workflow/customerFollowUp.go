package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
)

// recordFollowUps persists the customer writes that follow a committed invoice and applies
// them straight away. Failures stay on the follow-up record for the worker to retry; they
// never undo the invoice.
func (s *InvoiceService) recordFollowUps(ctx context.Context, inv *models.Invoice) []*models.CustomerFollowUp {
	now := inv.CreatedAt
	followUps := []*models.CustomerFollowUp{{
		ID:            uuid.NewString(),
		Kind:          models.FollowUpKindPurchaseHistory,
		InvoiceId:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerId:    inv.CustomerId,
		Date:          now,
		Amount:        inv.Total,
		Status:        models.FollowUpStatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}}
	if inv.NextServiceDate != nil {
		if item, ok := inv.FirstServiceItem(); ok {
			followUps = append(followUps, &models.CustomerFollowUp{
				ID:            uuid.NewString(),
				Kind:          models.FollowUpKindNextService,
				InvoiceId:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				CustomerId:    inv.CustomerId,
				Date:          *inv.NextServiceDate,
				ServiceId:     item.ItemId,
				ServiceName:   item.Name,
				Notes:         fmt.Sprintf("Scheduled from Invoice #%s", inv.InvoiceNumber),
				Status:        models.FollowUpStatusProcessing,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
	}

	for _, fu := range followUps {
		if err := s.Store.CreateFollowUp(ctx, fu); err != nil {
			config.LogErrorContext(ctx, s.Logger, "customerFollowUp.go", "recordFollowUps", "CreateFollowUp", fu, err)
		}
		_ = s.attemptFollowUp(ctx, fu)
	}
	return followUps
}

// attemptFollowUp applies fu once and stores the outcome on the record.
func (s *InvoiceService) attemptFollowUp(ctx context.Context, fu *models.CustomerFollowUp) error {
	applyErr := s.applyFollowUp(ctx, fu)

	now := s.Clock.Now()
	fu.Attempts++
	fu.UpdatedAt = now
	if applyErr != nil {
		msg := applyErr.Error()
		fu.LastError = &msg
		fu.Status = models.FollowUpStatusFailed
		if s.MaxFollowUpAttempts > 0 && fu.Attempts >= s.MaxFollowUpAttempts {
			fu.Status = models.FollowUpStatusDead
		}
		s.Logger.WithFields(logrus.Fields{
			"field":          "attemptFollowUp",
			"follow_up_id":   fu.ID,
			"kind":           fu.Kind,
			"invoice_number": fu.InvoiceNumber,
			"customer_id":    fu.CustomerId,
			"attempts":       fu.Attempts,
			"status":         fu.Status,
			"error":          msg,
		}).Error("customer follow-up failed")
	} else {
		fu.Status = models.FollowUpStatusSucceeded
		fu.LastError = nil
		fu.ProcessedAt = &now
	}

	if err := s.Store.UpdateFollowUp(ctx, fu); err != nil {
		config.LogErrorContext(ctx, s.Logger, "customerFollowUp.go", "attemptFollowUp", "UpdateFollowUp", fu.ID, err)
	}
	return applyErr
}

func (s *InvoiceService) applyFollowUp(ctx context.Context, fu *models.CustomerFollowUp) error {
	switch fu.Kind {
	case models.FollowUpKindPurchaseHistory:
		return s.Store.AppendPurchaseHistory(ctx, fu.CustomerId, fu.PurchaseHistoryEntry())
	case models.FollowUpKindNextService:
		return s.Store.AppendNextService(ctx, fu.CustomerId, fu.NextService())
	default:
		return fmt.Errorf("unknown follow-up kind %q", fu.Kind)
	}
}

// ProcessPendingFollowUps retries up to limit PENDING or FAILED follow-ups that still have
// attempts left, plus PROCESSING ones abandoned for longer than FollowUpStaleAfter.
// It stops early when ctx is cancelled.
func (s *InvoiceService) ProcessPendingFollowUps(ctx context.Context, limit int) (processed int, failed int, err error) {
	staleBefore := s.Clock.Now().Add(-s.FollowUpStaleAfter)
	stale, err := s.Store.ListFollowUps(ctx, models.FollowUpFilter{
		Statuses:      []models.FollowUpStatus{models.FollowUpStatusProcessing},
		MaxAttempts:   s.MaxFollowUpAttempts,
		UpdatedBefore: &staleBefore,
		Limit:         limit,
	})
	if err != nil {
		return 0, 0, utils.WrapAppError(utils.KindInternal, err, "failed to list follow-ups")
	}
	pending := stale
	if remaining := limit - len(stale); remaining > 0 || limit <= 0 {
		retryable, err := s.Store.ListFollowUps(ctx, models.FollowUpFilter{
			Statuses:    []models.FollowUpStatus{models.FollowUpStatusPending, models.FollowUpStatusFailed},
			MaxAttempts: s.MaxFollowUpAttempts,
			Limit:       max(remaining, 0),
		})
		if err != nil {
			return 0, 0, utils.WrapAppError(utils.KindInternal, err, "failed to list follow-ups")
		}
		pending = append(pending, retryable...)
	}
	for _, fu := range pending {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		processed++
		if err := s.attemptFollowUp(ctx, fu); err != nil {
			failed++
		}
	}
	return processed, failed, nil
}

func (s *InvoiceService) ListFollowUps(ctx context.Context, actor Actor, filter models.FollowUpFilter) ([]*models.CustomerFollowUp, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	followUps, err := s.Store.ListFollowUps(ctx, filter)
	if err != nil {
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to list follow-ups")
	}
	return followUps, nil
}

// ReplayFollowUp applies one follow-up again regardless of its status or attempt count.
// Re-applying a succeeded follow-up leaves the customer unchanged.
func (s *InvoiceService) ReplayFollowUp(ctx context.Context, actor Actor, id string) (*models.CustomerFollowUp, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	fu, err := s.Store.GetFollowUp(ctx, id)
	if err != nil {
		return nil, lookupError(err, "follow-up", id)
	}
	if err := s.attemptFollowUp(ctx, fu); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return fu, utils.WrapAppError(utils.KindNotFound, err, "customer with ID %s not found", fu.CustomerId)
		}
		return fu, utils.WrapAppError(utils.KindInternal, err, "failed to apply follow-up %s", fu.ID)
	}
	return fu, nil
}
