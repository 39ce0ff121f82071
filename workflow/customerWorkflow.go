package workflow

import (
	"context"
	"errors"

	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
)

// CustomerService covers the customer reads and next-service edits that sit next to invoicing.
type CustomerService struct {
	Store  store.Store
	Logger *logrus.Logger
}

func NewCustomerService(st store.Store, logger *logrus.Logger) *CustomerService {
	return &CustomerService{Store: st, Logger: logger}
}

func (s *CustomerService) GetCustomer(ctx context.Context, actor Actor, id string) (*models.Customer, error) {
	c, err := s.Store.GetCustomer(ctx, id)
	if err != nil {
		return nil, lookupError(err, "customer", id)
	}
	if err := authorizeOwner(actor, c.UserId, "customer"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) UpdateNextService(ctx context.Context, actor Actor, customerId string, entryId string, patch *models.NextServicePatch) (*models.Customer, error) {
	c, err := s.GetCustomer(ctx, actor, customerId)
	if err != nil {
		return nil, err
	}
	var entry *models.NextService
	for i := range c.NextServices {
		if c.NextServices[i].ID == entryId {
			entry = &c.NextServices[i]
			break
		}
	}
	if entry == nil {
		return nil, utils.NewAppError(utils.KindNotFound, "next service with ID %s not found", entryId)
	}
	patch.Apply(entry)
	if err := s.Store.UpdateNextService(ctx, customerId, *entry); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewAppError(utils.KindNotFound, "next service with ID %s not found", entryId)
		}
		config.LogErrorContext(ctx, s.Logger, "customerWorkflow.go", "UpdateNextService", "UpdateNextService", entry, err)
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to update next service")
	}
	return s.GetCustomer(ctx, actor, customerId)
}

// RemoveNextService drops one entry; removing an entry that is already gone is not an error.
func (s *CustomerService) RemoveNextService(ctx context.Context, actor Actor, customerId string, entryId string) (*models.Customer, error) {
	if _, err := s.GetCustomer(ctx, actor, customerId); err != nil {
		return nil, err
	}
	if err := s.Store.RemoveNextService(ctx, customerId, entryId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, lookupError(err, "customer", customerId)
		}
		config.LogErrorContext(ctx, s.Logger, "customerWorkflow.go", "RemoveNextService", "RemoveNextService", entryId, err)
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to remove next service")
	}
	return s.GetCustomer(ctx, actor, customerId)
}
