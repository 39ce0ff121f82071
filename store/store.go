// Package store defines the persistence boundary. Drivers live in sub-packages
// (memory, mysql, mongo) and share the same sentinel errors from utils.
package store

import (
	"context"

	"github.com/mmdatafocus/autoservice_backend/models"
)

// Store is the unified storage interface for every persisted entity.
//
// Lookups by id return utils.ErrorRecordNotFound when absent. CreateInvoice and
// UpdateInvoice return utils.ErrorDuplicateKey when the invoice number is taken.
// Returned records are copies; mutating them has no effect until written back.
type Store interface {
	// Invoice methods
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error)
	// LatestInvoice is the most recently created invoice, or ErrorRecordNotFound when none exists.
	LatestInvoice(ctx context.Context) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id string) error

	// Customer methods
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	// GetCustomers returns the customers that exist among ids, in no particular order.
	GetCustomers(ctx context.Context, ids []string) ([]*models.Customer, error)
	// AppendPurchaseHistory is a no-op when an entry with the same id already exists.
	AppendPurchaseHistory(ctx context.Context, customerID string, entry models.PurchaseHistoryEntry) error
	// AppendNextService is a no-op when an entry with the same id already exists.
	AppendNextService(ctx context.Context, customerID string, entry models.NextService) error
	UpdateNextService(ctx context.Context, customerID string, entry models.NextService) error
	RemoveNextService(ctx context.Context, customerID string, entryID string) error

	// Catalog methods
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateService(ctx context.Context, s *models.Service) error
	GetService(ctx context.Context, id string) (*models.Service, error)

	// User methods
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	// Follow-up methods
	CreateFollowUp(ctx context.Context, f *models.CustomerFollowUp) error
	GetFollowUp(ctx context.Context, id string) (*models.CustomerFollowUp, error)
	ListFollowUps(ctx context.Context, filter models.FollowUpFilter) ([]*models.CustomerFollowUp, error)
	UpdateFollowUp(ctx context.Context, f *models.CustomerFollowUp) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
