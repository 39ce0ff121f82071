// Package memory is an in-process Store used by tests and by STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// invoices keyed by id; invoiceOrder keeps insertion order for tie-breaking
	invoices     map[string]*models.Invoice
	invoiceOrder []string
	numbers      map[string]string

	customers map[string]*models.Customer
	products  map[string]*models.Product
	services  map[string]*models.Service

	users      map[string]*models.User
	userEmails map[string]string

	followUps     map[string]*models.CustomerFollowUp
	followUpOrder []string
}

func New() *Store {
	return &Store{
		invoices:   make(map[string]*models.Invoice),
		numbers:    make(map[string]string),
		customers:  make(map[string]*models.Customer),
		products:   make(map[string]*models.Product),
		services:   make(map[string]*models.Service),
		users:      make(map[string]*models.User),
		userEmails: make(map[string]string),
		followUps:  make(map[string]*models.CustomerFollowUp),
	}
}

// Invoice Store implementation
func (s *Store) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID]; exists {
		return utils.ErrorDuplicateKey
	}
	if _, taken := s.numbers[inv.InvoiceNumber]; taken {
		return utils.ErrorDuplicateKey
	}
	s.invoices[inv.ID] = inv.Clone()
	s.numbers[inv.InvoiceNumber] = inv.ID
	s.invoiceOrder = append(s.invoiceOrder, inv.ID)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[id]; ok {
		return inv.Clone(), nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) ListInvoices(_ context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Invoice, 0)
	for _, id := range s.invoiceOrder {
		inv := s.invoices[id]
		if filter.Matches(inv) {
			result = append(result, inv.Clone())
		}
	}
	// newest first, insertion order breaking ties
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) LatestInvoice(_ context.Context) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Invoice
	for _, id := range s.invoiceOrder {
		inv := s.invoices[id]
		if latest == nil || !inv.CreatedAt.Before(latest.CreatedAt) {
			latest = inv
		}
	}
	if latest == nil {
		return nil, utils.ErrorRecordNotFound
	}
	return latest.Clone(), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.invoices[inv.ID]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	if owner, taken := s.numbers[inv.InvoiceNumber]; taken && owner != inv.ID {
		return utils.ErrorDuplicateKey
	}
	delete(s.numbers, current.InvoiceNumber)
	s.numbers[inv.InvoiceNumber] = inv.ID
	s.invoices[inv.ID] = inv.Clone()
	return nil
}

func (s *Store) DeleteInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	delete(s.numbers, inv.InvoiceNumber)
	delete(s.invoices, id)
	for i, existing := range s.invoiceOrder {
		if existing == id {
			s.invoiceOrder = append(s.invoiceOrder[:i], s.invoiceOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Customer Store implementation
func (s *Store) CreateCustomer(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID]; exists {
		return utils.ErrorDuplicateKey
	}
	s.customers[c.ID] = c.Clone()
	return nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customers[id]; ok {
		return c.Clone(), nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) GetCustomers(_ context.Context, ids []string) ([]*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Customer, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.customers[id]; ok {
			result = append(result, c.Clone())
		}
	}
	return result, nil
}

func (s *Store) AppendPurchaseHistory(_ context.Context, customerID string, entry models.PurchaseHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	for _, existing := range c.PurchaseHistory {
		if existing.ID == entry.ID {
			return nil
		}
	}
	entry.CustomerId = customerID
	c.PurchaseHistory = append(c.PurchaseHistory, entry)
	return nil
}

func (s *Store) AppendNextService(_ context.Context, customerID string, entry models.NextService) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	for _, existing := range c.NextServices {
		if existing.ID == entry.ID {
			return nil
		}
	}
	entry.CustomerId = customerID
	c.NextServices = append(c.NextServices, entry)
	return nil
}

func (s *Store) UpdateNextService(_ context.Context, customerID string, entry models.NextService) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	for i := range c.NextServices {
		if c.NextServices[i].ID == entry.ID {
			entry.CustomerId = customerID
			c.NextServices[i] = entry
			return nil
		}
	}
	return utils.ErrorRecordNotFound
}

func (s *Store) RemoveNextService(_ context.Context, customerID string, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	kept := c.NextServices[:0]
	for _, ns := range c.NextServices {
		if ns.ID != entryID {
			kept = append(kept, ns)
		}
	}
	c.NextServices = kept
	return nil
}

// Catalog Store implementation
func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return utils.ErrorDuplicateKey
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) CreateService(_ context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.services[svc.ID]; exists {
		return utils.ErrorDuplicateKey
	}
	cp := *svc
	s.services[svc.ID] = &cp
	return nil
}

func (s *Store) GetService(_ context.Context, id string) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if svc, ok := s.services[id]; ok {
		cp := *svc
		return &cp, nil
	}
	return nil, utils.ErrorRecordNotFound
}

// User Store implementation
func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return utils.ErrorDuplicateKey
	}
	cp := *u
	cp.Email = models.NormalizeEmail(u.Email)
	if _, taken := s.userEmails[cp.Email]; taken {
		return utils.ErrorDuplicateKey
	}
	s.users[u.ID] = &cp
	s.userEmails[cp.Email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) GetUsers(_ context.Context, ids []string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.userEmails[models.NormalizeEmail(email)]; ok {
		cp := *s.users[id]
		return &cp, nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	cp := *u
	cp.Email = models.NormalizeEmail(u.Email)
	if owner, taken := s.userEmails[cp.Email]; taken && owner != u.ID {
		return utils.ErrorDuplicateKey
	}
	delete(s.userEmails, current.Email)
	s.users[u.ID] = &cp
	s.userEmails[cp.Email] = u.ID
	return nil
}

// Follow-up Store implementation
func (s *Store) CreateFollowUp(_ context.Context, f *models.CustomerFollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.followUps[f.ID]; exists {
		return utils.ErrorDuplicateKey
	}
	cp := *f
	s.followUps[f.ID] = &cp
	s.followUpOrder = append(s.followUpOrder, f.ID)
	return nil
}

func (s *Store) GetFollowUp(_ context.Context, id string) (*models.CustomerFollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.followUps[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) ListFollowUps(_ context.Context, filter models.FollowUpFilter) ([]*models.CustomerFollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.CustomerFollowUp, 0)
	for _, id := range s.followUpOrder {
		f := s.followUps[id]
		if !filter.Matches(f) {
			continue
		}
		cp := *f
		result = append(result, &cp)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) UpdateFollowUp(_ context.Context, f *models.CustomerFollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.followUps[f.ID]; !ok {
		return utils.ErrorRecordNotFound
	}
	cp := *f
	s.followUps[f.ID] = &cp
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
