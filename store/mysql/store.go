// Package mysql is the gorm-backed Store used in production.
package mysql

import (
	"context"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

// New wraps an open connection, normally config.ConnectDatabaseWithRetry().
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrorRecordNotFound
	case isDuplicateKeyErr(err):
		return utils.ErrorDuplicateKey
	default:
		return err
	}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Invoice Store implementation
func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	for i := range inv.Items {
		inv.Items[i].InvoiceId = inv.ID
		inv.Items[i].Position = i
	}
	return translate(s.db.WithContext(ctx).Create(inv).Error)
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Items", orderedItems).First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	dbCtx := s.db.WithContext(ctx).Preload("Items", orderedItems)
	if filter.UserId != "" {
		dbCtx = dbCtx.Where("user_id = ?", filter.UserId)
	}
	if filter.CustomerId != "" {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		dbCtx = dbCtx.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		dbCtx = dbCtx.Where("date <= ?", *filter.DateTo)
	}
	var results []*models.Invoice
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) LatestInvoice(ctx context.Context) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Order("created_at DESC").First(&inv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

// UpdateInvoice rewrites the invoice row and replaces its line items in one transaction.
func (s *Store) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Invoice
		if err := tx.Select("id").First(&existing, "id = ?", inv.ID).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		if len(inv.Items) == 0 {
			return nil
		}
		for i := range inv.Items {
			inv.Items[i].InvoiceId = inv.ID
			inv.Items[i].Position = i
		}
		return tx.Create(&inv.Items).Error
	}))
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Invoice{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}))
}

// Customer Store implementation
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).
		Preload("PurchaseHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("NextServices", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) GetCustomers(ctx context.Context, ids []string) ([]*models.Customer, error) {
	var results []*models.Customer
	if len(ids) == 0 {
		return results, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) customerExists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (s *Store) AppendPurchaseHistory(ctx context.Context, customerID string, entry models.PurchaseHistoryEntry) error {
	db := s.db.WithContext(ctx)
	if err := s.customerExists(db, customerID); err != nil {
		return err
	}
	entry.CustomerId = customerID
	return translate(db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error)
}

func (s *Store) AppendNextService(ctx context.Context, customerID string, entry models.NextService) error {
	db := s.db.WithContext(ctx)
	if err := s.customerExists(db, customerID); err != nil {
		return err
	}
	entry.CustomerId = customerID
	return translate(db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error)
}

func (s *Store) UpdateNextService(ctx context.Context, customerID string, entry models.NextService) error {
	db := s.db.WithContext(ctx)
	var existing models.NextService
	if err := db.First(&existing, "id = ? AND customer_id = ?", entry.ID, customerID).Error; err != nil {
		return translate(err)
	}
	return db.Model(&existing).Updates(map[string]interface{}{
		"ServiceId":   entry.ServiceId,
		"ServiceName": entry.ServiceName,
		"Date":        entry.Date,
		"Notes":       entry.Notes,
	}).Error
}

func (s *Store) RemoveNextService(ctx context.Context, customerID string, entryID string) error {
	db := s.db.WithContext(ctx)
	if err := s.customerExists(db, customerID); err != nil {
		return err
	}
	return db.Where("id = ? AND customer_id = ?", entryID, customerID).Delete(&models.NextService{}).Error
}

// Catalog Store implementation
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	return translate(s.db.WithContext(ctx).Create(svc).Error)
}

func (s *Store) GetService(ctx context.Context, id string) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &svc, nil
}

// User Store implementation
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	var results []*models.User
	if len(ids) == 0 {
		return results, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	result := s.db.WithContext(ctx).Model(u).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"Name":     u.Name,
		"Email":    models.NormalizeEmail(u.Email),
		"Password": u.Password,
		"Role":     u.Role,
	})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetUser(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// Follow-up Store implementation
func (s *Store) CreateFollowUp(ctx context.Context, f *models.CustomerFollowUp) error {
	return translate(s.db.WithContext(ctx).Create(f).Error)
}

func (s *Store) GetFollowUp(ctx context.Context, id string) (*models.CustomerFollowUp, error) {
	var f models.CustomerFollowUp
	if err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (s *Store) ListFollowUps(ctx context.Context, filter models.FollowUpFilter) ([]*models.CustomerFollowUp, error) {
	dbCtx := s.db.WithContext(ctx)
	if filter.InvoiceId != "" {
		dbCtx = dbCtx.Where("invoice_id = ?", filter.InvoiceId)
	}
	if len(filter.Statuses) > 0 {
		dbCtx = dbCtx.Where("status IN ?", filter.Statuses)
	}
	if filter.MaxAttempts > 0 {
		dbCtx = dbCtx.Where("attempts < ?", filter.MaxAttempts)
	}
	if filter.UpdatedBefore != nil {
		dbCtx = dbCtx.Where("updated_at < ?", *filter.UpdatedBefore)
	}
	if filter.Limit > 0 {
		dbCtx = dbCtx.Limit(filter.Limit)
	}
	var results []*models.CustomerFollowUp
	if err := dbCtx.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) UpdateFollowUp(ctx context.Context, f *models.CustomerFollowUp) error {
	result := s.db.WithContext(ctx).Save(f)
	return translate(result.Error)
}

// Core Store implementation
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.PurchaseHistoryEntry{},
		&models.NextService{},
		&models.Product{},
		&models.Service{},
		&models.Invoice{},
		&models.LineItem{},
		&models.CustomerFollowUp{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
