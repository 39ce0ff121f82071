package mongo

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/shopspring/decimal"
)

// Money is stored as decimal strings so values round-trip without float drift.

type invoiceDoc struct {
	ID              string        `bson:"_id"`
	InvoiceNumber   string        `bson:"invoice_number"`
	UserId          string        `bson:"user_id"`
	CustomerId      string        `bson:"customer_id"`
	Date            time.Time     `bson:"date"`
	DueDate         time.Time     `bson:"due_date"`
	Items           []lineItemDoc `bson:"items"`
	Subtotal        string        `bson:"subtotal"`
	TaxRate         string        `bson:"tax_rate"`
	TaxAmount       string        `bson:"tax_amount"`
	DiscountType    string        `bson:"discount_type"`
	DiscountValue   string        `bson:"discount_value"`
	DiscountAmount  string        `bson:"discount_amount"`
	Total           string        `bson:"total"`
	Status          string        `bson:"status"`
	Notes           string        `bson:"notes,omitempty"`
	TyreChange      tyreChangeDoc `bson:"tyre_change"`
	NextServiceDate *time.Time    `bson:"next_service_date,omitempty"`
	CreatedAt       time.Time     `bson:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at"`
}

type lineItemDoc struct {
	ID       string `bson:"id"`
	ItemType string `bson:"item_type"`
	ItemId   string `bson:"item_id"`
	Name     string `bson:"name"`
	Quantity int    `bson:"quantity"`
	Price    string `bson:"price"`
	Total    string `bson:"total"`
}

type tyreChangeDoc struct {
	FrontLeft  bool   `bson:"front_left"`
	FrontRight bool   `bson:"front_right"`
	RearLeft   bool   `bson:"rear_left"`
	RearRight  bool   `bson:"rear_right"`
	Notes      string `bson:"notes,omitempty"`
}

type customerDoc struct {
	ID              string               `bson:"_id"`
	UserId          string               `bson:"user_id"`
	Name            string               `bson:"name"`
	Email           string               `bson:"email"`
	Phone           string               `bson:"phone"`
	Address         addressDoc           `bson:"address"`
	PurchaseHistory []purchaseHistoryDoc `bson:"purchase_history"`
	NextServices    []nextServiceDoc     `bson:"next_services"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

type addressDoc struct {
	Street  string `bson:"street,omitempty"`
	City    string `bson:"city,omitempty"`
	State   string `bson:"state,omitempty"`
	ZipCode string `bson:"zip_code,omitempty"`
	Country string `bson:"country,omitempty"`
}

type purchaseHistoryDoc struct {
	ID        string    `bson:"id"`
	InvoiceId string    `bson:"invoice_id"`
	Date      time.Time `bson:"date"`
	Amount    string    `bson:"amount"`
	CreatedAt time.Time `bson:"created_at"`
}

type nextServiceDoc struct {
	ID          string    `bson:"id"`
	ServiceId   string    `bson:"service_id"`
	ServiceName string    `bson:"service_name"`
	Date        time.Time `bson:"date"`
	Notes       string    `bson:"notes,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

type productDoc struct {
	ID          string    `bson:"_id"`
	UserId      string    `bson:"user_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	Sku         string    `bson:"sku,omitempty"`
	Price       string    `bson:"price"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type serviceDoc struct {
	ID           string    `bson:"_id"`
	UserId       string    `bson:"user_id"`
	Name         string    `bson:"name"`
	Description  string    `bson:"description,omitempty"`
	Price        string    `bson:"price"`
	Duration     int       `bson:"duration"`
	DurationType string    `bson:"duration_type"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type followUpDoc struct {
	ID            string     `bson:"_id"`
	Kind          string     `bson:"kind"`
	InvoiceId     string     `bson:"invoice_id"`
	InvoiceNumber string     `bson:"invoice_number"`
	CustomerId    string     `bson:"customer_id"`
	Date          time.Time  `bson:"date"`
	Amount        string     `bson:"amount"`
	ServiceId     string     `bson:"service_id,omitempty"`
	ServiceName   string     `bson:"service_name,omitempty"`
	Notes         string     `bson:"notes,omitempty"`
	Status        string     `bson:"status"`
	Attempts      int        `bson:"attempts"`
	LastError     *string    `bson:"last_error,omitempty"`
	ProcessedAt   *time.Time `bson:"processed_at,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

// decimalReader keeps the first parse failure so converters can report it once.
type decimalReader struct {
	err error
}

func (r *decimalReader) read(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("store/mongo: invalid decimal %q: %w", s, err)
	}
	return d
}

// ==================== Invoice models ====================

func toInvoiceDoc(inv *models.Invoice) *invoiceDoc {
	items := make([]lineItemDoc, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = lineItemDoc{
			ID:       it.ID,
			ItemType: string(it.ItemType),
			ItemId:   it.ItemId,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price.String(),
			Total:    it.Total.String(),
		}
	}
	return &invoiceDoc{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		UserId:         inv.UserId,
		CustomerId:     inv.CustomerId,
		Date:           inv.Date,
		DueDate:        inv.DueDate,
		Items:          items,
		Subtotal:       inv.Subtotal.String(),
		TaxRate:        inv.TaxRate.String(),
		TaxAmount:      inv.TaxAmount.String(),
		DiscountType:   string(inv.DiscountType),
		DiscountValue:  inv.DiscountValue.String(),
		DiscountAmount: inv.DiscountAmount.String(),
		Total:          inv.Total.String(),
		Status:         string(inv.Status),
		Notes:          inv.Notes,
		TyreChange: tyreChangeDoc{
			FrontLeft:  inv.TyreChange.FrontLeft,
			FrontRight: inv.TyreChange.FrontRight,
			RearLeft:   inv.TyreChange.RearLeft,
			RearRight:  inv.TyreChange.RearRight,
			Notes:      inv.TyreChange.Notes,
		},
		NextServiceDate: inv.NextServiceDate,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func fromInvoiceDoc(d *invoiceDoc) (*models.Invoice, error) {
	var r decimalReader
	items := make([]models.LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = models.LineItem{
			ID:        it.ID,
			InvoiceId: d.ID,
			Position:  i,
			ItemType:  models.ItemType(it.ItemType),
			ItemId:    it.ItemId,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     r.read(it.Price),
			Total:     r.read(it.Total),
		}
	}
	inv := &models.Invoice{
		ID:             d.ID,
		InvoiceNumber:  d.InvoiceNumber,
		UserId:         d.UserId,
		CustomerId:     d.CustomerId,
		Date:           d.Date,
		DueDate:        d.DueDate,
		Items:          items,
		Subtotal:       r.read(d.Subtotal),
		TaxRate:        r.read(d.TaxRate),
		TaxAmount:      r.read(d.TaxAmount),
		DiscountType:   models.DiscountType(d.DiscountType),
		DiscountValue:  r.read(d.DiscountValue),
		DiscountAmount: r.read(d.DiscountAmount),
		Total:          r.read(d.Total),
		Status:         models.InvoiceStatus(d.Status),
		Notes:          d.Notes,
		TyreChange: models.TyreChange{
			FrontLeft:  d.TyreChange.FrontLeft,
			FrontRight: d.TyreChange.FrontRight,
			RearLeft:   d.TyreChange.RearLeft,
			RearRight:  d.TyreChange.RearRight,
			Notes:      d.TyreChange.Notes,
		},
		NextServiceDate: d.NextServiceDate,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if r.err != nil {
		return nil, r.err
	}
	return inv, nil
}

// ==================== Customer models ====================

func toPurchaseHistoryDoc(e models.PurchaseHistoryEntry) purchaseHistoryDoc {
	return purchaseHistoryDoc{ID: e.ID, InvoiceId: e.InvoiceId, Date: e.Date, Amount: e.Amount.String(), CreatedAt: e.CreatedAt}
}

func toNextServiceDoc(e models.NextService) nextServiceDoc {
	return nextServiceDoc{ID: e.ID, ServiceId: e.ServiceId, ServiceName: e.ServiceName, Date: e.Date, Notes: e.Notes, CreatedAt: e.CreatedAt}
}

func toCustomerDoc(c *models.Customer) *customerDoc {
	history := make([]purchaseHistoryDoc, len(c.PurchaseHistory))
	for i, e := range c.PurchaseHistory {
		history[i] = toPurchaseHistoryDoc(e)
	}
	next := make([]nextServiceDoc, len(c.NextServices))
	for i, e := range c.NextServices {
		next[i] = toNextServiceDoc(e)
	}
	return &customerDoc{
		ID:     c.ID,
		UserId: c.UserId,
		Name:   c.Name,
		Email:  c.Email,
		Phone:  c.Phone,
		Address: addressDoc{
			Street:  c.Address.Street,
			City:    c.Address.City,
			State:   c.Address.State,
			ZipCode: c.Address.ZipCode,
			Country: c.Address.Country,
		},
		PurchaseHistory: history,
		NextServices:    next,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCustomerDoc(d *customerDoc) (*models.Customer, error) {
	var r decimalReader
	c := &models.Customer{
		ID:     d.ID,
		UserId: d.UserId,
		Name:   d.Name,
		Email:  d.Email,
		Phone:  d.Phone,
		Address: models.Address{
			Street:  d.Address.Street,
			City:    d.Address.City,
			State:   d.Address.State,
			ZipCode: d.Address.ZipCode,
			Country: d.Address.Country,
		},
		PurchaseHistory: make([]models.PurchaseHistoryEntry, len(d.PurchaseHistory)),
		NextServices:    make([]models.NextService, len(d.NextServices)),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	for i, e := range d.PurchaseHistory {
		c.PurchaseHistory[i] = models.PurchaseHistoryEntry{
			ID:         e.ID,
			CustomerId: d.ID,
			InvoiceId:  e.InvoiceId,
			Date:       e.Date,
			Amount:     r.read(e.Amount),
			CreatedAt:  e.CreatedAt,
		}
	}
	for i, e := range d.NextServices {
		c.NextServices[i] = models.NextService{
			ID:          e.ID,
			CustomerId:  d.ID,
			ServiceId:   e.ServiceId,
			ServiceName: e.ServiceName,
			Date:        e.Date,
			Notes:       e.Notes,
			CreatedAt:   e.CreatedAt,
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

// ==================== Catalog models ====================

func toProductDoc(p *models.Product) *productDoc {
	return &productDoc{
		ID: p.ID, UserId: p.UserId, Name: p.Name, Description: p.Description, Sku: p.Sku,
		Price: p.Price.String(), CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func fromProductDoc(d *productDoc) (*models.Product, error) {
	var r decimalReader
	p := &models.Product{
		ID: d.ID, UserId: d.UserId, Name: d.Name, Description: d.Description, Sku: d.Sku,
		Price: r.read(d.Price), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	return p, r.err
}

func toServiceDoc(s *models.Service) *serviceDoc {
	return &serviceDoc{
		ID: s.ID, UserId: s.UserId, Name: s.Name, Description: s.Description, Price: s.Price.String(),
		Duration: s.Duration, DurationType: string(s.DurationType), CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func fromServiceDoc(d *serviceDoc) (*models.Service, error) {
	var r decimalReader
	s := &models.Service{
		ID: d.ID, UserId: d.UserId, Name: d.Name, Description: d.Description, Price: r.read(d.Price),
		Duration: d.Duration, DurationType: models.DurationType(d.DurationType), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	return s, r.err
}

// ==================== User models ====================

func toUserDoc(u *models.User) *userDoc {
	return &userDoc{
		ID: u.ID, Name: u.Name, Email: models.NormalizeEmail(u.Email), Password: u.Password,
		Role: string(u.Role), CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func fromUserDoc(d *userDoc) *models.User {
	return &models.User{
		ID: d.ID, Name: d.Name, Email: d.Email, Password: d.Password,
		Role: models.UserRole(d.Role), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

// ==================== Follow-up models ====================

func toFollowUpDoc(f *models.CustomerFollowUp) *followUpDoc {
	return &followUpDoc{
		ID:            f.ID,
		Kind:          string(f.Kind),
		InvoiceId:     f.InvoiceId,
		InvoiceNumber: f.InvoiceNumber,
		CustomerId:    f.CustomerId,
		Date:          f.Date,
		Amount:        f.Amount.String(),
		ServiceId:     f.ServiceId,
		ServiceName:   f.ServiceName,
		Notes:         f.Notes,
		Status:        string(f.Status),
		Attempts:      f.Attempts,
		LastError:     f.LastError,
		ProcessedAt:   f.ProcessedAt,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func fromFollowUpDoc(d *followUpDoc) (*models.CustomerFollowUp, error) {
	var r decimalReader
	f := &models.CustomerFollowUp{
		ID:            d.ID,
		Kind:          models.FollowUpKind(d.Kind),
		InvoiceId:     d.InvoiceId,
		InvoiceNumber: d.InvoiceNumber,
		CustomerId:    d.CustomerId,
		Date:          d.Date,
		Amount:        r.read(d.Amount),
		ServiceId:     d.ServiceId,
		ServiceName:   d.ServiceName,
		Notes:         d.Notes,
		Status:        models.FollowUpStatus(d.Status),
		Attempts:      d.Attempts,
		LastError:     d.LastError,
		ProcessedAt:   d.ProcessedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	return f, r.err
}
