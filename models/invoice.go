package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID              string          `gorm:"type:char(36);primary_key" json:"id"`
	InvoiceNumber   string          `gorm:"size:32;uniqueIndex;not null" json:"invoice_number"`
	UserId          string          `gorm:"type:char(36);index;not null" json:"user_id"`
	CustomerId      string          `gorm:"type:char(36);index;not null" json:"customer_id"`
	Date            time.Time       `gorm:"index;not null" json:"date"`
	DueDate         time.Time       `gorm:"not null" json:"due_date"`
	Items           []LineItem      `gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	DiscountType    DiscountType    `gorm:"type:enum('percentage','fixed');not null;default:'percentage'" json:"discount_type"`
	DiscountValue   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_value"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	Status          InvoiceStatus   `gorm:"type:enum('draft','sent','paid','overdue','cancelled');not null;default:'draft'" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes"`
	TyreChange      TyreChange      `gorm:"embedded;embeddedPrefix:tyre_" json:"tyre_change"`
	NextServiceDate *time.Time      `json:"next_service_date"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type LineItem struct {
	ID        string          `gorm:"type:char(36);primary_key" json:"id"`
	InvoiceId string          `gorm:"type:char(36);index;not null" json:"-"`
	Position  int             `gorm:"not null;default:0" json:"-"`
	ItemType  ItemType        `gorm:"type:enum('product','service');not null" json:"item_type"`
	ItemId    string          `gorm:"type:char(36);not null" json:"item_id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Total     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
}

type TyreChange struct {
	FrontLeft  bool   `gorm:"not null;default:false" json:"front_left"`
	FrontRight bool   `gorm:"not null;default:false" json:"front_right"`
	RearLeft   bool   `gorm:"not null;default:false" json:"rear_left"`
	RearRight  bool   `gorm:"not null;default:false" json:"rear_right"`
	Notes      string `gorm:"type:text" json:"notes"`
}

func (t TyreChange) AnyChanged() bool {
	return t.FrontLeft || t.FrontRight || t.RearLeft || t.RearRight
}

// FirstServiceItem returns the first line item of type service, if any.
func (inv *Invoice) FirstServiceItem() (LineItem, bool) {
	for _, item := range inv.Items {
		if item.ItemType == ItemTypeService {
			return item, true
		}
	}
	return LineItem{}, false
}

// IsOutstanding is true for every status except paid.
func (inv *Invoice) IsOutstanding() bool {
	return inv.Status != InvoiceStatusPaid
}

// Clone copies the invoice including its line items.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Items = append([]LineItem(nil), inv.Items...)
	if inv.NextServiceDate != nil {
		d := *inv.NextServiceDate
		c.NextServiceDate = &d
	}
	return &c
}

type NewInvoice struct {
	CustomerId      string           `json:"customer_id" validate:"required"`
	Items           []NewInvoiceItem `json:"items" validate:"required,min=1,dive"`
	TaxRate         decimal.Decimal  `json:"tax_rate" validate:"gte=0"`
	DiscountType    DiscountType     `json:"discount_type" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue   decimal.Decimal  `json:"discount_value" validate:"gte=0"`
	Notes           string           `json:"notes"`
	TyreChange      *TyreChange      `json:"tyre_change"`
	NextServiceDate *time.Time       `json:"next_service_date"`
	DueDate         *time.Time       `json:"due_date"`
}

type NewInvoiceItem struct {
	ItemType ItemType        `json:"item_type" validate:"required,oneof=product service"`
	ItemId   string          `json:"item_id" validate:"required"`
	Quantity int             `json:"quantity" validate:"min=1"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

// InvoicePatch lists the fields an update may change; customer, number and owner have no
// field here. A nil field means "leave unchanged".
type InvoicePatch struct {
	Date            *time.Time       `json:"date"`
	DueDate         *time.Time       `json:"due_date"`
	Items           []NewInvoiceItem `json:"items"`
	TaxRate         *decimal.Decimal `json:"tax_rate"`
	DiscountType    *DiscountType    `json:"discount_type"`
	DiscountValue   *decimal.Decimal `json:"discount_value"`
	Status          *InvoiceStatus   `json:"status"`
	Notes           *string          `json:"notes"`
	TyreChange      *TyreChange      `json:"tyre_change"`
	NextServiceDate *time.Time       `json:"next_service_date"`
}

// TouchesTotals reports whether applying the patch requires recomputing money fields.
func (p *InvoicePatch) TouchesTotals() bool {
	return p.Items != nil || p.TaxRate != nil || p.DiscountType != nil || p.DiscountValue != nil
}

// InvoiceFilter narrows a listing by field equality and issue-date range. Zero values are ignored.
type InvoiceFilter struct {
	UserId     string
	CustomerId string
	Status     InvoiceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Matches evaluates the filter in memory; store drivers translate it to queries.
func (f InvoiceFilter) Matches(inv *Invoice) bool {
	if f.UserId != "" && inv.UserId != f.UserId {
		return false
	}
	if f.CustomerId != "" && inv.CustomerId != f.CustomerId {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if f.DateFrom != nil && inv.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && inv.Date.After(*f.DateTo) {
		return false
	}
	return true
}
