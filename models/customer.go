package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID              string                 `gorm:"type:char(36);primary_key" json:"id"`
	UserId          string                 `gorm:"type:char(36);index;not null" json:"user_id"`
	Name            string                 `gorm:"size:255;not null" json:"name"`
	Email           string                 `gorm:"size:255" json:"email"`
	Phone           string                 `gorm:"size:64" json:"phone"`
	Address         Address                `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	PurchaseHistory []PurchaseHistoryEntry `gorm:"foreignKey:CustomerId;constraint:OnDelete:CASCADE" json:"purchase_history"`
	NextServices    []NextService          `gorm:"foreignKey:CustomerId;constraint:OnDelete:CASCADE" json:"next_services"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type Address struct {
	Street  string `gorm:"size:255" json:"street"`
	City    string `gorm:"size:128" json:"city"`
	State   string `gorm:"size:128" json:"state"`
	ZipCode string `gorm:"size:32" json:"zip_code"`
	Country string `gorm:"size:128" json:"country"`
}

// String joins the non-empty parts with ", ".
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PurchaseHistoryEntry is append-only. Its ID is the id of the follow-up that wrote it,
// which makes re-applying the same follow-up a no-op.
type PurchaseHistoryEntry struct {
	ID         string          `gorm:"type:char(36);primary_key" json:"id"`
	CustomerId string          `gorm:"type:char(36);index;not null" json:"-"`
	InvoiceId  string          `gorm:"type:char(36);index;not null" json:"invoice_id"`
	Date       time.Time       `gorm:"not null" json:"date"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt  time.Time       `json:"-"`
}

type NextService struct {
	ID          string    `gorm:"type:char(36);primary_key" json:"id"`
	CustomerId  string    `gorm:"type:char(36);index;not null" json:"-"`
	ServiceId   string    `gorm:"type:char(36);not null" json:"service_id"`
	ServiceName string    `gorm:"size:255" json:"service_name"`
	Date        time.Time `gorm:"not null" json:"date"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `json:"-"`
}

type NextServicePatch struct {
	ServiceId   *string    `json:"service_id"`
	ServiceName *string    `json:"service_name"`
	Date        *time.Time `json:"date"`
	Notes       *string    `json:"notes"`
}

func (p *NextServicePatch) Apply(ns *NextService) {
	if p.ServiceId != nil {
		ns.ServiceId = *p.ServiceId
	}
	if p.ServiceName != nil {
		ns.ServiceName = *p.ServiceName
	}
	if p.Date != nil {
		ns.Date = *p.Date
	}
	if p.Notes != nil {
		ns.Notes = *p.Notes
	}
}

// CustomerSummary is the slice of a customer embedded in invoice listings.
type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c *Customer) Summary() *CustomerSummary {
	if c == nil {
		return nil
	}
	return &CustomerSummary{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	cp := *c
	cp.PurchaseHistory = append([]PurchaseHistoryEntry(nil), c.PurchaseHistory...)
	cp.NextServices = append([]NextService(nil), c.NextServices...)
	return &cp
}
