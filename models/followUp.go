package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerFollowUp is an outbox record for a customer-side write that follows a committed
// invoice. It carries everything needed to apply the write again later.
type CustomerFollowUp struct {
	ID            string          `gorm:"type:char(36);primary_key" json:"id"`
	Kind          FollowUpKind    `gorm:"type:enum('purchase_history','next_service');not null" json:"kind"`
	InvoiceId     string          `gorm:"type:char(36);index;not null" json:"invoice_id"`
	InvoiceNumber string          `gorm:"size:32" json:"invoice_number"`
	CustomerId    string          `gorm:"type:char(36);index;not null" json:"customer_id"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ServiceId     string          `gorm:"type:char(36)" json:"service_id,omitempty"`
	ServiceName   string          `gorm:"size:255" json:"service_name,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`

	Status      FollowUpStatus `gorm:"size:16;index;not null;default:'PENDING'" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   *string        `gorm:"type:text" json:"last_error,omitempty"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (f *CustomerFollowUp) PurchaseHistoryEntry() PurchaseHistoryEntry {
	return PurchaseHistoryEntry{
		ID:         f.ID,
		CustomerId: f.CustomerId,
		InvoiceId:  f.InvoiceId,
		Date:       f.Date,
		Amount:     f.Amount,
		CreatedAt:  f.CreatedAt,
	}
}

func (f *CustomerFollowUp) NextService() NextService {
	return NextService{
		ID:          f.ID,
		CustomerId:  f.CustomerId,
		ServiceId:   f.ServiceId,
		ServiceName: f.ServiceName,
		Date:        f.Date,
		Notes:       f.Notes,
		CreatedAt:   f.CreatedAt,
	}
}

// FollowUpFilter selects follow-ups; zero values are ignored.
type FollowUpFilter struct {
	InvoiceId   string
	Statuses    []FollowUpStatus
	MaxAttempts int
	// UpdatedBefore keeps only records last touched before this instant.
	UpdatedBefore *time.Time
	Limit         int
}

func (f FollowUpFilter) Matches(fu *CustomerFollowUp) bool {
	if f.InvoiceId != "" && fu.InvoiceId != f.InvoiceId {
		return false
	}
	if f.MaxAttempts > 0 && fu.Attempts >= f.MaxAttempts {
		return false
	}
	if f.UpdatedBefore != nil && !fu.UpdatedAt.Before(*f.UpdatedBefore) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if fu.Status == s {
			return true
		}
	}
	return false
}
