package models

import (
	"encoding/json"
	"errors"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceStatuses = map[string]InvoiceStatus{
	"draft":     InvoiceStatusDraft,
	"sent":      InvoiceStatusSent,
	"paid":      InvoiceStatusPaid,
	"overdue":   InvoiceStatusOverdue,
	"cancelled": InvoiceStatusCancelled,
}

func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceStatuses[string(s)]
	return ok
}

func (s *InvoiceStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("invoice status must be string")
	}
	v, ok := invoiceStatuses[str]
	if !ok {
		return errors.New("invalid invoice status")
	}
	*s = v
	return nil
}

// invoiceStatusTransitions is only consulted when strict transitions are switched on.
var invoiceStatusTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:   {InvoiceStatusPaid, InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusCancelled: {InvoiceStatusDraft},
	InvoiceStatusPaid:      {},
}

// CanTransitionTo reports whether next is reachable from s in the transition table.
// Staying in the same state is always allowed.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range invoiceStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

func (t *DiscountType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("discount type must be string")
	}
	v := DiscountType(str)
	if !v.IsValid() {
		return errors.New("invalid discount type")
	}
	*t = v
	return nil
}

type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeService ItemType = "service"
)

func (t ItemType) IsValid() bool {
	return t == ItemTypeProduct || t == ItemTypeService
}

func (t *ItemType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("item type must be string")
	}
	v := ItemType(str)
	if !v.IsValid() {
		return errors.New("invalid item type")
	}
	*t = v
	return nil
}

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type DurationType string

const (
	DurationTypeMinutes DurationType = "minutes"
	DurationTypeHours   DurationType = "hours"
	DurationTypeDays    DurationType = "days"
)

type FollowUpKind string

const (
	FollowUpKindPurchaseHistory FollowUpKind = "purchase_history"
	FollowUpKindNextService     FollowUpKind = "next_service"
)

type FollowUpStatus string

const (
	FollowUpStatusPending FollowUpStatus = "PENDING"
	// PROCESSING is held while the creating request applies the follow-up; the worker only
	// reclaims it once it has gone stale.
	FollowUpStatusProcessing FollowUpStatus = "PROCESSING"
	FollowUpStatusSucceeded  FollowUpStatus = "SUCCEEDED"
	FollowUpStatusFailed     FollowUpStatus = "FAILED"
	// DEAD means the retry budget is exhausted; only a manual replay picks it up again.
	FollowUpStatusDead FollowUpStatus = "DEAD"
)
