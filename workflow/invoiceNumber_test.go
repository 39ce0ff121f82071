package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
)

func TestNextInvoiceNumber(t *testing.T) {
	cases := []struct {
		name     string
		latest   *models.Invoice
		expected string
	}{
		{"first invoice", nil, "INV-2403-0001"},
		{"same month", &models.Invoice{InvoiceNumber: "INV-2403-0007"}, "INV-2403-0008"},
		{"previous month keeps counting", &models.Invoice{InvoiceNumber: "INV-2402-0041"}, "INV-2403-0042"},
		{"malformed legacy number", &models.Invoice{InvoiceNumber: "LEGACY-A"}, "INV-2403-0001"},
		{"wider sequence", &models.Invoice{InvoiceNumber: "INV-2403-9999"}, "INV-2403-10000"},
	}
	for _, tc := range cases {
		if got := NextInvoiceNumber(fixedNow, tc.latest); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}

func TestNextInvoiceNumber_UsesClockMonth(t *testing.T) {
	now := time.Date(2025, 11, 30, 23, 0, 0, 0, time.UTC)
	if got := NextInvoiceNumber(now, nil); got != "INV-2511-0001" {
		t.Fatalf("expected INV-2511-0001, got %s", got)
	}
}

func TestCreateInvoice_AllocatesSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	expected := []string{"INV-2403-0001", "INV-2403-0002", "INV-2403-0003"}
	for _, want := range expected {
		inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
		if inv.InvoiceNumber != want {
			t.Fatalf("expected %s, got %s", want, inv.InvoiceNumber)
		}
	}
}

type recordingLocker struct {
	locked   int
	unlocked int
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.locked++
	return func() { l.unlocked++ }, nil
}

func TestCreateInvoice_HoldsAllocationLock(t *testing.T) {
	f := newFixture(t)
	locker := &recordingLocker{}
	f.service.Locker = locker

	f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
	if locker.locked != 1 || locker.unlocked != 1 {
		t.Fatalf("expected one lock and unlock, got %d/%d", locker.locked, locker.unlocked)
	}
}
