package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCreateInvoice_RejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateInvoice(ctx, &models.Invoice{ID: "a", InvoiceNumber: "INV-2403-0001"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := s.CreateInvoice(ctx, &models.Invoice{ID: "b", InvoiceNumber: "INV-2403-0001"})
	if !errors.Is(err, utils.ErrorDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestLatestInvoice_FollowsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.LatestInvoice(ctx); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found on empty store, got %v", err)
	}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, n := range []string{"INV-2403-0002", "INV-2403-0001"} {
		inv := &models.Invoice{ID: n, InvoiceNumber: n, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
	latest, err := s.LatestInvoice(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.InvoiceNumber != "INV-2403-0001" {
		t.Fatalf("expected the most recently created invoice, got %s", latest.InvoiceNumber)
	}
}

func TestGetInvoice_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	inv := &models.Invoice{ID: "a", InvoiceNumber: "INV-2403-0001", Items: []models.LineItem{{ID: "li", Name: "Tyre"}}}
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := s.GetInvoice(ctx, "a")
	got.Items[0].Name = "changed"
	again, _ := s.GetInvoice(ctx, "a")
	if again.Items[0].Name != "Tyre" {
		t.Fatalf("stored invoice was mutated through a returned copy")
	}
}

func TestDeleteInvoice_FreesNumber(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateInvoice(ctx, &models.Invoice{ID: "a", InvoiceNumber: "INV-2403-0001"})
	if err := s.DeleteInvoice(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteInvoice(ctx, "a"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := s.CreateInvoice(ctx, &models.Invoice{ID: "b", InvoiceNumber: "INV-2403-0001"}); err != nil {
		t.Fatalf("number should be reusable after delete: %v", err)
	}
}

func TestAppendPurchaseHistory_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateCustomer(ctx, &models.Customer{ID: "c1", Name: "Jane"})
	entry := models.PurchaseHistoryEntry{ID: "fu-1", InvoiceId: "inv-1", Amount: decimal.NewFromInt(10)}
	for i := 0; i < 3; i++ {
		if err := s.AppendPurchaseHistory(ctx, "c1", entry); err != nil {
			t.Fatalf("append #%d: %v", i, err)
		}
	}
	c, _ := s.GetCustomer(ctx, "c1")
	if len(c.PurchaseHistory) != 1 {
		t.Fatalf("expected one entry, got %d", len(c.PurchaseHistory))
	}
	if err := s.AppendPurchaseHistory(ctx, "missing", entry); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNextServiceUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateCustomer(ctx, &models.Customer{ID: "c1"})
	_ = s.AppendNextService(ctx, "c1", models.NextService{ID: "ns-1", ServiceName: "Alignment"})

	if err := s.UpdateNextService(ctx, "c1", models.NextService{ID: "ns-1", ServiceName: "Balancing"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateNextService(ctx, "c1", models.NextService{ID: "ns-9"}); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found for unknown entry, got %v", err)
	}
	c, _ := s.GetCustomer(ctx, "c1")
	if c.NextServices[0].ServiceName != "Balancing" {
		t.Fatalf("update not applied: %+v", c.NextServices)
	}

	if err := s.RemoveNextService(ctx, "c1", "ns-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveNextService(ctx, "c1", "ns-1"); err != nil {
		t.Fatalf("removing an absent entry should be a no-op: %v", err)
	}
	c, _ = s.GetCustomer(ctx, "c1")
	if len(c.NextServices) != 0 {
		t.Fatalf("expected entry removed, got %+v", c.NextServices)
	}
}

func TestUserEmailLookupIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateUser(ctx, &models.User{ID: "u1", Email: "Jane@Example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{ID: "u2", Email: "jane@example.com"}); !errors.Is(err, utils.ErrorDuplicateKey) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	u, err := s.GetUserByEmail(ctx, " JANE@example.COM ")
	if err != nil || u.ID != "u1" {
		t.Fatalf("lookup: %v %+v", err, u)
	}
}

func TestListFollowUps_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.CustomerFollowUp{
		{ID: "f1", Status: models.FollowUpStatusPending, CreatedAt: base},
		{ID: "f2", Status: models.FollowUpStatusSucceeded, CreatedAt: base.Add(time.Minute)},
		{ID: "f3", Status: models.FollowUpStatusFailed, Attempts: 2, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "f4", Status: models.FollowUpStatusFailed, Attempts: 5, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range rows {
		if err := s.CreateFollowUp(ctx, &rows[i]); err != nil {
			t.Fatalf("create %s: %v", rows[i].ID, err)
		}
	}
	got, err := s.ListFollowUps(ctx, models.FollowUpFilter{
		Statuses:    []models.FollowUpStatus{models.FollowUpStatusPending, models.FollowUpStatusFailed},
		MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "f1" || got[1].ID != "f3" {
		t.Fatalf("unexpected follow-ups %+v", got)
	}
}
