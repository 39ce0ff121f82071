package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/models/reports"
	"github.com/mmdatafocus/autoservice_backend/utils"
)

func TestGetInvoiceAnalytics_TotalsAndOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 50)}})
	if _, err := f.service.UpdateInvoiceStatus(ctx, owner, a.ID, models.InvoiceStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{serviceItem(1, 30)}})

	// another user's invoice only shows up for admins
	if _, err := f.service.CreateInvoice(ctx, other, &models.NewInvoice{CustomerId: "cust-2", Items: []models.NewInvoiceItem{productItem(1, 1000)}}); err != nil {
		t.Fatalf("create other invoice: %v", err)
	}

	got, err := f.service.GetInvoiceAnalytics(ctx, owner, nil)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if got.TotalInvoices != 2 || got.TotalSales.StringFixed(2) != "80.00" {
		t.Fatalf("expected 2 invoices totalling 80.00, got %d / %s", got.TotalInvoices, got.TotalSales)
	}
	if got.OutstandingAmount.StringFixed(2) != "30.00" || got.OutstandingInvoices != 1 {
		t.Fatalf("expected outstanding 30.00 over 1 invoice, got %s / %d", got.OutstandingAmount, got.OutstandingInvoices)
	}
	if len(got.SalesTrends) != 1 || got.SalesTrends[0].Label != "3/2024" || got.SalesTrends[0].Count != 2 {
		t.Fatalf("unexpected trends %+v", got.SalesTrends)
	}
	if !got.DateRange.EndDate.Equal(fixedNow) || !got.DateRange.StartDate.Equal(fixedNow.AddDate(0, -1, 0)) {
		t.Fatalf("unexpected default range %+v", got.DateRange)
	}

	all, err := f.service.GetInvoiceAnalytics(ctx, admin, nil)
	if err != nil {
		t.Fatalf("admin analytics: %v", err)
	}
	if all.TotalInvoices != 3 || all.TotalSales.StringFixed(2) != "1080.00" {
		t.Fatalf("admin should see every invoice, got %d / %s", all.TotalInvoices, all.TotalSales)
	}
}

func TestGetInvoiceAnalytics_DateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 50)}})

	outside := &reports.DateRange{StartDate: fixedNow.AddDate(0, -6, 0), EndDate: fixedNow.Add(-time.Hour)}
	got, err := f.service.GetInvoiceAnalytics(ctx, owner, outside)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if got.TotalInvoices != 0 || len(got.MostSoldItems) != 0 {
		t.Fatalf("expected empty analytics outside the range, got %+v", got)
	}

	inverted := &reports.DateRange{StartDate: fixedNow, EndDate: fixedNow.AddDate(0, -1, 0)}
	_, err = f.service.GetInvoiceAnalytics(ctx, owner, inverted)
	assertKind(t, err, utils.KindInvalidInput)
}

func TestExportInvoiceAnalytics_Workbook(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(2, 25)}})

	buf, name, err := f.service.ExportInvoiceAnalytics(context.Background(), owner, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
	// xlsx files are zip archives
	if b := buf.Bytes(); b[0] != 'P' || b[1] != 'K' {
		t.Fatalf("expected zip header, got %q", b[:2])
	}
	if name == "" {
		t.Fatalf("expected a file name")
	}
}
