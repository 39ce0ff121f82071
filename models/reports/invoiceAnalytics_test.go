package reports

import (
	"fmt"
	"testing"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/shopspring/decimal"
)

func analyticsInvoice(n int, date time.Time, status models.InvoiceStatus, total int64, lines ...models.LineItem) *models.Invoice {
	return &models.Invoice{
		ID:        fmt.Sprintf("inv-%d", n),
		Date:      date,
		CreatedAt: date.Add(time.Duration(n) * time.Second),
		Status:    status,
		Total:     decimal.NewFromInt(total),
		Items:     lines,
	}
}

func line(id string, qty int, total int64) models.LineItem {
	return models.LineItem{ItemType: models.ItemTypeProduct, ItemId: id, Name: "Item " + id, Quantity: qty, Total: decimal.NewFromInt(total)}
}

func TestComputeInvoiceAnalytics_Totals(t *testing.T) {
	mar := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	invoices := []*models.Invoice{
		analyticsInvoice(1, mar, models.InvoiceStatusPaid, 50, line("a", 1, 50)),
		analyticsInvoice(2, feb, models.InvoiceStatusSent, 30, line("a", 2, 20), line("b", 1, 10)),
	}
	got := ComputeInvoiceAnalytics(DateRange{StartDate: feb, EndDate: mar}, invoices)

	if got.TotalInvoices != 2 || !got.TotalSales.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected totals %d %s", got.TotalInvoices, got.TotalSales)
	}
	if got.OutstandingInvoices != 1 || !got.OutstandingAmount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected outstanding %d %s", got.OutstandingInvoices, got.OutstandingAmount)
	}
	if len(got.MostSoldItems) != 2 || got.MostSoldItems[0].ItemId != "a" || got.MostSoldItems[0].Quantity != 3 {
		t.Fatalf("unexpected most sold %+v", got.MostSoldItems)
	}
	if len(got.SalesTrends) != 2 || got.SalesTrends[0].Label != "2/2024" || got.SalesTrends[1].Label != "3/2024" {
		t.Fatalf("trends should be chronological: %+v", got.SalesTrends)
	}
}

func TestComputeInvoiceAnalytics_Empty(t *testing.T) {
	got := ComputeInvoiceAnalytics(DefaultDateRange(time.Now()), nil)
	if got.TotalInvoices != 0 || !got.TotalSales.IsZero() {
		t.Fatalf("expected zero analytics, got %+v", got)
	}
	if got.MostSoldItems == nil || got.LeastSoldItems == nil || got.SalesTrends == nil {
		t.Fatalf("lists should be empty, not nil")
	}
}

func TestRankItems(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		wantMost  []string
		wantLeast []string
	}{
		{name: "fewer than limit", count: 3, wantMost: []string{"i2", "i1", "i0"}, wantLeast: []string{"i0", "i1", "i2"}},
		{name: "more than limit", count: 7, wantMost: []string{"i6", "i5", "i4", "i3", "i2"}, wantLeast: []string{"i0", "i1", "i2", "i3", "i4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]ItemSales, tt.count)
			for i := range items {
				items[i] = ItemSales{ItemId: fmt.Sprintf("i%d", i), Total: decimal.NewFromInt(int64(10 * (i + 1)))}
			}
			most, least := rankItems(items)
			if ids(most) != fmt.Sprint(tt.wantMost) {
				t.Fatalf("most: want %v got %s", tt.wantMost, ids(most))
			}
			if ids(least) != fmt.Sprint(tt.wantLeast) {
				t.Fatalf("least: want %v got %s", tt.wantLeast, ids(least))
			}
		})
	}
}

func TestRankItems_TiesKeepFirstSeenOrder(t *testing.T) {
	items := []ItemSales{
		{ItemId: "x", Total: decimal.NewFromInt(5)},
		{ItemId: "y", Total: decimal.NewFromInt(5)},
	}
	most, least := rankItems(items)
	if most[0].ItemId != "x" || least[0].ItemId != "y" {
		t.Fatalf("unexpected tie order most=%s least=%s", ids(most), ids(least))
	}
}

func TestDateRangeContainsIsInclusive(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	r := DefaultDateRange(now)
	if !r.Contains(now) || !r.Contains(r.StartDate) {
		t.Fatalf("range should include both ends")
	}
	if r.Contains(now.Add(time.Second)) {
		t.Fatalf("range should exclude instants after the end")
	}
}

func TestEndOfDay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{name: "midnight", in: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), want: time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC)},
		{name: "mid day", in: time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), want: time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC)},
		{name: "leap day", in: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), want: time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)},
		{name: "year end", in: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), want: time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EndOfDay(tt.in); !got.Equal(tt.want) {
				t.Fatalf("want %s got %s", tt.want, got)
			}
		})
	}
}

func ids(items []ItemSales) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemId
	}
	return fmt.Sprint(out)
}
