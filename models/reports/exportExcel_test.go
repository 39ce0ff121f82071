package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/xuri/excelize/v2"
)

func TestExportAnalyticsExcel_Sheets(t *testing.T) {
	mar := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	r := DateRange{StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
	a := ComputeInvoiceAnalytics(r, []*models.Invoice{analyticsInvoice(1, mar, models.InvoiceStatusSent, 120, line("p1", 2, 120))})

	buf, err := ExportAnalyticsExcel(a)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	want := []string{summarySheet, mostSoldSheet, leastSoldSheet, trendsSheet}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("want sheets %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want sheets %v got %v", want, got)
		}
	}

	cells := []struct {
		sheet string
		cell  string
		want  string
	}{
		{summarySheet, "B2", "2024-02-01"},
		{summarySheet, "B4", "1"},
		{summarySheet, "B5", "120.00"},
		{summarySheet, "B6", "120.00"},
		{mostSoldSheet, "A2", "Item p1"},
		{mostSoldSheet, "C2", "2"},
		{trendsSheet, "A2", "3/2024"},
	}
	for _, c := range cells {
		v, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("%s!%s: %v", c.sheet, c.cell, err)
		}
		if v != c.want {
			t.Fatalf("%s!%s: want %q got %q", c.sheet, c.cell, c.want, v)
		}
	}
}

func TestAnalyticsFileName(t *testing.T) {
	r := DateRange{StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
	if got := AnalyticsFileName(r); got != "invoice-analytics-20240201-20240331.xlsx" {
		t.Fatalf("unexpected file name %q", got)
	}
}
