package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet   = "Summary"
	mostSoldSheet  = "Most Sold"
	leastSoldSheet = "Least Sold"
	trendsSheet    = "Trends"
)

// ExportAnalyticsExcel writes the analytics payload to an XLSX workbook with one sheet per section.
func ExportAnalyticsExcel(a *InvoiceAnalytics) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Start Date", a.DateRange.StartDate.Format("2006-01-02")},
		{"End Date", a.DateRange.EndDate.Format("2006-01-02")},
		{"Total Invoices", a.TotalInvoices},
		{"Total Sales", a.TotalSales.StringFixed(2)},
		{"Outstanding Amount", a.OutstandingAmount.StringFixed(2)},
		{"Outstanding Invoices", a.OutstandingInvoices},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	for _, section := range []struct {
		sheet string
		items []ItemSales
	}{
		{mostSoldSheet, a.MostSoldItems},
		{leastSoldSheet, a.LeastSoldItems},
	} {
		if _, err := f.NewSheet(section.sheet); err != nil {
			return nil, err
		}
		rows := [][]interface{}{{"Item", "Type", "Quantity", "Total"}}
		for _, item := range section.items {
			rows = append(rows, []interface{}{item.Name, string(item.ItemType), item.Quantity, item.Total.StringFixed(2)})
		}
		if err := writeRows(f, section.sheet, rows); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(trendsSheet); err != nil {
		return nil, err
	}
	trendRows := [][]interface{}{{"Month", "Invoices", "Total"}}
	for _, t := range a.SalesTrends {
		trendRows = append(trendRows, []interface{}{t.Label, t.Count, t.Total.StringFixed(2)})
	}
	if err := writeRows(f, trendsSheet, trendRows); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// AnalyticsFileName names the workbook after its date range.
func AnalyticsFileName(r DateRange) string {
	return fmt.Sprintf("invoice-analytics-%s-%s.xlsx", r.StartDate.Format("20060102"), r.EndDate.Format("20060102"))
}
