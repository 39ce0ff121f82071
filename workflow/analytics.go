package workflow

import (
	"bytes"
	"context"

	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/models/reports"
	"github.com/mmdatafocus/autoservice_backend/utils"
)

// GetInvoiceAnalytics aggregates invoices dated inside dateRange, or the last month when
// dateRange is nil. Non-admins only see their own invoices.
func (s *InvoiceService) GetInvoiceAnalytics(ctx context.Context, actor Actor, dateRange *reports.DateRange) (result *reports.InvoiceAnalytics, err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.GetInvoiceAnalytics")
	defer func() { finishSpan(span, err) }()

	r := reports.DefaultDateRange(s.Clock.Now())
	if dateRange != nil {
		if dateRange.StartDate.After(dateRange.EndDate) {
			return nil, utils.NewAppError(utils.KindInvalidInput, "invalid input: start_date must not be after end_date")
		}
		r = *dateRange
	}

	filter := models.InvoiceFilter{DateFrom: &r.StartDate, DateTo: &r.EndDate}
	if !actor.IsAdmin() {
		filter.UserId = actor.UserId
	}
	invoices, err := s.Store.ListInvoices(ctx, filter)
	if err != nil {
		config.LogErrorContext(ctx, s.Logger, "analytics.go", "GetInvoiceAnalytics", "ListInvoices", r, err)
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to load invoices for analytics")
	}
	return reports.ComputeInvoiceAnalytics(r, invoices), nil
}

// ExportInvoiceAnalytics returns the analytics as an XLSX workbook and its file name.
func (s *InvoiceService) ExportInvoiceAnalytics(ctx context.Context, actor Actor, dateRange *reports.DateRange) (*bytes.Buffer, string, error) {
	analytics, err := s.GetInvoiceAnalytics(ctx, actor, dateRange)
	if err != nil {
		return nil, "", err
	}
	buf, err := reports.ExportAnalyticsExcel(analytics)
	if err != nil {
		config.LogErrorContext(ctx, s.Logger, "analytics.go", "ExportInvoiceAnalytics", "ExportAnalyticsExcel", analytics.DateRange, err)
		return nil, "", utils.WrapAppError(utils.KindExternalFailure, err, "failed to build analytics workbook")
	}
	return buf, reports.AnalyticsFileName(analytics.DateRange), nil
}
