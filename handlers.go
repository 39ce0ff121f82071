package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/middlewares"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/models/reports"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type api struct {
	invoices  *workflow.InvoiceService
	customers *workflow.CustomerService
	users     *workflow.UserService
	logger    *logrus.Logger
}

var kindStatus = map[utils.ErrorKind]int{
	utils.KindNotFound:         http.StatusNotFound,
	utils.KindInvalidState:     http.StatusConflict,
	utils.KindConflict:         http.StatusConflict,
	utils.KindInvalidReference: http.StatusNotFound,
	utils.KindExternalFailure:  http.StatusBadGateway,
	utils.KindInvalidInput:     http.StatusBadRequest,
	utils.KindForbidden:        http.StatusForbidden,
	utils.KindUnauthorized:     http.StatusUnauthorized,
	utils.KindInternal:         http.StatusInternalServerError,
}

func statusForError(err error) int {
	if status, ok := kindStatus[utils.ErrorKindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// fail writes the error response. Internal details stay in the log.
func (a *api) fail(c *gin.Context, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		} else {
			message = "internal server error"
		}
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}

func (a *api) actor(c *gin.Context) (workflow.Actor, bool) {
	actor, err := workflow.ActorFromContext(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return workflow.Actor{}, false
	}
	return actor, true
}

// bind decodes the JSON body; an empty body leaves dst untouched when optional is set.
func (a *api) bind(c *gin.Context, dst any, optional bool) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		a.fail(c, utils.WrapAppError(utils.KindInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

// ==================== Views ====================

type invoiceView struct {
	*models.Invoice
	Customer  *models.CustomerSummary    `json:"customer"`
	User      *models.UserSummary        `json:"user,omitempty"`
	FollowUps []*models.CustomerFollowUp `json:"follow_ups,omitempty"`
}

// populateInvoices attaches customer summaries, and owner summaries when withUsers is set.
// Lookups go through the request loaders so each id is fetched once per request.
func (a *api) populateInvoices(c *gin.Context, invoices []*models.Invoice, withUsers bool) []invoiceView {
	ctx := c.Request.Context()
	views := make([]invoiceView, len(invoices))
	if len(invoices) == 0 {
		return views
	}
	customerIds := make([]string, len(invoices))
	userIds := make([]string, len(invoices))
	for i, inv := range invoices {
		customerIds[i] = inv.CustomerId
		userIds[i] = inv.UserId
	}

	customers, customerErrs := middlewares.GetCustomers(ctx, customerIds)
	var users []*models.User
	var userErrs []error
	if withUsers {
		users, userErrs = middlewares.GetUsers(ctx, userIds)
	}
	for i, inv := range invoices {
		views[i].Invoice = inv
		if loaded(customerErrs, i) {
			views[i].Customer = customers[i].Summary()
		}
		if withUsers && loaded(userErrs, i) {
			views[i].User = users[i].Summary()
		}
	}
	return views
}

func loaded(errs []error, i int) bool {
	return i >= len(errs) || errs[i] == nil
}

// ==================== Users ====================

func (a *api) login(c *gin.Context) {
	var input models.LoginInput
	if !a.bind(c, &input, false) {
		return
	}
	result, err := a.users.Login(c.Request.Context(), &input)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ==================== Invoices ====================

func (a *api) createInvoice(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	var input models.NewInvoice
	if !a.bind(c, &input, false) {
		return
	}
	created, err := a.invoices.CreateInvoice(c.Request.Context(), actor, &input)
	if err != nil {
		a.fail(c, err)
		return
	}
	view := a.populateInvoices(c, []*models.Invoice{created.Invoice}, false)[0]
	view.FollowUps = created.FollowUps
	c.JSON(http.StatusCreated, view)
}

func (a *api) listInvoices(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	filter, err := invoiceFilterFromQuery(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	invoices, err := a.invoices.ListInvoicesForUser(c.Request.Context(), actor, filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.populateInvoices(c, invoices, false))
}

func (a *api) listAllInvoices(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	filter, err := invoiceFilterFromQuery(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	filter.UserId = strings.TrimSpace(c.Query("user_id"))
	invoices, err := a.invoices.ListAllInvoices(c.Request.Context(), actor, filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.populateInvoices(c, invoices, true))
}

func (a *api) getInvoice(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	inv, err := a.invoices.GetInvoice(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.populateInvoices(c, []*models.Invoice{inv}, false)[0])
}

func (a *api) updateInvoice(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	var patch models.InvoicePatch
	if !a.bind(c, &patch, false) {
		return
	}
	inv, err := a.invoices.UpdateInvoice(c.Request.Context(), actor, c.Param("id"), &patch)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *api) deleteInvoice(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	if err := a.invoices.DeleteInvoice(c.Request.Context(), actor, c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice removed"})
}

type statusRequest struct {
	Status models.InvoiceStatus `json:"status" binding:"required"`
}

func (a *api) updateInvoiceStatus(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	var req statusRequest
	if !a.bind(c, &req, false) {
		return
	}
	inv, err := a.invoices.UpdateInvoiceStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *api) invoicePDF(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	err := a.invoices.ExportInvoiceDocument(c.Request.Context(), actor, c.Param("id"), func(doc *documents.Artifact, r io.Reader) error {
		c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, r, map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%s", doc.FileName),
		})
		return nil
	})
	if err != nil {
		a.fail(c, err)
	}
}

func (a *api) emailInvoice(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	var opts workflow.EmailOptions
	if !a.bind(c, &opts, true) {
		return
	}
	inv, err := a.invoices.EmailInvoice(c.Request.Context(), actor, c.Param("id"), opts)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Invoice sent successfully", "invoice": inv})
}

func (a *api) invoiceAnalytics(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	dateRange, err := dateRangeFromQuery(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	result, err := a.invoices.GetInvoiceAnalytics(c.Request.Context(), actor, dateRange)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *api) exportInvoiceAnalytics(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	dateRange, err := dateRangeFromQuery(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	buf, fileName, err := a.invoices.ExportInvoiceAnalytics(c.Request.Context(), actor, dateRange)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ==================== Customers ====================

func (a *api) getCustomer(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	customer, err := a.customers.GetCustomer(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (a *api) updateNextService(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	var patch models.NextServicePatch
	if !a.bind(c, &patch, false) {
		return
	}
	customer, err := a.customers.UpdateNextService(c.Request.Context(), actor, c.Param("id"), c.Param("serviceId"), &patch)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (a *api) removeNextService(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	customer, err := a.customers.RemoveNextService(c.Request.Context(), actor, c.Param("id"), c.Param("serviceId"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// ==================== Follow-ups (admin) ====================

func (a *api) listFollowUps(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	filter := models.FollowUpFilter{InvoiceId: strings.TrimSpace(c.Query("invoice_id"))}
	for _, st := range splitAndTrim(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, models.FollowUpStatus(strings.ToUpper(st)))
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.fail(c, utils.NewAppError(utils.KindInvalidInput, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	followUps, err := a.invoices.ListFollowUps(c.Request.Context(), actor, filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, followUps)
}

func (a *api) replayFollowUp(c *gin.Context) {
	actor, ok := a.actor(c)
	if !ok {
		return
	}
	fu, err := a.invoices.ReplayFollowUp(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		if a.logger != nil && fu != nil {
			a.logger.WithFields(config.RequestFields(c.Request.Context())).WithFields(logrus.Fields{
				"field":       "FollowUpReplay",
				"follow_up":   fu.ID,
				"customer_id": fu.CustomerId,
			}).Warn("follow-up replay failed: " + err.Error())
		}
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fu)
}

// ==================== Query parsing ====================

const queryDayLayout = "2006-01-02"

// parseQueryDate accepts RFC 3339 or a bare day. A bare day is midnight UTC unless
// endOfDay is set, in which case the whole day is covered.
func parseQueryDate(name string, raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(queryDayLayout, raw)
	if err != nil {
		return time.Time{}, utils.NewAppError(utils.KindInvalidInput, "invalid %s %q", name, raw)
	}
	if endOfDay {
		return reports.EndOfDay(t), nil
	}
	return t, nil
}

// dateRangeFromQuery returns nil unless both start_date and end_date are given.
func dateRangeFromQuery(c *gin.Context) (*reports.DateRange, error) {
	rawStart := strings.TrimSpace(c.Query("start_date"))
	rawEnd := strings.TrimSpace(c.Query("end_date"))
	if rawStart == "" || rawEnd == "" {
		return nil, nil
	}
	start, err := parseQueryDate("start_date", rawStart, false)
	if err != nil {
		return nil, err
	}
	end, err := parseQueryDate("end_date", rawEnd, true)
	if err != nil {
		return nil, err
	}
	return &reports.DateRange{StartDate: start, EndDate: end}, nil
}

func invoiceFilterFromQuery(c *gin.Context) (models.InvoiceFilter, error) {
	filter := models.InvoiceFilter{CustomerId: strings.TrimSpace(c.Query("customer_id"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.InvoiceStatus(strings.ToLower(raw))
		if !status.IsValid() {
			return filter, utils.NewAppError(utils.KindInvalidInput, "invalid invoice status %q", raw)
		}
		filter.Status = status
	}
	dateRange, err := dateRangeFromQuery(c)
	if err != nil {
		return filter, err
	}
	if dateRange != nil {
		filter.DateFrom = &dateRange.StartDate
		filter.DateTo = &dateRange.EndDate
	}
	return filter, nil
}
