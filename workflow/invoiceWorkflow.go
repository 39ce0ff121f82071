package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/email"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultDueDays = 30

var tracer = otel.Tracer("autoservice-backend")

// InvoiceService runs the invoice lifecycle against a Store. Renderer, Artifacts and Mailer
// are only needed by the export and email operations.
type InvoiceService struct {
	Store     store.Store
	Clock     utils.Clock
	Locker    Locker
	Logger    *logrus.Logger
	Renderer  documents.Renderer
	Artifacts documents.ArtifactStore
	Mailer    email.Sender
	Business  config.BusinessProfile
	Logo      []byte

	// StrictTransitions enforces the invoice status transition table.
	StrictTransitions bool
	// MaxFollowUpAttempts marks a follow-up DEAD once reached; 0 retries forever.
	MaxFollowUpAttempts int
	// FollowUpStaleAfter is how long a PROCESSING follow-up is left to its creating request.
	FollowUpStaleAfter time.Duration
}

func NewInvoiceService(st store.Store, logger *logrus.Logger) *InvoiceService {
	return &InvoiceService{
		Store:               st,
		Clock:               utils.SystemClock{},
		Logger:              logger,
		Renderer:            documents.NewPDFRenderer(),
		Artifacts:           documents.NewLocalArtifactStore(""),
		Business:            config.GetBusinessProfile(),
		MaxFollowUpAttempts: 5,
		FollowUpStaleAfter:  5 * time.Minute,
	}
}

// CreatedInvoice is a persisted invoice plus the customer follow-ups it produced.
type CreatedInvoice struct {
	Invoice   *models.Invoice
	FollowUps []*models.CustomerFollowUp
}

func (s *InvoiceService) CreateInvoice(ctx context.Context, actor Actor, input *models.NewInvoice) (result *CreatedInvoice, err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.CreateInvoice")
	defer func() { finishSpan(span, err) }()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	customer, err := s.Store.GetCustomer(ctx, input.CustomerId)
	if err != nil {
		return nil, lookupError(err, "customer", input.CustomerId)
	}
	if err := authorizeOwner(actor, customer.UserId, "customer"); err != nil {
		return nil, err
	}
	items, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	inv := &models.Invoice{
		ID:              uuid.NewString(),
		UserId:          actor.UserId,
		CustomerId:      customer.ID,
		Date:            now,
		DueDate:         now.AddDate(0, 0, defaultDueDays),
		Items:           items,
		TaxRate:         input.TaxRate,
		DiscountType:    input.DiscountType,
		DiscountValue:   input.DiscountValue,
		Status:          models.InvoiceStatusDraft,
		Notes:           input.Notes,
		NextServiceDate: input.NextServiceDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.DueDate != nil {
		inv.DueDate = *input.DueDate
	}
	if input.TyreChange != nil {
		inv.TyreChange = *input.TyreChange
	}
	for i := range inv.Items {
		inv.Items[i].InvoiceId = inv.ID
	}
	applyTotals(inv)

	unlock := s.lockAllocation(ctx)
	inv.InvoiceNumber, err = s.allocateInvoiceNumber(ctx, now)
	if err == nil {
		err = s.Store.CreateInvoice(ctx, inv)
	}
	unlock()
	if err != nil {
		if errors.Is(err, utils.ErrorDuplicateKey) {
			return nil, utils.WrapAppError(utils.KindConflict, err, "invoice number %s is already taken, retry the request", inv.InvoiceNumber)
		}
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		config.LogErrorContext(ctx, s.Logger, "invoiceWorkflow.go", "CreateInvoice", "CreateInvoice", inv.InvoiceNumber, err)
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to create invoice")
	}
	span.SetAttributes(invoiceAttributes(inv)...)

	followUps := s.recordFollowUps(ctx, inv)
	return &CreatedInvoice{Invoice: inv, FollowUps: followUps}, nil
}

// ListInvoicesForUser returns the caller's own invoices, newest first.
func (s *InvoiceService) ListInvoicesForUser(ctx context.Context, actor Actor, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	filter.UserId = actor.UserId
	invoices, err := s.Store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to list invoices")
	}
	return invoices, nil
}

func (s *InvoiceService) ListAllInvoices(ctx context.Context, actor Actor, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	invoices, err := s.Store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to list invoices")
	}
	return invoices, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, actor Actor, id string) (*models.Invoice, error) {
	return s.loadInvoice(ctx, actor, id)
}

// UpdateInvoice applies patch to an unpaid invoice. Money fields are recomputed whenever the
// patch touches items, tax rate or discount; untouched inputs keep their stored values.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, actor Actor, id string, patch *models.InvoicePatch) (result *models.Invoice, err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.UpdateInvoice")
	defer func() { finishSpan(span, err) }()

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	current, err := s.loadInvoice(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.InvoiceStatusPaid {
		return nil, utils.NewAppError(utils.KindInvalidState, "cannot modify a paid invoice")
	}

	inv := current.Clone()
	if patch.Date != nil {
		inv.Date = *patch.Date
	}
	if patch.DueDate != nil {
		inv.DueDate = *patch.DueDate
	}
	if patch.Items != nil {
		items, err := s.resolveItems(ctx, patch.Items)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].InvoiceId = inv.ID
		}
		inv.Items = items
	}
	if patch.TaxRate != nil {
		inv.TaxRate = *patch.TaxRate
	}
	if patch.DiscountType != nil {
		inv.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		inv.DiscountValue = *patch.DiscountValue
	}
	if patch.Status != nil {
		if err := s.checkTransition(current.Status, *patch.Status); err != nil {
			return nil, err
		}
		inv.Status = *patch.Status
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	if patch.TyreChange != nil {
		inv.TyreChange = *patch.TyreChange
	}
	if patch.NextServiceDate != nil {
		inv.NextServiceDate = patch.NextServiceDate
	}
	if patch.TouchesTotals() {
		applyTotals(inv)
	}
	inv.UpdatedAt = s.Clock.Now()

	if err := s.saveInvoice(ctx, inv, "UpdateInvoice"); err != nil {
		return nil, err
	}
	return inv, nil
}

// DeleteInvoice removes a draft invoice. Customer history written at creation stays.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, actor Actor, id string) (err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.DeleteInvoice")
	defer func() { finishSpan(span, err) }()

	inv, err := s.loadInvoice(ctx, actor, id)
	if err != nil {
		return err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return utils.NewAppError(utils.KindInvalidState, "only draft invoices can be deleted, invoice %s is %s", inv.InvoiceNumber, inv.Status)
	}
	if err := s.Store.DeleteInvoice(ctx, inv.ID); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return lookupError(err, "invoice", id)
		}
		config.LogErrorContext(ctx, s.Logger, "invoiceWorkflow.go", "DeleteInvoice", "DeleteInvoice", id, err)
		return utils.WrapAppError(utils.KindInternal, err, "failed to delete invoice")
	}
	return nil
}

func (s *InvoiceService) UpdateInvoiceStatus(ctx context.Context, actor Actor, id string, status models.InvoiceStatus) (result *models.Invoice, err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.UpdateInvoiceStatus")
	defer func() { finishSpan(span, err) }()

	if !status.IsValid() {
		return nil, utils.NewAppError(utils.KindInvalidInput, "invalid input: status failed oneof")
	}
	inv, err := s.loadInvoice(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(inv.Status, status); err != nil {
		return nil, err
	}
	inv.Status = status
	inv.UpdatedAt = s.Clock.Now()
	if err := s.saveInvoice(ctx, inv, "UpdateInvoiceStatus"); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvoiceService) checkTransition(from, to models.InvoiceStatus) error {
	if !s.StrictTransitions || from.CanTransitionTo(to) {
		return nil
	}
	return utils.NewAppError(utils.KindInvalidState, "cannot change invoice status from %s to %s", from, to)
}

func (s *InvoiceService) loadInvoice(ctx context.Context, actor Actor, id string) (*models.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, lookupError(err, "invoice", id)
	}
	if err := authorizeOwner(actor, inv.UserId, "invoice"); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvoiceService) saveInvoice(ctx context.Context, inv *models.Invoice, funcName string) error {
	err := s.Store.UpdateInvoice(ctx, inv)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrorRecordNotFound):
		return lookupError(err, "invoice", inv.ID)
	case errors.Is(err, utils.ErrorDuplicateKey):
		return utils.WrapAppError(utils.KindConflict, err, "invoice number %s is already taken", inv.InvoiceNumber)
	default:
		config.LogErrorContext(ctx, s.Logger, "invoiceWorkflow.go", funcName, "UpdateInvoice", inv.ID, err)
		return utils.WrapAppError(utils.KindInternal, err, "failed to save invoice")
	}
}

// resolveItems snapshots catalog names onto new line items in input order.
func (s *InvoiceService) resolveItems(ctx context.Context, inputs []models.NewInvoiceItem) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(inputs))
	for i, in := range inputs {
		var name string
		var err error
		switch in.ItemType {
		case models.ItemTypeProduct:
			var p *models.Product
			if p, err = s.Store.GetProduct(ctx, in.ItemId); err == nil {
				name = p.Name
			}
		case models.ItemTypeService:
			var svc *models.Service
			if svc, err = s.Store.GetService(ctx, in.ItemId); err == nil {
				name = svc.Name
			}
		default:
			return nil, utils.NewAppError(utils.KindInvalidInput, "invalid input: items[%d].item_type failed oneof", i)
		}
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, utils.NewAppError(utils.KindInvalidReference, "%s with ID %s not found", in.ItemType, in.ItemId)
			}
			return nil, utils.WrapAppError(utils.KindInternal, err, "failed to load %s %s", in.ItemType, in.ItemId)
		}
		items = append(items, models.LineItem{
			ID:       uuid.NewString(),
			Position: i,
			ItemType: in.ItemType,
			ItemId:   in.ItemId,
			Name:     name,
			Quantity: in.Quantity,
			Price:    in.Price,
		})
	}
	return items, nil
}

// applyTotals recomputes every line total and the invoice money fields from the stored inputs.
func applyTotals(inv *models.Invoice) {
	lines := make([]utils.Priced, len(inv.Items))
	for i, item := range inv.Items {
		lines[i] = utils.Priced{Quantity: item.Quantity, Price: item.Price}
	}
	totals := utils.CalculateInvoiceTotals(lines, inv.TaxRate, inv.DiscountValue, inv.DiscountType != models.DiscountTypeFixed)
	for i := range inv.Items {
		inv.Items[i].Total = totals.LineTotals[i]
	}
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.DiscountAmount = totals.DiscountAmount
	inv.Total = totals.Total
}

// lookupError turns a store miss into NotFound and anything else into Internal.
func lookupError(err error, entity string, id string) error {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return utils.NewAppError(utils.KindNotFound, "%s with ID %s not found", entity, id)
	}
	return utils.WrapAppError(utils.KindInternal, err, "failed to load %s %s", entity, id)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func invoiceAttributes(inv *models.Invoice) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("invoice.id", inv.ID),
		attribute.String("invoice.number", inv.InvoiceNumber),
		attribute.String("invoice.status", string(inv.Status)),
		attribute.Int("invoice.items", len(inv.Items)),
	}
}
