package workflow

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/email"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
)

const defaultEmailMessage = "Please find attached your invoice."

var invoiceEmailTemplate = template.Must(template.New("invoiceEmail").Parse(`<h1>Invoice #{{.Number}}</h1>
<p>{{.Message}}</p>
<p>Total Amount: ${{.Total}}</p>
<p>Due Date: {{.DueDate}}</p>
`))

type EmailOptions struct {
	Subject *string `json:"subject"`
	Message *string `json:"message"`
}

// ExportInvoiceDocument renders the invoice, stages it as a transient artifact and hands it to
// fn. The artifact is removed once fn returns, whatever the outcome.
func (s *InvoiceService) ExportInvoiceDocument(ctx context.Context, actor Actor, id string, fn func(a *documents.Artifact, r io.Reader) error) (err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.ExportInvoiceDocument")
	defer func() { finishSpan(span, err) }()

	inv, err := s.loadInvoice(ctx, actor, id)
	if err != nil {
		return err
	}
	customer, err := s.Store.GetCustomer(ctx, inv.CustomerId)
	if err != nil {
		return lookupError(err, "customer", inv.CustomerId)
	}
	artifact, err := s.stageDocument(ctx, s.buildDocument(inv, customer))
	if err != nil {
		return err
	}
	defer s.removeArtifact(ctx, artifact)

	rc, err := s.Artifacts.Open(ctx, artifact)
	if err != nil {
		return utils.WrapAppError(utils.KindExternalFailure, err, "failed to open invoice document")
	}
	defer rc.Close()
	return fn(artifact, rc)
}

// EmailInvoice sends the rendered invoice to the customer and marks it sent. A failed send
// leaves the status untouched.
func (s *InvoiceService) EmailInvoice(ctx context.Context, actor Actor, id string, opts EmailOptions) (result *models.Invoice, err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.EmailInvoice")
	defer func() { finishSpan(span, err) }()

	inv, err := s.loadInvoice(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	customer, err := s.Store.GetCustomer(ctx, inv.CustomerId)
	if err != nil {
		return nil, lookupError(err, "customer", inv.CustomerId)
	}
	if customer.Email == "" {
		return nil, utils.NewAppError(utils.KindInvalidState, "customer with ID %s has no email address", customer.ID)
	}
	if s.Mailer == nil {
		return nil, utils.NewAppError(utils.KindExternalFailure, "failed to send invoice: mail is not configured")
	}

	doc := s.buildDocument(inv, customer)
	artifact, err := s.stageDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer s.removeArtifact(ctx, artifact)

	content, err := s.readArtifact(ctx, artifact)
	if err != nil {
		return nil, err
	}
	msg, err := invoiceMessage(inv, customer.Email, opts)
	if err != nil {
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to build invoice email")
	}
	msg.Attachments = []email.Attachment{{
		FileName:    artifact.FileName,
		ContentType: artifact.ContentType,
		Content:     content,
	}}

	if err := s.Mailer.Send(ctx, *msg); err != nil {
		config.LogErrorContext(ctx, s.Logger, "invoiceExport.go", "EmailInvoice", "Send", inv.InvoiceNumber, err)
		return nil, utils.WrapAppError(utils.KindExternalFailure, err, "failed to send invoice")
	}

	if err := s.checkTransition(inv.Status, models.InvoiceStatusSent); err != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":          "EmailInvoice",
			"invoice_number": inv.InvoiceNumber,
			"status":         inv.Status,
		}).Warn("invoice emailed; status left unchanged")
		return inv, nil
	}
	inv.Status = models.InvoiceStatusSent
	inv.UpdatedAt = s.Clock.Now()
	if err := s.saveInvoice(ctx, inv, "EmailInvoice"); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvoiceService) buildDocument(inv *models.Invoice, customer *models.Customer) *documents.InvoiceDocument {
	doc := &documents.InvoiceDocument{
		Issuer: documents.Issuer{
			Name:    s.Business.Name,
			Address: s.Business.Address,
			Phone:   s.Business.Phone,
			Email:   s.Business.Email,
			Logo:    s.Logo,
		},
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date,
		DueDate:       inv.DueDate,
		Status:        string(inv.Status),
		BillTo: documents.BillTo{
			Name:    customer.Name,
			Email:   customer.Email,
			Phone:   utils.FormatPhoneNumber(customer.Phone, s.Business.CountryCode),
			Address: customer.Address.String(),
		},
		Items:          make([]documents.DocumentItem, 0, len(inv.Items)),
		Subtotal:       inv.Subtotal,
		DiscountAmount: inv.DiscountAmount,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		Total:          inv.Total,
		Notes:          inv.Notes,
	}
	for _, item := range inv.Items {
		doc.Items = append(doc.Items, documents.DocumentItem{
			Name:      item.Name,
			Type:      string(item.ItemType),
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Total:     item.Total,
		})
	}
	if inv.DiscountType == models.DiscountTypePercentage {
		pct := inv.DiscountValue
		doc.DiscountPercent = &pct
	}
	if inv.TyreChange.AnyChanged() {
		doc.Tyres = &documents.TyreDiagram{
			FrontLeft:  inv.TyreChange.FrontLeft,
			FrontRight: inv.TyreChange.FrontRight,
			RearLeft:   inv.TyreChange.RearLeft,
			RearRight:  inv.TyreChange.RearRight,
			Notes:      inv.TyreChange.Notes,
		}
	}
	return doc
}

func (s *InvoiceService) stageDocument(ctx context.Context, doc *documents.InvoiceDocument) (*documents.Artifact, error) {
	var buf bytes.Buffer
	if err := s.Renderer.Render(ctx, doc, &buf); err != nil {
		config.LogErrorContext(ctx, s.Logger, "invoiceExport.go", "stageDocument", "Render", doc.InvoiceNumber, err)
		return nil, utils.WrapAppError(utils.KindExternalFailure, err, "failed to render invoice")
	}
	artifact, err := s.Artifacts.Save(ctx, doc.FileName(), documents.PDFContentType, &buf)
	if err != nil {
		config.LogErrorContext(ctx, s.Logger, "invoiceExport.go", "stageDocument", "Save", doc.FileName(), err)
		return nil, utils.WrapAppError(utils.KindExternalFailure, err, "failed to stage invoice document")
	}
	return artifact, nil
}

func (s *InvoiceService) readArtifact(ctx context.Context, a *documents.Artifact) ([]byte, error) {
	rc, err := s.Artifacts.Open(ctx, a)
	if err != nil {
		return nil, utils.WrapAppError(utils.KindExternalFailure, err, "failed to open invoice document")
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, utils.WrapAppError(utils.KindExternalFailure, err, "failed to read invoice document")
	}
	return content, nil
}

// removeArtifact also runs after the request context is cancelled.
func (s *InvoiceService) removeArtifact(ctx context.Context, a *documents.Artifact) {
	if err := s.Artifacts.Remove(context.WithoutCancel(ctx), a); err != nil {
		config.LogErrorContext(ctx, s.Logger, "invoiceExport.go", "removeArtifact", "Remove", a.Key, err)
	}
}

func invoiceMessage(inv *models.Invoice, to string, opts EmailOptions) (*email.Message, error) {
	subject := utils.DereferencePtr(opts.Subject)
	if subject == "" {
		subject = fmt.Sprintf("Invoice #%s", inv.InvoiceNumber)
	}
	message := utils.DereferencePtr(opts.Message)
	if message == "" {
		message = defaultEmailMessage
	}
	data := struct {
		Number  string
		Message string
		Total   string
		DueDate string
	}{
		Number:  inv.InvoiceNumber,
		Message: message,
		Total:   inv.Total.StringFixed(2),
		DueDate: inv.DueDate.Format("2006-01-02"),
	}
	var html bytes.Buffer
	if err := invoiceEmailTemplate.Execute(&html, data); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Invoice #%s\n\n%s\n\nTotal Amount: $%s\nDue Date: %s\n", data.Number, data.Message, data.Total, data.DueDate)
	return &email.Message{
		To:       to,
		Subject:  subject,
		TextBody: text,
		HTMLBody: html.String(),
	}, nil
}
