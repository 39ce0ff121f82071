package workflow

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestEmailInvoice_SendsAndMarksSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.create(t, &models.NewInvoice{
		Items:      []models.NewInvoiceItem{productItem(2, 100)},
		TaxRate:    dec("10"),
		TyreChange: &models.TyreChange{FrontLeft: true, RearRight: true},
		Notes:      "Torque checked",
	})

	updated, err := f.service.EmailInvoice(ctx, owner, inv.ID, EmailOptions{})
	if err != nil {
		t.Fatalf("email invoice: %v", err)
	}
	if updated.Status != models.InvoiceStatusSent {
		t.Fatalf("expected sent, got %s", updated.Status)
	}
	stored, _ := f.store.GetInvoice(ctx, inv.ID)
	if stored.Status != models.InvoiceStatusSent {
		t.Fatalf("status not persisted, got %s", stored.Status)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(f.mailer.sent))
	}
	msg := f.mailer.sent[0]
	if msg.To != "jane@example.com" || msg.Subject != "Invoice #"+inv.InvoiceNumber {
		t.Fatalf("unexpected envelope %q / %q", msg.To, msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "Please find attached your invoice.") || !strings.Contains(msg.HTMLBody, "Total Amount: $220.00") {
		t.Fatalf("unexpected html body %q", msg.HTMLBody)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.FileName != "invoice-"+inv.InvoiceNumber+".pdf" || att.ContentType != documents.PDFContentType {
		t.Fatalf("unexpected attachment %q %q", att.FileName, att.ContentType)
	}
	if !strings.HasPrefix(string(att.Content), "%PDF") {
		t.Fatalf("attachment is not a PDF")
	}
	f.assertNoArtifacts(t)
}

func TestEmailInvoice_CustomSubjectAndMessage(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
	subject := "Your tyres are ready"
	message := "Thanks for visiting <us>"
	if _, err := f.service.EmailInvoice(context.Background(), owner, inv.ID, EmailOptions{Subject: &subject, Message: &message}); err != nil {
		t.Fatalf("email invoice: %v", err)
	}
	msg := f.mailer.sent[0]
	if msg.Subject != subject {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "Thanks for visiting &lt;us&gt;") {
		t.Fatalf("expected escaped message in html body, got %q", msg.HTMLBody)
	}
}

func TestEmailInvoice_FailureLeavesStatusAndNoArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
	f.mailer.err = errors.New("smtp: connection refused")

	_, err := f.service.EmailInvoice(ctx, owner, inv.ID, EmailOptions{})
	assertKind(t, err, utils.KindExternalFailure)
	if !strings.HasPrefix(err.Error(), "failed to send invoice: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	stored, _ := f.store.GetInvoice(ctx, inv.ID)
	if stored.Status != models.InvoiceStatusDraft {
		t.Fatalf("failed send must not change status, got %s", stored.Status)
	}
	f.assertNoArtifacts(t)
}

func TestEmailInvoice_FailureLogCarriesCorrelationId(t *testing.T) {
	f := newFixture(t)
	logger, hook := test.NewNullLogger()
	f.service.Logger = logger
	inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
	f.mailer.err = errors.New("smtp: connection refused")

	ctx := utils.SetCorrelationIdInContext(context.Background(), "cid-email-1")
	ctx = utils.SetUserIdInContext(ctx, owner.UserId)
	if _, err := f.service.EmailInvoice(ctx, owner, inv.ID, EmailOptions{}); err == nil {
		t.Fatalf("expected the send to fail")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected an error entry, got %+v", entry)
	}
	if entry.Data["correlation_id"] != "cid-email-1" || entry.Data["user_id"] != owner.UserId {
		t.Fatalf("expected request fields on the entry, got %v", entry.Data)
	}
	if entry.Data["funcName"] != "EmailInvoice" {
		t.Fatalf("unexpected funcName %v", entry.Data["funcName"])
	}
}

func TestEmailInvoice_WithoutMailer(t *testing.T) {
	f := newFixture(t)
	f.service.Mailer = nil
	inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
	_, err := f.service.EmailInvoice(context.Background(), owner, inv.ID, EmailOptions{})
	assertKind(t, err, utils.KindExternalFailure)
}

func TestExportInvoiceDocument_StreamsAndCleansUp(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})

	var fileName string
	err := f.service.ExportInvoiceDocument(context.Background(), owner, inv.ID, func(a *documents.Artifact, r io.Reader) error {
		fileName = a.FileName
		body, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(string(body), "%PDF") {
			t.Fatalf("expected PDF content")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if fileName != "invoice-"+inv.InvoiceNumber+".pdf" {
		t.Fatalf("unexpected file name %q", fileName)
	}
	f.assertNoArtifacts(t)
}

func TestExportInvoiceDocument_CleansUpWhenSinkFails(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, &models.NewInvoice{Items: []models.NewInvoiceItem{productItem(1, 10)}})
	sinkErr := errors.New("client went away")

	err := f.service.ExportInvoiceDocument(context.Background(), owner, inv.ID, func(*documents.Artifact, io.Reader) error {
		return sinkErr
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	f.assertNoArtifacts(t)

	_ = f.service.ExportInvoiceDocument(context.Background(), other, inv.ID, func(*documents.Artifact, io.Reader) error { return nil })
	f.assertNoArtifacts(t)
}

func TestBuildDocument_Content(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, &models.NewInvoice{
		Items:         []models.NewInvoiceItem{productItem(1, 10)},
		DiscountValue: dec("10"),
		TyreChange:    &models.TyreChange{RearLeft: true},
	})
	customer, _ := f.store.GetCustomer(context.Background(), "cust-1")

	doc := f.service.buildDocument(inv, customer)
	if doc.DiscountPercent == nil || doc.DiscountPercent.String() != "10" {
		t.Fatalf("expected percentage label, got %v", doc.DiscountPercent)
	}
	if doc.Tyres == nil || !doc.Tyres.RearLeft || doc.Tyres.FrontLeft {
		t.Fatalf("unexpected tyre diagram %+v", doc.Tyres)
	}
	if doc.BillTo.Address != "1 Main St, Springfield" {
		t.Fatalf("unexpected address %q", doc.BillTo.Address)
	}
	if doc.BillTo.Phone != "+1 650-253-0000" {
		t.Fatalf("unexpected phone %q", doc.BillTo.Phone)
	}
}
