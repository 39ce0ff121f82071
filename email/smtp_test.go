package email

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mmdatafocus/autoservice_backend/config"
)

func TestBuildMessage_AttachesPDF(t *testing.T) {
	m, err := buildMessage("billing@example.com", Message{
		To:       "customer@example.com",
		Subject:  "Invoice #INV-2410-0001",
		TextBody: "Please find attached your invoice.",
		HTMLBody: "<h1>Invoice #INV-2410-0001</h1>",
		Attachments: []Attachment{{
			FileName:    "invoice-INV-2410-0001.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.3 test"),
		}},
	})
	if err != nil {
		t.Fatalf("buildMessage error: %v", err)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"customer@example.com", "Invoice #INV-2410-0001", "application/pdf", "invoice-INV-2410-0001.pdf"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected message to contain %q", want)
		}
	}
}

func TestBuildMessage_RejectsBadRecipient(t *testing.T) {
	if _, err := buildMessage("billing@example.com", Message{To: "not an address"}); err == nil {
		t.Fatalf("expected error for invalid recipient")
	}
}

func TestSMTPSender_RequiresConfiguration(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{})
	if err := s.Send(context.Background(), Message{To: "customer@example.com"}); err == nil {
		t.Fatalf("expected error when smtp is not configured")
	}
}
