package config

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/autoservice_backend/appctx"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogErrorContext_MergesRequestFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := appctx.Set(context.Background(), appctx.ContextKeyCorrelationId, "cid-42")

	tests := []struct {
		name    string
		log     func()
		wantCID bool
	}{
		{name: "request path", log: func() {
			LogErrorContext(ctx, logger, "invoiceExport.go", "EmailInvoice", "Send", "INV-2403-0001", errors.New("boom"))
		}, wantCID: true},
		{name: "no context", log: func() {
			LogError(logger, "Server", "main", "startup", nil, errors.New("boom"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			tt.log()
			entry := hook.LastEntry()
			if entry == nil {
				t.Fatalf("expected a log entry")
			}
			_, hasCID := entry.Data["correlation_id"]
			if hasCID != tt.wantCID {
				t.Fatalf("correlation_id present=%v, want %v (%v)", hasCID, tt.wantCID, entry.Data)
			}
			if entry.Message != "boom" || entry.Data["module"] == "" {
				t.Fatalf("unexpected entry %+v", entry)
			}
		})
	}

	hook.Reset()
	LogErrorContext(ctx, logger, "m", "f", "c", nil, nil)
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("nil error must not log")
	}
}
