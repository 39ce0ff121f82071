package workflow

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/email"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/store/memory"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var fixedNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

var (
	owner = Actor{UserId: "user-1", Role: models.UserRoleUser}
	other = Actor{UserId: "user-2", Role: models.UserRoleUser}
	admin = Actor{UserId: "admin-1", Role: models.UserRoleAdmin}
)

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []email.Message
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// flakyStore fails the first n purchase-history appends.
type flakyStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) AppendPurchaseHistory(ctx context.Context, customerID string, entry models.PurchaseHistoryEntry) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("customer store unavailable")
	}
	f.mu.Unlock()
	return f.Store.AppendPurchaseHistory(ctx, customerID, entry)
}

type fixture struct {
	store       *memory.Store
	service     *InvoiceService
	customers   *CustomerService
	mailer      *fakeMailer
	artifactDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	if err := st.CreateCustomer(ctx, &models.Customer{
		ID:      "cust-1",
		UserId:  owner.UserId,
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "+1 650 253 0000",
		Address: models.Address{Street: "1 Main St", City: "Springfield"},
	}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := st.CreateCustomer(ctx, &models.Customer{ID: "cust-2", UserId: other.UserId, Name: "John Roe", Email: "john@example.com"}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := st.CreateProduct(ctx, &models.Product{ID: "prod-1", UserId: owner.UserId, Name: "All-season tyre", Price: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := st.CreateService(ctx, &models.Service{ID: "svc-1", UserId: owner.UserId, Name: "Wheel alignment", Price: decimal.NewFromInt(60)}); err != nil {
		t.Fatalf("create service: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	mailer := &fakeMailer{}
	svc := NewInvoiceService(st, logger)
	svc.Clock = utils.FixedClock{At: fixedNow}
	svc.Artifacts = documents.NewLocalArtifactStore(dir)
	svc.Mailer = mailer
	svc.Business = config.BusinessProfile{Name: "Your Company Name", CountryCode: "US"}

	return &fixture{
		store:       st,
		service:     svc,
		customers:   NewCustomerService(st, logger),
		mailer:      mailer,
		artifactDir: dir,
	}
}

func productItem(qty int, price int64) models.NewInvoiceItem {
	return models.NewInvoiceItem{ItemType: models.ItemTypeProduct, ItemId: "prod-1", Quantity: qty, Price: decimal.NewFromInt(price)}
}

func serviceItem(qty int, price int64) models.NewInvoiceItem {
	return models.NewInvoiceItem{ItemType: models.ItemTypeService, ItemId: "svc-1", Quantity: qty, Price: decimal.NewFromInt(price)}
}

func (f *fixture) create(t *testing.T, input *models.NewInvoice) *models.Invoice {
	t.Helper()
	if input.CustomerId == "" {
		input.CustomerId = "cust-1"
	}
	created, err := f.service.CreateInvoice(context.Background(), owner, input)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return created.Invoice
}

func (f *fixture) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.artifactDir)
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no transient artifacts, found %d", len(entries))
	}
}

func assertKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := utils.ErrorKindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
