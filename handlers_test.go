package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store/memory"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router     *gin.Engine
	store      *memory.Store
	ownerToken string
	otherToken string
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	ownerHash, err := utils.HashPassword("owner-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := []*models.User{
		{ID: "user-1", Name: "Owner", Email: "owner@example.com", Password: ownerHash, Role: models.UserRoleUser},
		{ID: "user-2", Name: "Other", Email: "other@example.com", Role: models.UserRoleUser},
		{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: models.UserRoleAdmin},
	}
	for _, u := range users {
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := st.CreateCustomer(ctx, &models.Customer{ID: "cust-1", UserId: "user-1", Name: "Jane Doe", Email: "jane@example.com", Phone: "+1 650 253 0000"}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := st.CreateProduct(ctx, &models.Product{ID: "prod-1", UserId: "user-1", Name: "All-season tyre", Price: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	invoices := workflow.NewInvoiceService(st, logger)
	invoices.Clock = utils.FixedClock{At: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	invoices.Artifacts = documents.NewLocalArtifactStore(t.TempDir())
	invoices.Business = config.BusinessProfile{Name: "Your Company Name", CountryCode: "US"}

	a := &api{
		invoices:  invoices,
		customers: workflow.NewCustomerService(st, logger),
		users:     workflow.NewUserService(st, logger),
		logger:    logger,
	}
	ts := &testServer{router: newRouter(a, st), store: st}
	for _, u := range users {
		token, err := utils.JwtGenerate(u.ID, string(u.Role))
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		switch u.ID {
		case "user-1":
			ts.ownerToken = token
		case "user-2":
			ts.otherToken = token
		case "admin-1":
			ts.adminToken = token
		}
	}
	return ts
}

func (ts *testServer) do(t *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var createBody = map[string]any{
	"customer_id":    "cust-1",
	"tax_rate":       10,
	"discount_type":  "percentage",
	"discount_value": 5,
	"items": []map[string]any{
		{"item_type": "product", "item_id": "prod-1", "quantity": 2, "price": "100"},
	},
}

type invoiceResponse struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`
	Total         string `json:"total"`
	Customer      *struct {
		Name string `json:"name"`
	} `json:"customer"`
	User *struct {
		Name string `json:"name"`
	} `json:"user"`
	FollowUps []struct {
		Kind   string `json:"kind"`
		Status string `json:"status"`
	} `json:"follow_ups"`
}

func TestCreateAndListInvoices(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/invoices", ts.ownerToken, createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: want 201 got %d %s", w.Code, w.Body.String())
	}
	created := decode[invoiceResponse](t, w)
	if created.InvoiceNumber != "INV-2403-0001" || created.Status != "draft" || created.Total != "210" {
		t.Fatalf("unexpected invoice %+v", created)
	}
	if created.Customer == nil || created.Customer.Name != "Jane Doe" {
		t.Fatalf("expected customer summary, got %+v", created.Customer)
	}
	if len(created.FollowUps) != 1 || created.FollowUps[0].Status != "SUCCEEDED" {
		t.Fatalf("unexpected follow-ups %+v", created.FollowUps)
	}

	w = ts.do(t, http.MethodGet, "/api/invoices", ts.ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: want 200 got %d", w.Code)
	}
	listed := decode[[]invoiceResponse](t, w)
	if len(listed) != 1 || listed[0].Customer == nil || listed[0].User != nil {
		t.Fatalf("unexpected listing %+v", listed)
	}

	w = ts.do(t, http.MethodGet, "/api/invoices", ts.otherToken, nil)
	if got := decode[[]invoiceResponse](t, w); len(got) != 0 {
		t.Fatalf("other user should see no invoices, got %d", len(got))
	}

	w = ts.do(t, http.MethodGet, "/api/invoices/all", ts.adminToken, nil)
	all := decode[[]invoiceResponse](t, w)
	if len(all) != 1 || all[0].User == nil || all[0].User.Name != "Owner" {
		t.Fatalf("admin listing should carry the owner, got %+v", all)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/invoices", ts.ownerToken, createBody)
	id := decode[invoiceResponse](t, w).ID

	paid := ts.do(t, http.MethodPut, "/api/invoices/"+id+"/status", ts.ownerToken, map[string]any{"status": "paid"})
	if paid.Code != http.StatusOK {
		t.Fatalf("status update: want 200 got %d %s", paid.Code, paid.Body.String())
	}

	missingProduct := map[string]any{
		"customer_id": "cust-1",
		"items":       []map[string]any{{"item_type": "product", "item_id": "nope", "quantity": 1, "price": 1}},
	}
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"no token", http.MethodGet, "/api/invoices", "", nil, http.StatusUnauthorized},
		{"foreign invoice", http.MethodGet, "/api/invoices/" + id, ts.otherToken, nil, http.StatusForbidden},
		{"unknown invoice", http.MethodGet, "/api/invoices/missing", ts.ownerToken, nil, http.StatusNotFound},
		{"admin only listing", http.MethodGet, "/api/invoices/all", ts.ownerToken, nil, http.StatusForbidden},
		{"modify paid invoice", http.MethodPut, "/api/invoices/" + id, ts.ownerToken, map[string]any{"notes": "x"}, http.StatusConflict},
		{"delete non-draft", http.MethodDelete, "/api/invoices/" + id, ts.ownerToken, nil, http.StatusConflict},
		{"missing catalog item", http.MethodPost, "/api/invoices", ts.ownerToken, missingProduct, http.StatusNotFound},
		{"invalid status value", http.MethodPut, "/api/invoices/" + id + "/status", ts.ownerToken, map[string]any{"status": "archived"}, http.StatusBadRequest},
		{"email without mailer", http.MethodPost, "/api/invoices/" + id + "/email", ts.ownerToken, nil, http.StatusBadGateway},
		{"bad analytics date", http.MethodGet, "/api/invoices/analytics?start_date=yesterday&end_date=2024-03-01", ts.ownerToken, nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nowhere", ts.ownerToken, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.status {
				t.Fatalf("want %d got %d %s", tt.status, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("expected an error body, got %s", w.Body.String())
			}
		})
	}
}

func TestInvoicePDFDownload(t *testing.T) {
	ts := newTestServer(t)
	id := decode[invoiceResponse](t, ts.do(t, http.MethodPost, "/api/invoices", ts.ownerToken, createBody)).ID

	w := ts.do(t, http.MethodGet, "/api/invoices/"+id+"/pdf", ts.ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf: want 200 got %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=invoice-INV-2403-0001.pdf" {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/users/login", "", map[string]any{"email": "Owner@Example.com", "password": "owner-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: want 200 got %d %s", w.Code, w.Body.String())
	}
	res := decode[struct {
		Token string `json:"token"`
	}](t, w)
	if res.Token == "" {
		t.Fatalf("expected a token")
	}
	if w := ts.do(t, http.MethodGet, "/api/invoices", res.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("token should authenticate, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/users/login", "", map[string]any{"email": "owner@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: want 401 got %d", w.Code)
	}
}

func TestCorrelationIdEchoed(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("x-correlation-id", "cid-123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("healthz: want 204 got %d", w.Code)
	}
	if got := w.Header().Get("x-correlation-id"); got != "cid-123" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
}

func TestInvoiceAnalytics_DayOnlyEndDateCoversThatDay(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodPost, "/api/invoices", ts.ownerToken, createBody); w.Code != http.StatusCreated {
		t.Fatalf("create: want 201 got %d %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "bare end day", query: "start_date=2024-03-01&end_date=2024-03-05", want: 1},
		{name: "timestamp before the invoice", query: "start_date=2024-03-01&end_date=2024-03-05T09:00:00Z", want: 0},
		{name: "bare day before", query: "start_date=2024-03-01&end_date=2024-03-04", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/invoices/analytics?"+tt.query, ts.ownerToken, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("want 200 got %d %s", w.Code, w.Body.String())
			}
			got := decode[struct {
				TotalInvoices int `json:"total_invoices"`
			}](t, w)
			if got.TotalInvoices != tt.want {
				t.Fatalf("want %d invoices got %d", tt.want, got.TotalInvoices)
			}
		})
	}
}
