// Package documents renders invoices to PDF and stages the result in transient storage.
package documents

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

const PDFContentType = "application/pdf"

type Issuer struct {
	Name    string
	Address string
	Phone   string
	Email   string
	// Logo is an already encoded PNG; nil skips the logo.
	Logo []byte
}

type BillTo struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type DocumentItem struct {
	Name      string
	Type      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

type TyreDiagram struct {
	FrontLeft  bool
	FrontRight bool
	RearLeft   bool
	RearRight  bool
	Notes      string
}

// InvoiceDocument is the printable content of one invoice.
type InvoiceDocument struct {
	Issuer        Issuer
	InvoiceNumber string
	Date          time.Time
	DueDate       time.Time
	Status        string
	BillTo        BillTo
	Items         []DocumentItem

	Subtotal decimal.Decimal
	// DiscountPercent is set only for percentage discounts and labels the discount line.
	DiscountPercent *decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal

	Notes string
	// Tyres is nil when no wheel was changed.
	Tyres *TyreDiagram
}

func (d *InvoiceDocument) FileName() string {
	return "invoice-" + d.InvoiceNumber + ".pdf"
}

// Renderer writes a finished document to w.
type Renderer interface {
	Render(ctx context.Context, doc *InvoiceDocument, w io.Writer) error
}
