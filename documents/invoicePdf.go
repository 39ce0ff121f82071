package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pageMargin   = 15.0
	contentWidth = 180.0
	// pageBottom is the lowest y a content row may reach before a new page starts.
	pageBottom = 265.0
	rowHeight  = 7.0
	fontFamily = "Helvetica"
	dateLayout = "2006-01-02"
)

// item table column widths: Item, Type, Quantity, Price, Total
var itemColumns = [5]float64{70, 25, 25, 30, 30}

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(_ context.Context, doc *InvoiceDocument, w io.Writer) error {
	pdf, err := r.layout(doc)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func (r *PDFRenderer) layout(doc *InvoiceDocument) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, true)

	p := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(p.footer)

	pdf.AddPage()
	p.header(doc.Issuer)
	p.invoiceBlock(doc)
	p.billTo(doc.BillTo)
	p.itemTable(doc.Items)
	p.totals(doc)
	p.notes(doc.Notes)
	if doc.Tyres != nil {
		p.tyreDiagram(doc.Tyres)
	}
	return pdf, pdf.Error()
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	// onNewPage redraws repeated headers after a page break
	onNewPage func()
}

func (p *pdfWriter) footer() {
	p.pdf.SetY(-20)
	p.pdf.SetFont(fontFamily, "I", 9)
	p.pdf.SetTextColor(100, 100, 100)
	p.pdf.CellFormat(0, 5, p.tr("Thank you for your business!"), "", 1, "C", false, 0, "")
	p.pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", p.pdf.PageNo()), "", 0, "C", false, 0, "")
	p.pdf.SetTextColor(0, 0, 0)
}

// ensureSpace starts a new page when h more millimetres do not fit.
func (p *pdfWriter) ensureSpace(h float64) {
	if p.pdf.GetY()+h <= pageBottom {
		return
	}
	p.pdf.AddPage()
	if p.onNewPage != nil {
		p.onNewPage()
	}
}

func (p *pdfWriter) text(size float64, style string, s string) {
	p.pdf.SetFont(fontFamily, style, size)
	p.pdf.CellFormat(0, size*0.5, p.tr(s), "", 1, "L", false, 0, "")
}

func (p *pdfWriter) header(issuer Issuer) {
	top := p.pdf.GetY()
	if len(issuer.Logo) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		p.pdf.RegisterImageOptionsReader("issuer-logo", opts, bytes.NewReader(issuer.Logo))
		p.pdf.ImageOptions("issuer-logo", pageMargin+contentWidth-40, top, 40, 0, false, opts, 0, "")
	}
	p.text(20, "B", issuer.Name)
	p.pdf.Ln(2)
	for _, line := range []string{issuer.Address, issuer.Phone, issuer.Email} {
		if strings.TrimSpace(line) != "" {
			p.text(10, "", line)
		}
	}
	p.pdf.Ln(6)
}

func (p *pdfWriter) invoiceBlock(doc *InvoiceDocument) {
	p.text(16, "B", "INVOICE")
	p.pdf.Ln(2)
	p.text(10, "", "Invoice Number: "+doc.InvoiceNumber)
	p.text(10, "", "Date: "+doc.Date.Format(dateLayout))
	p.text(10, "", "Due Date: "+doc.DueDate.Format(dateLayout))
	p.text(10, "", "Status: "+strings.ToUpper(doc.Status))
	p.pdf.Ln(6)
}

func (p *pdfWriter) billTo(b BillTo) {
	p.text(12, "B", "Bill To:")
	p.pdf.Ln(1)
	p.text(10, "", b.Name)
	if b.Email != "" {
		p.text(10, "", b.Email)
	}
	phone := b.Phone
	if phone == "" {
		phone = "No phone provided"
	}
	p.text(10, "", phone)
	if b.Address != "" {
		p.text(10, "", b.Address)
	}
	p.pdf.Ln(6)
}

func (p *pdfWriter) itemHeader() {
	p.pdf.SetFont(fontFamily, "B", 10)
	p.pdf.SetFillColor(230, 230, 230)
	headings := [5]string{"Item", "Type", "Quantity", "Price", "Total"}
	for i, h := range headings {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		p.pdf.CellFormat(itemColumns[i], rowHeight, h, "B", 0, align, true, 0, "")
	}
	p.pdf.Ln(rowHeight)
	p.pdf.SetFont(fontFamily, "", 10)
}

func (p *pdfWriter) itemTable(items []DocumentItem) {
	p.ensureSpace(rowHeight * 2)
	p.itemHeader()
	p.onNewPage = p.itemHeader
	for _, item := range items {
		p.ensureSpace(rowHeight)
		p.pdf.CellFormat(itemColumns[0], rowHeight, p.fit(item.Name, itemColumns[0]-2), "", 0, "L", false, 0, "")
		p.pdf.CellFormat(itemColumns[1], rowHeight, p.tr(item.Type), "", 0, "L", false, 0, "")
		p.pdf.CellFormat(itemColumns[2], rowHeight, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		p.pdf.CellFormat(itemColumns[3], rowHeight, money(item.UnitPrice), "", 0, "R", false, 0, "")
		p.pdf.CellFormat(itemColumns[4], rowHeight, money(item.Total), "", 1, "R", false, 0, "")
	}
	p.onNewPage = nil
	p.pdf.Ln(4)
}

func (p *pdfWriter) totals(doc *InvoiceDocument) {
	type line struct {
		label string
		value decimal.Decimal
		bold  bool
	}
	lines := []line{{label: "Subtotal:", value: doc.Subtotal}}
	if doc.DiscountAmount.IsPositive() {
		label := "Discount:"
		if doc.DiscountPercent != nil {
			label = fmt.Sprintf("Discount (%s%%):", doc.DiscountPercent.String())
		}
		lines = append(lines, line{label: label, value: doc.DiscountAmount.Neg()})
	}
	lines = append(lines,
		line{label: fmt.Sprintf("Tax (%s%%):", doc.TaxRate.String()), value: doc.TaxAmount},
		line{label: "Total:", value: doc.Total, bold: true},
	)

	p.ensureSpace(float64(len(lines)) * rowHeight)
	labelWidth := contentWidth - itemColumns[4]
	for _, l := range lines {
		style := ""
		if l.bold {
			style = "B"
		}
		p.pdf.SetFont(fontFamily, style, 10)
		p.pdf.CellFormat(labelWidth, rowHeight, l.label, "", 0, "R", false, 0, "")
		p.pdf.CellFormat(itemColumns[4], rowHeight, money(l.value), "", 1, "R", false, 0, "")
	}
	p.pdf.Ln(6)
}

func (p *pdfWriter) notes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	p.ensureSpace(rowHeight * 2)
	p.text(12, "B", "Notes:")
	p.pdf.SetFont(fontFamily, "", 10)
	for _, l := range p.pdf.SplitText(p.tr(notes), contentWidth) {
		p.ensureSpace(5)
		p.pdf.CellFormat(0, 5, l, "", 1, "L", false, 0, "")
	}
	p.pdf.Ln(6)
}

// tyreDiagram draws a top-down car with four wheels; changed wheels are filled.
func (p *pdfWriter) tyreDiagram(t *TyreDiagram) {
	const (
		bodyW, bodyH   = 50.0, 70.0
		wheelW, wheelH = 10.0, 18.0
	)
	p.ensureSpace(bodyH + 35)
	p.text(12, "B", "Tyre Change Visualization")
	p.pdf.Ln(6)

	x0 := pageMargin + (contentWidth-bodyW)/2
	y0 := p.pdf.GetY() + 4

	p.pdf.SetFont(fontFamily, "", 8)
	p.pdf.Text(x0+bodyW/2-5, y0-1, "FRONT")
	p.pdf.SetDrawColor(0, 0, 0)
	p.pdf.SetLineWidth(0.4)
	p.pdf.Rect(x0, y0, bodyW, bodyH, "D")

	wheels := []struct {
		label   string
		x, y    float64
		changed bool
		labelX  float64
	}{
		{"FL", x0 - wheelW, y0 + 8, t.FrontLeft, x0 - wheelW - 7},
		{"FR", x0 + bodyW, y0 + 8, t.FrontRight, x0 + bodyW + wheelW + 2},
		{"RL", x0 - wheelW, y0 + bodyH - 8 - wheelH, t.RearLeft, x0 - wheelW - 7},
		{"RR", x0 + bodyW, y0 + bodyH - 8 - wheelH, t.RearRight, x0 + bodyW + wheelW + 2},
	}
	p.pdf.SetFillColor(150, 150, 150)
	p.pdf.SetFont(fontFamily, "B", 9)
	for _, w := range wheels {
		style := "D"
		if w.changed {
			style = "FD"
		}
		p.pdf.Rect(w.x, w.y, wheelW, wheelH, style)
		p.pdf.Text(w.labelX, w.y+wheelH/2+1, w.label)
	}

	legendX := pageMargin + contentWidth - 35
	p.pdf.Rect(legendX, y0+2, 6, 4, "FD")
	p.pdf.SetFont(fontFamily, "", 9)
	p.pdf.Text(legendX+8, y0+5.5, "Changed Tyre")

	p.pdf.SetY(y0 + bodyH + 6)
	if notes := strings.TrimSpace(t.Notes); notes != "" {
		p.pdf.SetFont(fontFamily, "", 10)
		for _, l := range p.pdf.SplitText(p.tr("Tyre notes: "+notes), contentWidth) {
			p.ensureSpace(5)
			p.pdf.CellFormat(0, 5, l, "", 1, "L", false, 0, "")
		}
	}
}

// fit truncates s with an ellipsis until it is narrower than w at the current font.
// Truncation works on the UTF-8 runes; only the returned string is translated to the font encoding.
func (p *pdfWriter) fit(s string, w float64) string {
	if out := p.tr(s); p.pdf.GetStringWidth(out) <= w {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 && p.pdf.GetStringWidth(p.tr(string(runes)+"...")) > w {
		runes = runes[:len(runes)-1]
	}
	return p.tr(string(runes) + "...")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
