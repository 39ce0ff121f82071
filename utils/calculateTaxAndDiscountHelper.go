package utils

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fraction digits kept on derived money values.
const MoneyPlaces int32 = 2

var decimalOneHundred = decimal.NewFromInt(100)

// Priced is one quantity at a unit price.
type Priced struct {
	Quantity int
	Price    decimal.Decimal
}

// InvoiceTotals holds the derived money fields of a document.
type InvoiceTotals struct {
	LineTotals     []decimal.Decimal
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// RoundMoney rounds half away from zero, which is half-up for the non-negative amounts on an invoice.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

func CalculateLineTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// CalculateSubtotal is the exact sum of line totals; it is not rounded.
func CalculateSubtotal(lines []Priced) ([]decimal.Decimal, decimal.Decimal) {
	totals := make([]decimal.Decimal, len(lines))
	subtotal := decimal.Zero
	for i, l := range lines {
		totals[i] = CalculateLineTotal(l.Quantity, l.Price)
		subtotal = subtotal.Add(totals[i])
	}
	return totals, subtotal
}

// CalculateTaxAmount applies a percentage rate to the subtotal.
func CalculateTaxAmount(subTotal decimal.Decimal, taxRate decimal.Decimal) decimal.Decimal {
	if !taxRate.IsPositive() {
		return decimal.Zero
	}
	return RoundMoney(subTotal.Mul(taxRate).Div(decimalOneHundred))
}

// CalculateDiscountAmount treats percentage as a share of the subtotal and anything else
// as a fixed amount. A fixed amount is not capped by the subtotal.
func CalculateDiscountAmount(subTotal decimal.Decimal, discount decimal.Decimal, isPercentage bool) decimal.Decimal {
	if !discount.IsPositive() {
		return decimal.Zero
	}
	if isPercentage {
		return RoundMoney(subTotal.Mul(discount).Div(decimalOneHundred))
	}
	return RoundMoney(discount)
}

func CalculateTotal(subTotal, discountAmount, taxAmount decimal.Decimal) decimal.Decimal {
	return RoundMoney(subTotal.Sub(discountAmount).Add(taxAmount))
}

// CalculateInvoiceTotals derives every money field from the raw inputs.
// It reads nothing but its arguments, so repeated calls give identical results.
func CalculateInvoiceTotals(lines []Priced, taxRate decimal.Decimal, discount decimal.Decimal, isPercentage bool) InvoiceTotals {
	lineTotals, subtotal := CalculateSubtotal(lines)
	tax := CalculateTaxAmount(subtotal, taxRate)
	disc := CalculateDiscountAmount(subtotal, discount, isPercentage)
	return InvoiceTotals{
		LineTotals:     lineTotals,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: disc,
		Total:          CalculateTotal(subtotal, disc, tax),
	}
}
