package models

import (
	"github.com/mmdatafocus/autoservice_backend/utils"
)

func (input *NewInvoice) Validate() error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if input.DiscountType == "" {
		input.DiscountType = DiscountTypePercentage
	}
	return validateItemPrices(input.Items)
}

func (input *NewInvoiceItem) Validate() error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	return validateItemPrices([]NewInvoiceItem{*input})
}

func (p *InvoicePatch) Validate() error {
	if p.Items != nil {
		if len(p.Items) == 0 {
			return utils.NewAppError(utils.KindInvalidInput, "invalid input: items must not be empty")
		}
		for i := range p.Items {
			if err := p.Items[i].Validate(); err != nil {
				return err
			}
		}
	}
	if p.TaxRate != nil && p.TaxRate.IsNegative() {
		return utils.NewAppError(utils.KindInvalidInput, "invalid input: tax_rate failed gte")
	}
	if p.DiscountValue != nil && p.DiscountValue.IsNegative() {
		return utils.NewAppError(utils.KindInvalidInput, "invalid input: discount_value failed gte")
	}
	if p.DiscountType != nil && !p.DiscountType.IsValid() {
		return utils.NewAppError(utils.KindInvalidInput, "invalid input: discount_type failed oneof")
	}
	if p.Status != nil && !p.Status.IsValid() {
		return utils.NewAppError(utils.KindInvalidInput, "invalid input: status failed oneof")
	}
	return nil
}

func validateItemPrices(items []NewInvoiceItem) error {
	for i, item := range items {
		if !utils.HasMoneyScale(item.Price) {
			return utils.NewAppError(utils.KindInvalidInput, "invalid input: items[%d].price has more than two decimal places", i)
		}
	}
	return nil
}
