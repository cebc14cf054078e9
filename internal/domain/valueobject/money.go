package valueobject

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

const (
	DefaultCurrency = "USD"
	// PriceScale - знаков после запятой в колонках NUMERIC(12, 2).
	PriceScale = 2
)

// MaxPriceAmount - наибольшая сумма, которую вмещает NUMERIC(12, 2).
var MaxPriceAmount = decimal.RequireFromString("9999999999.99")

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewPrice создаёт цену контракта. Цена обязана быть строго положительной.
func NewPrice(amount decimal.Decimal, currency string) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, apperror.New(apperror.ErrCodeInvalidTerms, "цена должна быть больше нуля")
	}
	if !amount.Equal(amount.Round(PriceScale)) {
		return Money{}, apperror.New(apperror.ErrCodeInvalidTerms, "цена указывается не точнее чем до копеек")
	}
	if amount.GreaterThan(MaxPriceAmount) {
		return Money{}, apperror.New(apperror.ErrCodeInvalidTerms, "цена превышает допустимый максимум")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return Money{}, apperror.New(apperror.ErrCodeInvalidTerms, "код валюты должен состоять из трёх букв")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
