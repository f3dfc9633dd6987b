package usecase

import (
	"strings"

	"github.com/shopspring/decimal"

	"loja-backend/internal/domain"
)

var decimalHundred = decimal.NewFromInt(100)

// DefaultDiscountCodes maps promotional codes to fractional rates.
var DefaultDiscountCodes = map[string]decimal.Decimal{
	"ESSENCIAL10": decimal.NewFromFloat(0.10),
	"FRETEGRATIS": decimal.NewFromFloat(0.15),
}

type DiscountResult struct {
	Code  string          `json:"code,omitempty"`
	Rate  decimal.Decimal `json:"rate"`
	Total decimal.Decimal `json:"total"`
}

type PricingEngine struct {
	Codes map[string]decimal.Decimal
}

func NewPricingEngine() *PricingEngine {
	return &PricingEngine{Codes: DefaultDiscountCodes}
}

func (p *PricingEngine) Subtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// ApplyDiscount looks the code up case-insensitively. An empty code is
// not an error and applies no discount; an unknown code applies no
// discount either but returns ErrInvalidDiscount so the caller can tell
// "no code entered" from "bad code". Totals keep full precision,
// rounding happens at presentation boundaries only.
func (p *PricingEngine) ApplyDiscount(subtotal decimal.Decimal, code string) (DiscountResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DiscountResult{Rate: decimal.Zero, Total: subtotal}, nil
	}
	rate, ok := p.Codes[code]
	if !ok {
		return DiscountResult{Rate: decimal.Zero, Total: subtotal}, ErrInvalidDiscount(code)
	}
	total := subtotal.Mul(decimal.NewFromInt(1).Sub(rate))
	return DiscountResult{Code: code, Rate: rate, Total: total}, nil
}
