package domain

import "github.com/shopspring/decimal"

// CartLine is one product entry in a cart. A cart holds at most one
// line per product id and every line has quantity >= 1.
type CartLine struct {
	ProductID   string          `json:"productId"`
	Description string          `json:"descricao"`
	UnitPrice   decimal.Decimal `json:"valor_unitario"`
	Quantity    int             `json:"quantidade"`
	Category    string          `json:"categoria"`
	ImageURL    string          `json:"image,omitempty"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the persisted shape of a customer's cart (carts/<userId>).
type Cart struct {
	Items []CartLine `json:"items"`
}

func LineFromProduct(p Product) CartLine {
	return CartLine{
		ProductID:   p.Code,
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
		Quantity:    1,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
	}
}
