package domain

import "github.com/shopspring/decimal"

// Product is a catalog record. Records live in category-named
// collections keyed by barcode; json field names follow the documents
// already persisted by the store.
type Product struct {
	Code        string          `json:"codigo"`
	Barcode     string          `json:"codigo_barras"`
	Description string          `json:"descricao"`
	UnitPrice   decimal.Decimal `json:"valor_unitario"`
	Stock       int             `json:"quantidade"`
	Unit        string          `json:"unidade,omitempty"`
	Category    string          `json:"categoria"`
	ImageURL    string          `json:"image,omitempty"`
}
