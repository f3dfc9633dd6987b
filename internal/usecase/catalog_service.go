package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
)

// CatalogService manages product records. Each category is its own
// collection, keyed by barcode so re-importing the same invoice
// overwrites instead of duplicating.
type CatalogService struct {
	Store docstore.Store
	Log   *logrus.Entry
}

// ImportBatch validates and upserts a batch of products, typically the
// line items extracted from one supplier invoice. The batch fails as a
// whole on the first invalid record.
func (s *CatalogService) ImportBatch(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, ErrValidation("no products to import")
	}
	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return 0, ErrValidation(fmt.Sprintf("product %d: %s", i+1, err))
		}
	}
	count := 0
	for _, p := range products {
		if p.Category == "" {
			p.Category = defaultCategory
		}
		key := p.Barcode
		if key == "" {
			key = p.Code
		}
		if err := s.Store.Set(ctx, p.Category, key, p); err != nil {
			return count, &ErrPersistence{Op: "import product " + p.Code, Err: err}
		}
		count++
	}
	return count, nil
}

// ListCategory returns the products of one category collection.
// Malformed records are skipped with a warning instead of leaking
// half-decoded fields to the caller.
func (s *CatalogService) ListCategory(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrValidation("category required")
	}
	docs, err := s.Store.Query(ctx, category, docstore.Query{OrderBy: "descricao"})
	if err != nil {
		return nil, &ErrPersistence{Op: "list products", Err: err}
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		var p domain.Product
		if err := json.Unmarshal(d.Data, &p); err != nil || p.Code == "" || p.Description == "" {
			s.Log.WithFields(logrus.Fields{"category": category, "id": d.ID}).Warn("skipping malformed product record")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.Code) == "":
		return fmt.Errorf("code required")
	case strings.TrimSpace(p.Description) == "":
		return fmt.Errorf("description required")
	case p.UnitPrice.IsNegative():
		return fmt.Errorf("negative unit price")
	case p.Stock < 0:
		return fmt.Errorf("negative stock")
	}
	return nil
}
