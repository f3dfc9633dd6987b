package usecase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loja-backend/internal/domain"
	"loja-backend/internal/infrastructure/docstore"
)

func catalogService(store docstore.Store) *CatalogService {
	return &CatalogService{Store: store, Log: testLog()}
}

func TestImportBatch(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	s := catalogService(store)

	n, err := s.ImportBatch(ctx, []domain.Product{
		product("P1", 10),
		product("P2", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// keyed by barcode, so re-importing overwrites
	again := product("P1", 12)
	n, err = s.ImportBatch(ctx, []domain.Product{again})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	listed, err := s.ListCategory(ctx, "Perfumes")
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestImportBatchDefaults(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	s := catalogService(store)

	// no category and no barcode: defaults to Perfumes, keyed by code
	p := domain.Product{Code: "X1", Description: "produto X1", UnitPrice: decimal.NewFromInt(3), Stock: 1}
	_, err := s.ImportBatch(ctx, []domain.Product{p})
	require.NoError(t, err)

	raw, err := store.Get(ctx, "Perfumes", "X1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"X1"`)
}

func TestImportBatchValidation(t *testing.T) {
	ctx := context.Background()
	s := catalogService(docstore.NewMemory())

	_, err := s.ImportBatch(ctx, nil)
	assert.ErrorAs(t, err, new(ErrValidation))

	cases := []struct {
		name string
		bad  domain.Product
	}{
		{"missing code", domain.Product{Description: "x", UnitPrice: decimal.NewFromInt(1)}},
		{"missing description", domain.Product{Code: "P1", UnitPrice: decimal.NewFromInt(1)}},
		{"negative price", domain.Product{Code: "P1", Description: "x", UnitPrice: decimal.NewFromInt(-1)}},
		{"negative stock", domain.Product{Code: "P1", Description: "x", UnitPrice: decimal.NewFromInt(1), Stock: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.ImportBatch(ctx, []domain.Product{product("OK", 1), tc.bad})
			require.ErrorAs(t, err, new(ErrValidation))
			assert.Contains(t, err.Error(), "product 2", "the error names the offending record")
		})
	}
}

func TestListCategory(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	s := catalogService(store)

	b := product("B", 5)
	b.Description = "banho"
	a := product("A", 10)
	a.Description = "amadeirado"
	_, err := s.ImportBatch(ctx, []domain.Product{b, a})
	require.NoError(t, err)

	listed, err := s.ListCategory(ctx, "Perfumes")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "amadeirado", listed[0].Description, "sorted by description")

	_, err = s.ListCategory(ctx, "  ")
	assert.ErrorAs(t, err, new(ErrValidation))

	empty, err := s.ListCategory(ctx, "Cosméticos")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListCategorySkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	s := catalogService(store)

	_, err := s.ImportBatch(ctx, []domain.Product{product("P1", 10)})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "Perfumes", "junk", map[string]int{"descricao": 7}))

	listed, err := s.ListCategory(ctx, "Perfumes")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "P1", listed[0].Code)
}
