package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/telegram-storefront/internal/catalog"
)

type mockRepository struct {
	catalog.Repository

	getCategoryFunc        func(ctx context.Context, id int64) (*catalog.Category, error)
	createProductFunc      func(ctx context.Context, product *catalog.Product) error
	softDeleteProductFunc  func(ctx context.Context, id int64) (bool, error)
	restoreProductFunc     func(ctx context.Context, id int64) (bool, error)
	softDeleteCategoryFunc func(ctx context.Context, id int64) (bool, error)
	restoreCategoryFunc    func(ctx context.Context, id int64) (bool, error)
}

func (m *mockRepository) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	return m.getCategoryFunc(ctx, id)
}

func (m *mockRepository) CreateProduct(ctx context.Context, product *catalog.Product) error {
	return m.createProductFunc(ctx, product)
}

func (m *mockRepository) SoftDeleteProduct(ctx context.Context, id int64) (bool, error) {
	return m.softDeleteProductFunc(ctx, id)
}

func (m *mockRepository) RestoreProduct(ctx context.Context, id int64) (bool, error) {
	return m.restoreProductFunc(ctx, id)
}

func (m *mockRepository) SoftDeleteCategory(ctx context.Context, id int64) (bool, error) {
	return m.softDeleteCategoryFunc(ctx, id)
}

func (m *mockRepository) RestoreCategory(ctx context.Context, id int64) (bool, error) {
	return m.restoreCategoryFunc(ctx, id)
}

func TestService_CreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name      string
		product   catalog.Product
		wantErrIs error
	}{
		{
			name:      "empty_name",
			product:   catalog.Product{Name: "  ", CategoryID: 1, Price: decimal.RequireFromString("10.00"), Stock: 1},
			wantErrIs: catalog.ErrEmptyName,
		},
		{
			name:      "zero_price",
			product:   catalog.Product{Name: "Widget", CategoryID: 1, Price: decimal.Zero, Stock: 1},
			wantErrIs: catalog.ErrInvalidPrice,
		},
		{
			name:      "negative_price",
			product:   catalog.Product{Name: "Widget", CategoryID: 1, Price: decimal.RequireFromString("-1.00"), Stock: 1},
			wantErrIs: catalog.ErrInvalidPrice,
		},
		{
			name:      "negative_stock",
			product:   catalog.Product{Name: "Widget", CategoryID: 1, Price: decimal.RequireFromString("10.00"), Stock: -1},
			wantErrIs: catalog.ErrInvalidStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{
				getCategoryFunc: func(ctx context.Context, id int64) (*catalog.Category, error) {
					return &catalog.Category{ID: id, Name: "Toys"}, nil
				},
				createProductFunc: func(ctx context.Context, product *catalog.Product) error {
					t.Fatal("repository must not be called for invalid input")
					return nil
				},
			}
			svc := catalog.NewService(repo)

			product := tt.product
			err := svc.CreateProduct(context.Background(), &product)
			assert.ErrorIs(t, err, tt.wantErrIs)
		})
	}
}

func TestService_CreateProduct_MissingCategory(t *testing.T) {
	repo := &mockRepository{
		getCategoryFunc: func(ctx context.Context, id int64) (*catalog.Category, error) {
			return nil, catalog.ErrCategoryNotFound
		},
	}
	svc := catalog.NewService(repo)

	product := catalog.Product{Name: "Widget", CategoryID: 99, Price: decimal.RequireFromString("10.00"), Stock: 5}
	err := svc.CreateProduct(context.Background(), &product)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

// Soft delete reports true once; a repeat on the same product is a no-op
// reporting false.
func TestService_SoftDeleteProduct_Idempotent(t *testing.T) {
	deleted := false
	repo := &mockRepository{
		softDeleteProductFunc: func(ctx context.Context, id int64) (bool, error) {
			if deleted {
				return false, nil
			}
			deleted = true
			return true, nil
		},
	}
	svc := catalog.NewService(repo)

	first, err := svc.SoftDeleteProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := svc.SoftDeleteProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestService_RestoreCategory_MissingReportsFalse(t *testing.T) {
	repo := &mockRepository{
		restoreCategoryFunc: func(ctx context.Context, id int64) (bool, error) {
			return false, nil
		},
	}
	svc := catalog.NewService(repo)

	restored, err := svc.RestoreCategory(context.Background(), 123)
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestService_SoftDeleteCategory_Passthrough(t *testing.T) {
	var gotID int64
	repo := &mockRepository{
		softDeleteCategoryFunc: func(ctx context.Context, id int64) (bool, error) {
			gotID = id
			return true, nil
		},
	}
	svc := catalog.NewService(repo)

	deleted, err := svc.SoftDeleteCategory(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, int64(7), gotID)
}
