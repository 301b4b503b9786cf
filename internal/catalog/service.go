package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice = errors.New("price must be greater than zero")
	ErrInvalidStock = errors.New("stock must be non-negative")
	ErrEmptyName    = errors.New("name is required")
)

type Service interface {
	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListRootCategories(ctx context.Context) ([]Category, error)
	ListSubcategories(ctx context.Context, parentID int64) ([]Category, error)

	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductIncludingDeleted(ctx context.Context, id int64) (*Product, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error)

	SoftDeleteProduct(ctx context.Context, id int64) (bool, error)
	RestoreProduct(ctx context.Context, id int64) (bool, error)
	SoftDeleteCategory(ctx context.Context, id int64) (bool, error)
	RestoreCategory(ctx context.Context, id int64) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateCategory(ctx context.Context, category *Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return ErrEmptyName
	}

	if category.ParentID != nil {
		if _, err := s.repo.GetCategory(ctx, *category.ParentID); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return fmt.Errorf("service: parent category %d: %w", *category.ParentID, ErrCategoryNotFound)
			}
			return fmt.Errorf("service: failed to check parent category: %w", err)
		}
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		log.Error().Err(err).Str("name", category.Name).Msg("service: failed to create category")
		return fmt.Errorf("service: failed to create category: %w", err)
	}
	return nil
}

func (s *service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *service) ListRootCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListRootCategories(ctx)
}

func (s *service) ListSubcategories(ctx context.Context, parentID int64) ([]Category, error) {
	return s.repo.ListSubcategories(ctx, parentID)
}

func (s *service) CreateProduct(ctx context.Context, product *Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	if _, err := s.repo.GetCategory(ctx, product.CategoryID); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("service: failed to check category: %w", err)
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		log.Error().Err(err).Str("name", product.Name).Msg("service: failed to create product")
		return fmt.Errorf("service: failed to create product: %w", err)
	}
	return nil
}

func (s *service) UpdateProduct(ctx context.Context, product *Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.repo.UpdateProduct(ctx, product)
}

func (s *service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *service) GetProductIncludingDeleted(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProductIncludingDeleted(ctx, id)
}

func (s *service) ListProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	return s.repo.ListProductsByCategory(ctx, categoryID)
}

func (s *service) SoftDeleteProduct(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.SoftDeleteProduct(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to soft-delete product")
		return false, fmt.Errorf("service: failed to soft-delete product: %w", err)
	}
	if deleted {
		log.Info().Int64("product_id", id).Msg("service: product soft-deleted")
	}
	return deleted, nil
}

func (s *service) RestoreProduct(ctx context.Context, id int64) (bool, error) {
	restored, err := s.repo.RestoreProduct(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to restore product")
		return false, fmt.Errorf("service: failed to restore product: %w", err)
	}
	return restored, nil
}

func (s *service) SoftDeleteCategory(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.SoftDeleteCategory(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("category_id", id).Msg("service: failed to soft-delete category")
		return false, fmt.Errorf("service: failed to soft-delete category: %w", err)
	}
	return deleted, nil
}

func (s *service) RestoreCategory(ctx context.Context, id int64) (bool, error) {
	restored, err := s.repo.RestoreCategory(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("category_id", id).Msg("service: failed to restore category")
		return false, fmt.Errorf("service: failed to restore category: %w", err)
	}
	return restored, nil
}

func validateProduct(product *Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return ErrEmptyName
	}
	if !product.Price.GreaterThan(decimal.Zero) {
		return ErrInvalidPrice
	}
	if product.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}
