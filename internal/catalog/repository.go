package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

type Repository interface {
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

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const categoryColumns = "id, parent_id, name, created_at, updated_at, deleted_at"
const productColumns = "id, category_id, name, description, price, stock, created_at, updated_at, deleted_at"

func scanCategory(row pgx.Row, c *Category) error {
	return row.Scan(&c.ID, &c.ParentID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
}

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
}

func (r *postgresRepository) CreateCategory(ctx context.Context, category *Category) error {
	query := `
		INSERT INTO categories (parent_id, name)
		VALUES ($1, $2)
		RETURNING ` + categoryColumns

	if err := scanCategory(r.db.QueryRow(ctx, query, category.ParentID, category.Name), category); err != nil {
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetCategory(ctx context.Context, id int64) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND deleted_at IS NULL`

	var category Category
	if err := scanCategory(r.db.QueryRow(ctx, query, id), &category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %d: %w", id, err)
	}
	return &category, nil
}

func (r *postgresRepository) ListRootCategories(ctx context.Context) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id IS NULL AND deleted_at IS NULL ORDER BY name`
	return r.listCategories(ctx, query)
}

func (r *postgresRepository) ListSubcategories(ctx context.Context, parentID int64) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = $1 AND deleted_at IS NULL ORDER BY name`
	return r.listCategories(ctx, query, parentID)
}

func (r *postgresRepository) listCategories(ctx context.Context, query string, args ...any) ([]Category, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var category Category
		if err := scanCategory(rows, &category); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (category_id, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + productColumns

	row := r.db.QueryRow(ctx, query,
		product.CategoryID, product.Name, product.Description, product.Price, product.Stock)
	if err := scanProduct(row, product); err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, product *Product) error {
	query := `
		UPDATE products
		SET category_id = $2, name = $3, description = $4, price = $5, stock = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + productColumns

	row := r.db.QueryRow(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Description,
		product.Price, product.Stock, time.Now().UTC())
	if err := scanProduct(row, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to update product %d: %w", product.ID, err)
	}
	return nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	return r.getProduct(ctx, query, id)
}

// GetProductIncludingDeleted is the lookup used when rendering historical
// orders: a soft-deleted product must still resolve there.
func (r *postgresRepository) GetProductIncludingDeleted(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.getProduct(ctx, query, id)
}

func (r *postgresRepository) getProduct(ctx context.Context, query string, id int64) (*Product, error) {
	var product Product
	if err := scanProduct(r.db.QueryRow(ctx, query, id), &product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %d: %w", id, err)
	}
	return &product, nil
}

func (r *postgresRepository) ListProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE category_id = $1 AND deleted_at IS NULL ORDER BY name`

	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var product Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

// SoftDeleteProduct stamps the product and drops it from every cart. Returns
// false without error when the product is missing or already deleted.
func (r *postgresRepository) SoftDeleteProduct(ctx context.Context, id int64) (deleted bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	cmdTag, err := tx.Exec(ctx,
		`UPDATE products SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("repository: failed to soft-delete product %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE product_id = $1`, id); err != nil {
		return false, fmt.Errorf("repository: failed to remove product %d from carts: %w", id, err)
	}

	return true, nil
}

func (r *postgresRepository) RestoreProduct(ctx context.Context, id int64) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE products SET deleted_at = NULL, updated_at = $2 WHERE id = $1 AND deleted_at IS NOT NULL`,
		id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("repository: failed to restore product %d: %w", id, err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// SoftDeleteCategory runs the full cascade in one transaction: products under
// the category, cart items referencing those products, direct subcategories,
// then the category itself. Every stamp in one call shares one timestamp so
// the restore can tell this cascade's rows from previously deleted ones.
func (r *postgresRepository) SoftDeleteCategory(ctx context.Context, id int64) (deleted bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check category %d: %w", id, err)
	}
	if !exists {
		return false, nil
	}

	stamp := time.Now().UTC()

	rows, err := tx.Query(ctx,
		`UPDATE products SET deleted_at = $2, updated_at = $2
		 WHERE category_id = $1 AND deleted_at IS NULL
		 RETURNING id`,
		id, stamp)
	if err != nil {
		return false, fmt.Errorf("repository: failed to soft-delete products of category %d: %w", id, err)
	}
	productIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return false, fmt.Errorf("repository: failed to collect deleted product ids: %w", err)
	}

	if len(productIDs) > 0 {
		if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE product_id = ANY($1)`, productIDs); err != nil {
			return false, fmt.Errorf("repository: failed to remove category %d products from carts: %w", id, err)
		}
	}

	if _, err = tx.Exec(ctx,
		`UPDATE categories SET deleted_at = $2, updated_at = $2 WHERE parent_id = $1 AND deleted_at IS NULL`,
		id, stamp); err != nil {
		return false, fmt.Errorf("repository: failed to soft-delete subcategories of category %d: %w", id, err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE categories SET deleted_at = $2, updated_at = $2 WHERE id = $1`,
		id, stamp); err != nil {
		return false, fmt.Errorf("repository: failed to soft-delete category %d: %w", id, err)
	}

	log.Info().Int64("category_id", id).Int("products", len(productIDs)).Msg("repository: category soft-deleted with cascade")
	return true, nil
}

// RestoreCategory reverses a cascade. Only rows stamped by that same cascade
// come back; a product that was deleted on its own beforehand stays deleted.
func (r *postgresRepository) RestoreCategory(ctx context.Context, id int64) (restored bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	var stamp time.Time
	err = tx.QueryRow(ctx,
		`SELECT deleted_at FROM categories WHERE id = $1 AND deleted_at IS NOT NULL`, id).Scan(&stamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("repository: failed to check deleted category %d: %w", id, err)
	}

	now := time.Now().UTC()

	if _, err = tx.Exec(ctx,
		`UPDATE products SET deleted_at = NULL, updated_at = $3 WHERE category_id = $1 AND deleted_at = $2`,
		id, stamp, now); err != nil {
		return false, fmt.Errorf("repository: failed to restore products of category %d: %w", id, err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE categories SET deleted_at = NULL, updated_at = $3 WHERE parent_id = $1 AND deleted_at = $2`,
		id, stamp, now); err != nil {
		return false, fmt.Errorf("repository: failed to restore subcategories of category %d: %w", id, err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE categories SET deleted_at = NULL, updated_at = $2 WHERE id = $1`,
		id, now); err != nil {
		return false, fmt.Errorf("repository: failed to restore category %d: %w", id, err)
	}

	return true, nil
}

// finishTx commits on success and rolls back otherwise, keeping the original
// error when rollback itself fails.
func finishTx(ctx context.Context, tx pgx.Tx, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Msg("repository: failed to rollback transaction")
		}
		return err
	}
	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
	}
	return nil
}
