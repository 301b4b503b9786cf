package catalog_test

import (
	"context"
	"log"
	"os"
	"testing"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/telegram-storefront/internal/catalog"
)

// Integration tests run against a migrated database pointed to by
// TEST_DATABASE_DSN and are skipped when it is not set.
var db *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn != "" {
		cfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			log.Fatalf("failed to parse TEST_DATABASE_DSN: %v", err)
		}
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			pgxdecimal.Register(conn.TypeMap())
			return nil
		}
		db, err = pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			log.Fatalf("failed to connect to test database: %v", err)
		}
	}

	exitCode := m.Run()
	if db != nil {
		db.Close()
	}
	os.Exit(exitCode)
}

func setup(t *testing.T) catalog.Repository {
	if db == nil {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	truncate := func() {
		_, err := db.Exec(context.Background(),
			`TRUNCATE TABLE order_items, orders, cart_items, carts, products, categories RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(truncate)

	return catalog.NewRepository(db)
}

func addCategory(t *testing.T, name string, parentID *int64) int64 {
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO categories (name, parent_id) VALUES ($1, $2) RETURNING id`, name, parentID).Scan(&id)
	require.NoError(t, err)
	return id
}

func addProduct(t *testing.T, categoryID int64, name string, stock int) int64 {
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO products (category_id, name, price, stock) VALUES ($1, $2, 10.00, $3) RETURNING id`,
		categoryID, name, stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func addCartItem(t *testing.T, userID, productID int64) {
	ctx := context.Background()
	var cartID int64
	err := db.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id
	`, userID).Scan(&cartID)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, 1)`, cartID, productID)
	require.NoError(t, err)
}

func productDeleted(t *testing.T, id int64) bool {
	var deleted bool
	err := db.QueryRow(context.Background(),
		`SELECT deleted_at IS NOT NULL FROM products WHERE id = $1`, id).Scan(&deleted)
	require.NoError(t, err)
	return deleted
}

func categoryDeleted(t *testing.T, id int64) bool {
	var deleted bool
	err := db.QueryRow(context.Background(),
		`SELECT deleted_at IS NOT NULL FROM categories WHERE id = $1`, id).Scan(&deleted)
	require.NoError(t, err)
	return deleted
}

func cartItemCount(t *testing.T) int {
	var count int
	err := db.QueryRow(context.Background(), `SELECT count(*) FROM cart_items`).Scan(&count)
	require.NoError(t, err)
	return count
}

func stockOf(t *testing.T, id int64) int {
	var stock int
	err := db.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)
	return stock
}

// Scenario from the storefront: deleting a category hides its two products
// and one subcategory, and purges those products from every cart.
func TestRepository_SoftDeleteCategory_Cascade(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoryID := addCategory(t, "Toys", nil)
	subID := addCategory(t, "Plush", &categoryID)
	widgetID := addProduct(t, categoryID, "Widget", 5)
	gadgetID := addProduct(t, categoryID, "Gadget", 3)
	addCartItem(t, 42, widgetID)
	addCartItem(t, 43, gadgetID)

	deleted, err := repo.SoftDeleteCategory(ctx, categoryID)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.True(t, categoryDeleted(t, categoryID))
	assert.True(t, categoryDeleted(t, subID))
	assert.True(t, productDeleted(t, widgetID))
	assert.True(t, productDeleted(t, gadgetID))
	assert.Equal(t, 0, cartItemCount(t))

	// repeat is a no-op
	deleted, err = repo.SoftDeleteCategory(ctx, categoryID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepository_RestoreCategory_Symmetry(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoryID := addCategory(t, "Toys", nil)
	subID := addCategory(t, "Plush", &categoryID)
	widgetID := addProduct(t, categoryID, "Widget", 5)
	gadgetID := addProduct(t, categoryID, "Gadget", 3)

	// Gadget was taken off sale before the category went away; restoring the
	// category must not resurrect it.
	deleted, err := repo.SoftDeleteProduct(ctx, gadgetID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.SoftDeleteCategory(ctx, categoryID)
	require.NoError(t, err)
	require.True(t, deleted)

	restored, err := repo.RestoreCategory(ctx, categoryID)
	require.NoError(t, err)
	assert.True(t, restored)

	assert.False(t, categoryDeleted(t, categoryID))
	assert.False(t, categoryDeleted(t, subID))
	assert.False(t, productDeleted(t, widgetID))
	assert.True(t, productDeleted(t, gadgetID))

	// stock survives the round trip untouched
	assert.Equal(t, 5, stockOf(t, widgetID))
	assert.Equal(t, 3, stockOf(t, gadgetID))
}

func TestRepository_SoftDeleteProduct(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoryID := addCategory(t, "Toys", nil)
	widgetID := addProduct(t, categoryID, "Widget", 5)
	addCartItem(t, 42, widgetID)

	deleted, err := repo.SoftDeleteProduct(ctx, widgetID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, productDeleted(t, widgetID))
	assert.Equal(t, 0, cartItemCount(t))

	deleted, err = repo.SoftDeleteProduct(ctx, widgetID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// still readable through the historical lookup
	product, err := repo.GetProductIncludingDeleted(ctx, widgetID)
	require.NoError(t, err)
	assert.NotNil(t, product.DeletedAt)

	_, err = repo.GetProduct(ctx, widgetID)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestRepository_RestoreProduct_DoesNotTouchCarts(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoryID := addCategory(t, "Toys", nil)
	widgetID := addProduct(t, categoryID, "Widget", 5)
	addCartItem(t, 42, widgetID)

	deleted, err := repo.SoftDeleteProduct(ctx, widgetID)
	require.NoError(t, err)
	require.True(t, deleted)

	restored, err := repo.RestoreProduct(ctx, widgetID)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.False(t, productDeleted(t, widgetID))

	// the cart items removed by the delete stay removed
	assert.Equal(t, 0, cartItemCount(t))
}

func TestRepository_ListProductsByCategory_SkipsDeleted(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	categoryID := addCategory(t, "Toys", nil)
	widgetID := addProduct(t, categoryID, "Widget", 5)
	gadgetID := addProduct(t, categoryID, "Gadget", 3)

	deleted, err := repo.SoftDeleteProduct(ctx, gadgetID)
	require.NoError(t, err)
	require.True(t, deleted)

	products, err := repo.ListProductsByCategory(ctx, categoryID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, widgetID, products[0].ID)
}
