package cart_test

import (
	"context"
	"log"
	"os"
	"testing"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/telegram-storefront/internal/cart"
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

func setup(t *testing.T) cart.Repository {
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

	return cart.NewRepository(db)
}

func addProduct(t *testing.T, name, price string, stock int) int64 {
	ctx := context.Background()
	var categoryID int64
	err := db.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1) ON CONFLICT DO NOTHING RETURNING id`, "Toys").Scan(&categoryID)
	if err != nil {
		err = db.QueryRow(ctx, `SELECT id FROM categories WHERE name = 'Toys'`).Scan(&categoryID)
	}
	require.NoError(t, err)

	var id int64
	err = db.QueryRow(ctx,
		`INSERT INTO products (category_id, name, price, stock) VALUES ($1, $2, $3, $4) RETURNING id`,
		categoryID, name, price, stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestRepository_AddItem_AccumulatesAndClamps(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	widgetID := addProduct(t, "Widget", "10.00", 5)

	require.NoError(t, repo.AddItem(ctx, 42, widgetID, 2))
	require.NoError(t, repo.AddItem(ctx, 42, widgetID, 3))

	lines, err := repo.Lines(ctx, 42)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.True(t, lines[0].LineTotal.Equal(decimal.RequireFromString("50.00")))

	// quantity ceiling is enforced at the row, not per call
	require.NoError(t, repo.AddItem(ctx, 42, widgetID, cart.MaxQuantity))

	lines, err = repo.Lines(ctx, 42)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, cart.MaxQuantity, lines[0].Quantity)
}

func TestRepository_AddItem_RejectsSoftDeletedProduct(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	widgetID := addProduct(t, "Widget", "10.00", 5)

	deleted, err := catalog.NewRepository(db).SoftDeleteProduct(ctx, widgetID)
	require.NoError(t, err)
	require.True(t, deleted)

	err = repo.AddItem(ctx, 42, widgetID, 1)
	assert.ErrorIs(t, err, cart.ErrProductUnavailable)

	lines, err := repo.Lines(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRepository_AddItem_RejectsMissingProduct(t *testing.T) {
	repo := setup(t)

	err := repo.AddItem(context.Background(), 42, 9999, 1)
	assert.ErrorIs(t, err, cart.ErrProductUnavailable)
}

func TestRepository_SetQuantity(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	widgetID := addProduct(t, "Widget", "10.00", 5)
	require.NoError(t, repo.AddItem(ctx, 42, widgetID, 2))

	require.NoError(t, repo.SetQuantity(ctx, 42, widgetID, 4))

	lines, err := repo.Lines(ctx, 42)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)

	err = repo.SetQuantity(ctx, 43, widgetID, 4)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestRepository_RemoveItemAndClear(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	widgetID := addProduct(t, "Widget", "10.00", 5)
	gadgetID := addProduct(t, "Gadget", "5.00", 5)
	require.NoError(t, repo.AddItem(ctx, 42, widgetID, 1))
	require.NoError(t, repo.AddItem(ctx, 42, gadgetID, 1))

	removed, err := repo.RemoveItem(ctx, 42, widgetID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveItem(ctx, 42, widgetID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.Clear(ctx, 42))

	lines, err := repo.Lines(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
