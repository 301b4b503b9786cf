package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrProductUnavailable = errors.New("product is unavailable")
	ErrItemNotFound       = errors.New("cart item not found")
)

type Repository interface {
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) (bool, error)
	Clear(ctx context.Context, userID int64) error
	Lines(ctx context.Context, userID int64) ([]Line, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) cartID(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id
	`, userID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to get cart for user %d: %w", userID, err)
	}
	return id, nil
}

// AddItem upserts a line item, accumulating quantity up to the per-line cap.
// A missing or soft-deleted product cannot enter a cart.
func (r *postgresRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	// The share lock blocks a concurrent soft-delete until the item is in,
	// so its cart cleanup cannot miss this row.
	var live int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM products WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, productID).Scan(&live)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductUnavailable
		}
		return fmt.Errorf("repository: failed to check product %d: %w", productID, err)
	}

	cartID, err := r.cartID(ctx, tx, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = LEAST(cart_items.quantity + EXCLUDED.quantity, $4), updated_at = $5
	`, cartID, productID, quantity, MaxQuantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE cart_items ci
		SET quantity = $3, updated_at = $4
		FROM carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2
	`, userID, productID, quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item quantity: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) RemoveItem(ctx context.Context, userID, productID int64) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2
	`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("repository: failed to remove cart item: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *postgresRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %d: %w", userID, err)
	}
	return nil
}

func (r *postgresRepository) Lines(ctx context.Context, userID int64) ([]Line, error) {
	query := `
		SELECT p.id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id AND p.deleted_at IS NULL
		WHERE c.user_id = $1
		ORDER BY ci.created_at
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart lines for user %d: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Price, &line.Quantity); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line: %w", err)
		}
		line.LineTotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart lines: %w", err)
	}
	return lines, nil
}

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
