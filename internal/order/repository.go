package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Repository interface {
	PlaceOrder(ctx context.Context, o *Order, lines []CartLine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	CancelAndRestock(ctx context.Context, id uuid.UUID) error
	GetView(ctx context.Context, id uuid.UUID) (*View, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// PlaceOrder reserves stock and persists the order in a single transaction.
// Products are locked one by one in ascending id order; any failure rolls the
// whole checkout back, leaving stock and cart untouched.
func (r *postgresRepository) PlaceOrder(ctx context.Context, o *Order, lines []CartLine) (err error) {
	orderID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate order ID: %w", err)
	}
	o.ID = orderID

	sorted := make([]CartLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		err = finishTx(ctx, tx, err)
		err = translateLockError(err)
	}()

	now := time.Now().UTC()
	total := decimal.Zero
	items := make([]Item, 0, len(sorted))

	for _, line := range sorted {
		var price decimal.Decimal
		var stock int

		err = tx.QueryRow(ctx,
			`SELECT price, stock FROM products WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
			line.ProductID).Scan(&price, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = &PlacementError{Reason: ReasonProductNotFound, ProductID: line.ProductID}
			} else {
				err = fmt.Errorf("repository: failed to lock product %d: %w", line.ProductID, err)
			}
			return err
		}

		if stock < line.Quantity {
			err = &PlacementError{
				Reason:    ReasonInsufficientStock,
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: stock,
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = $3 WHERE id = $1`,
			line.ProductID, line.Quantity, now)
		if err != nil {
			return fmt.Errorf("repository: failed to decrement stock for product %d: %w", line.ProductID, err)
		}

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			return err
		}

		items = append(items, Item{
			ID:        itemID,
			OrderID:   o.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
			CreatedAt: now,
			UpdatedAt: now,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	o.Status = StatusPending
	o.Total = total
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, order_number, status, contact_name, phone, address, delivery, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, o.ID, o.UserID, o.Number, string(o.Status), o.ContactName, o.Phone, o.Address, o.Delivery, o.Total, now, now)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	// The cart is cleared only as part of a successful checkout.
	_, err = tx.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1
	`, o.UserID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %d: %w", o.UserID, err)
	}

	o.Items = items
	return nil
}

const orderColumns = "id, user_id, order_number, status, contact_name, phone, address, delivery, total, created_at, updated_at"

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.Number, &o.Status, &o.ContactName, &o.Phone,
		&o.Address, &o.Delivery, &o.Total, &o.CreatedAt, &o.UpdatedAt)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", id, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.Price, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", id, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", id, err)
	}

	o.Items = items
	return &o, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	orderRows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %d: %w", userID, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var o Order
		if err := scanOrder(orderRows, &o); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user %d: %w", userID, err)
		}
		o.Items = make([]Item, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for user %d: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price, created_at, updated_at
		FROM order_items
		WHERE order_id = ANY($1)
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for user %d: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item Item
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.Price, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for user %d: %w", userID, err)
		}
		if o, ok := ordersMap[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for user %d: %w", userID, err)
	}

	orders := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *ordersMap[id])
	}
	return orders, nil
}

// UpdateStatus persists the transition only while the row still carries the
// status the caller validated against; a concurrent change surfaces as a
// transition error instead of being silently overwritten.
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var actual Status
		err := r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&actual)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("repository: failed to select status of order %s: %w", id, err)
		}
		return &TransitionError{From: actual, To: to}
	}
	return nil
}

// CancelAndRestock flips the order to CANCELLED and returns every item's
// quantity to stock, under the same per-product lock discipline as placement.
// The order row itself is locked and re-checked inside the transaction, so a
// finished order fails here regardless of what the caller read beforehand.
// A product row that no longer exists is logged and skipped: cancellation
// must still go through even when inventory bookkeeping cannot be reversed
// for a vanished line.
func (r *postgresRepository) CancelAndRestock(ctx context.Context, id uuid.UUID) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		err = finishTx(ctx, tx, err)
		err = translateLockError(err)
	}()

	// Lock the order row first: a second concurrent cancellation blocks here
	// and then sees CANCELLED, so stock is never restored twice.
	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrOrderNotFound
			return err
		}
		return fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}
	if current == StatusCompleted || current == StatusCancelled {
		err = ErrOrderFinished
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to query items of order %s: %w", id, err)
	}
	type restock struct {
		productID int64
		quantity  int
	}
	var restocks []restock
	for rows.Next() {
		var rs restock
		if scanErr := rows.Scan(&rs.productID, &rs.quantity); scanErr != nil {
			rows.Close()
			err = fmt.Errorf("repository: failed to scan item of order %s: %w", id, scanErr)
			return err
		}
		restocks = append(restocks, rs)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating items of order %s: %w", id, err)
	}

	now := time.Now().UTC()
	for _, rs := range restocks {
		var productID int64
		err = tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, rs.productID).Scan(&productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Warn().
					Stringer("order_id", id).
					Int64("product_id", rs.productID).
					Int("quantity", rs.quantity).
					Msg("repository: product vanished, skipping stock restoration")
				err = nil
				continue
			}
			return fmt.Errorf("repository: failed to lock product %d: %w", rs.productID, err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1`,
			rs.productID, rs.quantity, now)
		if err != nil {
			return fmt.Errorf("repository: failed to restore stock for product %d: %w", rs.productID, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(StatusCancelled), now)
	if err != nil {
		return fmt.Errorf("repository: failed to cancel order %s: %w", id, err)
	}
	return nil
}

// GetView joins order items with products including soft-deleted ones, so
// history renders even after catalog clean-ups. Deleted lines stay out of
// the active total.
func (r *postgresRepository) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT oi.product_id, oi.quantity, oi.price,
		       COALESCE(p.name, ''),
		       (p.id IS NULL OR p.deleted_at IS NOT NULL) AS deleted
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query view lines for order %s: %w", id, err)
	}
	defer rows.Close()

	view := &View{
		ID:           o.ID,
		UserID:       o.UserID,
		Number:       o.Number,
		Status:       o.Status,
		ContactName:  o.ContactName,
		Phone:        o.Phone,
		Address:      o.Address,
		Delivery:     o.Delivery,
		Lines:        make([]LineView, 0),
		ActiveTotal:  decimal.Zero,
		DeletedTotal: decimal.Zero,
		CreatedAt:    o.CreatedAt,
	}

	for rows.Next() {
		var line LineView
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Price, &line.Name, &line.Deleted); err != nil {
			return nil, fmt.Errorf("repository: failed to scan view line for order %s: %w", id, err)
		}
		line.LineTotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if line.Deleted {
			view.DeletedTotal = view.DeletedTotal.Add(line.LineTotal)
		} else {
			view.ActiveTotal = view.ActiveTotal.Add(line.LineTotal)
		}
		view.Lines = append(view.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating view lines for order %s: %w", id, err)
	}

	return view, nil
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

// translateLockError turns database-level deadlock or lock-wait failures
// into a retryable placement error instead of leaking driver details to the
// caller. Two concurrent multi-item checkouts can still collide with a
// cancellation locking the same products.
func translateLockError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return &PlacementError{Reason: ReasonLockContention, cause: err}
		}
	}
	return err
}
