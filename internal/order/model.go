package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusPaid        Status = "PAID"
	StatusProcessing  Status = "PROCESSING"
	StatusShipped     Status = "SHIPPED"
	StatusPickupReady Status = "PICKUP_READY"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRefunded    Status = "REFUNDED"
	StatusFailed      Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := messageKeys[s]
	return ok
}

// MessageKey is the localization key the transport layer resolves into a
// user-facing label.
func (s Status) MessageKey() string {
	return messageKeys[s]
}

var messageKeys = map[Status]string{
	StatusPending:     "order.status.pending",
	StatusPaid:        "order.status.paid",
	StatusProcessing:  "order.status.processing",
	StatusShipped:     "order.status.shipped",
	StatusPickupReady: "order.status.pickup_ready",
	StatusCompleted:   "order.status.completed",
	StatusCancelled:   "order.status.cancelled",
	StatusRefunded:    "order.status.refunded",
	StatusFailed:      "order.status.failed",
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusPaid:       true,
		StatusProcessing: true,
		StatusFailed:     true,
	},
	StatusPaid: {
		StatusProcessing: true,
		StatusRefunded:   true,
	},
	StatusProcessing: {
		StatusShipped:     true,
		StatusPickupReady: true,
	},
	StatusShipped: {
		StatusCompleted: true,
	},
	StatusPickupReady: {
		StatusCompleted: true,
	},
	StatusCompleted: {
		StatusRefunded: true,
	},
	StatusCancelled: {},
	StatusRefunded:  {},
	StatusFailed:    {},
}

// guidedNext is the single forward step the admin panel offers per status.
// The remaining transitions are reachable only by an explicit status choice.
var guidedNext = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusCompleted,
}

// GuidedNext returns the admin panel's suggested next status, or false when
// the order has no guided forward step left.
func GuidedNext(s Status) (Status, bool) {
	next, ok := guidedNext[s]
	return next, ok
}

type Item struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"` // frozen at placement, never re-read from the product
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Number      string          `json:"order_number" db:"order_number"`
	Status      Status          `json:"status" db:"status"`
	ContactName string          `json:"contact_name" db:"contact_name"`
	Phone       string          `json:"phone" db:"phone"`
	Address     string          `json:"address" db:"address"`
	Delivery    bool            `json:"delivery" db:"delivery"`
	Total       decimal.Decimal `json:"total" db:"total"`
	Items       []Item          `json:"items" db:"-"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Contact holds the checkout fields collected by the dialogue layer. The
// engine checks presence only, format is the collector's problem.
type Contact struct {
	Name     string
	Phone    string
	Address  string
	Delivery bool
}

// CartLine is the materialized cart input to placement.
type CartLine struct {
	ProductID int64
	Quantity  int
}

// LineView is an order item joined with its product, including soft-deleted
// ones. Deleted lines are shown with a marker and kept out of ActiveTotal.
type LineView struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Deleted   bool            `json:"deleted"`
}

type View struct {
	ID           uuid.UUID       `json:"id"`
	UserID       int64           `json:"user_id"`
	Number       string          `json:"order_number"`
	Status       Status          `json:"status"`
	ContactName  string          `json:"contact_name"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Delivery     bool            `json:"delivery"`
	Lines        []LineView      `json:"lines"`
	ActiveTotal  decimal.Decimal `json:"active_total"`
	DeletedTotal decimal.Decimal `json:"deleted_total"`
	CreatedAt    time.Time       `json:"created_at"`
}

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderFinished    = errors.New("order is already completed or cancelled")
	ErrDeliveryDisabled = errors.New("delivery is currently disabled")
	ErrMissingContact   = errors.New("contact name, phone and address are required")
)

type PlacementReason string

const (
	ReasonProductNotFound   PlacementReason = "product_not_found"
	ReasonInsufficientStock PlacementReason = "insufficient_stock"
	ReasonLockContention    PlacementReason = "lock_contention"
)

// PlacementError fails a whole checkout; nothing is persisted when it is
// returned. Lock contention is the only retryable reason.
type PlacementError struct {
	Reason    PlacementReason
	ProductID int64
	Requested int
	Available int
	cause     error
}

func (e *PlacementError) Error() string {
	switch e.Reason {
	case ReasonProductNotFound:
		return fmt.Sprintf("order placement failed: product %d not found", e.ProductID)
	case ReasonInsufficientStock:
		return fmt.Sprintf("order placement failed: product %d has %d in stock, %d requested",
			e.ProductID, e.Available, e.Requested)
	case ReasonLockContention:
		return "order placement failed: storage contention, try again"
	default:
		return "order placement failed"
	}
}

func (e *PlacementError) Unwrap() error {
	return e.cause
}

func (e *PlacementError) Retryable() bool {
	return e.Reason == ReasonLockContention
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %s to %s", e.From, e.To)
}
