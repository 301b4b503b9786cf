package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/telegram-storefront/internal/settings"
)

// Notifier receives the refreshed order after placement and after every
// status change. Calls are fire-and-forget: a notifier must never block or
// fail the operation that triggered it.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order)
	StatusChanged(ctx context.Context, o *Order, previous Status)
}

type Service interface {
	PlaceOrder(ctx context.Context, userID int64, contact Contact, lines []CartLine) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetView(ctx context.Context, id uuid.UUID) (*View, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Order, error)
}

type service struct {
	repo     Repository
	settings *settings.Settings
	notifier Notifier
}

func NewService(repo Repository, st *settings.Settings, notifier Notifier) Service {
	return &service{repo: repo, settings: st, notifier: notifier}
}

func (s *service) PlaceOrder(ctx context.Context, userID int64, contact Contact, lines []CartLine) (*Order, error) {
	if len(lines) == 0 {
		log.Warn().Int64("user_id", userID).Msg("service: checkout attempted with empty cart")
		return nil, ErrEmptyCart
	}
	if contact.Name == "" || contact.Phone == "" || contact.Address == "" {
		return nil, ErrMissingContact
	}
	if contact.Delivery && !s.settings.DeliveryEnabled() {
		log.Warn().Int64("user_id", userID).Msg("service: checkout with delivery while delivery is disabled")
		return nil, ErrDeliveryDisabled
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("service: quantity for product %d must be greater than zero", line.ProductID)
		}
	}

	o := &Order{
		UserID:      userID,
		Number:      NewNumber(time.Now()),
		ContactName: contact.Name,
		Phone:       contact.Phone,
		Address:     contact.Address,
		Delivery:    contact.Delivery,
	}

	if err := s.repo.PlaceOrder(ctx, o, lines); err != nil {
		var placementErr *PlacementError
		if errors.As(err, &placementErr) {
			log.Warn().Err(err).Int64("user_id", userID).Str("reason", string(placementErr.Reason)).Msg("service: order placement rejected")
			return nil, placementErr
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to place order")
		return nil, fmt.Errorf("service: failed to place order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Str("order_number", o.Number).
		Int64("user_id", userID).
		Int("items", len(o.Items)).
		Msg("service: order placed")

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, o)
	}
	return o, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	view, err := s.repo.GetView(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order view")
		return nil, fmt.Errorf("service: failed to fetch order view: %w", err)
	}
	return view, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to fetch user orders")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

// ChangeStatus validates the transition and persists it. Moving to CANCELLED
// additionally restores stock for every item in the same transaction.
func (s *service) ChangeStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Order, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("service: unknown order status %q", newStatus)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if newStatus == StatusCancelled {
		// Cancelling a finished order always fails, even when it is already
		// CANCELLED; the same-status shortcut below does not apply here.
		if current.Status == StatusCompleted || current.Status == StatusCancelled {
			log.Warn().Stringer("order_id", id).Stringer("current_status", current.Status).Msg("service: attempt to cancel a finished order")
			return nil, ErrOrderFinished
		}
		if err := s.repo.CancelAndRestock(ctx, id); err != nil {
			if errors.Is(err, ErrOrderFinished) {
				log.Warn().Stringer("order_id", id).Msg("service: order finished concurrently, cancel rejected")
				return nil, ErrOrderFinished
			}
			if errors.Is(err, ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to cancel order")
			return nil, fmt.Errorf("service: failed to cancel order: %w", err)
		}
	} else {
		if current.Status == newStatus {
			log.Info().Stringer("order_id", id).Stringer("status", newStatus).Msg("service: order status unchanged, no update needed")
			return current, nil
		}
		if !allowedTransitions[current.Status][newStatus] {
			log.Warn().
				Stringer("order_id", id).
				Stringer("current_status", current.Status).
				Stringer("new_status", newStatus).
				Msg("service: invalid status transition attempt")
			return nil, &TransitionError{From: current.Status, To: newStatus}
		}
		if err := s.repo.UpdateStatus(ctx, id, current.Status, newStatus); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			var transitionErr *TransitionError
			if errors.As(err, &transitionErr) {
				log.Warn().
					Stringer("order_id", id).
					Stringer("expected_status", current.Status).
					Stringer("actual_status", transitionErr.From).
					Msg("service: order status changed concurrently, update rejected")
				return nil, transitionErr
			}
			log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", newStatus).Msg("service: failed to update order status")
			return nil, fmt.Errorf("service: failed to update order status: %w", err)
		}
	}

	refreshed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload order after status update: %w", err)
	}

	log.Info().
		Stringer("order_id", id).
		Stringer("old_status", current.Status).
		Stringer("new_status", refreshed.Status).
		Msg("service: order status updated")

	if s.notifier != nil {
		s.notifier.StatusChanged(ctx, refreshed, current.Status)
	}
	return refreshed, nil
}
