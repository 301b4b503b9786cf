package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrQuantityRange = fmt.Errorf("quantity must be between %d and %d", MinQuantity, MaxQuantity)

type Service interface {
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) (bool, error)
	Clear(ctx context.Context, userID int64) error
	Lines(ctx context.Context, userID int64) ([]Line, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return ErrQuantityRange
	}

	if err := s.repo.AddItem(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, ErrProductUnavailable) {
			log.Warn().Int64("user_id", userID).Int64("product_id", productID).Msg("service: attempt to add unavailable product to cart")
			return ErrProductUnavailable
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("product_id", productID).Msg("service: failed to add cart item")
		return fmt.Errorf("service: failed to add cart item: %w", err)
	}
	return nil
}

func (s *service) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return ErrQuantityRange
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		log.Error().Err(err).Int64("user_id", userID).Int64("product_id", productID).Msg("service: failed to set cart item quantity")
		return fmt.Errorf("service: failed to set cart item quantity: %w", err)
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID int64) (bool, error) {
	removed, err := s.repo.RemoveItem(ctx, userID, productID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Int64("product_id", productID).Msg("service: failed to remove cart item")
		return false, fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return removed, nil
}

func (s *service) Clear(ctx context.Context, userID int64) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to clear cart")
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}
	return nil
}

func (s *service) Lines(ctx context.Context, userID int64) ([]Line, error) {
	lines, err := s.repo.Lines(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to fetch cart lines")
		return nil, fmt.Errorf("service: failed to fetch cart lines: %w", err)
	}
	return lines, nil
}
