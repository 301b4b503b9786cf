package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/telegram-storefront/internal/cart"
	"github.com/vasiliy-maslov/telegram-storefront/internal/order"
)

type CheckoutRequest struct {
	ContactName string `json:"contact_name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Delivery    bool   `json:"delivery"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderHandler struct {
	orders   order.Service
	carts    cart.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service, carts cart.Service) *OrderHandler {
	return &OrderHandler{orders: orders, carts: carts, validate: validator.New()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/users/{userID}/checkout", h.handleCheckout)
	router.Get("/users/{userID}/orders", h.handleListByUser)
	router.Get("/orders/{id}", h.handleGetView)
	router.Patch("/orders/{id}/status", h.handleChangeStatus)
}

// handleCheckout materializes the user's cart and hands it to the placement
// engine. The cart itself is cleared inside the placement transaction.
func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CheckoutRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	cartLines, err := h.carts.Lines(r.Context(), userID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch cart")
		return
	}

	lines := make([]order.CartLine, 0, len(cartLines))
	for _, line := range cartLines {
		lines = append(lines, order.CartLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	contact := order.Contact{
		Name:     req.ContactName,
		Phone:    req.Phone,
		Address:  req.Address,
		Delivery: req.Delivery,
	}

	placed, err := h.orders.PlaceOrder(r.Context(), userID, contact, lines)
	if err != nil {
		log.Info().Err(err).Int64("user_id", userID).Msg("handler: checkout rejected")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetView(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "id must be a UUID")
		return
	}

	view, err := h.orders.GetView(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch order")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *OrderHandler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "id must be a UUID")
		return
	}

	var req ChangeStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	updated, err := h.orders.ChangeStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		log.Info().Err(err).Stringer("order_id", id).Msg("handler: status change rejected")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}
