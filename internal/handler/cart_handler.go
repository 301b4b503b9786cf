package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/telegram-storefront/internal/cart"
)

type CartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=100"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/users/{userID}/cart", h.handleLines)
	router.Post("/users/{userID}/cart/items", h.handleAddItem)
	router.Put("/users/{userID}/cart/items/{productID}", h.handleSetQuantity)
	router.Delete("/users/{userID}/cart/items/{productID}", h.handleRemoveItem)
	router.Delete("/users/{userID}/cart", h.handleClear)
}

func (h *CartHandler) handleLines(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, err := h.service.Lines(r.Context(), userID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch cart")
		return
	}
	respondWithJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CartItemRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.service.AddItem(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := int64URLParam(r, "productID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Quantity int `json:"quantity" validate:"required,gte=1,lte=100"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.service.SetQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := int64URLParam(r, "productID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := h.service.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to remove cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	userID, err := int64URLParam(r, "userID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
