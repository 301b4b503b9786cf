package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/telegram-storefront/internal/catalog"
)

type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type ProductRequest struct {
	CategoryID  int64           `json:"category_id" validate:"required"`
	Name        string          `json:"name" validate:"required,min=1"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service, validate: validator.New()}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Post("/categories", h.handleCreateCategory)
	router.Get("/categories", h.handleListRootCategories)
	router.Get("/categories/{id}", h.handleGetCategory)
	router.Get("/categories/{id}/subcategories", h.handleListSubcategories)
	router.Get("/categories/{id}/products", h.handleListProducts)
	router.Delete("/categories/{id}", h.handleSoftDeleteCategory)
	router.Post("/categories/{id}/restore", h.handleRestoreCategory)

	router.Post("/products", h.handleCreateProduct)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleSoftDeleteProduct)
	router.Post("/products/{id}/restore", h.handleRestoreProduct)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	category := catalog.Category{Name: req.Name, ParentID: req.ParentID}
	if err := h.service.CreateCategory(r.Context(), &category); err != nil {
		log.Error().Err(err).Msg("handler: failed to create category")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) handleListRootCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListRootCategories(r.Context())
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, "category not found")
			return
		}
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories, err := h.service.ListSubcategories(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to list subcategories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.service.ListProductsByCategory(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleSoftDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.service.SoftDeleteCategory(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to delete category")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *CatalogHandler) handleRestoreCategory(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	restored, err := h.service.RestoreCategory(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to restore category")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"restored": restored})
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	product := catalog.Product{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := h.service.CreateProduct(r.Context(), &product); err != nil {
		log.Error().Err(err).Msg("handler: failed to create product")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var product *catalog.Product
	if r.URL.Query().Get("include_deleted") == "true" {
		product, err = h.service.GetProductIncludingDeleted(r.Context(), id)
	} else {
		product, err = h.service.GetProduct(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ProductRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	product := catalog.Product{
		ID:          id,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := h.service.UpdateProduct(r.Context(), &product); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleSoftDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.service.SoftDeleteProduct(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to delete product")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *CatalogHandler) handleRestoreProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64URLParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	restored, err := h.service.RestoreProduct(r.Context(), id)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to restore product")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"restored": restored})
}

func decodeBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
