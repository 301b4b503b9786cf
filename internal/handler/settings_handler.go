package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/telegram-storefront/internal/settings"
)

type SettingsHandler struct {
	settings *settings.Settings
}

func NewSettingsHandler(st *settings.Settings) *SettingsHandler {
	return &SettingsHandler{settings: st}
}

func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/settings", h.handleGet)
	router.Put("/settings", h.handleUpdate)
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.settings.Snapshot())
}

func (h *SettingsHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req settings.State
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	h.settings.SetDeliveryEnabled(req.DeliveryEnabled)
	h.settings.SetPickupEnabled(req.PickupEnabled)
	log.Info().
		Bool("delivery_enabled", req.DeliveryEnabled).
		Bool("pickup_enabled", req.PickupEnabled).
		Msg("handler: runtime settings updated")

	respondWithJSON(w, http.StatusOK, h.settings.Snapshot())
}
