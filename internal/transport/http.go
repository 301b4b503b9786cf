package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/telegram-storefront/internal/cart"
	"github.com/vasiliy-maslov/telegram-storefront/internal/catalog"
	"github.com/vasiliy-maslov/telegram-storefront/internal/handler"
	"github.com/vasiliy-maslov/telegram-storefront/internal/notify"
	"github.com/vasiliy-maslov/telegram-storefront/internal/order"
	"github.com/vasiliy-maslov/telegram-storefront/internal/settings"
)

// NewRouter wires repositories, services and handlers onto one chi mux.
func NewRouter(pool *pgxpool.Pool, st *settings.Settings) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	catalogSvc := catalog.NewService(catalog.NewRepository(pool))
	cartSvc := cart.NewService(cart.NewRepository(pool))
	notifier := notify.NewLogNotifier(log.Logger)
	orderSvc := order.NewService(order.NewRepository(pool), st, notifier)

	handler.NewCatalogHandler(catalogSvc).RegisterRoutes(r)
	handler.NewCartHandler(cartSvc).RegisterRoutes(r)
	handler.NewOrderHandler(orderSvc, cartSvc).RegisterRoutes(r)
	handler.NewSettingsHandler(st).RegisterRoutes(r)

	return r
}
