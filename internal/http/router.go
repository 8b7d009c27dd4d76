package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	SecureCookies  bool
}

// NewRouter assembles the storefront's HTTP surface: cart CRUD, login cart
// sync and the guarded checkout flow.
func NewRouter(cfg RouterConfig, carts *CartHandler, sync *SyncHandler, co *CheckoutHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(ShopperMiddleware(cfg.SecureCookies))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{product_id}", carts.UpdateQuantity)
			r.Delete("/items/{product_id}", carts.RemoveItem)
		})
		r.Post("/login/sync", sync.LoginSync)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", co.Begin)
		r.Post("/advance", co.Advance)
		r.Post("/complete", co.Complete)
		r.Get("/{step}", co.Step)
	})

	return otelhttp.NewHandler(r, "storefront")
}
