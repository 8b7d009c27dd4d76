package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yakuppgeyikk96/gratia/internal/cart"
	"github.com/yakuppgeyikk96/gratia/internal/catalog"
	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// ProductResolver looks up the live price and stock of a single product.
type ProductResolver interface {
	Snapshot(ctx context.Context, key domain.ItemKey) (domain.ProductSnapshot, error)
}

type CartHandler struct {
	carts    *CartSessions
	products ProductResolver
	timeout  time.Duration
}

func NewCartHandler(carts *CartSessions, products ProductResolver, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID   int64  `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	Quantity    int32  `json:"quantity"`
	ProductName string `json:"product_name,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int32  `json:"quantity"`
}

type CartResponseDTO struct {
	Cart     *domain.Cart         `json:"cart"`
	Warnings []domain.CartWarning `json:"warnings"`
	Total    string               `json:"total"`
}

func cartResponse(store *cart.Store) CartResponseDTO {
	c := store.Cart()
	return CartResponseDTO{
		Cart:     c,
		Warnings: store.Warnings(),
		Total:    c.Total().String(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), getUserID(ctx))
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity == 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	key := domain.ItemKey{ProductID: req.ProductID, VariantID: req.VariantID}
	snapshot, err := h.products.Snapshot(ctx, key)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "product catalog unavailable, try again")
		return
	}

	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), getUserID(ctx))
	item := domain.CartItem{
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Quantity:    req.Quantity,
		UnitPrice:   snapshot.Price,
		ProductName: req.ProductName,
		ImageURL:    req.ImageURL,
	}
	if err := store.AddItem(ctx, item, req.Quantity); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	}
	h.carts.Persist(ctx, store)

	respondJSON(w, http.StatusCreated, cartResponse(store))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := parseProductID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), getUserID(ctx))
	key := domain.ItemKey{ProductID: productID, VariantID: req.VariantID}
	if err := store.UpdateQuantity(ctx, key, req.Quantity); err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondError(w, http.StatusUnprocessableEntity, "invalid_quantity", "quantity must be positive; remove the item instead")
		case errors.Is(err, cart.ErrItemNotFound):
			respondError(w, http.StatusNotFound, "not_found", "item is not in the cart")
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}
	h.carts.Persist(ctx, store)

	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := parseProductID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), getUserID(ctx))
	key := domain.ItemKey{ProductID: productID, VariantID: r.URL.Query().Get("variant_id")}
	store.RemoveItem(ctx, key)
	h.carts.Persist(ctx, store)

	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), getUserID(ctx))
	store.Clear(ctx)
	h.carts.Persist(ctx, store)

	respondJSON(w, http.StatusOK, cartResponse(store))
}

func parseProductID(r *http.Request) (int64, error) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		return 0, errors.New("invalid product id")
	}
	return productID, nil
}
