package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/yakuppgeyikk96/gratia/internal/cartsync"
)

type SyncHandler struct {
	carts   *CartSessions
	sync    *cartsync.Service
	timeout time.Duration
}

func NewSyncHandler(carts *CartSessions, sync *cartsync.Service, timeout time.Duration) *SyncHandler {
	return &SyncHandler{
		carts:   carts,
		sync:    sync,
		timeout: timeout,
	}
}

type LoginSyncRequestDTO struct {
	UserID       string `json:"user_id"`
	LoginEventID string `json:"login_event_id"`
}

// LoginSync merges the shopper's guest cart into their account cart after a
// successful login. Retrying with the same login_event_id is safe: the merge
// happens once, repeats just return the merged cart.
func (h *SyncHandler) LoginSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginSyncRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" || req.LoginEventID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id and login_event_id are required")
		return
	}

	// The in-memory store is the guest side of the merge, so it must not be
	// hydrated from the user's persisted cart here; the sync service loads
	// the server side itself.
	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), "")
	merged, err := h.sync.SyncOnLogin(ctx, store, req.UserID, req.LoginEventID)
	if err != nil {
		if errors.Is(err, cartsync.ErrSyncFailed) {
			log.Printf("cart sync failed for user %s (request %s): %v", req.UserID, getRequestID(ctx), err)
			respondError(w, http.StatusServiceUnavailable, "sync_failed", "cart sync failed, retry with the same login_event_id")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{
		Cart:     merged,
		Warnings: store.Warnings(),
		Total:    merged.Total().String(),
	})
}
