package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yakuppgeyikk96/gratia/internal/checkout"
	"github.com/yakuppgeyikk96/gratia/internal/domain"
	"github.com/yakuppgeyikk96/gratia/internal/order"
)

type CheckoutHandler struct {
	sessions      *checkout.Manager
	guard         *checkout.StepGuard
	carts         *CartSessions
	secureCookies bool
	timeout       time.Duration
}

func NewCheckoutHandler(sessions *checkout.Manager, guard *checkout.StepGuard, carts *CartSessions, secureCookies bool, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:      sessions,
		guard:         guard,
		carts:         carts,
		secureCookies: secureCookies,
		timeout:       timeout,
	}
}

type CheckoutSessionDTO struct {
	Step      string       `json:"step"`
	Snapshot  *domain.Cart `json:"snapshot"`
	Total     string       `json:"total"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type AdvanceRequestDTO struct {
	Target string `json:"target"`
}

type CompleteRequestDTO struct {
	Shipping order.ShippingInfo  `json:"shipping"`
	Payment  order.PaymentResult `json:"payment"`
}

func sessionResponse(session *domain.CheckoutSession) CheckoutSessionDTO {
	return CheckoutSessionDTO{
		Step:      string(session.CurrentStep),
		Snapshot:  session.CartSnapshot,
		Total:     session.CartSnapshot.Total().String(),
		ExpiresAt: session.ExpiresAt,
	}
}

// Begin freezes the current cart into a checkout session and hands the
// shopper the session cookie. The token never appears in the response body.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store := h.carts.GetOrCreate(ctx, getShopperID(ctx), getUserID(ctx))
	session, err := h.sessions.CreateSession(ctx, store.Cart())
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cannot start checkout with an empty cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.setSessionCookie(w, session.Token)
	respondJSON(w, http.StatusCreated, sessionResponse(session))
}

// Step serves a checkout page request, enforcing the session's recorded
// progress. Wrong step gets a 303 to the right one, no session gets a 303
// back to the cart.
func (h *CheckoutHandler) Step(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	requested, ok := domain.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "unknown checkout step")
		return
	}

	decision := h.guard.Authorize(ctx, h.sessionToken(r), requested)
	switch decision.Kind {
	case checkout.DecisionAllow:
		session, err := h.sessions.GetSession(ctx, h.sessionToken(r))
		if err != nil {
			h.redirectToCart(w, r)
			return
		}
		respondJSON(w, http.StatusOK, sessionResponse(session))
	case checkout.DecisionRedirectToStep:
		http.Redirect(w, r, "/checkout/"+string(decision.Step), http.StatusSeeOther)
	default:
		h.redirectToCart(w, r)
	}
}

// Advance moves the session one step forward. A successful advance refreshes
// the cookie alongside the stored deadline.
func (h *CheckoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AdvanceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	target, ok := domain.ParseStep(req.Target)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_step", "unknown checkout step")
		return
	}

	token := h.sessionToken(r)
	session, err := h.sessions.AdvanceStep(ctx, token, target)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

// Complete performs the terminal transition and creates the order. The
// session cookie and the shopper's cart are cleared on success.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CompleteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orderID, err := h.sessions.Complete(ctx, h.sessionToken(r), req.Shipping, req.Payment)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	shopperID := getShopperID(ctx)
	h.carts.GetOrCreate(ctx, shopperID, getUserID(ctx)).Clear(ctx)
	h.carts.Drop(shopperID)
	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{"order_id": orderID})
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case checkout.IsNotFound(err):
		h.redirectToCart(w, r)
	case errors.Is(err, checkout.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", "checkout is not at the expected step")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *CheckoutHandler) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(CheckoutCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *CheckoutHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CheckoutCookieName,
		Value:    token,
		Path:     "/checkout",
		MaxAge:   int(domain.SessionLifetime / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *CheckoutHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CheckoutCookieName,
		Value:    "",
		Path:     "/checkout",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *CheckoutHandler) redirectToCart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}
