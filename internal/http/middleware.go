package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// CartCookieName identifies the shopper across requests, logged in or not.
	CartCookieName = "gratia_cart"
	// CheckoutCookieName carries the checkout session token, scoped to the
	// checkout path only.
	CheckoutCookieName = "gratia_checkout"

	cartCookieMaxAge = int(90 * 24 * time.Hour / time.Second)
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), "request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ShopperMiddleware resolves the shopper identity. Every visitor gets a
// long-lived cart cookie on first contact; a logged-in user is additionally
// identified by X-User-ID.
//
// In production the user id comes from validating the session/JWT issued by
// the auth service; the header stands in for that here.
func ShopperMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var shopperID string
			if cookie, err := r.Cookie(CartCookieName); err == nil && cookie.Value != "" {
				shopperID = cookie.Value
			} else {
				shopperID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CartCookieName,
					Value:    shopperID,
					Path:     "/",
					MaxAge:   cartCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), "shopper_id", shopperID)
			if userID := r.Header.Get("X-User-ID"); userID != "" {
				ctx = context.WithValue(ctx, "user_id", userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getShopperID(ctx context.Context) string {
	if shopperID, ok := ctx.Value("shopper_id").(string); ok {
		return shopperID
	}
	return ""
}

func getUserID(ctx context.Context) string {
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}
