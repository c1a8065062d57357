/**
 * @description
 * This file sets up the HTTP router for the checkout-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CheckoutRoutes creates and returns a new router for the checkout service.
func CheckoutRoutes(h *CheckoutHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Submissions may legitimately wait out a challenge window, so the
	// blanket timeout stays above the challenge timeout default.
	r.Use(middleware.Timeout(15 * time.Minute))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		// Apply JWT authentication middleware for production
		r.Use(AuthMiddleware(jwksURL))

		// Define the protected API endpoints.
		r.Post("/checkout/attempts", h.CreateAttemptHandler)
		r.Post("/checkout/attempts/{attemptID}/submit", h.SubmitAttemptHandler)
		r.Get("/checkout/attempts/{attemptID}", h.GetAttemptHandler)
		r.Delete("/checkout/attempts/{attemptID}", h.CancelAttemptHandler)
		r.Post("/checkout/gateway/refresh", h.RefreshGatewayHandler)

		// In-app notification feed
		r.Get("/notifications", h.ListNotificationsHandler)
		r.Post("/notifications/{id}/read", h.MarkNotificationReadHandler)
	})

	return r
}
