// Package api - Router setup
package api

import (
	"net/http"

	"github.com/alexbotov/commsdk/pkg/webhook"
	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(h.RecoveryMiddleware)
	r.Use(h.LoggingMiddleware)

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	hooks := r.PathPrefix("/webhooks").Subrouter()

	// Signed parameter callbacks
	signed := hooks.PathPrefix("").Subrouter()
	signed.Use(webhook.SignatureMiddleware(h.verifier, h.log))
	signed.HandleFunc("/inbound-sms", h.InboundSMS).Methods("GET", "POST")

	// Signed token callbacks
	tokens := hooks.PathPrefix("").Subrouter()
	tokens.Use(webhook.JWTMiddleware(h.secret, h.log))
	tokens.HandleFunc("/events", h.Events).Methods("POST")

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
