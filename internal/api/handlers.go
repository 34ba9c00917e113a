// Package api provides the HTTP handlers of the webhook receiver
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/alexbotov/commsdk/pkg/signing"
	"github.com/alexbotov/commsdk/pkg/webhook"
	"github.com/elnormous/contenttype"
	"go.uber.org/zap"
)

// Version is reported by ServerInfo.
const Version = "0.1.0"

var jsonMediaType = contenttype.NewMediaType("application/json")

// InboundSMS is a message received on one of the account's numbers.
type InboundSMS struct {
	MSISDN           string `json:"msisdn"`
	To               string `json:"to"`
	MessageID        string `json:"messageId"`
	Text             string `json:"text"`
	Type             string `json:"type"`
	Keyword          string `json:"keyword,omitempty"`
	MessageTimestamp string `json:"message-timestamp"`
}

// Event is a status callback delivered with a signed token.
type Event struct {
	Status    string          `json:"status"`
	UUID      string          `json:"message_uuid,omitempty"`
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// Handler contains all HTTP handlers
type Handler struct {
	log      *zap.Logger
	verifier *signing.Verifier
	secret   string

	// OnInboundSMS and OnEvent receive verified callbacks. Either may be nil.
	OnInboundSMS func(ctx context.Context, msg InboundSMS)
	OnEvent      func(ctx context.Context, ev Event, claims *webhook.Claims)
}

// New creates a new API handler. verifier checks signed callbacks and secret
// checks signed-token callbacks.
func New(log *zap.Logger, verifier *signing.Verifier, secret string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		log:      log,
		verifier: verifier,
		secret:   secret,
	}
}

// Response helpers

// APIResponse is the JSON envelope for informational endpoints
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the error body inside APIResponse
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt := contenttype.NewMediaType(ct)
	return mt.Matches(jsonMediaType)
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "commsdk-webhooks",
		"version":     Version,
		"description": "Signed callback receiver",
	})
}

// === Callbacks ===

// InboundSMS handles GET|POST /webhooks/inbound-sms. The signature has been
// checked by the time it runs.
func (h *Handler) InboundSMS(w http.ResponseWriter, r *http.Request) {
	var msg InboundSMS
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid form body")
			return
		}
		msg = InboundSMS{
			MSISDN:           r.Form.Get("msisdn"),
			To:               r.Form.Get("to"),
			MessageID:        r.Form.Get("messageId"),
			Text:             r.Form.Get("text"),
			Type:             r.Form.Get("type"),
			Keyword:          r.Form.Get("keyword"),
			MessageTimestamp: r.Form.Get("message-timestamp"),
		}
	}

	h.log.Info("inbound sms",
		zap.String("message_id", msg.MessageID),
		zap.String("from", msg.MSISDN),
		zap.String("to", msg.To),
		zap.String("type", msg.Type))

	if h.OnInboundSMS != nil {
		h.OnInboundSMS(r.Context(), msg)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles POST /webhooks/events. The token has been checked by the
// time it runs.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read body")
		return
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	ev.Raw = raw

	claims, _ := webhook.ClaimsFromContext(r.Context())
	fields := []zap.Field{
		zap.String("status", ev.Status),
		zap.String("message_uuid", ev.UUID),
	}
	if claims != nil {
		fields = append(fields, zap.String("application_id", claims.ApplicationID))
	}
	h.log.Info("event callback", fields...)

	if h.OnEvent != nil {
		h.OnEvent(r.Context(), ev, claims)
	}
	w.WriteHeader(http.StatusNoContent)
}
