package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"msgbridge/middleware"
	"msgbridge/models"
	"msgbridge/services/healthmonitor"
	"msgbridge/usecases/webhook"
)

// dispatchTimeout bounds the asynchronous processing of one delivery.
const dispatchTimeout = 60 * time.Second

// WebhookHandler terminates the provider's webhook surface: the GET
// verification handshake and the POST delivery endpoint. Deliveries are
// acknowledged immediately; all processing happens after the response.
type WebhookHandler struct {
	verifyToken     string
	webhookUseCase  webhook.WebhookUseCaseInterface
	monitor         *healthmonitor.Monitor
	alertMiddleware *middleware.ErrorAlertMiddleware
}

func NewWebhookHandler(
	verifyToken string,
	webhookUseCase webhook.WebhookUseCaseInterface,
	monitor *healthmonitor.Monitor,
	alertMiddleware *middleware.ErrorAlertMiddleware,
) *WebhookHandler {
	return &WebhookHandler{
		verifyToken:     verifyToken,
		webhookUseCase:  webhookUseCase,
		monitor:         monitor,
		alertMiddleware: alertMiddleware,
	}
}

// HandleVerification answers the provider's subscription handshake.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "" || token == "" {
		log.Printf("⚠️ Webhook verification missing hub.mode or hub.verify_token")
		http.Error(w, "missing verification parameters", http.StatusBadRequest)
		return
	}

	if mode != "subscribe" || token != h.verifyToken {
		log.Printf("⚠️ Webhook verification rejected (mode: %s)", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	log.Printf("✅ Webhook verification succeeded")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// HandleDelivery acknowledges a delivery as soon as the payload parses and
// dispatches processing asynchronously. Internal failures never surface to
// the provider; a non-200 would trigger redelivery storms.
func (h *WebhookHandler) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	var payload models.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("⚠️ Failed to decode webhook payload, acknowledging anyway: %v", err)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("EVENT_RECEIVED"))
		return
	}

	go func() {
		_ = h.alertMiddleware.WrapBackgroundTask("ProcessWebhookPayload", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			h.webhookUseCase.ProcessPayload(ctx, &payload)
			return nil
		})()
	}()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}

// HandleHealth reports process liveness plus the monitored channel statuses.
func (h *WebhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var connections []models.ConnectionStatus
	if h.monitor != nil {
		connections = h.monitor.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": connections,
	}); err != nil {
		log.Printf("⚠️ Failed to encode health response: %v", err)
	}
}

func (h *WebhookHandler) SetupEndpoints(router *mux.Router) {
	router.HandleFunc("/webhook", h.HandleVerification).Methods("GET")
	router.HandleFunc("/webhook", h.HandleDelivery).Methods("POST")
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
