package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"msgbridge/middleware"
	"msgbridge/models"
	"msgbridge/opsalert"
	"msgbridge/usecases/webhook"
)

func newTestHandler(usecase webhook.WebhookUseCaseInterface) *WebhookHandler {
	notifier := opsalert.NewNotifier("", "test", "msgbridge", "")
	return NewWebhookHandler("secret-token", usecase, nil, middleware.NewErrorAlertMiddleware(notifier))
}

func TestHandleVerification(t *testing.T) {
	handler := newTestHandler(new(webhook.MockWebhookUseCase))

	tests := []struct {
		name         string
		query        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "correct token returns challenge",
			query:        "hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=XYZ",
			expectedCode: http.StatusOK,
			expectedBody: "XYZ",
		},
		{
			name:         "wrong token rejected",
			query:        "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=XYZ",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "wrong mode rejected",
			query:        "hub.mode=unsubscribe&hub.verify_token=secret-token",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "missing params rejected",
			query:        "hub.challenge=XYZ",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleVerification(rec, req)

			// Assert
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.expectedBody != "" {
				assert.Equal(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandleDelivery_AlwaysAcknowledges(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"valid payload", `{"object":"page","entry":[{"id":"P1"}]}`},
		{"empty object", `{}`},
		{"missing entry", `{"object":"page"}`},
		{"malformed json", `{"object":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			usecase := new(webhook.MockWebhookUseCase)
			usecase.On("ProcessPayload", mock.Anything, mock.Anything).Return().Maybe()
			handler := newTestHandler(usecase)
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			// Act
			handler.HandleDelivery(rec, req)

			// Assert
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "EVENT_RECEIVED", rec.Body.String())
		})
	}
}

func TestHandleDelivery_DispatchesPayload(t *testing.T) {
	// Setup
	var wg sync.WaitGroup
	wg.Add(1)
	usecase := new(webhook.MockWebhookUseCase)
	usecase.On("ProcessPayload", mock.Anything, mock.MatchedBy(func(p *models.WebhookPayload) bool {
		return p.Object == "page" && len(p.Entry) == 1
	})).Run(func(mock.Arguments) { wg.Done() }).Return()
	handler := newTestHandler(usecase)

	body := `{"object":"page","entry":[{"id":"P1","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"P1"},"message":{"mid":"m1","text":"hello"}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	// Act
	handler.HandleDelivery(rec, req)
	wg.Wait()

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	usecase.AssertExpectations(t)
}

func TestHandleHealth(t *testing.T) {
	// Setup
	handler := newTestHandler(new(webhook.MockWebhookUseCase))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	// Act
	handler.HandleHealth(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
