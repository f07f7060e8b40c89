package middleware

import (
	"crypto/md5"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"msgbridge/opsalert"
)

// ErrorAlertMiddleware recovers panics and routes errors from HTTP handlers
// and background tasks to the ops channel, deduplicating repeats so a
// flapping dependency does not flood the channel.
type ErrorAlertMiddleware struct {
	notifier      *opsalert.Notifier
	alertedErrors map[string]time.Time // hash -> last alert time
	mutex         sync.Mutex
	alertCooldown time.Duration
}

func NewErrorAlertMiddleware(notifier *opsalert.Notifier) *ErrorAlertMiddleware {
	return &ErrorAlertMiddleware{
		notifier:      notifier,
		alertedErrors: make(map[string]time.Time),
		alertCooldown: 10 * time.Minute, // Don't alert same error more than once per 10min
	}
}

// HTTPMiddleware wraps HTTP handlers with panic recovery and alerting
func (m *ErrorAlertMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer m.RecoverAndAlert(fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

// WrapBackgroundTask wraps a background loop body with recovery and alerting
func (m *ErrorAlertMiddleware) WrapBackgroundTask(taskName string, task func() error) func() error {
	return func() error {
		defer m.RecoverAndAlert(fmt.Sprintf("Background task: %s", taskName))

		if err := task(); err != nil {
			m.AlertOnError(err, fmt.Sprintf("Background task: %s", taskName))
			return err
		}
		return nil
	}
}

// AlertOnError sends a deduplicated alert for an error from any path
func (m *ErrorAlertMiddleware) AlertOnError(err error, context string) {
	errorMsg := fmt.Sprintf("%s: %v", context, err)

	// Hash of the message for deduplication
	hash := fmt.Sprintf("%x", md5.Sum([]byte(errorMsg)))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if lastAlert, exists := m.alertedErrors[hash]; exists {
		if time.Since(lastAlert) < m.alertCooldown {
			return // Skip alert - too recent
		}
	}

	m.notifier.Alert("Error", context, errorMsg)
	m.alertedErrors[hash] = time.Now()
}

// RecoverAndAlert is deferred around any work that must never crash the process
func (m *ErrorAlertMiddleware) RecoverAndAlert(context string) {
	if r := recover(); r != nil {
		errorMsg := fmt.Sprintf("%s: PANIC - %v", context, r)
		log.Printf("❌ %s", errorMsg)
		m.notifier.Alert("Panic recovered", context, errorMsg)
	}
}
