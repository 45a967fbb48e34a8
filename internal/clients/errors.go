package clients

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"shdrug/client/internal/session"
)

const fallbackMessage = "request failed"

// RequestError is a non-2xx backend answer. Message is what a user sees;
// Status lets callers branch without parsing the message.
type RequestError struct {
	Message string
	Status  int
	Method  string
	Path    string
}

func (e *RequestError) Error() string {
	return e.Message
}

func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// ClearAndRedirect is the default 401 policy: the stored session is dropped
// and the runtime goes back to the login page.
func ClearAndRedirect(store session.Provider, nav Navigator, logger *slog.Logger) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx = context.WithoutCancel(ctx)
		if store != nil {
			if err := store.ClearAuth(ctx); err != nil && logger != nil {
				logger.Warn("clear session after 401 failed", "error", err)
			}
		}
		if logger != nil {
			logger.Info("session rejected by backend, redirecting to login")
		}
		if nav != nil {
			nav.Navigate(LoginPath)
		}
	}
}

// messageFromJSON picks the backend's msg field, then message, then a string
// error field, then the status text.
func messageFromJSON(status int, body []byte) string {
	if msg := bodyMessage(body); msg != "" {
		return msg
	}
	return statusMessage(status)
}

// messageFromText is used for binary downloads: a body that is not JSON is
// shown as-is.
func messageFromText(status int, body []byte) string {
	if json.Valid(body) {
		return messageFromJSON(status, body)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return statusMessage(status)
}

func bodyMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"msg", "message", "error"} {
		if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func statusMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fallbackMessage
}
