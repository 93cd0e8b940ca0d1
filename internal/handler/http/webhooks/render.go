package webhooks_http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

func renderJSON(w http.ResponseWriter, statusCode int, v any, l *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error("Failed to write JSON response", zap.Error(err))
	}
}

func renderJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
