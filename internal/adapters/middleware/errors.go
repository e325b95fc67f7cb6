package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
)

func writeError(w http.ResponseWriter, status int, code domain.Code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             string(code),
		"error_description": description,
	})
}
