package api

import (
	"encoding/json"
	"net/http"

	"github.com/fgeck/pumpkin-control/internal/faults"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// statusFor maps a fault kind to its HTTP status.
func statusFor(kind faults.Kind) int {
	switch kind {
	case faults.KindConfigurationMissing, faults.KindNotConnected, faults.KindInvalidRequest:
		return http.StatusBadRequest
	case faults.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
