package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	pmsGuard "github.com/MrEthical07/pmsGuard"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteDecision renders a rejected decision as a categorical JSON error.
// TooManyRequests rejections carry a Retry-After header in whole seconds.
// A Continue decision writes nothing.
func WriteDecision(w http.ResponseWriter, d pmsGuard.Decision) {
	if d.Allowed() {
		return
	}
	if ra := d.RetryAfter(); ra > 0 {
		secs := int(math.Ceil(ra.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(d.Status())
	_ = json.NewEncoder(w).Encode(errorBody{Error: d.Reason().String(), Message: d.Message()})
}
