package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/R3E-Network/nft_lottery/internal/collectible"
	"github.com/R3E-Network/nft_lottery/internal/lottery"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors onto HTTP status codes. Not-ready draws get
// 425 so pollers can distinguish "try again later" from a real conflict.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case lottery.IsUnauthorized(err):
		status = http.StatusForbidden
	case lottery.IsInvalidInput(err):
		status = http.StatusBadRequest
	case lottery.IsInvalidState(err):
		status = http.StatusConflict
	case lottery.IsNotReady(err):
		status = http.StatusTooEarly
	case errors.Is(err, collectible.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
