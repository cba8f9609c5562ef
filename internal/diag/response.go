package diag

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/gridlight/stationd/internal/station"
)

// Response is the unified envelope format.
type Response struct {
	Result        string      `json:"result"`
	Data          interface{} `json:"data,omitempty"`
	Code          string      `json:"code,omitempty"`
	Message       string      `json:"message,omitempty"`
	CorrelationID string      `json:"correlationId"`
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeResponse(w, http.StatusOK, &Response{
		Result:        "ok",
		Data:          data,
		CorrelationID: uuid.NewString(),
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, &Response{
		Result:        "error",
		Code:          code,
		Message:       message,
		CorrelationID: uuid.NewString(),
	})
}

// writeStationError maps manager errors to HTTP statuses and envelope
// codes.
func writeStationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, station.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, station.ErrInvalidState):
		writeError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, station.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	case errors.Is(err, station.ErrConnectFailed):
		writeError(w, http.StatusBadGateway, "CONNECT_FAILED", err.Error())
	case errors.Is(err, station.ErrResourceExhausted):
		writeError(w, http.StatusInsufficientStorage, "RESOURCE_EXHAUSTED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeResponse(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
