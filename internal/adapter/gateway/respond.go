package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"semanticheck/internal/domain"
	"semanticheck/internal/usecase"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// statusFor maps an error to the HTTP status and detail shown to the caller.
func statusFor(err error) (int, string) {
	var ve *domain.ValidationError
	var ue *domain.UnsupportedFormatError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.As(err, &ue):
		return http.StatusBadRequest, ue.Error()
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest, usecase.MsgNoTextExtracted
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "Request body too large."
	case errors.Is(err, domain.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// writeError writes err as a {"detail"} body. Server-side failures are logged.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err, "code", domain.ErrorCodeOf(err))
	}
	writeDetail(w, status, detail)
}
