// Package httpx maps engine error kinds to HTTP responses. Callers only ever
// see the kind and a safe message; the full error is logged here.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mve-platform/commerce-backend/internal/errs"
)

type errorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	}
	WriteJSON(w, status, errorBody{Error: msg})
}

func classify(err error) (int, string) {
	var stockErr *errs.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return http.StatusConflict, stockErr.Error()
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrInsufficientStock):
		return http.StatusConflict, "insufficient stock"
	case errors.Is(err, errs.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
