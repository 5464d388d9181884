// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"zpexk-rewards/internal/util"
)

// DefaultTimeout bounds request handling via the router's timeout
// middleware.
const DefaultTimeout = 30 * time.Second

// Helper function to send JSON responses.
func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to map service errors onto HTTP error responses.
func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	var cooldownErr *util.PINCooldownError

	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInvalidPIN),
		util.IsError(err, util.ErrSelfTransfer),
		util.IsError(err, util.ErrInvalidPromoCode):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound),
		util.IsError(err, util.ErrAccountNotFound),
		util.IsError(err, util.ErrRecipientNotFound),
		util.IsError(err, util.ErrUnknownTask):
		statusCode = http.StatusNotFound
		message = err.Error()
	case util.IsError(err, util.ErrInsufficientCoins),
		util.IsError(err, util.ErrInsufficientAsset):
		statusCode = http.StatusPaymentRequired // 402 Payment Required
		message = err.Error()
	case util.IsError(err, util.ErrPINNotSet),
		util.IsError(err, util.ErrPINMismatch):
		statusCode = http.StatusForbidden
		message = err.Error()
	case errors.As(err, &cooldownErr):
		statusCode = http.StatusTooManyRequests
		message = err.Error()
	case util.IsError(err, util.ErrTaskCompleted),
		util.IsError(err, util.ErrDuplicateEntry),
		util.IsError(err, util.ErrInvalidState),
		util.IsError(err, util.ErrVersionConflict),
		util.IsError(err, util.ErrPromoCodeUsed):
		statusCode = http.StatusConflict
		message = err.Error()
	default:
		logger.Error("Unhandled service error", "error", err)
	}

	respondWithJSON(w, logger, statusCode, map[string]string{"error": message})
}
