// internal/api/handler/transfer.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"zpexk-rewards/internal/service"
	"zpexk-rewards/internal/util"
)

// TransferHandler handles HTTP requests for peer-to-peer $ZPEXK
// transfers.
type TransferHandler struct {
	transfers service.TransferService
	logger    *slog.Logger
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transfers service.TransferService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		logger:    logger,
	}
}

// TransferRequest represents the request body for a transfer. The
// whole compose/review/authorize/commit sequence runs within one
// request; the PIN authorizes the committed step.
type TransferRequest struct {
	SenderID    int64           `json:"sender_id"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	PIN         string          `json:"pin"`
	Source      string          `json:"source,omitempty"` // "MANUAL" (default) or "SCAN"
}

// Transfer handles the transfer money request.
// POST /transfers
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.SenderID == 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	source := service.TransferSourceManual
	if req.Source == string(service.TransferSourceScan) {
		source = service.TransferSourceScan
	}

	intent, err := h.transfers.Compose(r.Context(), req.SenderID, req.Destination, req.Amount, source)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.transfers.Review(intent); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.transfers.Authorize(r.Context(), intent, req.PIN); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	sender, err := h.transfers.Commit(r.Context(), intent)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":       "Transfer successful",
		"state":         intent.State(),
		"asset_balance": sender.AssetBalance,
	})
}
