// internal/api/handler/market.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"zpexk-rewards/internal/service"
	"zpexk-rewards/internal/util"
)

// MarketHandler handles HTTP requests against the $ZPEXK market.
type MarketHandler struct {
	market service.MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(market service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		market: market,
		logger: logger,
	}
}

// GetMarket handles the market state read.
// GET /market
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	state, err := h.market.GetMarket(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, state)
}

// GetCandles handles the candlestick series read.
// GET /market/candles
func (h *MarketHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	candles, err := h.market.GetCandles(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{"data": candles})
}

// BuyRequest represents the request body for a market buy.
type BuyRequest struct {
	AccountID int64           `json:"account_id"`
	Units     decimal.Decimal `json:"units"`
}

// Buy handles the buy order request.
// POST /market/buy
func (h *MarketHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.AccountID == 0 || req.Units.IsNegative() || req.Units.IsZero() {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, transaction, state, err := h.market.Buy(r.Context(), req.AccountID, req.Units)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":        "Buy order filled",
		"coin_balance":   account.CoinBalance,
		"asset_balance":  account.AssetBalance,
		"price":          state.CurrentPrice,
		"transaction_id": transaction.ID,
	})
}

// SellRequest represents the request body for a market sell. The
// security PIN authorizes the order.
type SellRequest struct {
	AccountID int64           `json:"account_id"`
	Units     decimal.Decimal `json:"units"`
	PIN       string          `json:"pin"`
}

// Sell handles the sell order request.
// POST /market/sell
func (h *MarketHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.AccountID == 0 || req.Units.IsNegative() || req.Units.IsZero() {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, transaction, state, err := h.market.Sell(r.Context(), req.AccountID, req.Units, req.PIN)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":        "Sell order filled",
		"coin_balance":   account.CoinBalance,
		"asset_balance":  account.AssetBalance,
		"price":          state.CurrentPrice,
		"proceeds":       transaction.CoinAmount,
		"transaction_id": transaction.ID,
	})
}
