// internal/api/handler/account.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zpexk-rewards/internal/api/types"
	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/service"
	"zpexk-rewards/internal/util"
)

// AccountHandler handles HTTP requests for account lifecycle, the
// ledger, the security PIN and the reward surface.
type AccountHandler struct {
	accounts service.AccountService
	security service.SecurityService
	rewards  service.RewardService
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts service.AccountService, security service.SecurityService, rewards service.RewardService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		security: security,
		rewards:  rewards,
		logger:   logger,
	}
}

func accountIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		return 0, util.ErrInvalidInput
	}
	return id, nil
}

// CreateAccountRequest represents the request body for account creation.
type CreateAccountRequest struct {
	Username   string  `json:"username"`
	ReferredBy *string `json:"referred_by,omitempty"`
}

// CreateAccount handles the create account request.
// POST /accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.Username, req.ReferredBy)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, account)
}

// GetAccount handles the get account request.
// GET /accounts/{accountID}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, account)
}

// GetTransactionHistory handles the paginated ledger read.
// GET /accounts/{accountID}/transactions
func (h *AccountHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0 // Default offset
	}

	transactions, totalCount, err := h.accounts.GetTransactionHistory(r.Context(), accountID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// UpdatePINRequest represents the request body for a PIN change.
type UpdatePINRequest struct {
	PIN string `json:"pin"`
}

// UpdatePIN handles the security PIN change request.
// PUT /accounts/{accountID}/pin
func (h *AccountHandler) UpdatePIN(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req UpdatePINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, err := h.security.SetPIN(r.Context(), accountID, req.PIN)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":    "Security PIN updated",
		"account_id": account.ID,
	})
}

// GetTasks returns the task-wall entries still open for the account.
// GET /accounts/{accountID}/tasks
func (h *AccountHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	tasks, err := h.rewards.Tasks(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{"data": tasks})
}

// CompleteTask handles the task completion callback.
// POST /accounts/{accountID}/tasks/{taskID}/complete
func (h *AccountHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	taskID := chi.URLParam(r, "taskID")

	account, transaction, err := h.rewards.CompleteTask(r.Context(), accountID, taskID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":        "Task reward credited",
		"coin_balance":   account.CoinBalance,
		"lifetime_coins": account.LifetimeCoins,
		"transaction_id": transaction.ID,
	})
}

// PlayRequest represents a finished minigame round.
type PlayRequest struct {
	Score int64 `json:"score"`
}

// Play handles the minigame result submission.
// POST /accounts/{accountID}/play
func (h *AccountHandler) Play(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, transaction, err := h.rewards.RecordPlayResult(r.Context(), accountID, req.Score)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	payload := map[string]interface{}{
		"message":      "Play result recorded",
		"coin_balance": account.CoinBalance,
		"high_score":   account.HighScore,
	}
	if transaction != nil {
		payload["reward"] = transaction.CoinAmount
		payload["transaction_id"] = transaction.ID
	}
	respondWithJSON(w, h.logger, http.StatusOK, payload)
}

// RedemptionRequest represents the request body for a reward
// redemption. Kind selects between a gift code and a game-credit
// transfer.
type RedemptionRequest struct {
	Kind    string `json:"kind"` // "gift_code" or "game_credit"
	TierID  string `json:"tier_id,omitempty"`
	Tokens  int64  `json:"tokens,omitempty"`
	Nametag string `json:"nametag,omitempty"`
}

// Redeem handles the reward redemption request.
// POST /accounts/{accountID}/redemptions
func (h *AccountHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req RedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	var (
		account     *domain.Account
		transaction *domain.Transaction
	)
	switch req.Kind {
	case "gift_code":
		account, transaction, err = h.rewards.RedeemGiftCode(r.Context(), accountID, req.TierID)
	case "game_credit":
		account, transaction, err = h.rewards.RedeemGameCredit(r.Context(), accountID, req.Tokens, req.Nametag)
	default:
		err = util.ErrInvalidInput
	}
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	payload := map[string]interface{}{
		"message":        "Redemption recorded",
		"coin_balance":   account.CoinBalance,
		"transaction_id": transaction.ID,
		"status":         transaction.Status,
	}
	if transaction.RedeemCode != nil {
		payload["redeem_code"] = *transaction.RedeemCode
	}
	respondWithJSON(w, h.logger, http.StatusOK, payload)
}

// PromoRequest represents a promo-code submission.
type PromoRequest struct {
	Code string `json:"code"`
}

// RedeemPromo handles the promo-code redemption request.
// POST /accounts/{accountID}/promo
func (h *AccountHandler) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req PromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, transaction, err := h.rewards.RedeemPromoCode(r.Context(), accountID, req.Code)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":        "Promo bonus credited",
		"coin_balance":   account.CoinBalance,
		"lifetime_coins": account.LifetimeCoins,
		"transaction_id": transaction.ID,
	})
}

// GetLeaderboard returns the best minigame scores.
// GET /leaderboard
func (h *AccountHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 0 // Service applies the default size
	}

	entries, err := h.accounts.GetLeaderboard(r.Context(), limit)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{"data": entries})
}
