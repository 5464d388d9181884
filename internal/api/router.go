// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"zpexk-rewards/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(accountHandler *handler.AccountHandler, marketHandler *handler.MarketHandler, transferHandler *handler.TransferHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)                       // Add a request ID to the context
	r.Use(middleware.RealIP)                          // Use the real IP address
	r.Use(middleware.Logger)                          // Log HTTP requests
	r.Use(middleware.Recoverer)                       // Recover from panics and return 500
	r.Use(middleware.Timeout(handler.DefaultTimeout)) // Set a default timeout for requests

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Account, ledger and reward routes
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", accountHandler.CreateAccount)
		r.Get("/{accountID}", accountHandler.GetAccount)
		r.Get("/{accountID}/transactions", accountHandler.GetTransactionHistory)
		r.Put("/{accountID}/pin", accountHandler.UpdatePIN)
		r.Get("/{accountID}/tasks", accountHandler.GetTasks)
		r.Post("/{accountID}/tasks/{taskID}/complete", accountHandler.CompleteTask)
		r.Post("/{accountID}/play", accountHandler.Play)
		r.Post("/{accountID}/redemptions", accountHandler.Redeem)
		r.Post("/{accountID}/promo", accountHandler.RedeemPromo)
	})

	// Minigame leaderboard
	r.Get("/leaderboard", accountHandler.GetLeaderboard)

	// Market routes
	r.Route("/market", func(r chi.Router) {
		r.Get("/", marketHandler.GetMarket)
		r.Get("/candles", marketHandler.GetCandles)
		r.Post("/buy", marketHandler.Buy)
		r.Post("/sell", marketHandler.Sell)
	})

	// Transfer is a separate top-level endpoint as it involves two accounts
	r.Post("/transfers", transferHandler.Transfer)

	return r
}
