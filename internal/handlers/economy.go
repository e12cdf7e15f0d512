package handlers

import (
	"net/http"

	"github.com/packduel/packduel/internal/economy"
)

type balanceResponse struct {
	UserID   string `json:"userId"`
	Currency int64  `json:"currency"`
}

// BalanceHandler returns the authenticated caller's balance.
func BalanceHandler(ledger *economy.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		balance, err := ledger.Balance(r.Context(), userID)
		if err != nil {
			http.Error(w, "failed to read balance", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Currency: balance})
	}
}
