package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/packduel/packduel/internal/challenge"
)

// IssueChallengeHandler opens a wager challenge against another user.
func IssueChallengeHandler(c *challenge.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fromID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			TargetID string `json:"targetId"`
			Wager    int64  `json:"wager"`
			PoolID   string `json:"poolId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, c.Issue(r.Context(), fromID, req.TargetID, req.Wager, req.PoolID))
	}
}

// AcceptChallengeHandler resolves the challenge pending against the caller.
func AcceptChallengeHandler(c *challenge.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			ChallengerID string `json:"challengerId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, c.Accept(r.Context(), toID, req.ChallengerID))
	}
}

// RejectChallengeHandler declines the challenge pending against the caller.
func RejectChallengeHandler(c *challenge.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			ChallengerID string `json:"challengerId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, c.Reject(toID, req.ChallengerID))
	}
}

// CancelChallengeHandler withdraws the caller's outstanding challenge.
func CancelChallengeHandler(c *challenge.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fromID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, c.Cancel(fromID))
	}
}
